// Package metrics tracks extraction and OCR activity.
//
// Counters are kept twice: as atomics for the JSON snapshot served on
// /api/health, and as Prometheus collectors on a private registry
// served on /metrics.
package metrics

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gmsas95/docscan/internal/extract"
)

type Metrics struct {
	startTime time.Time

	recordsExtracted atomic.Int64
	fieldsFound      atomic.Int64

	ocrTotal   atomic.Int64
	ocrSuccess atomic.Int64
	ocrFailed  atomic.Int64

	batchesTotal atomic.Int64

	ocrTimes     []time.Duration
	ocrTimesLock sync.Mutex

	registry       *prometheus.Registry
	promOCR        *prometheus.CounterVec
	promOCRTime    prometheus.Histogram
	promFields     *prometheus.CounterVec
	promBatches    prometheus.Counter
	promBatchItems *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		ocrTimes:  make([]time.Duration, 0, 1000),
		registry:  prometheus.NewRegistry(),

		promOCR: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_ocr_requests_total",
			Help: "OCR calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		promOCRTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docscan_ocr_duration_seconds",
			Help:    "Time spent recognizing one image",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		}),
		promFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_fields_total",
			Help: "Extracted fields by kind and status",
		}, []string{"field", "status"}),
		promBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docscan_batches_total",
			Help: "Batches processed",
		}),
		promBatchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docscan_batch_items_total",
			Help: "Batch items by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.promOCR,
		m.promOCRTime,
		m.promFields,
		m.promBatches,
		m.promBatchItems,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordOCR counts one recognition call and its latency
func (m *Metrics) RecordOCR(provider string, success bool, d time.Duration) {
	m.ocrTotal.Add(1)
	if success {
		m.ocrSuccess.Add(1)
	} else {
		m.ocrFailed.Add(1)
	}
	m.promOCR.WithLabelValues(provider, outcome(success)).Inc()
	m.promOCRTime.Observe(d.Seconds())

	m.ocrTimesLock.Lock()
	defer m.ocrTimesLock.Unlock()
	m.ocrTimes = append(m.ocrTimes, d)
	if len(m.ocrTimes) > 1000 {
		m.ocrTimes = m.ocrTimes[1:]
	}
}

// RecordRecord counts every field of rec by status
func (m *Metrics) RecordRecord(rec extract.DocumentRecord) {
	m.recordsExtracted.Add(1)
	for _, nf := range rec.Fields() {
		if nf.Field.IsFound() {
			m.fieldsFound.Add(1)
		}
		m.promFields.WithLabelValues(nf.Kind.String(), nf.Field.Status().String()).Inc()
	}
}

// RecordBatch counts a finished batch and its item outcomes
func (m *Metrics) RecordBatch(success, failed int) {
	m.batchesTotal.Add(1)
	m.promBatches.Inc()
	m.promBatchItems.WithLabelValues("success").Add(float64(success))
	m.promBatchItems.WithLabelValues("failure").Add(float64(failed))
}

// Registry exposes the collectors, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type Snapshot struct {
	Uptime           time.Duration `json:"uptime"`
	RecordsExtracted int64         `json:"records_extracted"`
	FieldsFound      int64         `json:"fields_found"`
	OCRTotal         int64         `json:"ocr_total"`
	OCRSuccess       int64         `json:"ocr_success"`
	OCRFailed        int64         `json:"ocr_failed"`
	BatchesTotal     int64         `json:"batches_total"`
	AvgOCRTime       time.Duration `json:"avg_ocr_time"`
	P99OCRTime       time.Duration `json:"p99_ocr_time"`
	OCRSuccessRate   float64       `json:"ocr_success_rate"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:           time.Since(m.startTime),
		RecordsExtracted: m.recordsExtracted.Load(),
		FieldsFound:      m.fieldsFound.Load(),
		OCRTotal:         m.ocrTotal.Load(),
		OCRSuccess:       m.ocrSuccess.Load(),
		OCRFailed:        m.ocrFailed.Load(),
		BatchesTotal:     m.batchesTotal.Load(),
	}

	if s.OCRTotal > 0 {
		s.OCRSuccessRate = float64(s.OCRSuccess) / float64(s.OCRTotal) * 100
	}

	m.ocrTimesLock.Lock()
	if len(m.ocrTimes) > 0 {
		var total time.Duration
		for _, d := range m.ocrTimes {
			total += d
		}
		s.AvgOCRTime = total / time.Duration(len(m.ocrTimes))

		sorted := make([]time.Duration, len(m.ocrTimes))
		copy(sorted, m.ocrTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		p99Index := int(float64(len(sorted)) * 0.99)
		if p99Index >= len(sorted) {
			p99Index = len(sorted) - 1
		}
		s.P99OCRTime = sorted[p99Index]
	}
	m.ocrTimesLock.Unlock()

	return s
}

func RecordOCR(provider string, success bool, d time.Duration) {
	Default().RecordOCR(provider, success, d)
}

func RecordRecord(rec extract.DocumentRecord) {
	Default().RecordRecord(rec)
}

func RecordBatch(success, failed int) {
	Default().RecordBatch(success, failed)
}

func Handler() http.Handler {
	return Default().Handler()
}
