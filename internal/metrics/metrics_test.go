package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/docscan/internal/extract"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Error("New() returned nil")
	}
}

func TestDefault(t *testing.T) {
	m1 := Default()
	m2 := Default()

	if m1 != m2 {
		t.Error("Default() should return same instance")
	}
}

func TestRecordOCR(t *testing.T) {
	m := New()
	m.RecordOCR("tesseract", true, 200*time.Millisecond)
	m.RecordOCR("tesseract", false, 400*time.Millisecond)

	assert.Equal(t, int64(2), m.ocrTotal.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promOCR.WithLabelValues("tesseract", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promOCR.WithLabelValues("tesseract", "failure")))

	s := m.Snapshot()
	assert.Equal(t, 300*time.Millisecond, s.AvgOCRTime)
	assert.Equal(t, 400*time.Millisecond, s.P99OCRTime)
	assert.Equal(t, float64(50), s.OCRSuccessRate)
}

func TestRecordRecord(t *testing.T) {
	m := New()
	rec := extract.Extract("Nome: MARIO\nCognome: ROSSI\nPASSPORT", 1)

	m.RecordRecord(rec)

	assert.Equal(t, int64(1), m.recordsExtracted.Load())
	assert.Equal(t, int64(rec.FoundCount()), m.fieldsFound.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promFields.WithLabelValues("name", "found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promFields.WithLabelValues("address", "not_found")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promFields.WithLabelValues("document_type", "found")))
}

func TestRecordBatch(t *testing.T) {
	m := New()
	m.RecordBatch(3, 1)

	assert.Equal(t, int64(1), m.Snapshot().BatchesTotal)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.promBatchItems.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promBatchItems.WithLabelValues("failure")))
}

func TestSnapshot_Empty(t *testing.T) {
	s := New().Snapshot()
	if s.OCRSuccessRate != 0 {
		t.Errorf("expected zero success rate, got %v", s.OCRSuccessRate)
	}
	if s.AvgOCRTime != 0 {
		t.Errorf("expected zero avg time, got %v", s.AvgOCRTime)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordBatch(1, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "docscan_batches_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
