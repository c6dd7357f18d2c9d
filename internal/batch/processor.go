package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/docscan/internal/errors"
	"github.com/gmsas95/docscan/internal/extract"
	"github.com/gmsas95/docscan/internal/metrics"
	"github.com/gmsas95/docscan/internal/ocr"
)

// Scanner runs OCR and extraction over a batch of images.
// Processor and RateLimitedProcessor both satisfy it.
type Scanner interface {
	Scan(ctx context.Context, images []ocr.Image) (*Result, error)
}

type Processor struct {
	provider  ocr.Provider
	extractor *extract.Extractor
	config    Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

type Config struct {
	MaxConcurrency int
	ItemTimeout    time.Duration
	RetryCount     int
	RetryDelay     time.Duration
}

// ItemResult is the outcome for one input image. Record is nil when
// recognition failed; no placeholder record is made up for it.
type ItemResult struct {
	Index    int
	Source   string
	Record   *extract.DocumentRecord
	Err      error
	Duration time.Duration
}

type Result struct {
	ID        string
	Items     []ItemResult
	Success   int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 3,
		ItemTimeout:    60 * time.Second,
		RetryCount:     0,
		RetryDelay:     1 * time.Second,
	}
}

// NewProcessor creates a processor. A nil logger or metrics falls back
// to a no-op logger and the process-wide metrics.
func NewProcessor(provider ocr.Provider, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Processor {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Default()
	}
	return &Processor{
		provider:  provider,
		extractor: extract.NewExtractor(),
		config:    cfg,
		logger:    logger,
		metrics:   m,
	}
}

// WithExtractor swaps the rule table used for extraction
func (p *Processor) WithExtractor(e *extract.Extractor) *Processor {
	p.extractor = e
	return p
}

// Scan recognizes and extracts every image. Items come back in input
// order with 1-based indexes whatever order the workers finish in, and a
// failing item never affects the others.
func (p *Processor) Scan(ctx context.Context, images []ocr.Image) (*Result, error) {
	return p.run(ctx, images, nil, nil)
}

type job struct {
	pos int
	img ocr.Image
}

// run is shared with RateLimitedProcessor: wait is called before each
// OCR call and progress is bumped after each item.
func (p *Processor) run(ctx context.Context, images []ocr.Image, wait func(context.Context) error, progress *ProgressTracker) (*Result, error) {
	if len(images) == 0 {
		return nil, apperrors.ErrEmptyBatch
	}

	result := &Result{
		ID:        uuid.NewString(),
		Items:     make([]ItemResult, len(images)),
		StartTime: time.Now(),
	}

	concurrency := p.config.MaxConcurrency
	if concurrency > len(images) {
		concurrency = len(images)
	}

	p.logger.Info("Starting batch scan",
		zap.String("batch_id", result.ID),
		zap.Int("total_items", len(images)),
		zap.Int("concurrency", concurrency),
	)

	jobs := make(chan job, len(images))
	for i, img := range images {
		jobs <- job{pos: i, img: img}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// each worker writes only its own slot
				result.Items[j.pos] = p.processItem(ctx, j, wait)
				if progress != nil {
					progress.Increment()
				}
			}
		}()
	}
	wg.Wait()

	for _, item := range result.Items {
		if item.Err == nil {
			result.Success++
		} else {
			result.Failed++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	p.metrics.RecordBatch(result.Success, result.Failed)

	p.logger.Info("Batch scan complete",
		zap.String("batch_id", result.ID),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)

	return result, ctx.Err()
}

func (p *Processor) processItem(ctx context.Context, j job, wait func(context.Context) error) ItemResult {
	start := time.Now()
	item := ItemResult{
		Index:  j.pos + 1,
		Source: j.img.Name,
	}
	if item.Source == "" {
		item.Source = fmt.Sprintf("image-%d", item.Index)
	}

	text, err := p.recognize(ctx, j.img, wait)
	item.Duration = time.Since(start)
	if err != nil {
		item.Err = err
		p.logger.Warn("OCR failed",
			zap.Int("index", item.Index),
			zap.String("source", item.Source),
			zap.String("code", apperrors.GetCode(err)),
			zap.Error(err),
		)
		return item
	}

	rec := p.extractor.Extract(text, item.Index)
	item.Record = &rec
	p.metrics.RecordRecord(rec)
	return item
}

func (p *Processor) recognize(ctx context.Context, img ocr.Image, wait func(context.Context) error) (string, error) {
	var text string
	var err error

	for attempt := 0; attempt <= p.config.RetryCount; attempt++ {
		if err = ctx.Err(); err != nil {
			return "", err
		}
		if wait != nil {
			if err = wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		itemCtx, cancel := p.itemContext(ctx)

		start := time.Now()
		text, err = p.provider.Recognize(itemCtx, img)
		p.metrics.RecordOCR(p.provider.Name(), err == nil, time.Since(start))
		cancel()

		if err == nil {
			return text, nil
		}
		if !retryable(ctx, err) || attempt == p.config.RetryCount {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.config.RetryDelay):
		}
	}

	if errors.Is(err, context.DeadlineExceeded) && !apperrors.IsAppError(err) {
		err = apperrors.WrapAs(apperrors.ErrOCRTimeout, err)
	}
	return "", err
}

func (p *Processor) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.config.ItemTimeout > 0 {
		return context.WithTimeout(ctx, p.config.ItemTimeout)
	}
	return context.WithCancel(ctx)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, apperrors.ErrOCRUnsupported) && !errors.Is(err, context.Canceled)
}

// ExtractTexts runs extraction on already recognized texts
func (p *Processor) ExtractTexts(texts []string) *Result {
	result := extractTexts(p.extractor, texts)
	for _, item := range result.Items {
		p.metrics.RecordRecord(*item.Record)
	}
	return result
}

// ExtractTexts runs the default extractor over texts without OCR
func ExtractTexts(texts []string) *Result {
	return extractTexts(extract.NewExtractor(), texts)
}

func extractTexts(e *extract.Extractor, texts []string) *Result {
	result := &Result{
		ID:        uuid.NewString(),
		Items:     make([]ItemResult, len(texts)),
		StartTime: time.Now(),
	}

	for i, rec := range e.ExtractBatch(texts) {
		rec := rec
		result.Items[i] = ItemResult{
			Index:  rec.Index(),
			Source: fmt.Sprintf("text-%d", rec.Index()),
			Record: &rec,
		}
	}

	result.Success = len(texts)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

// Records returns the successfully extracted records in input order
func (r *Result) Records() []extract.DocumentRecord {
	records := make([]extract.DocumentRecord, 0, r.Success)
	for _, item := range r.Items {
		if item.Record != nil {
			records = append(records, *item.Record)
		}
	}
	return records
}

func (r *Result) Total() int {
	return len(r.Items)
}

func (r *Result) Summary() string {
	var sb strings.Builder
	sb.WriteString("=== Batch Scan Summary ===\n")
	sb.WriteString(fmt.Sprintf("Batch:     %s\n", r.ID))
	sb.WriteString(fmt.Sprintf("Total:     %d\n", r.Total()))
	sb.WriteString(fmt.Sprintf("Success:   %d\n", r.Success))
	sb.WriteString(fmt.Sprintf("Failed:    %d\n", r.Failed))
	sb.WriteString(fmt.Sprintf("Duration:  %v\n", r.Duration))
	return sb.String()
}

type itemJSON struct {
	Index      int                     `json:"index"`
	Source     string                  `json:"source"`
	Record     *extract.DocumentRecord `json:"record"`
	Error      string                  `json:"error,omitempty"`
	Code       string                  `json:"code,omitempty"`
	DurationMS int64                   `json:"duration_ms"`
}

func (i ItemResult) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		Index:      i.Index,
		Source:     i.Source,
		Record:     i.Record,
		DurationMS: i.Duration.Milliseconds(),
	}
	if i.Err != nil {
		out.Error = i.Err.Error()
		out.Code = apperrors.GetCode(i.Err)
	}
	return json.Marshal(out)
}

type resultJSON struct {
	ID         string       `json:"id"`
	Total      int          `json:"total"`
	Success    int          `json:"success"`
	Failed     int          `json:"failed"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    time.Time    `json:"end_time"`
	DurationMS int64        `json:"duration_ms"`
	Items      []ItemResult `json:"items"`
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		ID:         r.ID,
		Total:      r.Total(),
		Success:    r.Success,
		Failed:     r.Failed,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		DurationMS: r.Duration.Milliseconds(),
		Items:      r.Items,
	})
}

func (r *Result) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
