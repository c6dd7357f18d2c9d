// Package batch scans many document images concurrently and keeps the
// results in input order.
package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gmsas95/docscan/internal/ocr"
)

// RateLimiterConfig holds rate limiting configuration
type RateLimiterConfig struct {
	// PerSecond - OCR calls per second (0 = unlimited)
	PerSecond float64

	// Burst size for rate limiter
	Burst int

	// LogEvery - log progress after this many items (0 = every 10)
	LogEvery int
}

// RateLimitedProcessor extends Processor with a limit on OCR calls,
// for engines behind a shared host or a paid API.
type RateLimitedProcessor struct {
	*Processor
	rateLimiter *rate.Limiter
	config      RateLimiterConfig
}

// NewRateLimitedProcessor creates a processor with rate limiting
func NewRateLimitedProcessor(base *Processor, rlConfig RateLimiterConfig) *RateLimitedProcessor {
	rp := &RateLimitedProcessor{
		Processor: base,
		config:    rlConfig,
	}
	if rp.config.LogEvery <= 0 {
		rp.config.LogEvery = 10
	}

	if rlConfig.PerSecond > 0 {
		burst := rlConfig.Burst
		if burst <= 0 {
			burst = 1
		}
		rp.rateLimiter = rate.NewLimiter(rate.Limit(rlConfig.PerSecond), burst)
	}

	return rp
}

// Scan has the same contract as Processor.Scan and waits on the limiter
// before each OCR call.
func (rp *RateLimitedProcessor) Scan(ctx context.Context, images []ocr.Image) (*Result, error) {
	progress := &ProgressTracker{
		Total:     len(images),
		StartTime: time.Now(),
		OnStep: func(p *ProgressTracker, completed int) {
			if completed%rp.config.LogEvery == 0 || completed == p.Total {
				rp.logger.Info("Batch progress",
					zap.Int("completed", completed),
					zap.Int("total", p.Total),
					zap.Float64("percent", p.Percent()),
					zap.Duration("elapsed", p.Elapsed()),
					zap.Duration("eta", p.ETA()),
				)
			}
		},
	}

	var wait func(context.Context) error
	if rp.rateLimiter != nil {
		wait = rp.rateLimiter.Wait
	}

	result, err := rp.run(ctx, images, wait, progress)
	if result != nil {
		rp.logPerformanceStats(result)
	}
	return result, err
}

func (rp *RateLimitedProcessor) logPerformanceStats(result *Result) {
	duration := result.Duration.Minutes()
	if duration == 0 {
		duration = 0.001 // Avoid division by zero
	}

	rp.logger.Info("Rate-limited scan stats",
		zap.Int("total", result.Total()),
		zap.Float64("per_second_limit", rp.config.PerSecond),
		zap.Float64("images_per_minute", float64(result.Total())/duration),
	)
}

// ProgressTracker tracks batch processing progress
type ProgressTracker struct {
	Total     int
	Completed int
	StartTime time.Time
	OnStep    func(p *ProgressTracker, completed int)
	mu        sync.RWMutex
}

func (p *ProgressTracker) Increment() {
	p.mu.Lock()
	p.Completed++
	completed := p.Completed
	p.mu.Unlock()

	if p.OnStep != nil {
		p.OnStep(p, completed)
	}
}

func (p *ProgressTracker) Percent() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

func (p *ProgressTracker) Elapsed() time.Duration {
	return time.Since(p.StartTime)
}

func (p *ProgressTracker) ETA() time.Duration {
	p.mu.RLock()
	completed := p.Completed
	total := p.Total
	p.mu.RUnlock()

	if completed == 0 {
		return 0
	}

	elapsed := p.Elapsed()
	perItem := elapsed / time.Duration(completed)
	return perItem * time.Duration(total-completed)
}
