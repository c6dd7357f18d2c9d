package ocr

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

// BreakerProvider stops calling a failing engine for a cool-down period
type BreakerProvider struct {
	next   Provider
	cb     *gobreaker.CircuitBreaker[string]
	logger *zap.Logger
}

// NewBreakerProvider wraps next with a circuit breaker that opens after
// maxFailures consecutive engine failures and half-opens after openTimeout.
func NewBreakerProvider(next Provider, maxFailures uint32, openTimeout time.Duration, logger *zap.Logger) *BreakerProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxFailures == 0 {
		maxFailures = 5
	}

	b := &BreakerProvider{next: next, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "ocr-" + next.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Bad input and caller cancellation say nothing about engine health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, apperrors.ErrOCRUnsupported) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("OCR circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return b
}

func (b *BreakerProvider) Name() string { return b.next.Name() }

// State returns the current breaker state
func (b *BreakerProvider) State() gobreaker.State { return b.cb.State() }

func (b *BreakerProvider) Recognize(ctx context.Context, img Image) (string, error) {
	text, err := b.cb.Execute(func() (string, error) {
		return b.next.Recognize(ctx, img)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", apperrors.WrapAs(apperrors.ErrOCRUnavailable, err)
	}
	return text, err
}
