// Package cron purges scan history on a schedule. Identity document data
// is sensitive, so nothing is kept longer than the configured retention.
package cron

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config holds cron runner configuration
type Config struct {
	Schedule  string        // standard cron spec or descriptor such as @hourly
	Retention time.Duration // history older than this is purged
}

// Purger deletes persisted scans created before a cutoff
type Purger interface {
	PurgeBefore(t time.Time) (int64, error)
}

// Runner manages the retention job
type Runner struct {
	config  Config
	purger  Purger
	logger  *zap.Logger
	cron    *cron.Cron
	now     func() time.Time
	running bool
	mu      sync.RWMutex
}

// NewRunner creates a new cron runner
func NewRunner(config Config, purger Purger, logger *zap.Logger) *Runner {
	if config.Schedule == "" {
		config.Schedule = "@hourly"
	}
	if config.Retention <= 0 {
		config.Retention = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		config: config,
		purger: purger,
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the purge and runs it once right away
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("cron runner already running")
	}

	cl := cronLogger{r.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(r.config.Schedule, func() { r.RunOnce() }); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", r.config.Schedule, err)
	}

	r.RunOnce()
	c.Start()

	r.cron = c
	r.running = true
	r.logger.Info("Retention purge scheduled",
		zap.String("schedule", r.config.Schedule),
		zap.Duration("retention", r.config.Retention),
	)
	return nil
}

// Stop stops the cron runner and waits for a running purge
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	c := r.cron
	r.mu.Unlock()

	<-c.Stop().Done()
	r.logger.Info("Cron runner stopped")
}

// IsRunning returns whether the runner is active
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// RunOnce purges everything older than the retention window
func (r *Runner) RunOnce() (int64, error) {
	cutoff := r.now().Add(-r.config.Retention)

	purged, err := r.purger.PurgeBefore(cutoff)
	if err != nil {
		r.logger.Error("Retention purge failed", zap.Error(err))
		return 0, err
	}
	if purged > 0 {
		r.logger.Info("Purged scan history",
			zap.Int64("batches", purged),
			zap.Time("cutoff", cutoff),
		)
	}
	return purged, nil
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
