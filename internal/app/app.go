package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gmsas95/docscan/internal/api"
	"github.com/gmsas95/docscan/internal/batch"
	"github.com/gmsas95/docscan/internal/config"
	"github.com/gmsas95/docscan/internal/cron"
	"github.com/gmsas95/docscan/internal/metrics"
	"github.com/gmsas95/docscan/internal/ocr"
	"github.com/gmsas95/docscan/internal/store"
)

type App struct {
	Config     *config.Config
	Store      *store.Store
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	CronRunner *cron.Runner
	Version    string

	scanner batch.Scanner
}

func New(cfg *config.Config, st *store.Store, logger *zap.Logger, version string) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Config:  cfg,
		Store:   st,
		Logger:  logger,
		Metrics: metrics.Default(),
		Version: version,
	}
}

// SetScanner replaces the scanner built from config
func (app *App) SetScanner(s batch.Scanner) {
	app.scanner = s
}

// Scanner returns the batch scanner, building the OCR chain on first use
func (app *App) Scanner() (batch.Scanner, error) {
	if app.scanner != nil {
		return app.scanner, nil
	}
	if app.Config == nil {
		return nil, fmt.Errorf("app has no config")
	}

	var cache ocr.TextCache
	if app.Store != nil {
		cache = app.Store
	}

	provider, err := ocr.NewFromConfig(app.Config.OCR, cache, app.Logger.Named("ocr"))
	if err != nil {
		return nil, err
	}

	bc := app.Config.Batch
	processor := batch.NewProcessor(provider, batch.Config{
		MaxConcurrency: bc.MaxConcurrency,
		ItemTimeout:    bc.ItemTimeout,
		RetryCount:     bc.RetryCount,
		RetryDelay:     bc.RetryDelay,
	}, app.Logger.Named("batch"), app.Metrics)

	rl := app.Config.OCR.RateLimit
	if rl.PerSecond > 0 {
		app.scanner = batch.NewRateLimitedProcessor(processor, batch.RateLimiterConfig{
			PerSecond: rl.PerSecond,
			Burst:     rl.Burst,
		})
	} else {
		app.scanner = processor
	}
	return app.scanner, nil
}

// NewServer wires the HTTP API to the app's store and scanner
func (app *App) NewServer() (*api.Server, error) {
	scanner, err := app.Scanner()
	if err != nil {
		return nil, err
	}
	return api.New(app.Config, app.Store, scanner, app.Metrics, app.Logger.Named("api")), nil
}

// StartPurger schedules retention purges of stored batches
func (app *App) StartPurger() error {
	if app.Store == nil {
		return fmt.Errorf("app has no store")
	}
	app.CronRunner = cron.NewRunner(cron.Config{
		Schedule:  app.Config.Storage.PurgeSchedule,
		Retention: app.Config.Storage.Retention,
	}, app.Store, app.Logger.Named("purge"))
	return app.CronRunner.Start()
}

func (app *App) RunServer() {
	server, err := app.NewServer()
	if err != nil {
		app.Logger.Fatal("Failed to build server", zap.Error(err))
	}

	if err := app.StartPurger(); err != nil {
		app.Logger.Error("Failed to start purge runner", zap.Error(err))
	} else {
		app.Logger.Info("Purge runner started",
			zap.String("schedule", app.Config.Storage.PurgeSchedule),
			zap.Duration("retention", app.Config.Storage.Retention),
		)
	}

	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.Server.Address),
		zap.Int("port", app.Config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)),
		zap.String("version", app.Version),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	if app.CronRunner != nil {
		app.CronRunner.Stop()
	}

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
}

// Close releases the store and flushes the logger
func (app *App) Close() error {
	var err error
	if app.Store != nil {
		err = app.Store.Close()
	}
	_ = app.Logger.Sync()
	return err
}
