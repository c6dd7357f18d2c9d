package ocr

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gmsas95/docscan/internal/config"
)

// NewFromConfig builds the provider chain: engine, then circuit breaker,
// then cache (when one is given).
func NewFromConfig(cfg config.OCRConfig, cache TextCache, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tc := TesseractConfig{
		Binary:      cfg.Binary,
		Languages:   cfg.Languages,
		PSM:         cfg.PSM,
		TessdataDir: cfg.TessdataDir,
		Timeout:     cfg.Timeout,
	}

	var engine Provider
	switch cfg.Engine {
	case "", "tesseract":
		engine = NewTesseractProvider(tc, NewExecRunner(logger.Named("exec")))
	case "gosseract":
		g, err := NewGosseractProvider(tc)
		if err != nil {
			return nil, err
		}
		engine = g
	default:
		return nil, fmt.Errorf("unknown OCR engine: %s", cfg.Engine)
	}

	var p Provider = NewBreakerProvider(engine, cfg.Breaker.MaxFailures, cfg.Breaker.OpenTimeout, logger)
	if cache != nil {
		p = NewCachedProvider(p, cache, cfg.CacheTTL, logger)
	}

	logger.Info("OCR provider ready",
		zap.String("engine", engine.Name()),
		zap.String("languages", cfg.Languages),
		zap.Bool("cache", cache != nil),
	)
	return p, nil
}
