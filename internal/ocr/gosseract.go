//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

// GosseractProvider recognizes text in-process through libtesseract.
// A client is created per call since gosseract clients are not goroutine safe.
type GosseractProvider struct {
	cfg TesseractConfig
}

// NewGosseractProvider creates the cgo-backed provider
func NewGosseractProvider(cfg TesseractConfig) (*GosseractProvider, error) {
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if cfg.PSM == 0 {
		cfg.PSM = int(gosseract.PSM_SINGLE_BLOCK)
	}
	return &GosseractProvider{cfg: cfg}, nil
}

func (g *GosseractProvider) Name() string { return "gosseract" }

func (g *GosseractProvider) Recognize(ctx context.Context, img Image) (string, error) {
	if !IsSupported(img.Data) {
		return "", apperrors.WrapAs(apperrors.ErrOCRUnsupported,
			fmt.Errorf("%s: detected %s", img.Name, DetectFormat(img.Data)))
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		text, err := g.recognize(img.Data)
		done <- outcome{text, err}
	}()

	select {
	case <-ctx.Done():
		return "", classify(ctx, img.Name, ctx.Err(), "")
	case o := <-done:
		if o.err != nil {
			return "", apperrors.WrapAs(apperrors.ErrOCRFailed, fmt.Errorf("%s: %w", img.Name, o.err))
		}
		return o.text, nil
	}
}

func (g *GosseractProvider) recognize(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if g.cfg.TessdataDir != "" {
		client.TessdataPrefix = g.cfg.TessdataDir
	}
	if err := client.SetLanguage(strings.Split(g.cfg.Languages, "+")...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(g.cfg.PSM)); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
