package ocr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

// TesseractConfig configures the tesseract CLI provider
type TesseractConfig struct {
	Binary      string
	Languages   string
	PSM         int
	TessdataDir string
	Timeout     time.Duration
}

// TesseractProvider runs the tesseract binary, feeding the image on
// stdin and reading the text from stdout, so no temp files are needed.
type TesseractProvider struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseractProvider creates a provider. A nil runner uses os/exec.
func NewTesseractProvider(cfg TesseractConfig, runner Runner) *TesseractProvider {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	if cfg.PSM == 0 {
		cfg.PSM = 6 // single uniform block of text
	}
	if runner == nil {
		runner = NewExecRunner(nil)
	}
	return &TesseractProvider{cfg: cfg, runner: runner}
}

func (t *TesseractProvider) Name() string { return "tesseract" }

// IsAvailable checks if the tesseract binary is on PATH
func (t *TesseractProvider) IsAvailable() bool {
	_, err := exec.LookPath(t.cfg.Binary)
	return err == nil
}

func (t *TesseractProvider) args() []string {
	args := []string{"stdin", "stdout", "-l", t.cfg.Languages, "--psm", strconv.Itoa(t.cfg.PSM)}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return args
}

// Recognize extracts the text of img
func (t *TesseractProvider) Recognize(ctx context.Context, img Image) (string, error) {
	if !IsSupported(img.Data) {
		return "", apperrors.WrapAs(apperrors.ErrOCRUnsupported,
			fmt.Errorf("%s: detected %s", img.Name, DetectFormat(img.Data)))
	}

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	stdout, stderr, err := t.runner.Run(ctx, img.Data, t.cfg.Binary, t.args()...)
	if err != nil {
		return "", classify(ctx, img.Name, err, string(stderr))
	}

	return strings.TrimSpace(string(stdout)), nil
}

// classify maps an engine failure to the OCR error codes.
// Caller cancellation is returned as the bare context error.
func classify(ctx context.Context, name string, err error, detail string) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.WrapAs(apperrors.ErrOCRTimeout, fmt.Errorf("%s: %w", name, ctx.Err()))
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case errors.Is(err, exec.ErrNotFound):
		return apperrors.WrapAs(apperrors.ErrOCRUnavailable, err)
	}

	if detail = strings.TrimSpace(detail); detail != "" {
		err = fmt.Errorf("%w: %s", err, truncate(detail, 512))
	}
	return apperrors.WrapAs(apperrors.ErrOCRFailed, fmt.Errorf("%s: %w", name, err))
}

// ListLanguages lists the languages installed for tesseract
func (t *TesseractProvider) ListLanguages(ctx context.Context) ([]string, error) {
	stdout, _, err := t.runner.Run(ctx, nil, t.cfg.Binary, "--list-langs")
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}

	var langs []string
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.Contains(line, "List") {
			langs = append(langs, line)
		}
	}
	return langs, nil
}
