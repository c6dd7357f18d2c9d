//go:build !ocr

package ocr

import (
	"context"
	"errors"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

// ErrOCRNotEnabled is returned when the in-process engine was not compiled in.
// Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("gosseract support not enabled; rebuild with -tags ocr")

// GosseractProvider is the placeholder used without the ocr build tag
type GosseractProvider struct{}

// NewGosseractProvider always fails in builds without the ocr tag
func NewGosseractProvider(TesseractConfig) (*GosseractProvider, error) {
	return nil, apperrors.WrapAs(apperrors.ErrOCRUnavailable, ErrOCRNotEnabled)
}

func (g *GosseractProvider) Name() string { return "gosseract" }

func (g *GosseractProvider) Recognize(context.Context, Image) (string, error) {
	return "", apperrors.WrapAs(apperrors.ErrOCRUnavailable, ErrOCRNotEnabled)
}
