// Package security validates untrusted input before it reaches extraction.
package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

var (
	ErrInputTooLarge    = errors.New("input exceeds maximum size")
	ErrNullByteDetected = errors.New("null byte detected in input")
	ErrInvalidEncoding  = errors.New("input is not valid UTF-8")
	ErrTooManyDocuments = errors.New("too many documents in one request")
)

// InputValidator bounds OCR text submitted over the API
type InputValidator struct {
	MaxSize      int
	MaxDocuments int
}

func NewInputValidator() *InputValidator {
	return &InputValidator{
		MaxSize:      100 * 1024,
		MaxDocuments: 500,
	}
}

// Validate checks a single document's text
func (v *InputValidator) Validate(text string) error {
	if err := v.check(text); err != nil {
		return apperrors.WrapAs(apperrors.ErrBadRequest, err)
	}
	return nil
}

// ValidateBatch checks the document count, then every text
func (v *InputValidator) ValidateBatch(texts []string) error {
	if v.MaxDocuments > 0 && len(texts) > v.MaxDocuments {
		return apperrors.WrapAs(apperrors.ErrBadRequest, ErrTooManyDocuments)
	}
	for i, text := range texts {
		if err := v.check(text); err != nil {
			return apperrors.WrapAs(apperrors.ErrBadRequest, fmt.Errorf("document %d: %w", i+1, err))
		}
	}
	return nil
}

func (v *InputValidator) check(text string) error {
	if v.MaxSize > 0 && len(text) > v.MaxSize {
		return ErrInputTooLarge
	}
	if strings.IndexByte(text, 0) >= 0 {
		return ErrNullByteDetected
	}
	if !utf8.ValidString(text) {
		return ErrInvalidEncoding
	}
	return nil
}
