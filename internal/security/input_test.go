package security

import (
	"errors"
	"strings"
	"testing"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

func TestInputValidator_Valid(t *testing.T) {
	v := NewInputValidator()
	inputs := []string{
		"",
		"Nome: Mario\nCognome: Rossi",
		"NATIONALITÉ: FRANÇAISE",
		strings.Repeat("-", 500),
	}

	for _, input := range inputs {
		if err := v.Validate(input); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", input, err)
		}
	}
}

func TestInputValidator_Invalid(t *testing.T) {
	v := NewInputValidator()
	v.MaxSize = 10

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"too large", strings.Repeat("a", 11), ErrInputTooLarge},
		{"null byte", "Name:\x00Mario", ErrNullByteDetected},
		{"bad utf8", "Name: \xff\xfe", ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, apperrors.ErrBadRequest) {
				t.Errorf("expected bad request code, got %s", apperrors.GetCode(err))
			}
		})
	}
}

func TestInputValidator_ValidateBatch(t *testing.T) {
	v := NewInputValidator()
	v.MaxDocuments = 2

	if err := v.ValidateBatch([]string{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := v.ValidateBatch([]string{"a", "b", "c"}); !errors.Is(err, ErrTooManyDocuments) {
		t.Errorf("expected ErrTooManyDocuments, got %v", err)
	}

	err := v.ValidateBatch([]string{"ok", "bad\x00"})
	if !errors.Is(err, ErrNullByteDetected) {
		t.Errorf("expected ErrNullByteDetected, got %v", err)
	}
	if !strings.Contains(err.Error(), "document 2") {
		t.Errorf("expected failing document to be named, got %v", err)
	}
}
