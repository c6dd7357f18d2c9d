// Package ocr turns document images into raw text for the extractor.
//
// A Provider is the only boundary the rest of docscan sees. Concrete
// engines (the tesseract CLI, gosseract when built with -tags ocr) are
// wrapped by BreakerProvider and CachedProvider through NewFromConfig.
package ocr

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Provider recognizes the text printed on a document image
type Provider interface {
	Recognize(ctx context.Context, img Image) (string, error)
	Name() string
}

// Image is one captured document photo or scan
type Image struct {
	Name string
	Data []byte
}

// ContentHash returns the sha256 of the image bytes as hex
func (i Image) ContentHash() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
	"image/tiff": true,
}

// DetectFormat sniffs the MIME type of the image data.
// http.DetectContentType does not know TIFF, so its magic is checked first.
func DetectFormat(data []byte) string {
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return "image/tiff"
	}
	return http.DetectContentType(data)
}

// IsSupported reports whether the data looks like an image the engines accept
func IsSupported(data []byte) bool {
	return len(data) > 0 && supportedTypes[DetectFormat(data)]
}
