package ocr

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TextCache stores recognized text by image content hash
type TextCache interface {
	GetText(hash string) (string, bool, error)
	PutText(hash, text string, ttl time.Duration) error
}

// CachedProvider skips recognition for images it has already seen
type CachedProvider struct {
	next   Provider
	cache  TextCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedProvider(next Provider, cache TextCache, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedProvider) Name() string { return c.next.Name() }

func (c *CachedProvider) key(img Image) string {
	return c.next.Name() + ":" + img.ContentHash()
}

// Recognize returns cached text when present. Cache errors are logged and
// never fail the call.
func (c *CachedProvider) Recognize(ctx context.Context, img Image) (string, error) {
	key := c.key(img)

	text, ok, err := c.cache.GetText(key)
	if err != nil {
		c.logger.Warn("OCR cache read failed", zap.String("image", img.Name), zap.Error(err))
	} else if ok {
		c.logger.Debug("OCR cache hit", zap.String("image", img.Name))
		return text, nil
	}

	text, err = c.next.Recognize(ctx, img)
	if err != nil {
		return "", err
	}

	if err := c.cache.PutText(key, text, c.ttl); err != nil {
		c.logger.Warn("OCR cache write failed", zap.String("image", img.Name), zap.Error(err))
	}
	return text, nil
}
