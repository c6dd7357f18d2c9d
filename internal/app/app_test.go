package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/docscan/internal/batch"
	"github.com/gmsas95/docscan/internal/config"
	"github.com/gmsas95/docscan/internal/ocr"
	"github.com/gmsas95/docscan/internal/store"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{
			name:    "create app with version",
			version: "1.0.0",
		},
		{
			name:    "create app with dev version",
			version: "dev",
		},
		{
			name:    "create app with empty version",
			version: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := New(nil, nil, nil, tt.version)
			if app == nil {
				t.Fatal("expected app to be created, got nil")
			}
			if app.Version != tt.version {
				t.Errorf("expected version %q, got %q", tt.version, app.Version)
			}
			if app.Logger == nil {
				t.Error("expected a no-op logger when none is given")
			}
		})
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestScanner_FromConfig(t *testing.T) {
	cfg := testConfig(t)

	app := New(cfg, nil, nil, "test")
	scanner, err := app.Scanner()
	require.NoError(t, err)
	assert.IsType(t, &batch.Processor{}, scanner)

	again, err := app.Scanner()
	require.NoError(t, err)
	assert.Same(t, scanner, again)
}

func TestScanner_RateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.OCR.RateLimit.PerSecond = 2

	scanner, err := New(cfg, nil, nil, "test").Scanner()
	require.NoError(t, err)
	assert.IsType(t, &batch.RateLimitedProcessor{}, scanner)
}

func TestScanner_NoConfig(t *testing.T) {
	_, err := New(nil, nil, nil, "test").Scanner()
	assert.Error(t, err)
}

type echoScanner struct{}

func (echoScanner) Scan(ctx context.Context, images []ocr.Image) (*batch.Result, error) {
	texts := make([]string, len(images))
	for i, img := range images {
		texts[i] = string(img.Data)
	}
	return batch.ExtractTexts(texts), nil
}

func TestNewServer_UsesInjectedScanner(t *testing.T) {
	st, err := store.NewInMemory()
	require.NoError(t, err)

	app := New(testConfig(t), st, nil, "test")
	defer app.Close()
	app.SetScanner(echoScanner{})

	server, err := app.NewServer()
	require.NoError(t, err)
	assert.NotNil(t, server.App())
}

func TestStartPurger(t *testing.T) {
	st, err := store.NewInMemory()
	require.NoError(t, err)

	app := New(testConfig(t), st, nil, "test")
	defer app.Close()

	require.NoError(t, app.StartPurger())
	assert.True(t, app.CronRunner.IsRunning())
	app.CronRunner.Stop()
	assert.False(t, app.CronRunner.IsRunning())
}

func TestStartPurger_NoStore(t *testing.T) {
	app := New(testConfig(t), nil, nil, "test")
	assert.Error(t, app.StartPurger())
}
