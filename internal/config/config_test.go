package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gmsas95/docscan/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, "eng+ita", cfg.OCR.Languages)
	assert.Equal(t, 45*time.Second, cfg.OCR.Timeout)
	assert.Equal(t, uint32(5), cfg.OCR.Breaker.MaxFailures)
	assert.Equal(t, 3, cfg.Batch.MaxConcurrency)
	assert.Equal(t, 60*time.Second, cfg.Batch.ItemTimeout)
	assert.Equal(t, 72*time.Hour, cfg.Storage.Retention)
	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join(dir, "docscan.db"), cfg.Storage.SQLitePath)
	assert.Equal(t, filepath.Join(dir, "ocrcache"), cfg.Storage.BadgerPath)
	assert.NotEmpty(t, cfg.Server.JWTSecret, "secret is generated when missing")
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := `
server:
  port: 9090
batch:
  max_concurrency: 6
  item_timeout: 15s
export:
  whatsapp_number: "+39 365 185 5555"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("DOCSCAN_OCR_LANGUAGES", "ita")

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Batch.MaxConcurrency)
	assert.Equal(t, 15*time.Second, cfg.Batch.ItemTimeout)
	assert.Equal(t, "+39 365 185 5555", cfg.Export.WhatsAppNumber)
	assert.Equal(t, "ita", cfg.OCR.Languages)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad concurrency", "batch:\n  max_concurrency: 0\n"},
		{"bad engine", "ocr:\n  engine: abbyy\n"},
		{"bad number", "export:\n  whatsapp_number: call-me-maybe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "docscan.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			_, err := Load(path, dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
		})
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = LogConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)
}

func TestServerConfig_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8081", ServerConfig{Address: "127.0.0.1", Port: 8081}.Addr())
}
