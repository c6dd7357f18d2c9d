package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/gmsas95/docscan/internal/app"
	"github.com/gmsas95/docscan/internal/batch"
	"github.com/gmsas95/docscan/internal/config"
	apperrors "github.com/gmsas95/docscan/internal/errors"
	"github.com/gmsas95/docscan/internal/metrics"
	"github.com/gmsas95/docscan/internal/ocr"
	"github.com/gmsas95/docscan/internal/store"
)

const cardText = "Nome: Mario\nCognome: Rossi\nData di Nascita: 12/05/1980\nNumero Documento: AB123456"

// textProvider returns image bytes as recognized text; names in fail error out
type textProvider struct {
	fail map[string]bool
}

func (textProvider) Name() string { return "text" }

func (p textProvider) Recognize(_ context.Context, img ocr.Image) (string, error) {
	if p.fail[img.Name] {
		return "", apperrors.WrapAs(apperrors.ErrOCRFailed, errors.New("blurry"))
	}
	return string(img.Data), nil
}

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	cfg.Export.WhatsAppNumber = "+39 365 185 5555"

	st, err := store.NewInMemory()
	require.NoError(t, err)

	application := app.New(cfg, st, nil, "test")
	t.Cleanup(func() { application.Close() })

	proc := batch.NewProcessor(textProvider{fail: map[string]bool{"bad.png": true}},
		batch.Config{MaxConcurrency: 2, ItemTimeout: time.Second}, nil, metrics.New())
	application.SetScanner(proc)
	return application
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunExtract_Stdin(t *testing.T) {
	var out bytes.Buffer
	err := RunExtract([]string{"--format", "json", "--index", "3"}, strings.NewReader(cardText), &out)
	require.NoError(t, err)

	var rec struct {
		Index  int `json:"index"`
		Fields map[string]struct {
			Status string `json:"status"`
			Value  string `json:"value"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	assert.Equal(t, 3, rec.Index)
	assert.Equal(t, "Mario", rec.Fields["name"].Value)
	assert.Equal(t, "found", rec.Fields["surname"].Status)
	assert.Equal(t, "not_found", rec.Fields["address"].Status)
}

func TestRunExtract_FilesYAML(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", cardText)
	b := writeFile(t, dir, "b.txt", "")

	var out bytes.Buffer
	require.NoError(t, RunExtract([]string{"-f", a, b, "--format", "yaml"}, nil, &out))

	var docs []struct {
		Index  int `yaml:"index"`
		Fields map[string]struct {
			Status string `yaml:"status"`
			Value  string `yaml:"value"`
		} `yaml:"fields"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0].Index)
	assert.Equal(t, "AB123456", docs[0].Fields["document_number"].Value)
	assert.Equal(t, 2, docs[1].Index)
	assert.Equal(t, "unknown", docs[1].Fields["document_type"].Status)

	// display order survives
	assert.Less(t, strings.Index(out.String(), "document_type"), strings.Index(out.String(), "address"))
}

func TestRunExtract_Text(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunExtract([]string{"--format", "text"}, strings.NewReader(cardText), &out))

	assert.Contains(t, out.String(), "ID Card #1:")
	assert.Contains(t, out.String(), "Name: Mario")
	assert.Contains(t, out.String(), "Address: Not found")
}

func TestRunExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad index", []string{"--index", "0"}},
		{"index not a number", []string{"--index", "one"}},
		{"missing value", []string{"--format"}},
		{"unknown format", []string{"--format", "xml"}},
		{"missing file", []string{"-f", "/does/not/exist.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunExtract(tt.args, strings.NewReader(cardText), &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestRunScan_SaveAndHistory(t *testing.T) {
	application := newTestApp(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "guest.png", cardText)
	bad := writeFile(t, dir, "bad.png", "x")

	var out bytes.Buffer
	err := RunScan(context.Background(), []string{"-i", good, "-i", bad, "--save", "--format", "text"}, application, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "✓ Saved batch")
	assert.Contains(t, out.String(), "Name: Mario")
	assert.Contains(t, out.String(), "Failed items:")
	assert.Contains(t, out.String(), "bad.png")

	batches, err := application.Store.ListBatches(10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "cli", batches[0].Source)
	assert.Equal(t, 1, batches[0].Success)
	assert.Equal(t, 1, batches[0].Failed)

	out.Reset()
	require.NoError(t, RunHistory(nil, application, &out))
	assert.Contains(t, out.String(), batches[0].ID)
	assert.Contains(t, out.String(), "1 ok / 1 failed")
}

func TestRunScan_JSON(t *testing.T) {
	application := newTestApp(t)
	path := writeFile(t, t.TempDir(), "guest.png", cardText)

	var out bytes.Buffer
	require.NoError(t, RunScan(context.Background(), []string{path, "--format", "json"}, application, &out))

	var result struct {
		Total   int `json:"total"`
		Success int `json:"success"`
		Items   []struct {
			Index  int    `json:"index"`
			Source string `json:"source"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, "guest.png", result.Items[0].Source)
}

func TestRunScan_NoImages(t *testing.T) {
	err := RunScan(context.Background(), nil, newTestApp(t), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunHistory_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunHistory([]string{"--limit", "5"}, newTestApp(t), &out))
	assert.Contains(t, out.String(), "No scans stored yet")
}

func savedBatch(t *testing.T, application *app.App) string {
	t.Helper()
	saved, err := application.Store.SaveResult(batch.ExtractTexts([]string{cardText}), "test")
	require.NoError(t, err)
	return saved.ID
}

func TestRunExport_WhatsApp(t *testing.T) {
	application := newTestApp(t)
	id := savedBatch(t, application)

	var out bytes.Buffer
	require.NoError(t, RunExport([]string{"--batch", id, "--whatsapp"}, application, &out))
	assert.True(t, strings.HasPrefix(out.String(), "https://wa.me/393651855555?text="))

	out.Reset()
	require.NoError(t, RunExport([]string{"--batch", id, "--number", "+44 20 7946 0000"}, application, &out))
	assert.True(t, strings.HasPrefix(out.String(), "https://wa.me/442079460000?text="))
}

func TestRunExport_TextAndXLSX(t *testing.T) {
	application := newTestApp(t)
	id := savedBatch(t, application)
	xlsxPath := filepath.Join(t.TempDir(), "out.xlsx")

	var out bytes.Buffer
	require.NoError(t, RunExport([]string{"-b", id}, application, &out))
	assert.Contains(t, out.String(), "ID Card #1:")

	out.Reset()
	require.NoError(t, RunExport([]string{"-b", id, "--xlsx", xlsxPath}, application, &out))
	assert.Contains(t, out.String(), "Wrote 1 record(s)")

	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue("Documents", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Mario", name)
}

func TestRunExport_Errors(t *testing.T) {
	application := newTestApp(t)

	assert.Error(t, RunExport(nil, application, &bytes.Buffer{}))

	err := RunExport([]string{"--batch", "missing"}, application, &bytes.Buffer{})
	assert.ErrorIs(t, err, apperrors.ErrBatchNotFound)
}

func TestRunPurge(t *testing.T) {
	application := newTestApp(t)
	savedBatch(t, application)

	var out bytes.Buffer
	require.NoError(t, RunPurge([]string{"--older-than", "1h"}, application, &out))
	assert.Contains(t, out.String(), "Purged 0 batch(es)")

	out.Reset()
	require.NoError(t, RunPurge([]string{"--older-than", "-1h", "--texts"}, application, &out))
	assert.Contains(t, out.String(), "Purged 1 batch(es)")
	assert.Contains(t, out.String(), "Cleared OCR text cache")

	assert.Error(t, RunPurge([]string{"--older-than", "soon"}, application, &bytes.Buffer{}))
}

func TestRunToken(t *testing.T) {
	application := newTestApp(t)

	var out bytes.Buffer
	require.NoError(t, RunToken([]string{"--subject", "frontdesk", "--ttl", "1h"}, application, &out))
	token := strings.TrimSpace(out.String())
	assert.Len(t, strings.Split(token, "."), 3)

	application.Config.Server.JWTSecret = ""
	assert.ErrorIs(t, RunToken(nil, application, &bytes.Buffer{}), apperrors.ErrConfigInvalid)
}

func TestMissingLanguages(t *testing.T) {
	assert.Empty(t, missingLanguages("eng+ita", []string{"eng", "ita", "osd"}))
	assert.Equal(t, []string{"ita"}, missingLanguages("eng+ita", []string{"eng"}))
	assert.Equal(t, []string{"eng"}, missingLanguages("eng+", nil))
}

func TestHelpCommands(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunExtract([]string{"-h"}, nil, &out))
	require.NoError(t, RunScan(context.Background(), []string{"--help"}, nil, &out))
	require.NoError(t, RunHistory([]string{"-h"}, nil, &out))
	require.NoError(t, RunExport([]string{"-h"}, nil, &out))
	require.NoError(t, RunToken([]string{"-h"}, nil, &out))
	PrintHelp(&out)
	PrintWatchHelp(&out)
	PrintPurgeHelp(&out)

	assert.Contains(t, out.String(), "docscan scan -i <image>")
	assert.Contains(t, out.String(), "Commands:")
}
