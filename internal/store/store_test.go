package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmsas95/docscan/internal/batch"
	"github.com/gmsas95/docscan/internal/config"
	apperrors "github.com/gmsas95/docscan/internal/errors"
	"github.com/gmsas95/docscan/internal/extract"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(id string, started time.Time) *batch.Result {
	rec1 := extract.Extract("CARTA D'IDENTITÀ\nCognome: ROSSI\nNome: MARIO\nData di Nascita: 01/01/1980", 1)
	rec3 := extract.Extract("Nothing useful here", 3)
	return &batch.Result{
		ID: id,
		Items: []batch.ItemResult{
			{Index: 1, Source: "front.jpg", Record: &rec1},
			{Index: 2, Source: "blurry.jpg", Err: apperrors.WrapAs(apperrors.ErrOCRFailed, errors.New("engine crashed"))},
			{Index: 3, Source: "back.jpg", Record: &rec3},
		},
		Success:   2,
		Failed:    1,
		StartTime: started,
		Duration:  1500 * time.Millisecond,
	}
}

func TestStore_SaveAndGetBatch(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.SaveResult(sampleResult("batch-1", time.Now()), "cli")
	require.NoError(t, err)
	assert.Equal(t, "batch-1", saved.ID)

	got, err := s.GetBatch("batch-1")
	require.NoError(t, err)

	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.Success)
	assert.Equal(t, "cli", got.Source)
	assert.Equal(t, int64(1500), got.DurationMs)
	require.Len(t, got.Records, 3)

	for i, r := range got.Records {
		assert.Equal(t, i+1, r.ItemIndex, "records come back in item order")
	}

	failed := got.Records[1]
	assert.False(t, failed.HasRecord)
	assert.Equal(t, "OCR_001", failed.ErrorCode)
	_, ok := failed.Record()
	assert.False(t, ok)

	rec, ok := got.Records[0].Record()
	require.True(t, ok)
	assert.Equal(t, "ROSSI", rec.Surname().Value())
	assert.Equal(t, "MARIO", rec.Name().Value())
	assert.Equal(t, "01/01/1980", rec.DateOfBirth().Value())
	assert.False(t, rec.Address().IsFound())
	assert.Contains(t, rec.RawText(), "Cognome: ROSSI")

	empty, ok := got.Records[2].Record()
	require.True(t, ok)
	assert.Equal(t, extract.StatusUnknown, empty.DocumentType().Status())
	assert.Equal(t, 3, empty.Index())
}

func TestStore_RoundTripMatchesExtraction(t *testing.T) {
	s := newTestStore(t)
	result := sampleResult("batch-rt", time.Now())

	_, err := s.SaveResult(result, "api")
	require.NoError(t, err)

	got, err := s.GetBatch("batch-rt")
	require.NoError(t, err)

	assert.Equal(t, result.Records(), got.DocumentRecords())
}

func TestStore_GetBatchNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetBatch("missing")
	assert.ErrorIs(t, err, apperrors.ErrBatchNotFound)
}

func TestStore_ListBatches(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for i, id := range []string{"old", "mid", "new"} {
		_, err := s.SaveResult(sampleResult(id, now.Add(time.Duration(i)*time.Minute)), "cli")
		require.NoError(t, err)
	}

	batches, err := s.ListBatches(2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "new", batches[0].ID)
	assert.Equal(t, "mid", batches[1].ID)
	assert.Empty(t, batches[0].Records)
}

func TestStore_PurgeBefore(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	_, err := s.SaveResult(sampleResult("stale", now.Add(-96*time.Hour)), "cli")
	require.NoError(t, err)
	_, err = s.SaveResult(sampleResult("fresh", now), "cli")
	require.NoError(t, err)

	purged, err := s.PurgeBefore(now.Add(-72 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = s.GetBatch("stale")
	assert.ErrorIs(t, err, apperrors.ErrBatchNotFound)

	var orphans int64
	require.NoError(t, s.DB().Model(&ScanRecord{}).Where("batch_id = ?", "stale").Count(&orphans).Error)
	assert.Zero(t, orphans)

	_, err = s.GetBatch("fresh")
	assert.NoError(t, err)
}

func TestStore_TextCache(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetText("abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutText("abc", "Nome: ANNA", time.Hour))
	text, ok, err := s.GetText("abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Nome: ANNA", text)

	require.NoError(t, s.PurgeTexts())
	_, ok, err = s.GetText("abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{
		DataDir:    dir,
		SQLitePath: filepath.Join(dir, "test.db"),
		BadgerPath: filepath.Join(dir, "cache"),
	}}

	s, err := New(cfg)
	require.NoError(t, err)

	_, err = s.SaveResult(sampleResult("disk", time.Now()), "cli")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(cfg)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetBatch("disk")
	require.NoError(t, err)
	assert.Len(t, got.Records, 3)
}

func TestStore_NewClosesSQLiteWhenBadgerFails(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	blocker := filepath.Join(dir, "cache")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	_, err := New(&config.Config{Storage: config.StorageConfig{
		DataDir:    dir,
		SQLitePath: dbPath,
		BadgerPath: blocker,
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open badger")

	// sqlite removes the WAL file once the last connection closes
	assert.FileExists(t, dbPath)
	assert.NoFileExists(t, dbPath+"-wal")
}
