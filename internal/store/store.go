// Package store keeps scan history in SQLite and cached OCR text in BadgerDB.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmsas95/docscan/internal/batch"
	"github.com/gmsas95/docscan/internal/config"
	apperrors "github.com/gmsas95/docscan/internal/errors"
)

// Store provides unified access to SQLite and BadgerDB
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	config *config.StorageConfig
}

// New creates a new Store instance
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "docscan.db")
	}

	db, err := openSQLite(sqlitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "ocrcache")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil). // Disable verbose logging
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20). // 16MB value log files
		WithMemTableSize(16 << 20)      // 16MB memtable

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		closeSQLite(db)
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{
		db:     db,
		badger: badgerDB,
		config: &cfg.Storage,
	}, nil
}

// NewInMemory opens a throwaway store, used by tests and one-shot CLI runs
func NewInMemory() (*Store, error) {
	db, err := openSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}

	badgerDB, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		closeSQLite(db)
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{db: db, badger: badgerDB, config: &config.StorageConfig{}}, nil
}

func openSQLite(dsn string) (*gorm.DB, error) {
	sqliteDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(4)
	sqliteDB.SetMaxIdleConns(2)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&ScanBatch{}, &ScanRecord{}); err != nil {
		sqliteDB.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

func closeSQLite(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// Close closes all database connections
func (s *Store) Close() error {
	var errs []error
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	errs = append(errs, s.badger.Close())
	return errors.Join(errs...)
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ==================== Scan History Methods ====================

// SaveResult persists a batch and every item, failed ones included
func (s *Store) SaveResult(result *batch.Result, source string) (*ScanBatch, error) {
	sb := &ScanBatch{
		ID:         result.ID,
		Source:     source,
		Total:      result.Total(),
		Success:    result.Success,
		Failed:     result.Failed,
		DurationMs: result.Duration.Milliseconds(),
		CreatedAt:  result.StartTime,
	}
	if sb.ID == "" {
		sb.ID = uuid.NewString()
	}
	if sb.CreatedAt.IsZero() {
		sb.CreatedAt = time.Now()
	}

	for _, item := range result.Items {
		rec := ScanRecord{
			ID:        uuid.NewString(),
			BatchID:   sb.ID,
			ItemIndex: item.Index,
			Source:    item.Source,
			CreatedAt: sb.CreatedAt,
		}
		if item.Record != nil {
			rec.setRecord(*item.Record)
		}
		if item.Err != nil {
			rec.Error = item.Err.Error()
			rec.ErrorCode = apperrors.GetCode(item.Err)
		}
		sb.Records = append(sb.Records, rec)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(sb).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save batch: %w", err)
	}
	return sb, nil
}

// GetBatch loads a batch with its records in item order
func (s *Store) GetBatch(id string) (*ScanBatch, error) {
	var sb ScanBatch
	err := s.db.Preload("Records", func(db *gorm.DB) *gorm.DB {
		return db.Order("item_index ASC")
	}).First(&sb, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapAs(apperrors.ErrBatchNotFound, fmt.Errorf("batch %s", id))
	}
	if err != nil {
		return nil, err
	}
	return &sb, nil
}

// ListBatches returns the newest batches first, without records
func (s *Store) ListBatches(limit int) ([]ScanBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	var batches []ScanBatch
	err := s.db.Order("created_at DESC").Limit(limit).Find(&batches).Error
	return batches, err
}

// PurgeBefore deletes batches created before t and returns how many went
func (s *Store) PurgeBefore(t time.Time) (int64, error) {
	var purged int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&ScanBatch{}).Select("id").Where("created_at < ?", t)
		if err := tx.Where("batch_id IN (?)", old).Delete(&ScanRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("created_at < ?", t).Delete(&ScanBatch{})
		purged = res.RowsAffected
		return res.Error
	})
	return purged, err
}

// ==================== OCR Text Cache (BadgerDB) ====================

const textPrefix = "ocr:"

// GetText returns cached OCR text for a content hash
func (s *Store) GetText(hash string) (string, bool, error) {
	var text string
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(textPrefix + hash))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			text = string(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// PutText caches OCR text. A zero ttl keeps it until purged.
func (s *Store) PutText(hash, text string, ttl time.Duration) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(textPrefix+hash), []byte(text))
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// PurgeTexts drops every cached OCR text
func (s *Store) PurgeTexts() error {
	return s.badger.DropPrefix([]byte(textPrefix))
}
