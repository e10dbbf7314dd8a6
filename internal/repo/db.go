// Package repo implements the data persistence layer for the post ledger,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver), schema migrations, and the schema-version marker
// used to detect stores written by a newer build.
package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/castlebay/postvault/internal/domain"
)

// SchemaVersion is the schema generation this build reads and writes. The
// marker lives in the metadata table; a store without the marker (or without
// the table at all) counts as version 0 and is upgraded in place.
const SchemaVersion = 1

// ErrSchemaMismatch is returned when a store carries a schema version newer
// than this build supports. The process must not proceed; downgrading
// silently would risk corrupting data written by the newer build.
var ErrSchemaMismatch = errors.New("store schema version is newer than this build")

// Open opens (or creates) a SQLite database and applies PRAGMAs. Parent
// directories are created as needed.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// Migrate brings the store to the current schema. It is idempotent: running
// against an already-initialized store is a no-op apart from re-checking the
// version marker. A store stamped with a future version fails with
// ErrSchemaMismatch before any table is touched.
func Migrate(db *gorm.DB) error {
	v, err := readSchemaVersion(db)
	if err != nil {
		return err
	}
	if v > SchemaVersion {
		return fmt.Errorf("%w: found %d, supported %d", ErrSchemaMismatch, v, SchemaVersion)
	}

	if err := db.AutoMigrate(
		&domain.Metadata{},
		&domain.Post{},
		&domain.ArchivedPost{},
	); err != nil {
		return err
	}

	return writeSchemaVersion(db, SchemaVersion)
}

// CurrentSchemaVersion reads the stored marker for diagnostics (0 when the
// store has never been migrated).
func CurrentSchemaVersion(db *gorm.DB) (int, error) {
	return readSchemaVersion(db)
}

// readSchemaVersion returns the stored marker, or 0 when the metadata table
// or the marker row does not exist yet.
func readSchemaVersion(db *gorm.DB) (int, error) {
	if !db.Migrator().HasTable(&domain.Metadata{}) {
		return 0, nil
	}
	var row domain.Metadata
	err := db.Where("key = ?", domain.MetadataSchemaVersion).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v int
	if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
		return 0, fmt.Errorf("metadata %q is not an integer: %w", domain.MetadataSchemaVersion, err)
	}
	return v, nil
}

// writeSchemaVersion upserts the marker as a JSON-encoded integer.
func writeSchemaVersion(db *gorm.DB, v int) error {
	val, _ := json.Marshal(v)
	row := domain.Metadata{Key: domain.MetadataSchemaVersion, Value: string(val)}
	return db.Save(&row).Error
}
