// Package store persists chat messages and tickets in SQLite.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var migration string

// Open opens a SQLite database at the given path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, err
}

// OpenTest creates a migrated database in a temporary directory.
func OpenTest(t *testing.T) *sql.DB {
	path := filepath.Join(t.TempDir(), "db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	MustMigrate(db)
	return db
}

// Migrate creates the tables when they do not exist yet.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(migration); err != nil {
		return fmt.Errorf("error while migrating database: %w", err)
	}
	return nil
}

func MustMigrate(db *sql.DB) {
	if err := Migrate(db); err != nil {
		panic(err)
	}
}
