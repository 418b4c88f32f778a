// Package testdb builds the music fixture database (artist, album) used by
// tests and by the fixture command.
package testdb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

// Migrate applies every pending fixture migration to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the applied fixture version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

// Create writes a migrated fixture database to path using the named
// database/sql driver ("sqlite3" or "sqlite").
func Create(ctx context.Context, driver, path string) error {
	db, err := sql.Open(driver, path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	return Migrate(ctx, db)
}

// Path creates a fixture database in a per-test directory and returns its
// path. The driver must already be registered.
func Path(t testing.TB, driver string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "music.db")
	if err := Create(context.Background(), driver, path); err != nil {
		t.Fatalf("testdb: %v", err)
	}
	return path
}
