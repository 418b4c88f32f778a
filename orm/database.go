// Package orm maps database tables and rows onto Go values and builds the
// SQL that reads and writes them.
//
// A Database discovers its tables from an adapter. A Table builds queries
// and rows. A Query renders one statement, runs it once and caches the rows
// it produced. A Resource is one row that knows whether Save must insert or
// update it.
//
//	db, err := orm.Open(ctx, orm.Config{Adapter: "sqlite3", DSN: "music.db"})
//	artist, _ := db.Table("artist")
//	r, err := artist.Create(ctx, orm.Fields{"name": "Nina"})
//	rows, err := artist.Filter("id", orm.Gt(10)).OrderBy("name", "ASC").All(ctx)
package orm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/satishbabariya/tablemap/adapter"
	"github.com/satishbabariya/tablemap/internal/debug"
	"github.com/satishbabariya/tablemap/telemetry"
)

// Config selects and connects an adapter.
type Config struct {
	// Adapter is a registered adapter name such as "sqlite3" or "rest".
	Adapter string

	// DSN is the backend-specific connection descriptor.
	DSN string

	// Options are passed to Connect.
	Options adapter.Options

	// Recorder receives every executed statement. Nil disables telemetry.
	Recorder telemetry.Recorder
}

// Option configures a Database.
type Option func(*Database)

// WithRecorder routes execution telemetry to r.
func WithRecorder(r telemetry.Recorder) Option {
	return func(db *Database) {
		if r != nil {
			db.recorder = r
		}
	}
}

// WithName records the registered adapter name for telemetry.
func WithName(name string) Option {
	return func(db *Database) { db.name = name }
}

// Database is the set of tables reachable through one adapter connection.
type Database struct {
	adapter  adapter.Adapter
	name     string
	dsn      string
	recorder telemetry.Recorder
	tables   map[string]*Table
}

// Open creates the adapter registered as cfg.Adapter, connects it and scans
// the schema.
func Open(ctx context.Context, cfg Config) (*Database, error) {
	a, err := adapter.New(cfg.Adapter)
	if err != nil {
		return nil, err
	}
	return New(ctx, a, cfg.DSN, cfg.Options, WithName(cfg.Adapter), WithRecorder(cfg.Recorder))
}

// New connects a to dsn and scans the schema.
func New(ctx context.Context, a adapter.Adapter, dsn string, opts adapter.Options, options ...Option) (*Database, error) {
	db := newDatabase(a, dsn, options)

	start := time.Now()
	err := a.Connect(ctx, dsn, opts)
	db.recorder.RecordConnection(ctx, telemetry.ConnectionInfo{
		Adapter:  db.name,
		Event:    "connect",
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	debug.Debug("Connected", "adapter", db.name)

	if err := db.Rescan(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return db, nil
}

// Attach wraps an adapter that is already connected and scans the schema.
func Attach(ctx context.Context, a adapter.Adapter, options ...Option) (*Database, error) {
	db := newDatabase(a, "", options)
	if err := db.Rescan(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func newDatabase(a adapter.Adapter, dsn string, options []Option) *Database {
	db := &Database{
		adapter:  a,
		name:     fmt.Sprintf("%T", a),
		dsn:      dsn,
		recorder: telemetry.Noop{},
		tables:   make(map[string]*Table),
	}
	for _, opt := range options {
		opt(db)
	}
	return db
}

// Adapter returns the underlying adapter.
func (db *Database) Adapter() adapter.Adapter { return db.adapter }

// DSN returns the connection descriptor.
func (db *Database) DSN() string { return db.dsn }

// Rescan rebuilds the table map from the adapter's listing. Tables obtained
// before the call are not reused.
func (db *Database) Rescan(ctx context.Context) error {
	start := time.Now()
	infos, err := db.adapter.Tables(ctx)
	db.recorder.RecordConnection(ctx, telemetry.ConnectionInfo{
		Adapter:  db.name,
		Event:    "rescan",
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	tables := make(map[string]*Table, len(infos))
	for name, info := range infos {
		if info.Name == "" {
			info.Name = name
		}
		tables[name] = newTable(db, info)
	}
	db.tables = tables

	debug.Debug("Rescanned database", "adapter", db.name, "tables", len(tables))
	return nil
}

// Table looks up a table by name.
func (db *Database) Table(name string) (*Table, error) {
	t, ok := db.tables[name]
	if !ok {
		return nil, &QueryError{Op: "table", Table: name, Err: fmt.Errorf("%w: no such table", ErrNotFound)}
	}
	return t, nil
}

// MustTable is Table for names known to exist. It panics otherwise.
func (db *Database) MustTable(name string) *Table {
	t, err := db.Table(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Tables returns the table names in lexical order.
func (db *Database) Tables() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the adapter connection.
func (db *Database) Close() error {
	start := time.Now()
	err := db.adapter.Close()
	db.recorder.RecordConnection(context.Background(), telemetry.ConnectionInfo{
		Adapter:  db.name,
		Event:    "close",
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// execute runs a statement through the adapter with logging and telemetry.
func (db *Database) execute(ctx context.Context, stmt *adapter.Statement) (*adapter.Result, error) {
	debug.Debug("Executing statement", "table", stmt.Table, "sql", stmt.SQL, "args", stmt.Args)

	start := time.Now()
	res, err := db.adapter.Execute(ctx, stmt)

	info := telemetry.QueryInfo{
		Table:     stmt.Table,
		Operation: stmt.Kind.String(),
		SQL:       stmt.SQL,
		Duration:  time.Since(start),
		Err:       err,
	}
	if res != nil {
		info.Rows = res.RowsAffected
		if stmt.Kind == adapter.Select {
			info.Rows = int64(len(res.Rows))
		}
	}
	db.recorder.RecordQuery(ctx, info)

	if err != nil {
		debug.Debug("Statement failed", "table", stmt.Table, "error", err)
		return nil, err
	}
	return res, nil
}
