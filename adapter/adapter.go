// Package adapter defines the capability contract between the tablemap core
// and a database backend.
//
// An Adapter connects to one backend, runs the statements the core renders,
// and answers the schema questions the core asks (tables, columns, primary and
// foreign keys). Concrete backends live in sub-packages and register
// themselves by name so callers pick a backend with a plain string.
package adapter

import (
	"context"
	"log/slog"
)

// Adapter defines the interface that all backends must implement.
type Adapter interface {
	// Connect establishes a connection using the backend-specific descriptor
	// (a DSN for SQL backends, a base URI for HTTP backends).
	Connect(ctx context.Context, dsn string, opts Options) error

	// Close releases the connection. Closing an unconnected adapter is a no-op.
	Close() error

	// Execute runs one statement. Reads return rows; writes return an empty
	// result and are committed before Execute returns.
	Execute(ctx context.Context, stmt *Statement) (*Result, error)

	// Tables lists the tables visible on the connection keyed by name.
	Tables(ctx context.Context) (map[string]TableInfo, error)

	// Describe returns the columns of a table keyed by column name.
	Describe(ctx context.Context, table, catalog, schema string) (map[string]ColumnInfo, error)

	// PrimaryKey returns the primary key column of a table, the first one for
	// composite keys, or DefaultPrimaryKey when introspection yields nothing.
	PrimaryKey(ctx context.Context, table string) (string, error)

	// ForeignKeys returns the parent/child column pairs the table takes part in.
	ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error)

	// Escape quotes a table or column identifier for the backend.
	Escape(identifier string) string

	// LastInsertedID returns the primary key of the most recent insert made
	// through this adapter.
	LastInsertedID(ctx context.Context) (any, error)

	// Placeholder returns the parameter token used in generated SQL.
	Placeholder() string
}

// LimitRenderer is implemented by adapters whose dialect does not accept the
// "LIMIT offset, count" form.
type LimitRenderer interface {
	RenderLimit(count, offset int) string
}

// DefaultPrimaryKey is the column assumed when a backend cannot report one.
const DefaultPrimaryKey = "id"

// Options holds connection options shared by all backends.
type Options struct {
	// Logger receives adapter debug logs. Nil discards them.
	Logger *slog.Logger

	// MaxOpenConns caps the pool of SQL backends. Zero keeps the driver default.
	MaxOpenConns int

	// Params carries backend-specific settings.
	Params map[string]string
}

// Param returns a backend-specific setting or def when unset.
func (o Options) Param(key, def string) string {
	if v, ok := o.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// LoggerOrDiscard returns the configured logger or one that drops everything.
func (o Options) LoggerOrDiscard() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}
