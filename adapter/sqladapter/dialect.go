package sqladapter

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/satishbabariya/tablemap/adapter"
)

// Querier is the part of *sql.DB the catalog queries need.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Dialect supplies the backend-specific parts of the SQL adapter.
type Dialect interface {
	// Name is the registry name.
	Name() string
	// DriverName is the database/sql driver name.
	DriverName() string
	// NormalizeDSN validates the DSN and fills in required settings.
	NormalizeDSN(dsn string) (string, error)
	// Setup runs once on a fresh connection.
	Setup(ctx context.Context, db *sql.DB, opts adapter.Options) error

	Escape(identifier string) string
	Rebind(query string) string

	Tables(ctx context.Context, db Querier) (map[string]adapter.TableInfo, error)
	Describe(ctx context.Context, db Querier, table, schema string) (map[string]adapter.ColumnInfo, error)
	// PrimaryKey returns "" when the table has no primary key.
	PrimaryKey(ctx context.Context, db Querier, table string) (string, error)
	ForeignKeys(ctx context.Context, db Querier, table string) ([]adapter.ForeignKey, error)
}

// Returner is implemented by dialects that read generated keys with a
// RETURNING clause instead of the driver's LastInsertId.
type Returner interface {
	Returning(escapedColumn string) string
}

func init() {
	adapter.Register("sqlite3", func() adapter.Adapter { return New(SQLite3()) })
	adapter.Register("sqlite", func() adapter.Adapter { return New(SQLite()) })
	adapter.Register("postgres", func() adapter.Adapter { return New(Postgres()) })
	adapter.Register("pgx", func() adapter.Adapter { return New(PGX()) })
	adapter.Register("mysql", func() adapter.Adapter { return New(MySQL()) })
}

// quote wraps an identifier in q, doubling any embedded q. A dotted name
// is quoted part by part.
func quote(identifier string, q string) string {
	parts := strings.Split(identifier, ".")
	for i, p := range parts {
		parts[i] = q + strings.ReplaceAll(p, q, q+q) + q
	}
	return strings.Join(parts, ".")
}

var typeSize = regexp.MustCompile(`\((\d+)`)

// sizeOf extracts the declared length from a type such as VARCHAR(255).
func sizeOf(declared string) int64 {
	m := typeSize.FindStringSubmatch(declared)
	if m == nil {
		return 0
	}
	n, _ := strconv.ParseInt(m[1], 10, 64)
	return n
}

func noRebind(query string) string { return query }
