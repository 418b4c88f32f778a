// Package sqladapter implements the adapter contract on database/sql.
//
// One Adapter type serves every SQL backend; a Dialect supplies what differs
// between them (driver name, identifier quoting, placeholders, catalog
// queries, and how the id of an inserted row is obtained). The dialects
// register themselves as "sqlite3", "sqlite", "postgres", "pgx" and "mysql".
package sqladapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/satishbabariya/tablemap/adapter"
)

// Adapter runs statements through a *sql.DB.
type Adapter struct {
	dialect Dialect
	db      *sql.DB
	logger  *slog.Logger

	mu     sync.Mutex
	lastID any
}

// New creates an unconnected adapter for d.
func New(d Dialect) *Adapter {
	return &Adapter{dialect: d, logger: slog.New(slog.DiscardHandler)}
}

// Wrap creates an adapter over an already open database.
func Wrap(db *sql.DB, d Dialect, logger *slog.Logger) *Adapter {
	a := New(d)
	a.db = db
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Dialect returns the dialect in use.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// DB returns the underlying database, nil before Connect.
func (a *Adapter) DB() *sql.DB { return a.db }

// Connect opens the database, checks it answers and runs dialect setup.
func (a *Adapter) Connect(ctx context.Context, dsn string, opts adapter.Options) error {
	a.logger = opts.LoggerOrDiscard().With("adapter", a.dialect.Name())

	normalized, err := a.dialect.NormalizeDSN(dsn)
	if err != nil {
		return fmt.Errorf("invalid %s dsn: %w", a.dialect.Name(), err)
	}

	db, err := sql.Open(a.dialect.DriverName(), normalized)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := a.dialect.Setup(ctx, db, opts); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to set up %s connection: %w", a.dialect.Name(), err)
	}

	a.db = db
	a.logger.Debug("connected to database", "driver", a.dialect.DriverName())
	return nil
}

// Close closes the database.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	a.logger.Debug("closing database connection")
	err := a.db.Close()
	a.db = nil
	return err
}

// Execute runs a statement. Selects return their rows; inserts record the
// generated id for LastInsertedID.
func (a *Adapter) Execute(ctx context.Context, stmt *adapter.Statement) (*adapter.Result, error) {
	if a.db == nil {
		return nil, adapter.ErrNotConnected
	}
	query := a.dialect.Rebind(stmt.SQL)
	a.logger.Debug("executing statement", "sql", query, "args", stmt.Args)

	switch stmt.Kind {
	case adapter.Select, adapter.Untyped:
		return a.query(ctx, query, stmt.Args)
	case adapter.Insert:
		return a.insert(ctx, stmt, query)
	}

	res, err := a.db.ExecContext(ctx, query, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL: %w", err)
	}
	n, _ := res.RowsAffected()
	return &adapter.Result{RowsAffected: n}, nil
}

func (a *Adapter) insert(ctx context.Context, stmt *adapter.Statement, query string) (*adapter.Result, error) {
	if ret, ok := a.dialect.(Returner); ok {
		pk, err := a.dialect.PrimaryKey(ctx, a.db, stmt.Table)
		if err != nil {
			return nil, err
		}
		if pk != "" {
			var id any
			q := query + " " + ret.Returning(a.dialect.Escape(pk))
			if err := a.db.QueryRowContext(ctx, q, stmt.Args...).Scan(&id); err != nil {
				return nil, fmt.Errorf("failed to execute SQL: %w", err)
			}
			a.setLastID(normalize(id))
			return &adapter.Result{RowsAffected: 1}, nil
		}
	}

	res, err := a.db.ExecContext(ctx, query, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SQL: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		a.setLastID(id)
	} else {
		a.setLastID(nil)
	}
	n, _ := res.RowsAffected()
	return &adapter.Result{RowsAffected: n}, nil
}

func (a *Adapter) query(ctx context.Context, query string, args []any) (*adapter.Result, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	res := &adapter.Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(adapter.Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(values[i])
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return res, nil
}

// normalize turns driver byte slices into strings.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func (a *Adapter) setLastID(id any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastID = id
}

// LastInsertedID returns the id generated by the last insert.
func (a *Adapter) LastInsertedID(ctx context.Context) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastID, nil
}

// Tables lists the tables of the connected database.
func (a *Adapter) Tables(ctx context.Context) (map[string]adapter.TableInfo, error) {
	if a.db == nil {
		return nil, adapter.ErrNotConnected
	}
	return a.dialect.Tables(ctx, a.db)
}

// Describe lists the columns of a table.
func (a *Adapter) Describe(ctx context.Context, table, catalog, schema string) (map[string]adapter.ColumnInfo, error) {
	if a.db == nil {
		return nil, adapter.ErrNotConnected
	}
	cols, err := a.dialect.Describe(ctx, a.db, table, schema)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	for name, c := range cols {
		if c.Catalog == "" {
			c.Catalog = catalog
		}
		cols[name] = c
	}
	return cols, nil
}

// PrimaryKey returns the first primary key column, or adapter.DefaultPrimaryKey.
func (a *Adapter) PrimaryKey(ctx context.Context, table string) (string, error) {
	if a.db == nil {
		return "", adapter.ErrNotConnected
	}
	pk, err := a.dialect.PrimaryKey(ctx, a.db, table)
	if err != nil {
		return "", err
	}
	if pk == "" {
		return adapter.DefaultPrimaryKey, nil
	}
	return pk, nil
}

// ForeignKeys lists the keys referencing or referenced by table.
func (a *Adapter) ForeignKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	if a.db == nil {
		return nil, adapter.ErrNotConnected
	}
	return a.dialect.ForeignKeys(ctx, a.db, table)
}

// Escape quotes an identifier for the dialect.
func (a *Adapter) Escape(identifier string) string {
	return a.dialect.Escape(identifier)
}

// Placeholder returns "?"; dialects with numbered parameters rebind it.
func (a *Adapter) Placeholder() string { return "?" }

// RenderLimit renders the LIMIT clause for the dialect.
func (a *Adapter) RenderLimit(count, offset int) string {
	if r, ok := a.dialect.(adapter.LimitRenderer); ok {
		return r.RenderLimit(count, offset)
	}
	if offset > 0 {
		return "LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(count)
	}
	return "LIMIT " + strconv.Itoa(count)
}

var (
	_ adapter.Adapter       = (*Adapter)(nil)
	_ adapter.LimitRenderer = (*Adapter)(nil)
)
