package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/tablemap/adapter"
	"github.com/satishbabariya/tablemap/internal/debug"
)

// Table is a named collection of rows with a cached column snapshot.
type Table struct {
	db   *Database
	info adapter.TableInfo

	loaded  bool
	columns []string
	details map[string]adapter.ColumnInfo
	colSet  map[string]struct{}
	pk      string
}

func newTable(db *Database, info adapter.TableInfo) *Table {
	return &Table{db: db, info: info}
}

// Name returns the bare table name.
func (t *Table) Name() string { return t.info.Name }

// Catalog returns the catalog qualifier, if any.
func (t *Table) Catalog() string { return t.info.Catalog }

// Schema returns the schema qualifier, if any.
func (t *Table) Schema() string { return t.info.Schema }

// Info returns the metadata the adapter reported for the table.
func (t *Table) Info() adapter.TableInfo { return t.info }

// Database returns the owning database.
func (t *Table) Database() *Database { return t.db }

// String returns the escaped, schema-qualified identifier.
func (t *Table) String() string {
	a := t.db.adapter
	if t.info.Schema != "" {
		return a.Escape(t.info.Schema) + "." + a.Escape(t.info.Name)
	}
	return a.Escape(t.info.Name)
}

// Rescan reloads the column snapshot and primary key from the adapter.
func (t *Table) Rescan(ctx context.Context) error {
	described, err := t.db.adapter.Describe(ctx, t.info.Name, t.info.Catalog, t.info.Schema)
	if err != nil {
		return fmt.Errorf("describe %s: %w", t.info.Name, err)
	}
	pk, err := t.db.adapter.PrimaryKey(ctx, t.info.Name)
	if err != nil {
		return fmt.Errorf("primary key of %s: %w", t.info.Name, err)
	}

	columns := make([]string, 0, len(described))
	colSet := make(map[string]struct{}, len(described))
	for name := range described {
		columns = append(columns, name)
		colSet[name] = struct{}{}
	}
	sort.SliceStable(columns, func(i, j int) bool {
		pi, pj := described[columns[i]].Position, described[columns[j]].Position
		if pi != pj {
			return pi < pj
		}
		return columns[i] < columns[j]
	})

	t.columns = columns
	t.details = described
	t.colSet = colSet
	t.pk = pk
	t.loaded = true

	debug.Debug("Rescanned table", "table", t.info.Name, "columns", len(columns), "pk", pk)
	return nil
}

func (t *Table) ensure(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	return t.Rescan(ctx)
}

// Columns returns the column names in table order. The first call loads them.
func (t *Table) Columns(ctx context.Context) ([]string, error) {
	if err := t.ensure(ctx); err != nil {
		return nil, err
	}
	return append([]string(nil), t.columns...), nil
}

// Column returns the metadata of one column.
func (t *Table) Column(ctx context.Context, name string) (adapter.ColumnInfo, error) {
	if err := t.ensure(ctx); err != nil {
		return adapter.ColumnInfo{}, err
	}
	info, ok := t.details[name]
	if !ok {
		return adapter.ColumnInfo{}, t.unknownColumn(name)
	}
	return info, nil
}

// HasColumn reports whether the table has the column.
func (t *Table) HasColumn(ctx context.Context, name string) (bool, error) {
	if err := t.ensure(ctx); err != nil {
		return false, err
	}
	_, ok := t.colSet[name]
	return ok, nil
}

func (t *Table) unknownColumn(name string) error {
	return &QueryError{
		Op:    "column",
		Table: t.info.Name,
		Err:   fmt.Errorf("%w: unknown column %q (known: %s)", ErrSchemaViolation, name, strings.Join(t.columns, ", ")),
	}
}

// PrimaryKey returns the primary key column. A table whose adapter falls
// back to "id" without having such a column has no usable key.
func (t *Table) PrimaryKey(ctx context.Context) (string, error) {
	if err := t.ensure(ctx); err != nil {
		return "", err
	}
	if _, ok := t.colSet[t.pk]; !ok {
		return "", &QueryError{
			Op:    "primary key",
			Table: t.info.Name,
			Err:   fmt.Errorf("%w: no primary key column %q", ErrSchemaViolation, t.pk),
		}
	}
	return t.pk, nil
}

// ForeignKeys returns the relationships the table takes part in.
func (t *Table) ForeignKeys(ctx context.Context) ([]adapter.ForeignKey, error) {
	fks, err := t.db.adapter.ForeignKeys(ctx, t.info.Name)
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s: %w", t.info.Name, err)
	}
	return fks, nil
}

// Query returns an untyped query on the table.
func (t *Table) Query() *Query { return NewQuery(t) }

// All returns an unfiltered select.
func (t *Table) All() *Query { return Select(t) }

// Filter returns a select with one condition.
func (t *Table) Filter(column string, value any) *Query {
	return Select(t).Filter(column, value)
}

// Where returns a select with one condition per entry.
func (t *Table) Where(fields Fields) *Query {
	return Select(t).Where(fields)
}

// Get returns the row whose primary key equals pk.
func (t *Table) Get(ctx context.Context, pk any) (*Resource, error) {
	key, err := t.PrimaryKey(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := Select(t).Filter(key, pk).Execute(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, &QueryError{
			Op:    "get",
			Table: t.info.Name,
			Err:   fmt.Errorf("%w: no row with %s = %v", ErrNotFound, key, pk),
		}
	case 1:
		return rows[0], nil
	}
	return nil, &QueryError{
		Op:    "get",
		Table: t.info.Name,
		Err:   fmt.Errorf("%w: %d rows with %s = %v", ErrConsistency, len(rows), key, pk),
	}
}

// New builds an unsaved row from fields. Every key must be a known column.
func (t *Table) New(ctx context.Context, fields Fields) (*Resource, error) {
	if err := t.ensure(ctx); err != nil {
		return nil, err
	}
	for k := range fields {
		if _, ok := t.colSet[k]; !ok {
			return nil, t.unknownColumn(k)
		}
	}

	row := make(adapter.Row, len(fields))
	var order []string
	for _, c := range t.columns {
		if v, ok := fields[c]; ok {
			row[c] = v
			order = append(order, c)
		}
	}
	return newResource(t, order, row, true), nil
}

// Create builds a row from fields and saves it.
func (t *Table) Create(ctx context.Context, fields Fields) (*Resource, error) {
	r, err := t.New(ctx, fields)
	if err != nil {
		return nil, err
	}
	if _, err := r.Save(ctx); err != nil {
		return nil, err
	}
	return r, nil
}
