package orm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/tablemap/adapter"
)

// memoryAdapter is an in-memory backend that interprets the structured parts
// of each statement. It records every statement it receives.
type memoryAdapter struct {
	tables  map[string]adapter.TableInfo
	columns map[string]map[string]adapter.ColumnInfo
	pks     map[string]string
	fks     map[string][]adapter.ForeignKey
	rows    map[string][]adapter.Row

	nextID   map[string]int64
	lastID   any
	executed []*adapter.Statement
	failNext error
	closed   bool
}

func newMemoryAdapter() *memoryAdapter {
	return &memoryAdapter{
		tables:  make(map[string]adapter.TableInfo),
		columns: make(map[string]map[string]adapter.ColumnInfo),
		pks:     make(map[string]string),
		fks:     make(map[string][]adapter.ForeignKey),
		rows:    make(map[string][]adapter.Row),
		nextID:  make(map[string]int64),
	}
}

// addTable declares a table whose first column is the primary key.
func (m *memoryAdapter) addTable(name string, columns ...string) {
	m.tables[name] = adapter.TableInfo{Name: name, Kind: "TABLE"}
	cols := make(map[string]adapter.ColumnInfo, len(columns))
	for i, c := range columns {
		cols[c] = adapter.ColumnInfo{Table: name, Name: c, Type: "TEXT", Nullable: true, Position: i}
	}
	m.columns[name] = cols
	if len(columns) > 0 {
		m.pks[name] = columns[0]
	}
}

func (m *memoryAdapter) addForeignKey(child, childCol, parent, parentCol string) {
	fk := adapter.ForeignKey{
		Parent: adapter.ColumnRef{Table: parent, Column: parentCol},
		Child:  adapter.ColumnRef{Table: child, Column: childCol},
	}
	m.fks[child] = append(m.fks[child], fk)
	m.fks[parent] = append(m.fks[parent], fk)
}

func (m *memoryAdapter) seed(table string, rows ...adapter.Row) {
	for _, r := range rows {
		if id, ok := r[m.pks[table]].(int64); ok && id > m.nextID[table] {
			m.nextID[table] = id
		}
		m.rows[table] = append(m.rows[table], r)
	}
}

func (m *memoryAdapter) Connect(ctx context.Context, dsn string, opts adapter.Options) error {
	if dsn == "fail" {
		return errors.New("connection refused")
	}
	return nil
}

func (m *memoryAdapter) Close() error {
	m.closed = true
	return nil
}

func (m *memoryAdapter) Tables(ctx context.Context) (map[string]adapter.TableInfo, error) {
	out := make(map[string]adapter.TableInfo, len(m.tables))
	for k, v := range m.tables {
		out[k] = v
	}
	return out, nil
}

func (m *memoryAdapter) Describe(ctx context.Context, table, catalog, schema string) (map[string]adapter.ColumnInfo, error) {
	cols, ok := m.columns[table]
	if !ok {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	out := make(map[string]adapter.ColumnInfo, len(cols))
	for k, v := range cols {
		out[k] = v
	}
	return out, nil
}

func (m *memoryAdapter) PrimaryKey(ctx context.Context, table string) (string, error) {
	if pk, ok := m.pks[table]; ok {
		return pk, nil
	}
	return adapter.DefaultPrimaryKey, nil
}

func (m *memoryAdapter) ForeignKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	return m.fks[table], nil
}

func (m *memoryAdapter) Escape(identifier string) string {
	return `"` + identifier + `"`
}

func (m *memoryAdapter) LastInsertedID(ctx context.Context) (any, error) {
	return m.lastID, nil
}

func (m *memoryAdapter) Placeholder() string { return "?" }

func (m *memoryAdapter) Execute(ctx context.Context, stmt *adapter.Statement) (*adapter.Result, error) {
	m.executed = append(m.executed, stmt)
	if err := m.failNext; err != nil {
		m.failNext = nil
		return nil, err
	}

	switch stmt.Kind {
	case adapter.Select:
		return m.selectRows(stmt), nil

	case adapter.Insert:
		row := adapter.Row(stmt.Values())
		pk := m.pks[stmt.Table]
		if _, ok := row[pk]; !ok {
			m.nextID[stmt.Table]++
			row[pk] = m.nextID[stmt.Table]
		}
		m.lastID = row[pk]
		m.rows[stmt.Table] = append(m.rows[stmt.Table], row)
		return &adapter.Result{RowsAffected: 1}, nil

	case adapter.Update:
		var n int64
		for _, row := range m.rows[stmt.Table] {
			if matches(row, stmt.Predicates) {
				for _, a := range stmt.Assignments {
					row[a.Column] = a.Value
				}
				n++
			}
		}
		return &adapter.Result{RowsAffected: n}, nil

	case adapter.Delete:
		var kept []adapter.Row
		var n int64
		for _, row := range m.rows[stmt.Table] {
			if matches(row, stmt.Predicates) {
				n++
				continue
			}
			kept = append(kept, row)
		}
		m.rows[stmt.Table] = kept
		return &adapter.Result{RowsAffected: n}, nil
	}
	return nil, adapter.ErrUnsupported
}

func (m *memoryAdapter) selectRows(stmt *adapter.Statement) *adapter.Result {
	cols := stmt.Columns
	if len(cols) == 0 {
		for c := range m.columns[stmt.Table] {
			cols = append(cols, c)
		}
		info := m.columns[stmt.Table]
		sort.Slice(cols, func(i, j int) bool { return info[cols[i]].Position < info[cols[j]].Position })
	}

	var rows []adapter.Row
	for _, row := range m.rows[stmt.Table] {
		if !matches(row, stmt.Predicates) {
			continue
		}
		out := make(adapter.Row, len(cols))
		for _, c := range cols {
			out[c] = row[c]
		}
		rows = append(rows, out)
	}

	if o := stmt.Order; o != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			c := compare(rows[i][o.Column], rows[j][o.Column])
			if o.Direction == "DESC" {
				return c > 0
			}
			return c < 0
		})
	}
	if stmt.Offset > 0 {
		if stmt.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[stmt.Offset:]
		}
	}
	if stmt.Limit > 0 && stmt.Limit < len(rows) {
		rows = rows[:stmt.Limit]
	}
	return &adapter.Result{Columns: cols, Rows: rows}
}

func matches(row adapter.Row, preds []adapter.Predicate) bool {
	for _, p := range preds {
		c := compare(row[p.Column], p.Value)
		var ok bool
		switch p.Operator {
		case "=":
			ok = c == 0
		case ">":
			ok = c > 0
		case "<":
			ok = c < 0
		case ">=":
			ok = c >= 0
		case "<=":
			ok = c <= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

func compare(a, b any) int {
	af, aok := number(a)
	bf, bok := number(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// postgresLike renders LIMIT the PostgreSQL way.
type postgresLike struct{ *memoryAdapter }

func (postgresLike) RenderLimit(count, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", count, offset)
	}
	return fmt.Sprintf("LIMIT %d", count)
}

// newMusicAdapter builds the artist/album fixture used across the tests.
func newMusicAdapter() *memoryAdapter {
	m := newMemoryAdapter()
	m.addTable("artist", "id", "name", "country")
	m.addTable("album", "id", "title", "year", "artist_id")
	m.addForeignKey("album", "artist_id", "artist", "id")
	m.seed("artist",
		adapter.Row{"id": int64(1), "name": "Nina Simone", "country": "US"},
		adapter.Row{"id": int64(2), "name": "Fela Kuti", "country": "NG"},
		adapter.Row{"id": int64(3), "name": "Cesaria Evora", "country": "CV"},
	)
	m.seed("album",
		adapter.Row{"id": int64(10), "title": "Pastel Blues", "year": int64(1965), "artist_id": int64(1)},
		adapter.Row{"id": int64(11), "title": "Wild Is the Wind", "year": int64(1966), "artist_id": int64(1)},
		adapter.Row{"id": int64(12), "title": "Zombie", "year": int64(1976), "artist_id": int64(2)},
	)
	return m
}

func newMusicDB(t *testing.T, options ...Option) (*Database, *memoryAdapter) {
	t.Helper()
	m := newMusicAdapter()
	db, err := Attach(context.Background(), m, options...)
	require.NoError(t, err)
	return db, m
}

var _ adapter.Adapter = (*memoryAdapter)(nil)
var _ adapter.LimitRenderer = postgresLike{}
