package orm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/tablemap/adapter"
)

// Fields maps column names to values.
type Fields map[string]any

// Keys returns the keys of f in lexical order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// filter is one rendered WHERE fragment.
type filter struct {
	column   string
	operator string
	fragment string
	value    any
}

// Query builds and runs one SQL statement against a table.
//
// The statement kind is fixed by the first call that implies it and cannot
// change afterwards. Builder calls are chainable; the first failure is latched
// and returned by Err, Statement and Execute. A query runs at most once: the
// rows of the first successful Execute are cached for the life of the query.
type Query struct {
	table *Table
	kind  adapter.Kind

	filters   []filter
	filterIdx map[string]int

	assignments []adapter.Assignment
	assignIdx   map[string]int

	columns []string
	order   *adapter.Order
	limit   int
	offset  int

	forced   bool
	err      error
	executed bool
	cache    []*Resource
	affected int64
}

// NewQuery creates an untyped query on t.
func NewQuery(t *Table) *Query {
	return &Query{
		table:     t,
		filterIdx: make(map[string]int),
		assignIdx: make(map[string]int),
	}
}

// Select creates a SELECT query on t.
func Select(t *Table) *Query {
	q := NewQuery(t)
	q.kind = adapter.Select
	return q
}

// Insert creates an INSERT query on t.
func Insert(t *Table) *Query {
	q := NewQuery(t)
	q.kind = adapter.Insert
	return q
}

// Update creates an UPDATE query on t.
func Update(t *Table) *Query {
	q := NewQuery(t)
	q.kind = adapter.Update
	return q
}

// Delete creates a DELETE query on t.
func Delete(t *Table) *Query {
	q := NewQuery(t)
	q.kind = adapter.Delete
	return q
}

// Kind returns the statement kind, Untyped until a call fixes it.
func (q *Query) Kind() adapter.Kind { return q.kind }

// Table returns the target table.
func (q *Query) Table() *Table { return q.table }

// Err returns the first builder error, if any.
func (q *Query) Err() error { return q.err }

// Executed reports whether the result cache is populated.
func (q *Query) Executed() bool { return q.executed }

// RowsAffected returns the number of rows an executed write touched, as the
// backend reported it.
func (q *Query) RowsAffected() int64 { return q.affected }

// HasConditions reports whether the query carries a WHERE clause.
func (q *Query) HasConditions() bool { return len(q.filters) > 0 }

func (q *Query) fail(op string, err error) *Query {
	if q.err == nil {
		q.err = &QueryError{Op: op, Table: q.table.Name(), Err: err}
	}
	return q
}

// usable reports whether a builder call may proceed.
func (q *Query) usable(op string) bool {
	if q.err != nil {
		return false
	}
	if q.executed {
		q.fail(op, fmt.Errorf("%w: query already executed", ErrValidation))
		return false
	}
	return true
}

// become fixes the kind to k, or latches a type conflict.
func (q *Query) become(op string, k adapter.Kind) bool {
	switch q.kind {
	case adapter.Untyped:
		q.kind = k
		return true
	case k:
		return true
	}
	q.fail(op, fmt.Errorf("%w: cannot call %s() on %s query", ErrTypeConflict, op, q.kind))
	return false
}

// Filter adds a condition on column. A Comparison value renders its own
// fragment; any other value means equality. Filtering the same column again
// replaces the earlier condition.
func (q *Query) Filter(column string, value any) *Query {
	if !q.usable("filter") {
		return q
	}
	if q.kind == adapter.Insert {
		return q.fail("filter", fmt.Errorf("%w: filter() cannot be used on an INSERT", ErrTypeConflict))
	}

	cmp, ok := value.(Comparison)
	if !ok {
		cmp = Eq(value)
	}
	f := filter{
		column:   column,
		operator: cmp.Operator(),
		fragment: cmp.Render(q.escape(column), q.placeholder()),
		value:    cmp.Operand(),
	}

	if i, exists := q.filterIdx[column]; exists {
		q.filters[i] = f
		return q
	}
	q.filterIdx[column] = len(q.filters)
	q.filters = append(q.filters, f)
	return q
}

// Where adds one condition per entry of fields, in column order.
func (q *Query) Where(fields Fields) *Query {
	for _, k := range fields.Keys() {
		q.Filter(k, fields[k])
	}
	return q
}

// Columns restricts the returned columns. No columns, or "*", means all.
func (q *Query) Columns(columns ...string) *Query {
	if !q.usable("select") || !q.become("select", adapter.Select) {
		return q
	}
	for _, c := range columns {
		if c == "*" {
			q.columns = nil
			return q
		}
	}
	q.columns = append([]string(nil), columns...)
	return q
}

// Limit caps the number of returned rows. Zero removes the limit.
func (q *Query) Limit(n int) *Query {
	if !q.usable("limit") || !q.become("limit", adapter.Select) {
		return q
	}
	if n < 0 {
		return q.fail("limit", fmt.Errorf("%w: limit must not be negative, got %d", ErrValidation, n))
	}
	q.limit = n
	q.offset = 0
	return q
}

// LimitRange returns rows lower (inclusive) to upper (exclusive). A zero
// lower is the same as Limit(upper).
func (q *Query) LimitRange(lower, upper int) *Query {
	if !q.usable("limit") || !q.become("limit", adapter.Select) {
		return q
	}
	switch {
	case lower < 0 || upper < 0:
		return q.fail("limit", fmt.Errorf("%w: limit bounds must not be negative", ErrValidation))
	case upper == 0 && lower > 0:
		return q.fail("limit", fmt.Errorf("%w: cannot specify a lower bound without an upper bound", ErrValidation))
	case lower > 0 && lower >= upper:
		return q.fail("limit", fmt.Errorf("%w: lower bound %d must be less than upper bound %d", ErrValidation, lower, upper))
	}
	q.limit = upper - lower
	q.offset = lower
	return q
}

// OrderBy sorts the result by column. Direction must be ASC or DESC.
func (q *Query) OrderBy(column, direction string) *Query {
	if !q.usable("order_by") || !q.become("order_by", adapter.Select) {
		return q
	}
	if direction != "ASC" && direction != "DESC" {
		return q.fail("order_by", fmt.Errorf("%w: direction must be ASC or DESC, got %q", ErrValidation, direction))
	}
	q.order = &adapter.Order{Column: column, Direction: direction}
	return q
}

// Set assigns a column value on an INSERT, or on an UPDATE built with
// Update(t). An untyped query becomes an INSERT.
func (q *Query) Set(column string, value any) *Query {
	if !q.usable("set") {
		return q
	}
	if q.kind != adapter.Update && !q.become("set", adapter.Insert) {
		return q
	}
	q.assign(column, value)
	return q
}

// SetAll calls Set for every entry of fields, in column order.
func (q *Query) SetAll(fields Fields) *Query {
	for _, k := range fields.Keys() {
		q.Set(k, fields[k])
	}
	return q
}

// Update assigns a column value on an UPDATE. An untyped query becomes an
// UPDATE.
func (q *Query) Update(column string, value any) *Query {
	if !q.usable("update") || !q.become("update", adapter.Update) {
		return q
	}
	q.assign(column, value)
	return q
}

// UpdateAll calls Update for every entry of fields, in column order.
func (q *Query) UpdateAll(fields Fields) *Query {
	for _, k := range fields.Keys() {
		q.Update(k, fields[k])
	}
	return q
}

func (q *Query) assign(column string, value any) {
	if i, ok := q.assignIdx[column]; ok {
		q.assignments[i].Value = value
		return
	}
	q.assignIdx[column] = len(q.assignments)
	q.assignments = append(q.assignments, adapter.Assignment{Column: column, Value: value})
}

// Delete removes the matching rows immediately. Without conditions it refuses
// to run unless force is set.
func (q *Query) Delete(ctx context.Context, force bool) error {
	if !q.usable("delete") || !q.become("delete", adapter.Delete) {
		return q.err
	}
	if force {
		q.forced = true
	}
	_, err := q.Execute(ctx)
	return err
}

// Execute runs the statement once and caches the resulting resources.
// Later calls return the cache without touching the adapter. An untyped query
// runs as a SELECT.
func (q *Query) Execute(ctx context.Context) ([]*Resource, error) {
	if q.executed {
		return q.cache, nil
	}
	if q.err != nil {
		return nil, q.err
	}
	if q.kind == adapter.Untyped {
		q.kind = adapter.Select
	}
	// An unfiltered DELETE only runs through Delete(ctx, true).
	if q.kind == adapter.Delete && len(q.filters) == 0 && !q.forced {
		return nil, q.fail("delete", fmt.Errorf("%w: attempt to delete without a filter, set force to override", ErrGuard)).err
	}

	stmt, err := q.Statement()
	if err != nil {
		return nil, err
	}

	res, err := q.table.db.execute(ctx, stmt)
	if err != nil {
		return nil, &QueryError{
			Op:        strings.ToLower(q.kind.String()),
			Table:     q.table.Name(),
			Statement: stmt.SQL,
			Args:      stmt.Args,
			Err:       err,
		}
	}

	var resources []*Resource
	if q.kind == adapter.Select && res != nil {
		resources = make([]*Resource, 0, len(res.Rows))
		for _, row := range res.Rows {
			resources = append(resources, newResource(q.table, res.Columns, row, false))
		}
	}

	q.cache = resources
	if res != nil {
		q.affected = res.RowsAffected
	}
	q.executed = true
	return q.cache, nil
}

// All is Execute under the name callers expect for selects.
func (q *Query) All(ctx context.Context) ([]*Resource, error) {
	return q.Execute(ctx)
}

// Len returns the number of cached resources, executing if needed.
func (q *Query) Len(ctx context.Context) (int, error) {
	rs, err := q.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(rs), nil
}

// At returns the i-th resource, executing if needed.
func (q *Query) At(ctx context.Context, i int) (*Resource, error) {
	rs, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(rs) {
		return nil, &QueryError{
			Op:    "index",
			Table: q.table.Name(),
			Err:   fmt.Errorf("%w: the query returned %d results, index %d is out of range", ErrNotFound, len(rs), i),
		}
	}
	return rs[i], nil
}

// First returns the first resource.
func (q *Query) First(ctx context.Context) (*Resource, error) {
	return q.At(ctx, 0)
}

// Each calls fn for every cached resource, stopping at the first error.
func (q *Query) Each(ctx context.Context, fn func(*Resource) error) error {
	rs, err := q.Execute(ctx)
	if err != nil {
		return err
	}
	for _, r := range rs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// String returns the rendered SQL, or the builder error.
func (q *Query) String() string {
	stmt, err := q.Statement()
	if err != nil {
		return err.Error()
	}
	return stmt.SQL
}

func (q *Query) escape(identifier string) string {
	return q.table.db.adapter.Escape(identifier)
}

func (q *Query) placeholder() string {
	return q.table.db.adapter.Placeholder()
}
