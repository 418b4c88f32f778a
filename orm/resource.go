package orm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/satishbabariya/tablemap/adapter"
)

// Resource is one row: persisted values, a dirty overlay of pending writes,
// and whether the row exists in storage yet.
type Resource struct {
	table *Table

	fields []string
	attrs  map[string]any

	dirty      map[string]any
	dirtyOrder []string

	isNew   bool
	deleted bool
}

func newResource(t *Table, columns []string, row adapter.Row, isNew bool) *Resource {
	r := &Resource{
		table: t,
		attrs: make(map[string]any, len(row)),
		dirty: make(map[string]any),
		isNew: isNew,
	}
	r.replace(columns, row)
	return r
}

// replace swaps in a fresh copy of a row and drops pending writes.
func (r *Resource) replace(columns []string, row adapter.Row) {
	fields := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, c := range columns {
		if _, ok := row[c]; ok && !seen[c] {
			fields = append(fields, c)
			seen[c] = true
		}
	}
	var rest []string
	for c := range row {
		if !seen[c] {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)

	r.fields = append(fields, rest...)
	r.attrs = make(map[string]any, len(row))
	for k, v := range row {
		r.attrs[k] = v
	}
	r.clearDirty()
}

func (r *Resource) clearDirty() {
	r.dirty = make(map[string]any)
	r.dirtyOrder = nil
}

// Table returns the owning table.
func (r *Resource) Table() *Table { return r.table }

// IsNew reports whether the row has not been saved yet.
func (r *Resource) IsNew() bool { return r.isNew }

// Deleted reports whether Delete removed the row.
func (r *Resource) Deleted() bool { return r.deleted }

// SaveRequired reports whether Save would write anything.
func (r *Resource) SaveRequired() bool {
	return len(r.dirty) > 0 || r.isNew
}

// Dirty returns the names of pending columns in write order.
func (r *Resource) Dirty() []string {
	return append([]string(nil), r.dirtyOrder...)
}

// Get returns the value of a column, the pending one if it was written.
func (r *Resource) Get(column string) (any, bool) {
	if v, ok := r.dirty[column]; ok {
		return v, true
	}
	v, ok := r.attrs[column]
	return v, ok
}

// Value returns the value of a column or nil.
func (r *Resource) Value(column string) any {
	v, _ := r.Get(column)
	return v
}

// Set records a pending write. The column must exist on the table; on
// failure the pending writes are unchanged.
func (r *Resource) Set(ctx context.Context, column string, value any) error {
	if r.deleted {
		return r.detached("set")
	}
	ok, err := r.table.HasColumn(ctx, column)
	if err != nil {
		return err
	}
	if !ok {
		return r.table.unknownColumn(column)
	}
	if _, exists := r.dirty[column]; !exists {
		r.dirtyOrder = append(r.dirtyOrder, column)
	}
	r.dirty[column] = value
	return nil
}

// Fields returns the column names in row order, followed by pending columns
// the row did not carry.
func (r *Resource) Fields() []string {
	out := append([]string(nil), r.fields...)
	for _, c := range r.dirtyOrder {
		if _, ok := r.attrs[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Map returns the merged view of persisted and pending values.
func (r *Resource) Map() map[string]any {
	m := make(map[string]any, len(r.attrs)+len(r.dirty))
	for k, v := range r.attrs {
		m[k] = v
	}
	for k, v := range r.dirty {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the merged values.
func (r *Resource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Pk returns the persisted primary key value.
func (r *Resource) Pk(ctx context.Context) (any, error) {
	key, err := r.table.PrimaryKey(ctx)
	if err != nil {
		return nil, err
	}
	return r.attrs[key], nil
}

// Save inserts a new row or updates the pending columns of a persisted one.
// It returns false without touching storage when nothing is pending.
func (r *Resource) Save(ctx context.Context) (bool, error) {
	if r.deleted {
		return false, r.detached("save")
	}
	if !r.SaveRequired() {
		return false, nil
	}
	key, err := r.table.PrimaryKey(ctx)
	if err != nil {
		return false, err
	}
	if r.isNew {
		return true, r.insert(ctx, key)
	}
	return true, r.update(ctx, key)
}

func (r *Resource) insert(ctx context.Context, key string) error {
	values := r.Map()
	q := Insert(r.table)
	for _, c := range r.Fields() {
		q.Set(c, values[c])
	}
	if _, err := q.Execute(ctx); err != nil {
		return err
	}

	pk := values[key]
	if pk == nil {
		id, err := r.table.db.adapter.LastInsertedID(ctx)
		if err != nil {
			return fmt.Errorf("last inserted id of %s: %w", r.table.Name(), err)
		}
		pk = id
	}

	r.fields = r.Fields()
	if _, ok := values[key]; !ok {
		r.fields = append(r.fields, key)
	}
	values[key] = pk
	r.attrs = values
	r.clearDirty()
	r.isNew = false
	return nil
}

func (r *Resource) update(ctx context.Context, key string) error {
	q := Update(r.table).Filter(key, r.attrs[key])
	for _, c := range r.dirtyOrder {
		q.Update(c, r.dirty[c])
	}
	if _, err := q.Execute(ctx); err != nil {
		return err
	}

	if v, ok := r.dirty[key]; ok {
		r.attrs[key] = v
	}
	return r.Reload(ctx)
}

// Reload replaces the values with the stored row and drops pending writes.
func (r *Resource) Reload(ctx context.Context) error {
	if r.deleted {
		return r.detached("reload")
	}
	key, err := r.table.PrimaryKey(ctx)
	if err != nil {
		return err
	}
	rows, err := Select(r.table).Filter(key, r.attrs[key]).Execute(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &QueryError{
			Op:    "reload",
			Table: r.table.Name(),
			Err:   fmt.Errorf("%w: no row with %s = %v", ErrNotFound, key, r.attrs[key]),
		}
	}
	fresh := rows[0]
	r.replace(fresh.fields, fresh.attrs)
	r.isNew = false
	return nil
}

// Delete removes the row. Unless forced, the primary key must match exactly
// one stored row first. The resource cannot be used for writes afterwards.
func (r *Resource) Delete(ctx context.Context, force bool) error {
	if r.deleted {
		return r.detached("delete")
	}
	key, err := r.table.PrimaryKey(ctx)
	if err != nil {
		return err
	}
	pk := r.attrs[key]

	if !force {
		n, err := Select(r.table).Filter(key, pk).Len(ctx)
		if err != nil {
			return err
		}
		if n != 1 {
			return &QueryError{
				Op:    "delete",
				Table: r.table.Name(),
				Err:   fmt.Errorf("%w: %d rows with %s = %v, expected 1", ErrConsistency, n, key, pk),
			}
		}
	}

	if err := Delete(r.table).Filter(key, pk).Delete(ctx, force); err != nil {
		return err
	}
	r.deleted = true
	r.clearDirty()
	return nil
}

func (r *Resource) detached(op string) error {
	return &QueryError{
		Op:    op,
		Table: r.table.Name(),
		Err:   fmt.Errorf("%w: row was deleted", ErrDetached),
	}
}

// String returns the table name and merged values.
func (r *Resource) String() string {
	return fmt.Sprintf("%s%v", r.table.Name(), r.Map())
}
