package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/satishbabariya/tablemap/adapter"
	"github.com/satishbabariya/tablemap/adapter/rest"
	"github.com/satishbabariya/tablemap/orm"
)

type handlers struct {
	db     *orm.Database
	logger *slog.Logger
}

var reserved = map[string]bool{
	rest.ParamOrder:     true,
	rest.ParamDirection: true,
	rest.ParamLimit:     true,
	rest.ParamOffset:    true,
	rest.ParamColumns:   true,
	rest.ParamForce:     true,
}

func (h *handlers) table(w http.ResponseWriter, r *http.Request) (*orm.Table, bool) {
	t, err := h.db.Table(chi.URLParam(r, "table"))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return t, true
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err)
}

// value converts a raw path or query value by the declared type of column.
func value(ctx context.Context, t *orm.Table, column, raw string) (any, error) {
	info, err := t.Column(ctx, column)
	if err != nil {
		return nil, err
	}
	return rest.ParseValueAs(raw, info.Type), nil
}

// memberKey returns the primary key column of t and the typed {id} path value.
func memberKey(r *http.Request, t *orm.Table) (string, any, error) {
	ctx := r.Context()
	pk, err := t.PrimaryKey(ctx)
	if err != nil {
		return "", nil, err
	}
	id, err := value(ctx, t, pk, chi.URLParam(r, "id"))
	if err != nil {
		return "", nil, err
	}
	return pk, id, nil
}

// filtered applies the column filters of the query string to q in key order.
func filtered(ctx context.Context, t *orm.Table, q *orm.Query, values map[string][]string) (*orm.Query, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		column, op := rest.ParseFilterKey(k)
		v, err := value(ctx, t, column, values[k][0])
		if err != nil {
			return nil, err
		}
		cond, ok := orm.ConditionFor(op, v)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported filter %q", orm.ErrValidation, k)
		}
		q = q.Filter(column, cond)
	}
	return q, q.Err()
}

func intParam(values map[string][]string, key string) (int, error) {
	raw := ""
	if v := values[key]; len(v) > 0 {
		raw = v[0]
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", orm.ErrValidation, key)
	}
	return n, nil
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	params := r.URL.Query()

	q, err := filtered(ctx, t, t.All(), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var columns []string
	if raw := params.Get(rest.ParamColumns); raw != "" {
		columns = strings.Split(raw, ",")
		q = q.Columns(columns...)
	}
	if col := params.Get(rest.ParamOrder); col != "" {
		dir := params.Get(rest.ParamDirection)
		if dir == "" {
			dir = "ASC"
		}
		q = q.OrderBy(col, dir)
	}

	limit, err := intParam(params, rest.ParamLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	offset, err := intParam(params, rest.ParamOffset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	switch {
	case offset > 0:
		q = q.LimitRange(offset, offset+limit)
	case limit > 0:
		q = q.Limit(limit)
	}

	rows, err := q.All(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if columns == nil {
		if columns, err = t.Columns(ctx); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	body := rest.RowsResponse{Columns: columns, Rows: make([]map[string]any, 0, len(rows))}
	for _, row := range rows {
		body.Rows = append(body.Rows, row.Map())
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	_, id, err := memberKey(r, t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	row, err := t.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row.Map())
}

func decodeFields(r *http.Request) (orm.Fields, error) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: invalid body: %v", orm.ErrValidation, err)
	}
	return orm.Fields(rest.Normalize(body)), nil
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	fields, err := decodeFields(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	row, err := t.Create(ctx, fields)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// pick up defaults the backend filled in
	if err := row.Reload(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row.Map())
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	fields, err := decodeFields(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pk, id, err := memberKey(r, t)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := orm.Update(t).UpdateAll(fields).Filter(pk, id)
	if _, err := q.Execute(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	if q.RowsAffected() == 0 {
		writeError(w, http.StatusNotFound, orm.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	pk, id, err := memberKey(r, t)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := orm.Delete(t).Filter(pk, id)
	if err := q.Delete(ctx, false); err != nil {
		h.fail(w, r, err)
		return
	}
	if q.RowsAffected() == 0 {
		writeError(w, http.StatusNotFound, orm.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateMany(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	fields, err := decodeFields(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q, err := filtered(r.Context(), t, orm.Update(t).UpdateAll(fields), r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := q.Execute(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rest.AffectedResponse{RowsAffected: q.RowsAffected()})
}

func (h *handlers) deleteMany(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()

	q, err := filtered(r.Context(), t, orm.Delete(t), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	force, _ := strconv.ParseBool(params.Get(rest.ParamForce))
	if err := q.Delete(r.Context(), force); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rest.AffectedResponse{RowsAffected: q.RowsAffected()})
}

func (h *handlers) listTables(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]adapter.TableInfo)
	for _, name := range h.db.Tables() {
		t, err := h.db.Table(name)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		out[name] = t.Info()
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) describeTable(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	columns, err := t.Columns(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make(map[string]adapter.ColumnInfo, len(columns))
	for _, c := range columns {
		info, err := t.Column(ctx, c)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		out[c] = info
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) primaryKey(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	pk, err := t.PrimaryKey(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rest.PrimaryKeyResponse{PrimaryKey: pk})
}

func (h *handlers) foreignKeys(w http.ResponseWriter, r *http.Request) {
	t, ok := h.table(w, r)
	if !ok {
		return
	}
	fks, err := t.ForeignKeys(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if fks == nil {
		fks = []adapter.ForeignKey{}
	}
	writeJSON(w, http.StatusOK, fks)
}

var errStatus = []struct {
	err    error
	status int
}{
	{orm.ErrNotFound, http.StatusNotFound},
	{orm.ErrSchemaViolation, http.StatusBadRequest},
	{orm.ErrValidation, http.StatusBadRequest},
	{orm.ErrTypeConflict, http.StatusBadRequest},
	{orm.ErrGuard, http.StatusPreconditionFailed},
	{orm.ErrConsistency, http.StatusConflict},
	{adapter.ErrUnsupported, http.StatusNotImplemented},
}

func statusFor(err error) int {
	for _, e := range errStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, rest.ErrorResponse{Error: err.Error()})
}
