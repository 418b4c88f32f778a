// Package rest implements the adapter contract over an HTTP resource API.
//
// Each table is a collection at <base>/<table> and each row a member at
// <base>/<table>/<id>. Reads are GET, inserts POST, updates PUT and deletes
// DELETE, all with JSON bodies. Filters travel as query parameters
// (name=x, year__gte=1970). Schema questions are answered by the routes
// under /_meta. The package registers itself as "rest".
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satishbabariya/tablemap/adapter"
)

func init() {
	adapter.Register("rest", func() adapter.Adapter { return New(nil) })
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Adapter talks to a resource server.
type Adapter struct {
	client *http.Client
	base   *url.URL
	logger *slog.Logger

	mu     sync.Mutex
	pks    map[string]string
	lastID any
}

// New creates an unconnected adapter. A nil client uses a client with a
// 30 second timeout.
func New(client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Adapter{
		client: client,
		logger: slog.New(slog.DiscardHandler),
		pks:    make(map[string]string),
	}
}

// Connect records the base URI. The "timeout" option overrides the client
// timeout, e.g. "5s".
func (a *Adapter) Connect(ctx context.Context, dsn string, opts adapter.Options) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid base uri: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base uri %q: scheme must be http or https", dsn)
	}
	if raw := opts.Param("timeout", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
		a.client.Timeout = d
	}

	u.Path = strings.TrimSuffix(u.Path, "/")
	a.base = u
	a.logger = opts.LoggerOrDiscard().With("adapter", "rest", "base", u.String())
	a.logger.Debug("connected to resource server")
	return nil
}

// Close forgets the base URI.
func (a *Adapter) Close() error {
	a.base = nil
	a.client.CloseIdleConnections()
	return nil
}

func (a *Adapter) endpoint(query url.Values, parts ...string) string {
	u := *a.base
	for _, p := range parts {
		u.Path += "/" + url.PathEscape(p)
	}
	u.RawPath = ""
	u.RawQuery = query.Encode()
	return u.String()
}

// do sends one request. found is false on 404, which is not an error.
func (a *Adapter) do(ctx context.Context, method, target string, body, out any) (found bool, err error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	a.logger.Debug("sending request", "method", method, "url", target, "request_id", requestID)
	resp, err := a.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode}
		var er ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&er) == nil {
			se.Message = er.Error
		}
		return false, se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return true, nil
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode %s %s: %w", method, target, err)
	}
	return true, nil
}

// Execute maps a statement onto one HTTP request.
func (a *Adapter) Execute(ctx context.Context, stmt *adapter.Statement) (*adapter.Result, error) {
	if a.base == nil {
		return nil, adapter.ErrNotConnected
	}

	switch stmt.Kind {
	case adapter.Select, adapter.Untyped:
		return a.read(ctx, stmt)
	case adapter.Insert:
		return a.create(ctx, stmt)
	case adapter.Update:
		return a.write(ctx, http.MethodPut, stmt, stmt.Values())
	case adapter.Delete:
		return a.write(ctx, http.MethodDelete, stmt, nil)
	}
	return nil, fmt.Errorf("%w: %s", adapter.ErrUnsupported, stmt.Kind)
}

// member returns the id when the statement addresses exactly one row by
// primary key and nothing else.
func (a *Adapter) member(ctx context.Context, stmt *adapter.Statement) (string, bool, error) {
	if len(stmt.Predicates) != 1 {
		return "", false, nil
	}
	pk, err := a.PrimaryKey(ctx, stmt.Table)
	if err != nil {
		return "", false, err
	}
	p, ok := stmt.PredicateFor(pk)
	if !ok || p.Value == nil {
		return "", false, nil
	}
	// an empty id would address the collection route
	id := FormatValue(p.Value)
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

func (a *Adapter) filters(stmt *adapter.Statement) (url.Values, error) {
	q := url.Values{}
	for _, p := range stmt.Predicates {
		key, ok := FilterKey(p.Column, p.Operator)
		if !ok {
			return nil, fmt.Errorf("%w: operator %q", adapter.ErrUnsupported, p.Operator)
		}
		q.Set(key, FormatValue(p.Value))
	}
	return q, nil
}

func (a *Adapter) read(ctx context.Context, stmt *adapter.Statement) (*adapter.Result, error) {
	simple := len(stmt.Columns) == 0 && stmt.Order == nil && stmt.Limit == 0
	if simple {
		id, ok, err := a.member(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if ok {
			var row map[string]any
			found, err := a.do(ctx, http.MethodGet, a.endpoint(nil, stmt.Table, id), nil, &row)
			if err != nil {
				return nil, err
			}
			res := &adapter.Result{}
			if found {
				res.Columns = a.columnOrder(ctx, stmt.Table, row)
				res.Rows = []adapter.Row{Normalize(row)}
			}
			return res, nil
		}
	}

	q, err := a.filters(stmt)
	if err != nil {
		return nil, err
	}
	if len(stmt.Columns) > 0 {
		q.Set(ParamColumns, strings.Join(stmt.Columns, ","))
	}
	if stmt.Order != nil {
		q.Set(ParamOrder, stmt.Order.Column)
		q.Set(ParamDirection, stmt.Order.Direction)
	}
	if stmt.Limit > 0 {
		q.Set(ParamLimit, strconv.Itoa(stmt.Limit))
	}
	if stmt.Offset > 0 {
		q.Set(ParamOffset, strconv.Itoa(stmt.Offset))
	}

	var body RowsResponse
	found, err := a.do(ctx, http.MethodGet, a.endpoint(q, stmt.Table), nil, &body)
	if err != nil {
		return nil, err
	}
	res := &adapter.Result{Columns: body.Columns}
	if !found {
		return res, nil
	}
	for _, row := range body.Rows {
		res.Rows = append(res.Rows, Normalize(row))
	}
	return res, nil
}

// columnOrder orders the keys of a member body by column position.
func (a *Adapter) columnOrder(ctx context.Context, table string, row map[string]any) []string {
	described, err := a.Describe(ctx, table, "", "")
	if err != nil {
		cols := make([]string, 0, len(row))
		for c := range row {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		return cols
	}

	cols := make([]string, 0, len(row))
	for c := range row {
		if _, ok := described[c]; ok {
			cols = append(cols, c)
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		return described[cols[i]].Position < described[cols[j]].Position
	})
	return cols
}

func (a *Adapter) create(ctx context.Context, stmt *adapter.Statement) (*adapter.Result, error) {
	var row map[string]any
	if _, err := a.do(ctx, http.MethodPost, a.endpoint(nil, stmt.Table), stmt.Values(), &row); err != nil {
		return nil, err
	}
	Normalize(row)

	pk, err := a.PrimaryKey(ctx, stmt.Table)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.lastID = row[pk]
	a.mu.Unlock()
	return &adapter.Result{RowsAffected: 1}, nil
}

func (a *Adapter) write(ctx context.Context, method string, stmt *adapter.Statement, body map[string]any) (*adapter.Result, error) {
	id, ok, err := a.member(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if ok {
		found, err := a.do(ctx, method, a.endpoint(nil, stmt.Table, id), body, nil)
		if err != nil {
			return nil, err
		}
		res := &adapter.Result{}
		if found {
			res.RowsAffected = 1
		}
		return res, nil
	}

	q, err := a.filters(stmt)
	if err != nil {
		return nil, err
	}
	if len(q) == 0 {
		q.Set(ParamForce, "true")
	}
	var out AffectedResponse
	if _, err := a.do(ctx, method, a.endpoint(q, stmt.Table), body, &out); err != nil {
		return nil, err
	}
	return &adapter.Result{RowsAffected: out.RowsAffected}, nil
}

// LastInsertedID returns the primary key of the row the last POST created.
func (a *Adapter) LastInsertedID(ctx context.Context) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastID, nil
}

// Tables lists the server's tables.
func (a *Adapter) Tables(ctx context.Context) (map[string]adapter.TableInfo, error) {
	if a.base == nil {
		return nil, adapter.ErrNotConnected
	}
	var out map[string]adapter.TableInfo
	if _, err := a.do(ctx, http.MethodGet, a.endpoint(nil, MetaPrefix[1:], "tables"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Describe lists the columns of a table.
func (a *Adapter) Describe(ctx context.Context, table, catalog, schema string) (map[string]adapter.ColumnInfo, error) {
	if a.base == nil {
		return nil, adapter.ErrNotConnected
	}
	var out map[string]adapter.ColumnInfo
	found, err := a.do(ctx, http.MethodGet, a.endpoint(nil, MetaPrefix[1:], "tables", table, "columns"), nil, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return out, nil
}

// PrimaryKey asks the server once per table and caches the answer.
func (a *Adapter) PrimaryKey(ctx context.Context, table string) (string, error) {
	a.mu.Lock()
	pk, ok := a.pks[table]
	a.mu.Unlock()
	if ok {
		return pk, nil
	}
	if a.base == nil {
		return "", adapter.ErrNotConnected
	}

	var out PrimaryKeyResponse
	found, err := a.do(ctx, http.MethodGet, a.endpoint(nil, MetaPrefix[1:], "tables", table, "primary-key"), nil, &out)
	if err != nil {
		return "", err
	}
	pk = out.PrimaryKey
	if !found || pk == "" {
		pk = adapter.DefaultPrimaryKey
	}

	a.mu.Lock()
	a.pks[table] = pk
	a.mu.Unlock()
	return pk, nil
}

// ForeignKeys lists the keys the table takes part in.
func (a *Adapter) ForeignKeys(ctx context.Context, table string) ([]adapter.ForeignKey, error) {
	if a.base == nil {
		return nil, adapter.ErrNotConnected
	}
	var out []adapter.ForeignKey
	if _, err := a.do(ctx, http.MethodGet, a.endpoint(nil, MetaPrefix[1:], "tables", table, "foreign-keys"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Escape returns the identifier unchanged; names travel in URLs and are
// escaped there.
func (a *Adapter) Escape(identifier string) string { return identifier }

// Placeholder returns "?". The rendered SQL is only used for logging.
func (a *Adapter) Placeholder() string { return "?" }

var _ adapter.Adapter = (*Adapter)(nil)
