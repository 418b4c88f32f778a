package rest_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/tablemap/adapter"
	"github.com/satishbabariya/tablemap/adapter/rest"
	_ "github.com/satishbabariya/tablemap/adapter/sqladapter"
	"github.com/satishbabariya/tablemap/internal/httpapi"
	"github.com/satishbabariya/tablemap/internal/testdb"
	"github.com/satishbabariya/tablemap/orm"
)

// newRemote serves a migrated fixture and returns a database that reaches it
// through the rest adapter.
func newRemote(t *testing.T) (*orm.Database, *httptest.Server) {
	t.Helper()
	ctx := context.Background()

	path := testdb.Path(t, "sqlite")
	addLabels(t, path)

	local, err := orm.Open(ctx, orm.Config{Adapter: "sqlite", DSN: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	srv := httptest.NewServer(httpapi.NewServer(httpapi.Config{Database: local}).Handler())
	t.Cleanup(srv.Close)

	remote, err := orm.Open(ctx, orm.Config{Adapter: "rest", DSN: srv.URL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = remote.Close() })
	return remote, srv
}

// addLabels adds a table keyed by text codes that look like numbers.
func addLabels(t *testing.T, path string) {
	t.Helper()
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()

	for _, stmt := range []string{
		`CREATE TABLE label (code TEXT PRIMARY KEY, name TEXT NOT NULL)`,
		`INSERT INTO label (code, name) VALUES ('007', 'Double O'), ('7', 'Seven')`,
	} {
		_, err := raw.Exec(stmt)
		require.NoError(t, err)
	}
}

func TestRegistered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("rest"))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		dsn     string
		opts    adapter.Options
		wantErr bool
	}{
		{name: "http", dsn: "http://localhost:8080/api"},
		{name: "https with timeout", dsn: "https://example.com", opts: adapter.Options{Params: map[string]string{"timeout": "2s"}}},
		{name: "bad scheme", dsn: "ftp://example.com", wantErr: true},
		{name: "bad timeout", dsn: "http://x", opts: adapter.Options{Params: map[string]string{"timeout": "soon"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rest.New(nil).Connect(ctx, tt.dsn, tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNotConnected(t *testing.T) {
	a := rest.New(nil)
	_, err := a.Execute(context.Background(), &adapter.Statement{Kind: adapter.Select, Table: "t"})
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	_, err = a.Tables(context.Background())
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
}

func TestSchemaRoutes(t *testing.T) {
	db, _ := newRemote(t)
	ctx := context.Background()

	assert.Contains(t, db.Tables(), "artist")
	assert.Contains(t, db.Tables(), "album")

	cols, err := db.MustTable("album").Columns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "year", "artist_id"}, cols)

	pk, err := db.MustTable("artist").PrimaryKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id", pk)

	rels, err := db.MustTable("artist").Relations(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "album", rels[0].Name)
}

func TestReadThroughServer(t *testing.T) {
	db, _ := newRemote(t)
	ctx := context.Background()

	r, err := db.MustTable("artist").Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Fela Kuti", r.Value("name"))
	assert.Equal(t, []string{"id", "name", "country"}, r.Fields())

	_, err = db.MustTable("artist").Get(ctx, 99)
	assert.True(t, orm.IsNotFound(err))

	// a nil or empty key is sent as a filter, never as a member path
	for _, key := range []any{nil, ""} {
		n, err := db.MustTable("artist").Filter("id", key).Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	}

	rows, err := db.MustTable("album").
		Filter("year", orm.Gte(1966)).
		OrderBy("year", "DESC").
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Zombie", rows[0].Value("title"))
	assert.Equal(t, int64(1976), rows[0].Value("year"))

	rows, err = db.MustTable("album").All().OrderBy("id", "ASC").LimitRange(1, 3).All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(11), rows[0].Value("id"))

	rows, err = db.MustTable("album").All().Columns("title").Filter("artist_id", 1).All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"title"}, rows[0].Fields())
}

func TestWriteThroughServer(t *testing.T) {
	db, _ := newRemote(t)
	ctx := context.Background()
	artist := db.MustTable("artist")

	created, err := artist.Create(ctx, orm.Fields{"name": "Tinariwen", "country": "ML"})
	require.NoError(t, err)
	pk, err := created.Pk(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pk)

	require.NoError(t, created.Set(ctx, "country", "DZ"))
	saved, err := created.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "DZ", created.Value("country"))

	q := orm.Update(db.MustTable("album")).Update("year", 2000).Filter("artist_id", 1)
	_, err = q.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.RowsAffected())

	require.NoError(t, created.Delete(ctx, false))
	_, err = artist.Get(ctx, 4)
	assert.True(t, orm.IsNotFound(err))

	del := orm.Delete(db.MustTable("album"))
	require.NoError(t, del.Delete(ctx, true))
	assert.Equal(t, int64(3), del.RowsAffected())
}

func TestNumericLookingStrings(t *testing.T) {
	db, _ := newRemote(t)
	ctx := context.Background()
	artist := db.MustTable("artist")

	_, err := artist.Create(ctx, orm.Fields{"name": "007"})
	require.NoError(t, err)

	n, err := artist.Filter("name", "007").Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = artist.Filter("name", "7").Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	label := db.MustTable("label")
	r, err := label.Get(ctx, "007")
	require.NoError(t, err)
	assert.Equal(t, "Double O", r.Value("name"))

	require.NoError(t, r.Set(ctx, "name", "Licence"))
	_, err = r.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, false))
	_, err = label.Get(ctx, "007")
	assert.True(t, orm.IsNotFound(err))

	seven, err := label.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "Seven", seven.Value("name"))
}

func TestErrorResponses(t *testing.T) {
	_, srv := newRemote(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"unknown table", http.MethodGet, "/nope", http.StatusNotFound},
		{"unknown member", http.MethodGet, "/artist/99", http.StatusNotFound},
		{"bad limit", http.MethodGet, "/artist?_limit=x", http.StatusBadRequest},
		{"bad direction", http.MethodGet, "/artist?_order=id&_dir=sideways", http.StatusBadRequest},
		{"lower case direction", http.MethodGet, "/artist?_order=id&_dir=desc", http.StatusBadRequest},
		{"unknown filter column", http.MethodGet, "/artist?genre=blues", http.StatusBadRequest},
		{"unguarded delete", http.MethodDelete, "/album", http.StatusPreconditionFailed},
		{"missing member delete", http.MethodDelete, "/album/99", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			req.Header.Set(rest.RequestIDHeader, "req-1")

			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "req-1", resp.Header.Get(rest.RequestIDHeader))
		})
	}
}

func TestProtocolHelpers(t *testing.T) {
	key, ok := rest.FilterKey("year", ">=")
	require.True(t, ok)
	assert.Equal(t, "year__gte", key)

	_, ok = rest.FilterKey("year", "LIKE")
	assert.False(t, ok)

	for _, op := range []string{"=", ">", "<", ">=", "<="} {
		key, _ := rest.FilterKey("year", op)
		col, got := rest.ParseFilterKey(key)
		assert.Equal(t, "year", col)
		assert.Equal(t, op, got)
	}

	assert.Equal(t, int64(42), rest.ParseValue("42"))
	assert.Equal(t, "4x", rest.ParseValue("4x"))

	typed := []struct {
		raw, sqlType string
		want         any
	}{
		{"007", "VARCHAR(120)", "007"},
		{"007", "TEXT", "007"},
		{"007", "INTEGER", int64(7)},
		{"12", "bigserial", int64(12)},
		{"1.5", "DOUBLE PRECISION", 1.5},
		{"true", "BOOLEAN", true},
		{"x", "INTEGER", "x"},
		{"3", "INTERVAL", "3"},
		{"42", "", int64(42)},
	}
	for _, tt := range typed {
		assert.Equal(t, tt.want, rest.ParseValueAs(tt.raw, tt.sqlType), "%s as %s", tt.raw, tt.sqlType)
	}
	assert.Equal(t, "1.5", rest.FormatValue(1.5))
	assert.Equal(t, "7", rest.FormatValue(int64(7)))
	assert.Equal(t, "", rest.FormatValue(nil))
}
