package sqladapter

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/tablemap/adapter"
)

func newMock(t *testing.T, d Dialect) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Wrap(db, d, nil), mock
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	a := New(SQLite3())

	_, err := a.Execute(ctx, &adapter.Statement{Kind: adapter.Select, SQL: "SELECT 1"})
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	_, err = a.Tables(ctx)
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	_, err = a.PrimaryKey(ctx, "artist")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)
	assert.NoError(t, a.Close())
}

func TestAdapter_Execute(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		stmt      *adapter.Statement
		setupMock func(mock sqlmock.Sqlmock)
		want      *adapter.Result
		lastID    any
		errMsg    string
	}{
		{
			name: "select scans rows",
			stmt: &adapter.Statement{Kind: adapter.Select, SQL: `SELECT * FROM "artist" WHERE "id" > ?`, Args: []any{1}},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "artist" WHERE "id" > ?`)).
					WithArgs(1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
						AddRow(int64(2), []byte("Fela Kuti")).
						AddRow(int64(3), "Cesaria Evora"))
			},
			want: &adapter.Result{
				Columns: []string{"id", "name"},
				Rows: []adapter.Row{
					{"id": int64(2), "name": "Fela Kuti"},
					{"id": int64(3), "name": "Cesaria Evora"},
				},
			},
		},
		{
			name: "insert records last id",
			stmt: &adapter.Statement{Kind: adapter.Insert, Table: "artist", SQL: `INSERT INTO "artist" ("name") VALUES (?)`, Args: []any{"X"}},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "artist" ("name") VALUES (?)`)).
					WithArgs("X").
					WillReturnResult(sqlmock.NewResult(42, 1))
			},
			want:   &adapter.Result{RowsAffected: 1},
			lastID: int64(42),
		},
		{
			name: "update reports affected rows",
			stmt: &adapter.Statement{Kind: adapter.Update, SQL: `UPDATE "artist" SET "name" = ? WHERE "id" = ?`, Args: []any{"Y", 2}},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "artist" SET "name" = ? WHERE "id" = ?`)).
					WithArgs("Y", 2).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: &adapter.Result{RowsAffected: 1},
		},
		{
			name: "driver error is wrapped",
			stmt: &adapter.Statement{Kind: adapter.Delete, SQL: `DELETE FROM "artist"`},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "artist"`)).WillReturnError(assert.AnError)
			},
			errMsg: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mock := newMock(t, SQLite3())
			tt.setupMock(mock)

			res, err := a.Execute(ctx, tt.stmt)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.ErrorIs(t, err, assert.AnError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)

			id, err := a.LastInsertedID(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.lastID, id)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_PostgresInsertReturning(t *testing.T) {
	ctx := context.Background()
	a, mock := newMock(t, Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT kcu.column_name`)).
		WithArgs("public", "artist").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "artist" ("name", "country") VALUES ($1, $2) RETURNING "id"`)).
		WithArgs("X", "FR").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	_, err := a.Execute(ctx, &adapter.Statement{
		Kind:  adapter.Insert,
		Table: "artist",
		SQL:   `INSERT INTO "artist" ("name", "country") VALUES (?, ?)`,
		Args:  []any{"X", "FR"},
	})
	require.NoError(t, err)

	id, err := a.LastInsertedID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_PostgresRebindsSelect(t *testing.T) {
	ctx := context.Background()
	a, mock := newMock(t, PGX())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "artist" WHERE "id" = $1 AND "name" = $2 LIMIT 5 OFFSET 10`)).
		WithArgs(1, "x").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	res, err := a.Execute(ctx, &adapter.Statement{
		Kind: adapter.Select,
		SQL:  `SELECT * FROM "artist" WHERE "id" = ? AND "name" = ? ` + a.RenderLimit(5, 10),
		Args: []any{1, "x"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_Introspection(t *testing.T) {
	ctx := context.Background()
	a, mock := newMock(t, SQLite3())

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, type FROM sqlite_master`)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type"}).
			AddRow("album", "table").
			AddRow("artist", "table").
			AddRow("recent", "view"))

	tables, err := a.Tables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 3)
	assert.Equal(t, "VIEW", tables["recent"].Kind)

	tableInfo := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "id", "INTEGER", 0, nil, 1).
			AddRow(1, "name", "varchar(120)", 1, nil, 0).
			AddRow(2, "country", "VARCHAR(2)", 0, nil, 0)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("artist")`)).WillReturnRows(tableInfo())

	cols, err := a.Describe(ctx, "artist", "", "")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, adapter.ColumnInfo{
		Table: "artist", Name: "name", Type: "VARCHAR(120)", Size: 120, Nullable: false, Position: 1,
	}, cols["name"])
	assert.True(t, cols["country"].Nullable)

	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("artist")`)).WillReturnRows(tableInfo())
	pk, err := a.PrimaryKey(ctx, "artist")
	require.NoError(t, err)
	assert.Equal(t, "id", pk)

	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("notes")`)).
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "body", "TEXT", 0, nil, 0))
	pk, err = a.PrimaryKey(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, adapter.DefaultPrimaryKey, pk)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_ForeignKeys(t *testing.T) {
	ctx := context.Background()
	a, mock := newMock(t, SQLite3())

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sqlite_master m JOIN pragma_foreign_key_list(m.name) p`)).
		WithArgs("artist", "artist").
		WillReturnRows(sqlmock.NewRows([]string{"name", "table", "from", "to"}).
			AddRow("album", "artist", "artist_id", "id").
			AddRow("single", "artist", "artist_ref", nil))
	mock.ExpectQuery(regexp.QuoteMeta(`PRAGMA table_info("artist")`)).
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "artist_key", "INTEGER", 0, nil, 1))

	fks, err := a.ForeignKeys(ctx, "artist")
	require.NoError(t, err)
	assert.Equal(t, []adapter.ForeignKey{
		{Parent: adapter.ColumnRef{Table: "artist", Column: "id"}, Child: adapter.ColumnRef{Table: "album", Column: "artist_id"}},
		{Parent: adapter.ColumnRef{Table: "artist", Column: "artist_key"}, Child: adapter.ColumnRef{Table: "single", Column: "artist_ref"}},
	}, fks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_SetupVersionGate(t *testing.T) {
	tests := []struct {
		version string
		xinfo   bool
	}{
		{"3.25.3", false},
		{"3.26.0", true},
		{"3.46.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			mock.ExpectExec(regexp.QuoteMeta("PRAGMA foreign_keys = ON")).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery(regexp.QuoteMeta("SELECT sqlite_version()")).
				WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(tt.version))

			d := SQLite().(*sqliteDialect)
			require.NoError(t, d.Setup(context.Background(), db, adapter.Options{}))
			assert.Equal(t, tt.xinfo, d.xinfo)
		})
	}
}

func TestPostgres_Introspection(t *testing.T) {
	ctx := context.Background()
	a, mock := newMock(t, Postgres())

	mock.ExpectQuery(regexp.QuoteMeta(`FROM information_schema.tables`)).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"table_catalog", "table_schema", "table_name", "table_type"}).
			AddRow("music", "public", "artist", "BASE TABLE"))
	tables, err := a.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, adapter.TableInfo{Catalog: "music", Name: "artist", Kind: "TABLE"}, tables["artist"])

	mock.ExpectQuery(regexp.QuoteMeta(`FROM information_schema.columns`)).
		WithArgs("public", "artist").
		WillReturnRows(sqlmock.NewRows([]string{"table_catalog", "column_name", "data_type", "character_maximum_length", "is_nullable", "ordinal_position"}).
			AddRow("music", "id", "integer", nil, "NO", 1).
			AddRow("music", "name", "character varying", 120, "YES", 2))
	cols, err := a.Describe(ctx, "artist", "music", "")
	require.NoError(t, err)
	assert.Equal(t, int64(120), cols["name"].Size)
	assert.True(t, cols["name"].Nullable)
	assert.False(t, cols["id"].Nullable)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE tc.constraint_type = 'FOREIGN KEY'`)).
		WithArgs("public", "artist").
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d"}).AddRow("album", "artist_id", "artist", "id"))
	fks, err := a.ForeignKeys(ctx, "artist")
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.Equal(t, "album", fks[0].Child.Table)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQL_NormalizeDSN(t *testing.T) {
	d := MySQL()

	dsn, err := d.NormalizeDSN("root:secret@tcp(localhost:3306)/music")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "/music")

	_, err = d.NormalizeDSN("root@tcp(localhost:3306)/")
	assert.Error(t, err)

	assert.Equal(t, "`album`", d.Escape("album"))
	assert.Equal(t, "`odd``name`", d.Escape("odd`name"))
}

func TestDialect_Helpers(t *testing.T) {
	assert.Equal(t, `"main"."artist"`, SQLite3().Escape("main.artist"))
	assert.Equal(t, `"say ""hi"""`, Postgres().Escape(`say "hi"`))
	assert.Equal(t, int64(255), sizeOf("VARCHAR(255)"))
	assert.Equal(t, int64(10), sizeOf("decimal(10,2)"))
	assert.Zero(t, sizeOf("TEXT"))

	a := New(MySQL())
	assert.Equal(t, "LIMIT 10, 5", a.RenderLimit(5, 10))
	assert.Equal(t, "LIMIT 5", a.RenderLimit(5, 0))
	assert.Equal(t, "?", a.Placeholder())
}

func TestRegisteredDialects(t *testing.T) {
	for name, driver := range map[string]string{
		"sqlite3":  "sqlite3",
		"sqlite":   "sqlite",
		"postgres": "postgres",
		"pgx":      "pgx",
		"mysql":    "mysql",
	} {
		t.Run(name, func(t *testing.T) {
			a, err := adapter.New(name)
			require.NoError(t, err)
			sa, ok := a.(*Adapter)
			require.True(t, ok)
			assert.Equal(t, driver, sa.Dialect().DriverName())
		})
	}
}
