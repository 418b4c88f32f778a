package sqladapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"

	"github.com/satishbabariya/tablemap/adapter"
)

// table_xinfo also reports generated columns.
var xinfoSince = version.Must(version.NewVersion("3.26.0"))

type sqliteDialect struct {
	name   string
	driver string
	// xinfo is set by Setup when the server supports PRAGMA table_xinfo.
	xinfo bool
}

// SQLite3 is the SQLite dialect on the cgo driver github.com/mattn/go-sqlite3.
func SQLite3() Dialect { return &sqliteDialect{name: "sqlite3", driver: "sqlite3"} }

// SQLite is the SQLite dialect on the pure Go driver modernc.org/sqlite.
func SQLite() Dialect { return &sqliteDialect{name: "sqlite", driver: "sqlite"} }

func (d *sqliteDialect) Name() string       { return d.name }
func (d *sqliteDialect) DriverName() string { return d.driver }

func (d *sqliteDialect) NormalizeDSN(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("empty database path")
	}
	return dsn, nil
}

// Setup pins the pool to one connection, enables foreign keys and probes
// the library version.
func (d *sqliteDialect) Setup(ctx context.Context, db *sql.DB, opts adapter.Options) error {
	if opts.MaxOpenConns == 0 {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	var raw string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&raw); err != nil {
		return fmt.Errorf("failed to read sqlite version: %w", err)
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("failed to parse sqlite version %q: %w", raw, err)
	}
	d.xinfo = v.GreaterThanOrEqual(xinfoSince)
	return nil
}

func (d *sqliteDialect) Escape(identifier string) string { return quote(identifier, `"`) }
func (d *sqliteDialect) Rebind(query string) string      { return noRebind(query) }

func (d *sqliteDialect) Tables(ctx context.Context, db Querier) (map[string]adapter.TableInfo, error) {
	query := `SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make(map[string]adapter.TableInfo)
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables[name] = adapter.TableInfo{Name: name, Kind: strings.ToUpper(kind)}
	}
	return tables, rows.Err()
}

type sqliteColumn struct {
	cid     int
	name    string
	typ     string
	notNull bool
	pk      int
}

func (d *sqliteDialect) tableInfo(ctx context.Context, db Querier, table, schema string) ([]sqliteColumn, error) {
	pragma := "table_info"
	if d.xinfo {
		pragma = "table_xinfo"
	}
	prefix := ""
	if schema != "" && schema != "main" {
		prefix = d.Escape(schema) + "."
	}
	query := fmt.Sprintf("PRAGMA %s%s(%s)", prefix, pragma, d.Escape(table))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []sqliteColumn
	for rows.Next() {
		var c sqliteColumn
		var colType sql.NullString
		var notNull int
		var dflt sql.NullString
		var hidden int

		dest := []any{&c.cid, &c.name, &colType, &notNull, &dflt, &c.pk}
		if d.xinfo {
			dest = append(dest, &hidden)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		// hidden = 1 marks virtual table internals; generated columns are 2 and 3
		if hidden == 1 {
			continue
		}
		c.typ = colType.String
		c.notNull = notNull != 0
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (d *sqliteDialect) Describe(ctx context.Context, db Querier, table, schema string) (map[string]adapter.ColumnInfo, error) {
	cols, err := d.tableInfo(ctx, db, table, schema)
	if err != nil {
		return nil, err
	}
	out := make(map[string]adapter.ColumnInfo, len(cols))
	for _, c := range cols {
		out[c.name] = adapter.ColumnInfo{
			Schema:   schema,
			Table:    table,
			Name:     c.name,
			Type:     strings.ToUpper(c.typ),
			Size:     sizeOf(c.typ),
			Nullable: !c.notNull,
			Position: c.cid,
		}
	}
	return out, nil
}

func (d *sqliteDialect) PrimaryKey(ctx context.Context, db Querier, table string) (string, error) {
	cols, err := d.tableInfo(ctx, db, table, "")
	if err != nil {
		return "", err
	}
	for _, c := range cols {
		if c.pk == 1 {
			return c.name, nil
		}
	}
	return "", nil
}

// ForeignKeys reads the keys declared on every table and keeps those that
// start or end at table.
func (d *sqliteDialect) ForeignKeys(ctx context.Context, db Querier, table string) ([]adapter.ForeignKey, error) {
	query := `SELECT m.name, p."table", p."from", p."to" FROM sqlite_master m JOIN pragma_foreign_key_list(m.name) p WHERE m.type = 'table' AND (m.name = ? OR p."table" = ?) ORDER BY m.name, p.id, p.seq`

	rows, err := db.QueryContext(ctx, query, table, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fks []adapter.ForeignKey
	var implicit []int
	for rows.Next() {
		var child, parent, from string
		var to sql.NullString
		if err := rows.Scan(&child, &parent, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if !to.Valid || to.String == "" {
			implicit = append(implicit, len(fks))
		}
		fks = append(fks, adapter.ForeignKey{
			Parent: adapter.ColumnRef{Table: parent, Column: to.String},
			Child:  adapter.ColumnRef{Table: child, Column: from},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	// REFERENCES parent without a column list points at the parent's key
	for _, i := range implicit {
		pk, err := d.PrimaryKey(ctx, db, fks[i].Parent.Table)
		if err != nil {
			return nil, err
		}
		if pk == "" {
			pk = adapter.DefaultPrimaryKey
		}
		fks[i].Parent.Column = pk
	}
	return fks, nil
}
