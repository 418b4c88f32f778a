package sqladapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"

	"github.com/satishbabariya/tablemap/adapter"
)

const defaultPostgresSchema = "public"

type postgresDialect struct {
	name   string
	driver string
	schema string
}

// Postgres is the PostgreSQL dialect on github.com/lib/pq.
func Postgres() Dialect { return &postgresDialect{name: "postgres", driver: "postgres", schema: defaultPostgresSchema} }

// PGX is the PostgreSQL dialect on github.com/jackc/pgx/v5/stdlib.
func PGX() Dialect { return &postgresDialect{name: "pgx", driver: "pgx", schema: defaultPostgresSchema} }

func (d *postgresDialect) Name() string       { return d.name }
func (d *postgresDialect) DriverName() string { return d.driver }

func (d *postgresDialect) NormalizeDSN(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("empty connection string")
	}
	return dsn, nil
}

// Setup selects the schema to introspect, "public" unless the "schema"
// option says otherwise.
func (d *postgresDialect) Setup(ctx context.Context, db *sql.DB, opts adapter.Options) error {
	d.schema = opts.Param("schema", defaultPostgresSchema)
	return nil
}

func (d *postgresDialect) Escape(identifier string) string { return quote(identifier, `"`) }
func (d *postgresDialect) Rebind(query string) string      { return adapter.Rebind(query) }

// RenderLimit uses LIMIT/OFFSET; PostgreSQL rejects "LIMIT offset, count".
func (d *postgresDialect) RenderLimit(count, offset int) string {
	if offset > 0 {
		return fmt.Sprintf("LIMIT %d OFFSET %d", count, offset)
	}
	return fmt.Sprintf("LIMIT %d", count)
}

// Returning reads the generated key back from the INSERT itself.
func (d *postgresDialect) Returning(escapedColumn string) string {
	return "RETURNING " + escapedColumn
}

// tableSchema reports only schemas other than the default one.
func (d *postgresDialect) tableSchema(schema string) string {
	if schema == defaultPostgresSchema {
		return ""
	}
	return schema
}

func (d *postgresDialect) Tables(ctx context.Context, db Querier) (map[string]adapter.TableInfo, error) {
	query := `
		SELECT
			table_catalog,
			table_schema,
			table_name,
			table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name
	`

	rows, err := db.QueryContext(ctx, query, d.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make(map[string]adapter.TableInfo)
	for rows.Next() {
		var info adapter.TableInfo
		if err := rows.Scan(&info.Catalog, &info.Schema, &info.Name, &info.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		info.Schema = d.tableSchema(info.Schema)
		if info.Kind == "BASE TABLE" {
			info.Kind = "TABLE"
		}
		tables[info.Name] = info
	}
	return tables, rows.Err()
}

func (d *postgresDialect) Describe(ctx context.Context, db Querier, table, schema string) (map[string]adapter.ColumnInfo, error) {
	if schema == "" {
		schema = d.schema
	}
	query := `
		SELECT
			table_catalog,
			column_name,
			data_type,
			character_maximum_length,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]adapter.ColumnInfo)
	for rows.Next() {
		var col adapter.ColumnInfo
		var size sql.NullInt64
		var nullable string
		if err := rows.Scan(&col.Catalog, &col.Name, &col.Type, &size, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Schema = d.tableSchema(schema)
		col.Table = table
		col.Size = size.Int64
		col.Nullable = nullable == "YES"
		out[col.Name] = col
	}
	return out, rows.Err()
}

func (d *postgresDialect) PrimaryKey(ctx context.Context, db Querier, table string) (string, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
		LIMIT 1
	`

	var pk string
	err := db.QueryRowContext(ctx, query, d.schema, table).Scan(&pk)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query primary key: %w", err)
	}
	return pk, nil
}

func (d *postgresDialect) ForeignKeys(ctx context.Context, db Querier, table string) ([]adapter.ForeignKey, error) {
	query := `
		SELECT
			kcu.table_name,
			kcu.column_name,
			ccu.table_name,
			ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		  AND (kcu.table_name = $2 OR ccu.table_name = $2)
		ORDER BY kcu.table_name, tc.constraint_name, kcu.ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, d.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fks []adapter.ForeignKey
	for rows.Next() {
		var fk adapter.ForeignKey
		if err := rows.Scan(&fk.Child.Table, &fk.Child.Column, &fk.Parent.Table, &fk.Parent.Column); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

var (
	_ adapter.LimitRenderer = (*postgresDialect)(nil)
	_ Returner              = (*postgresDialect)(nil)
)
