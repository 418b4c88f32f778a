package sqladapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/tablemap/adapter"
)

type mysqlDialect struct{}

// MySQL is the MySQL dialect on github.com/go-sql-driver/mysql.
func MySQL() Dialect { return &mysqlDialect{} }

func (d *mysqlDialect) Name() string       { return "mysql" }
func (d *mysqlDialect) DriverName() string { return "mysql" }

// NormalizeDSN requires a database name and turns on time parsing so
// DATETIME columns scan into time.Time.
func (d *mysqlDialect) NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if cfg.DBName == "" {
		return "", fmt.Errorf("dsn must name a database")
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (d *mysqlDialect) Setup(ctx context.Context, db *sql.DB, opts adapter.Options) error {
	return nil
}

func (d *mysqlDialect) Escape(identifier string) string { return quote(identifier, "`") }
func (d *mysqlDialect) Rebind(query string) string      { return noRebind(query) }

func (d *mysqlDialect) Tables(ctx context.Context, db Querier) (map[string]adapter.TableInfo, error) {
	query := `
		SELECT table_name, table_type, table_comment
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		ORDER BY table_name
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make(map[string]adapter.TableInfo)
	for rows.Next() {
		var info adapter.TableInfo
		if err := rows.Scan(&info.Name, &info.Kind, &info.Remarks); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		if info.Kind == "BASE TABLE" {
			info.Kind = "TABLE"
		}
		tables[info.Name] = info
	}
	return tables, rows.Err()
}

func (d *mysqlDialect) Describe(ctx context.Context, db Querier, table, schema string) (map[string]adapter.ColumnInfo, error) {
	query := `
		SELECT
			column_name,
			column_type,
			character_maximum_length,
			is_nullable,
			column_comment,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_name = ?
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
		if err := rows.Scan(&col.Name, &col.Type, &size, &nullable, &col.Remarks, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Schema = schema
		col.Table = table
		col.Size = size.Int64
		col.Nullable = nullable == "YES"
		out[col.Name] = col
	}
	return out, rows.Err()
}

func (d *mysqlDialect) PrimaryKey(ctx context.Context, db Querier, table string) (string, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		  AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
		LIMIT 1
	`

	var pk string
	err := db.QueryRowContext(ctx, query, table).Scan(&pk)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query primary key: %w", err)
	}
	return pk, nil
}

func (d *mysqlDialect) ForeignKeys(ctx context.Context, db Querier, table string) ([]adapter.ForeignKey, error) {
	query := `
		SELECT table_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE()
		  AND referenced_table_name IS NOT NULL
		  AND (table_name = ? OR referenced_table_name = ?)
		ORDER BY table_name, constraint_name, ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, table, table)
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
