package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/internal/filterexpr"
	"github.com/satishbabariya/tablemap/orm"
)

type queryOptions struct {
	where   []string
	columns []string
	order   string
	desc    bool
	limit   int
	offset  int
	out     string
	dryRun  bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <table>",
		Short: "Select rows from a table",
		Long: `Select rows from a table.

Filters are comparisons joined by "and"; every --where flag adds more. A later
comparison on the same column replaces an earlier one.`,
		Example: `  tablemap query album --where "year >= 1966 and artist_id = 1"
  tablemap query album --order year --desc --limit 10 --offset 20
  tablemap query artist --columns id,name --out artists.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.where, "where", "w", nil, `Filter expression, e.g. "year >= 1966"`)
	cmd.Flags().StringSliceVarP(&opts.columns, "columns", "c", nil, "Columns to select (default: all)")
	cmd.Flags().StringVarP(&opts.order, "order", "o", "", "Column to order by")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "Order descending")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of rows")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Rows to skip; requires --limit")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write the rows as JSON to this file")
	cmd.Flags().BoolVar(&opts.dryRun, "sql", false, "Print the statement instead of running it")
	return cmd
}

// buildSelect turns the options into a select on t.
func buildSelect(t *orm.Table, opts queryOptions) (*orm.Query, error) {
	q, err := filterexpr.Apply(t.All(), opts.where...)
	if err != nil {
		return nil, err
	}
	if len(opts.columns) > 0 {
		q = q.Columns(opts.columns...)
	}
	if opts.order != "" {
		dir := "ASC"
		if opts.desc {
			dir = "DESC"
		}
		q = q.OrderBy(opts.order, dir)
	}
	switch {
	case opts.offset > 0:
		q = q.LimitRange(opts.offset, opts.offset+opts.limit)
	case opts.limit > 0:
		q = q.Limit(opts.limit)
	}
	return q, q.Err()
}

func runQuery(cmd *cobra.Command, table string, opts queryOptions) error {
	db, err := openDatabase(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	t, err := lookupTable(db, table)
	if err != nil {
		return err
	}
	q, err := buildSelect(t, opts)
	if err != nil {
		return err
	}

	if opts.dryRun {
		stmt, err := q.Statement()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), stmt)
		return err
	}

	ctx := cmd.Context()
	rows, err := q.All(ctx)
	if err != nil {
		return err
	}

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Map())
	}

	if opts.out != "" {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode rows: %w", err)
		}
		if err := atomic.WriteFile(opts.out, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.out, err)
		}
		ui.PrintSuccess("Wrote %d rows to %s", len(out), opts.out)
		return nil
	}

	cols := opts.columns
	if len(cols) == 0 {
		if cols, err = t.Columns(ctx); err != nil {
			return err
		}
	}
	return ui.RenderRows(cmd.OutOrStdout(), cols, out, settingsFrom(cmd).format)
}

// parseKey reads a primary key argument: integers become int64.
func parseKey(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
