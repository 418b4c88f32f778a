package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/internal/filterexpr"
	"github.com/satishbabariya/tablemap/orm"
)

func printResource(cmd *cobra.Command, r *orm.Resource) error {
	return ui.RenderRows(cmd.OutOrStdout(), r.Fields(), []map[string]any{r.Map()}, settingsFrom(cmd).format)
}

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "get <table> <key>",
		Short:   "Show one row by primary key",
		Example: "  tablemap get artist 1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			t, err := lookupTable(db, args[0])
			if err != nil {
				return err
			}
			r, err := t.Get(cmd.Context(), parseKey(args[1]))
			if err != nil {
				return err
			}
			return printResource(cmd, r)
		},
	}
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "create <table> <column=value>...",
		Short:   "Insert a row",
		Example: `  tablemap create artist name="Tinariwen" country=ML`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := filterexpr.Fields(args[1:])
			if err != nil {
				return err
			}

			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			t, err := lookupTable(db, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			r, err := t.Create(ctx, fields)
			if err != nil {
				return err
			}
			if err := r.Reload(ctx); err != nil {
				return err
			}
			pk, err := r.Pk(ctx)
			if err != nil {
				return err
			}
			ui.PrintSuccess("Created %s %v", t.Name(), pk)
			return printResource(cmd, r)
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "update <table> [key] <column=value>...",
		Short: "Change one row by primary key, or every row matching --where",
		Example: `  tablemap update artist 3 country=CV
  tablemap update album --where "artist_id = 1" year=1970`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			t, err := lookupTable(db, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if len(where) > 0 {
				fields, err := filterexpr.Fields(args[1:])
				if err != nil {
					return err
				}
				q, err := filterexpr.Apply(orm.Update(t).UpdateAll(fields), where...)
				if err != nil {
					return err
				}
				if _, err := q.Execute(ctx); err != nil {
					return err
				}
				ui.PrintSuccess("Updated %d rows in %s", q.RowsAffected(), t.Name())
				return nil
			}

			if len(args) < 3 {
				return fmt.Errorf("expected a key and at least one column=value")
			}
			fields, err := filterexpr.Fields(args[2:])
			if err != nil {
				return err
			}
			r, err := t.Get(ctx, parseKey(args[1]))
			if err != nil {
				return err
			}
			for _, col := range fields.Keys() {
				if err := r.Set(ctx, col, fields[col]); err != nil {
					return err
				}
			}
			saved, err := r.Save(ctx)
			if err != nil {
				return err
			}
			if !saved {
				ui.PrintInfo("Nothing to save")
			}
			return printResource(cmd, r)
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Update every row matching this filter instead of one key")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var (
		where []string
		force bool
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "delete <table> [key]",
		Short: "Delete one row by primary key, or the rows matching --where",
		Long: `Delete one row by primary key, or the rows matching --where.

Deleting without a key or filter removes every row and needs --force. A key
that matches more than one row is refused unless --force is given.`,
		Example: `  tablemap delete artist 3
  tablemap delete album --where "year < 1970" --yes
  tablemap delete album --force --yes`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			t, err := lookupTable(db, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if len(args) == 2 {
				r, err := rowForDelete(ctx, t, parseKey(args[1]), force)
				if err != nil {
					return err
				}
				if err := confirm(yes, fmt.Sprintf("Delete %s?", r)); err != nil {
					return err
				}
				if err := r.Delete(ctx, force); err != nil {
					return err
				}
				ui.PrintSuccess("Deleted %s %s", t.Name(), args[1])
				return nil
			}

			q, err := filterexpr.Apply(orm.Delete(t), where...)
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("Delete every row of %s?", t.Name())
			if q.HasConditions() {
				prompt = fmt.Sprintf("Delete the rows of %s matching %v?", t.Name(), where)
			} else if !force {
				return q.Delete(ctx, false)
			}
			if err := confirm(yes, prompt); err != nil {
				return err
			}
			if err := q.Delete(ctx, force); err != nil {
				return err
			}
			ui.PrintSuccess("Deleted %d rows from %s", q.RowsAffected(), t.Name())
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Delete the rows matching this filter")
	cmd.Flags().BoolVar(&force, "force", false, "Allow deleting every row, or a key matching several rows")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// rowForDelete loads the row addressed by key. With force a key shared by
// several rows is allowed and the first of them stands in for all.
func rowForDelete(ctx context.Context, t *orm.Table, key any, force bool) (*orm.Resource, error) {
	if !force {
		return t.Get(ctx, key)
	}
	pk, err := t.PrimaryKey(ctx)
	if err != nil {
		return nil, err
	}
	return t.Filter(pk, key).First(ctx)
}

func confirm(yes bool, message string) error {
	if yes {
		return nil
	}
	ok, err := ui.Confirm(message, false)
	if err != nil {
		return err
	}
	if !ok {
		return ui.ErrAborted
	}
	return nil
}
