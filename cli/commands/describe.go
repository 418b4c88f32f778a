package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/tablemap/cli/internal/ui"
	"github.com/satishbabariya/tablemap/orm"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand() *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Show the columns, primary key and relations of a table",
		Example: `  tablemap describe album
  tablemap describe album --markdown`,
		Args: cobra.ExactArgs(1),
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

			if markdown {
				doc, err := describeMarkdown(ctx, t)
				if err != nil {
					return err
				}
				return ui.PrintMarkdown(doc)
			}

			rows, err := columnRows(ctx, t)
			if err != nil {
				return err
			}
			cols := []string{"column", "type", "size", "nullable", "key"}
			return ui.RenderRows(cmd.OutOrStdout(), cols, rows, settingsFrom(cmd).format)
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render a markdown summary including relations")
	return cmd
}

func columnRows(ctx context.Context, t *orm.Table) ([]map[string]any, error) {
	names, err := t.Columns(ctx)
	if err != nil {
		return nil, err
	}
	pk, err := t.PrimaryKey(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(names))
	for _, name := range names {
		info, err := t.Column(ctx, name)
		if err != nil {
			return nil, err
		}
		key := ""
		if name == pk {
			key = "PK"
		}
		var size any = ""
		if info.Size > 0 {
			size = info.Size
		}
		rows = append(rows, map[string]any{
			"column":   name,
			"type":     info.Type,
			"size":     size,
			"nullable": info.Nullable,
			"key":      key,
		})
	}
	return rows, nil
}

func describeMarkdown(ctx context.Context, t *orm.Table) (string, error) {
	rows, err := columnRows(ctx, t)
	if err != nil {
		return "", err
	}
	rels, err := t.Relations(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Name())
	b.WriteString("| Column | Type | Size | Nullable | Key |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %v | %s |\n",
			r["column"], r["type"], ui.FormatValue(r["size"]), r["nullable"], r["key"])
	}

	if len(rels) > 0 {
		b.WriteString("\n## Relations\n\n")
		for _, rel := range rels {
			fmt.Fprintf(&b, "- `%s`\n", rel)
		}
	}
	return b.String(), nil
}
