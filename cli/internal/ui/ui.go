package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
)

var (
	// Stdout and Stderr receive everything the package prints.
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr

	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	InfoColor      = lipgloss.Color("#00D9FF")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// ErrAborted is returned when the user declines a confirmation.
var ErrAborted = errors.New("aborted")

func terminalWidth() int {
	if w := pterm.GetTerminalWidth(); w > 0 {
		return w
	}
	return 80
}

// PrintHeader prints a boxed title
func PrintHeader(title string, subtitle string) {
	header := lipgloss.NewStyle().
		Width(terminalWidth()).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render(title),
				SecondaryStyle.Render(subtitle),
			),
		)

	fmt.Fprintln(Stdout, header)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...any) {
	fmt.Fprintln(Stdout, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message
func PrintError(format string, args ...any) {
	fmt.Fprintln(Stderr, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(Stdout, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...any) {
	fmt.Fprintln(Stdout, InfoStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// PrintSection prints a section header
func PrintSection(title string) {
	section := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(SecondaryColor).
		Render(title)

	fmt.Fprintln(Stdout, section)
}

// PrintMarkdown renders markdown content
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(terminalWidth()),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}

	fmt.Fprint(Stdout, out)
	return nil
}

// PrintSpinner starts a spinner on stderr. Stop it before printing results.
func PrintSpinner(message string) *pterm.SpinnerPrinter {
	spinner, _ := pterm.DefaultSpinner.WithWriter(Stderr).WithRemoveWhenDone(true).Start(message)
	return spinner
}

// Output formats accepted by RenderRows.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// RenderRows writes rows in the given format. Missing values print as NULL
// in every format except JSON.
func RenderRows(w io.Writer, cols []string, rows []map[string]any, format string) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []map[string]any{}
		}
		return enc.Encode(rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i, col := range cols {
			r[i] = FormatValue(row[col])
		}
		t.AppendRow(r)
	}

	switch format {
	case FormatCSV:
		t.RenderCSV()
	case FormatMarkdown, "md":
		t.RenderMarkdown()
	case FormatTable, "":
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// FormatValue renders one value for tabular output.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// Confirm asks a yes/no question. Without a terminal it answers def.
func Confirm(message string, def bool) (bool, error) {
	answer := def
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &answer); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, ErrAborted
		}
		return false, err
	}
	return answer, nil
}

// ColorPrint uses fatih/color for simple colored output
func ColorPrint(c *color.Color, format string, args ...any) {
	_, _ = c.Fprintf(Stdout, format, args...)
}

// GetColorPrinters returns color printers for common use cases
func GetColorPrinters() map[string]*color.Color {
	return map[string]*color.Color{
		"success": color.New(color.FgGreen, color.Bold),
		"error":   color.New(color.FgRed, color.Bold),
		"warning": color.New(color.FgYellow, color.Bold),
		"info":    color.New(color.FgCyan),
		"primary": color.New(color.FgCyan, color.Bold),
	}
}
