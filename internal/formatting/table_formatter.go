package formatting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/giantswarm/conductor/internal/container"
	"github.com/giantswarm/conductor/internal/services"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// FormatStatus renders one row per controller.
func (f *TableFormatter) FormatStatus(w io.Writer, statuses []container.ControllerStatus) error {
	if len(statuses) == 0 {
		f.formatEmptyMessage(w, "No services installed")
		return nil
	}

	t := f.createTable(w)
	t.AppendHeader(table.Row{f.header("NAME"), f.header("MODE"), f.header("STATE"), f.header("MISSING"), f.header("FAILED"), f.header("DEPENDENTS"), f.header("ERROR")})
	for _, row := range ToRows(statuses) {
		name := row.Name
		if len(row.Aliases) > 0 {
			name = fmt.Sprintf("%s (%s)", name, strings.Join(row.Aliases, ", "))
		}
		t.AppendRow(table.Row{name, row.Mode, f.colorState(row.State), row.Missing, row.Failed, row.RunningDependents, truncate(row.Error, 60)})
	}
	t.Render()

	if !f.options.Quiet {
		fmt.Fprintf(w, "\n%s %d\n", f.paint(text.FgHiBlue, "Total:"), len(statuses))
	}
	return nil
}

// FormatPlan renders the start order, one service per line.
func (f *TableFormatter) FormatPlan(w io.Writer, plan services.Plan) error {
	doc := ToPlanDoc(plan)
	t := f.createTable(w)
	t.AppendHeader(table.Row{f.header("#"), f.header("SERVICE")})
	for i, n := range doc.Order {
		t.AppendRow(table.Row{i + 1, n})
	}
	t.Render()

	if len(doc.Unresolved) > 0 && !f.options.Quiet {
		fmt.Fprintf(w, "\n%s %s\n", f.paint(text.FgYellow, "Not declared:"), strings.Join(doc.Unresolved, ", "))
	}
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(s string) string {
	return f.paint(text.FgHiCyan, s)
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) colorState(state string) string {
	switch state {
	case container.StateUp.String():
		return f.paint(text.FgGreen, state)
	case container.StateStartFailed.String():
		return f.paint(text.FgRed, state)
	case container.StateDown.String(), container.StateRemoved.String():
		return f.paint(text.FgYellow, state)
	default:
		return state
	}
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(w io.Writer, message string) {
	fmt.Fprintln(w, f.paint(text.FgYellow, message))
}
