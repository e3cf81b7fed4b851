// Package table renders the bordered tables used by nudge's CLI output.
package table

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/nudge/tui/theme"
)

// Options controls how a table is styled.
type Options struct {
	Theme *theme.Theme
	// Highlight, when set, picks a style for a data cell. Row and column are
	// zero-based over the data rows. Returning false keeps the default style.
	Highlight func(row, col int) (lipgloss.Style, bool)
}

// DefaultOptions returns the default table options.
func DefaultOptions() Options {
	return Options{
		Theme: theme.DefaultTheme,
	}
}

// NewStyledTable creates a table with nudge's default styling.
func NewStyledTable() *ltable.Table {
	return NewStyledTableWithOptions(DefaultOptions())
}

// NewStyledTableWithOptions creates a table with custom options.
func NewStyledTableWithOptions(opts Options) *ltable.Table {
	if opts.Theme == nil {
		opts.Theme = theme.DefaultTheme
	}
	t := opts.Theme

	return ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(t.Colors.Border)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return t.TableHeader.Padding(0, 1)
			}
			if opts.Highlight != nil {
				if style, ok := opts.Highlight(row, col); ok {
					return style.Padding(0, 1)
				}
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// Render builds a default styled table and renders it.
func Render(headers []string, rows [][]string) string {
	return NewStyledTable().Headers(headers...).Rows(rows...).Render()
}
