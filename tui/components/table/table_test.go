package table

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	out := Render([]string{"CONTEXT", "SCORE"}, [][]string{
		{"editor", "0.5500"},
		{"shell", "0.4500"},
	})
	assert.Contains(t, out, "CONTEXT")
	assert.Contains(t, out, "editor")
	assert.Contains(t, out, "0.4500")
	assert.Less(t, strings.Index(out, "editor"), strings.Index(out, "shell"))
}

func TestHighlightSeesDataRows(t *testing.T) {
	var seen [][2]int
	opts := DefaultOptions()
	opts.Highlight = func(row, col int) (lipgloss.Style, bool) {
		seen = append(seen, [2]int{row, col})
		return lipgloss.Style{}, false
	}
	NewStyledTableWithOptions(opts).Headers("A", "B").Rows([]string{"1", "2"}).Render()

	assert.Contains(t, seen, [2]int{0, 0})
	assert.Contains(t, seen, [2]int{0, 1})
	for _, rc := range seen {
		assert.GreaterOrEqual(t, rc[0], 0, "header row must not reach Highlight")
	}
}
