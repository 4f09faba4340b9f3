// Package render draws sheets as bordered tables for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/isthisthat/Pysheet/pkg/pysheet"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders the sheet with display header names and the rows in sheet
// order. An empty sheet renders as a placeholder line.
func Table(s *pysheet.Sheet) string {
	if s.IsEmpty() {
		return "* empty *\n"
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(s.HeaderNames()...)
	for _, id := range s.RowIDs() {
		values, _ := s.RowValues(id)
		t.Row(values...)
	}
	return t.String() + "\n"
}

// HeaderIndex lists every column index and display name, one per line, the
// way it is consumed by column selection by index.
func HeaderIndex(s *pysheet.Sheet) string {
	var b strings.Builder
	for i, name := range s.HeaderNames() {
		fmt.Fprintf(&b, "%d %s\n", i, name)
	}
	return b.String()
}
