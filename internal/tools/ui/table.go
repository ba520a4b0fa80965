package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

// Table renders rows as aligned columns. Short rows are padded.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(headers) && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = headerStyle.Width(widths[i]).Render(h)
	}
	b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	b.WriteString("\n")
	for _, row := range rows {
		for i := range headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cells[i] = lipgloss.NewStyle().Width(widths[i]).Render(v)
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
	}
	return b.String()
}
