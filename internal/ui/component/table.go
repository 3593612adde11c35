package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow represents a row of data
type TableRow struct {
	Data  []string
	Style lipgloss.Style
}

// Table is a read-only data table.
type Table struct {
	columns []TableColumn
	rows    []TableRow
	empty   string

	// Styling
	headerStyle lipgloss.Style
	rowStyle    lipgloss.Style
	borderStyle lipgloss.Style
}

// NewTable creates a new table component
func NewTable() *Table {
	palette := style.DefaultPalette()

	return &Table{
		empty: "No data",

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),

		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),
	}
}

// AddColumn adds a column to the table
func (t *Table) AddColumn(header string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, TableColumn{
		Header: header,
		Width:  width,
		Align:  align,
	})
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: t.rowStyle})
	return t
}

// AddStyledRow adds a row rendered with a custom foreground colour.
func (t *Table) AddStyledRow(color lipgloss.Color, data ...string) *Table {
	t.rows = append(t.rows, TableRow{Data: data, Style: t.rowStyle.Foreground(color)})
	return t
}

// SetEmptyText sets what View shows when there are no rows.
func (t *Table) SetEmptyText(text string) *Table {
	t.empty = text
	return t
}

// GetRowCount returns the number of rows
func (t *Table) GetRowCount() int {
	return len(t.rows)
}

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}
	if len(t.rows) == 0 {
		return style.Muted.Render(t.empty)
	}

	var content strings.Builder

	var headerRow strings.Builder
	for i, col := range t.columns {
		headerRow.WriteString(t.renderCell(col.Header, col.Width, col.Align, t.headerStyle))
		if i < len(t.columns)-1 {
			headerRow.WriteString("│")
		}
	}
	content.WriteString(headerRow.String())
	content.WriteString("\n")

	var separator strings.Builder
	for i, col := range t.columns {
		separator.WriteString(strings.Repeat("─", col.Width))
		if i < len(t.columns)-1 {
			separator.WriteString("┼")
		}
	}
	content.WriteString(separator.String())
	content.WriteString("\n")

	for rowIndex, row := range t.rows {
		var rowStr strings.Builder
		for i, col := range t.columns {
			cellData := ""
			if i < len(row.Data) {
				cellData = row.Data[i]
			}
			rowStr.WriteString(t.renderCell(cellData, col.Width, col.Align, row.Style))
			if i < len(t.columns)-1 {
				rowStr.WriteString("│")
			}
		}
		content.WriteString(rowStr.String())
		if rowIndex < len(t.rows)-1 {
			content.WriteString("\n")
		}
	}

	return t.borderStyle.Render(content.String())
}

// renderCell renders a single table cell
func (t *Table) renderCell(content string, width int, align lipgloss.Position, style lipgloss.Style) string {
	if len(content) > width {
		if width > 3 {
			content = content[:width-3] + "..."
		} else {
			content = content[:width]
		}
	}
	return style.Width(width).Align(align).Render(content)
}
