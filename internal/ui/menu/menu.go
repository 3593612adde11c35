// Package menu holds the selection state shared by the auth and crypto menus.
package menu

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
)

// Menu is a fixed list of options with a wrapping selection. The selected index
// always lies in [0, Len()-1].
type Menu struct {
	options  []string
	selected int
}

// New creates a menu with the first option selected. It panics on an empty list.
func New(options ...string) *Menu {
	if len(options) == 0 {
		panic("menu: no options")
	}
	return &Menu{options: append([]string(nil), options...)}
}

// Up moves the selection up, wrapping from the first option to the last.
func (m *Menu) Up() {
	if m.selected > 0 {
		m.selected--
	} else {
		m.selected = len(m.options) - 1
	}
}

// Down moves the selection down, wrapping from the last option to the first.
func (m *Menu) Down() {
	if m.selected < len(m.options)-1 {
		m.selected++
	} else {
		m.selected = 0
	}
}

// Selected returns the selected index.
func (m *Menu) Selected() int {
	return m.selected
}

// Label returns the selected option.
func (m *Menu) Label() string {
	return m.options[m.selected]
}

// Len returns the number of options.
func (m *Menu) Len() int {
	return len(m.options)
}

// Reset selects the first option.
func (m *Menu) Reset() {
	m.selected = 0
}

// View renders the options with the selection highlighted.
func (m *Menu) View() string {
	items := make([]string, len(m.options))
	for i, opt := range m.options {
		if i == m.selected {
			items[i] = style.Selected.Render("> " + opt)
		} else {
			items[i] = style.Item.Render("  " + opt)
		}
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.DefaultPalette().Primary).
		Padding(0, 1).
		Render(strings.Join(items, "\n"))
}
