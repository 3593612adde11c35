package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines keyboard shortcuts for the application. Menus react to Up, Down
// and Enter only; every other key belongs to whichever prompt is focused.
type KeyMap struct {
	// Global
	Quit key.Binding

	// Menus
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding

	// Prompts
	Back     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding

	// Read-only views
	Dismiss key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),

		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),

		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev field"),
		),

		Dismiss: key.NewBinding(
			key.WithKeys("enter", "esc", " "),
			key.WithHelp("any key", "back to menu"),
		),
	}
}

// ContextualHelp returns help text based on the current route
func (k KeyMap) ContextualHelp(route Route) []key.Binding {
	switch route {
	case RouteAuthMenu, RouteCryptoMenu:
		return []key.Binding{k.Up, k.Down, k.Enter, k.Quit}
	case RouteCredentials, RouteHoldingForm:
		return []key.Binding{k.Tab, k.Enter, k.Back, k.Quit}
	case RoutePortfolio, RouteHistory:
		return []key.Binding{k.Dismiss, k.Quit}
	default:
		return []key.Binding{k.Quit}
	}
}
