package screen

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/identity"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/component"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/menu"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/router"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
)

var authModes = []identity.Mode{identity.SignIn, identity.SignUp}

// AuthMenuScreen lets the user choose between signing in and signing up.
type AuthMenuScreen struct {
	width  int
	height int
	keyMap ui.KeyMap

	menu    *menu.Menu
	helpBar *component.HelpBar
}

// NewAuthMenuScreen creates the auth menu with Sign In selected.
func NewAuthMenuScreen() *AuthMenuScreen {
	keyMap := ui.DefaultKeyMap()

	labels := make([]string, len(authModes))
	for i, m := range authModes {
		labels[i] = m.String()
	}

	return &AuthMenuScreen{
		keyMap:  keyMap,
		menu:    menu.New(labels...),
		helpBar: component.NewHelpBar(keyMap.ContextualHelp(ui.RouteAuthMenu)...),
	}
}

// Init initializes the auth menu screen
func (s *AuthMenuScreen) Init() tea.Cmd {
	return nil
}

// Update handles screen updates
func (s *AuthMenuScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch {
	case key.Matches(keyMsg, s.keyMap.Up):
		s.menu.Up()
	case key.Matches(keyMsg, s.keyMap.Down):
		s.menu.Down()
	case key.Matches(keyMsg, s.keyMap.Enter):
		return s, ui.Navigate(ui.RouterMsg{
			To:   ui.RouteCredentials,
			Mode: authModes[s.menu.Selected()],
		})
	}
	return s, nil
}

// Selected returns the highlighted option index.
func (s *AuthMenuScreen) Selected() int {
	return s.menu.Selected()
}

// View renders the auth menu screen
func (s *AuthMenuScreen) View() string {
	var content strings.Builder
	content.WriteString(style.Title.Render("Welcome! Please choose an option:"))
	content.WriteString("\n")
	content.WriteString(s.menu.View())
	content.WriteString("\n")
	content.WriteString(s.helpBar.View())
	return content.String()
}

// SetSize sets the screen dimensions
func (s *AuthMenuScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
}
