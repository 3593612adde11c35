// Package app holds the root bubbletea model: it owns the session history and
// the screen stack and turns broker events into screen transitions.
package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/router"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/screen"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
	"go.uber.org/zap"
)

// App is the root model.
type App struct {
	router   *router.Router
	services *ui.Services
	bridge   *ui.Bridge
	keyMap   ui.KeyMap
	logger   *zap.Logger

	// history only grows during a session.
	history []string
	user    string

	width  int
	height int
}

// New creates the app on the auth menu.
func New(services *ui.Services, bridge *ui.Bridge) *App {
	return &App{
		router:   router.New(screen.NewAuthMenuScreen()),
		services: services,
		bridge:   bridge,
		keyMap:   ui.DefaultKeyMap(),
		logger:   services.Logger.Named("app"),
	}
}

// Init starts listening to the bridge.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.router.Init(), a.bridge.Listen())
}

// Update handles application-level messages and forwards the rest to the
// current screen.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if ui.IsBridged(msg) {
		cmds = append(cmds, a.bridge.Listen())
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, a.keyMap.Quit) {
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case ui.AuthenticatedMsg:
		a.user = msg.Identity
		a.logger.Info("Session started", zap.String("user", a.user))
		cmds = append(cmds, a.router.Reset(screen.NewCryptoMenuScreen(a.services)))
		return a, tea.Batch(cmds...)

	case ui.ShowAuthMenuMsg:
		a.user = ""
		cmds = append(cmds, a.router.Reset(screen.NewAuthMenuScreen()))
		return a, tea.Batch(cmds...)

	case ui.AuthResultMsg:
		if msg.Err == nil {
			a.history = append(a.history, style.SuccessText.Render("Successfully "+msg.Mode.String()+"!"))
			return a, tea.Batch(cmds...)
		}

	case ui.HistoryMsg:
		a.history = append(a.history, msg.Line)
		return a, tea.Batch(cmds...)

	case ui.PriceUpdatedMsg:
		if msg.Err != nil {
			a.history = append(a.history, style.ErrorText.Render(msg.Message))
		} else {
			a.services.Quotes.Set(msg.Quote)
			a.history = append(a.history, renderQuote(msg.Quote))
		}

	case ui.RouterMsg:
		cmds = append(cmds, a.navigate(msg))
		return a, tea.Batch(cmds...)
	}

	cmds = append(cmds, a.router.Update(msg))
	return a, tea.Batch(cmds...)
}

func (a *App) navigate(msg ui.RouterMsg) tea.Cmd {
	a.logger.Debug("Navigate", zap.Stringer("to", msg.To))

	switch msg.To {
	case ui.RouteBack:
		return a.router.Pop()
	case ui.RouteAuthMenu:
		return a.router.Reset(screen.NewAuthMenuScreen())
	case ui.RouteCredentials:
		return a.router.Push(screen.NewCredentialsScreen(msg.Mode, a.services))
	case ui.RouteCryptoMenu:
		return a.router.Reset(screen.NewCryptoMenuScreen(a.services))
	case ui.RouteHoldingForm:
		return a.router.Push(screen.NewHoldingFormScreen(msg.Kind, a.user, a.services))
	case ui.RoutePortfolio:
		return a.router.Push(screen.NewPortfolioScreen(a.user, a.services))
	case ui.RouteHistory:
		return a.router.Push(screen.NewHistoryScreen(a.user, a.services))
	}
	return nil
}

// User returns the signed-in identity, empty before authentication.
func (a *App) User() string {
	return a.user
}

// History returns the session history lines.
func (a *App) History() []string {
	return append([]string(nil), a.history...)
}

// Current returns the screen on top of the stack.
func (a *App) Current() router.Screen {
	return a.router.Current()
}

// View renders the history followed by the current screen.
func (a *App) View() string {
	var content strings.Builder
	content.WriteString(style.Title.UnsetMarginBottom().Render("Cryptofolio"))
	if a.user != "" {
		content.WriteString(style.Muted.Render("  " + a.user))
	}
	content.WriteString("\n\n")

	if len(a.history) > 0 {
		content.WriteString(strings.Join(a.history, "\n"))
		content.WriteString("\n\n")
	}
	content.WriteString(a.router.View())
	return content.String()
}
