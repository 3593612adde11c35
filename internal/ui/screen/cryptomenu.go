package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/events"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/component"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/menu"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/router"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
)

// CryptoAction is what a crypto menu option does.
type CryptoAction int

const (
	ActionSelectSymbol CryptoAction = iota
	ActionAddHolding
	ActionSellHolding
	ActionViewPortfolio
	ActionViewHistory
)

// CryptoMenuItem is one crypto menu option.
type CryptoMenuItem struct {
	Label  string
	Action CryptoAction
	Symbol string // ActionSelectSymbol only
}

// CryptoMenuItems returns the options: one per supported asset, then the
// portfolio actions.
func CryptoMenuItems() []CryptoMenuItem {
	var items []CryptoMenuItem
	for _, a := range market.Supported() {
		items = append(items, CryptoMenuItem{
			Label:  fmt.Sprintf("%s (%s)", a.Name, a.Ticker),
			Action: ActionSelectSymbol,
			Symbol: a.Symbol(),
		})
	}
	return append(items,
		CryptoMenuItem{Label: "Add to portfolio", Action: ActionAddHolding},
		CryptoMenuItem{Label: "Sell from portfolio", Action: ActionSellHolding},
		CryptoMenuItem{Label: "View portfolio", Action: ActionViewPortfolio},
		CryptoMenuItem{Label: "View transaction history", Action: ActionViewHistory},
	)
}

// CryptoMenuScreen is the main screen after authentication.
type CryptoMenuScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	services *ui.Services

	items   []CryptoMenuItem
	menu    *menu.Menu
	spinner spinner.Model
	helpBar *component.HelpBar

	// Set between a symbol selection and the redraw that follows it.
	busy     bool
	pending  string
	progress string
}

// NewCryptoMenuScreen creates the crypto menu with the first option selected.
func NewCryptoMenuScreen(services *ui.Services) *CryptoMenuScreen {
	keyMap := ui.DefaultKeyMap()
	items := CryptoMenuItems()

	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.Label
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = style.Muted

	return &CryptoMenuScreen{
		keyMap:   keyMap,
		services: services,
		items:    items,
		menu:     menu.New(labels...),
		spinner:  sp,
		helpBar:  component.NewHelpBar(keyMap.ContextualHelp(ui.RouteCryptoMenu)...),
	}
}

// Init initializes the crypto menu screen
func (s *CryptoMenuScreen) Init() tea.Cmd {
	return nil
}

// Update handles screen updates
func (s *CryptoMenuScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.RedrawMsg:
		s.busy = false
		s.pending = ""
		s.progress = ""

	case ui.PriceProgressMsg:
		if s.pending != "" && strings.EqualFold(msg.Symbol, s.pending) {
			s.progress = fmt.Sprintf("Fetching data for %s... (%d/%d)", msg.Symbol, msg.Step, msg.Total)
		}

	case ui.PriceUpdatedMsg:
		if s.pending != "" && strings.EqualFold(msg.Symbol, s.pending) {
			s.progress = ""
		}

	case spinner.TickMsg:
		if !s.busy {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		switch {
		case key.Matches(msg, s.keyMap.Up):
			s.menu.Up()
		case key.Matches(msg, s.keyMap.Down):
			s.menu.Down()
		case key.Matches(msg, s.keyMap.Enter):
			return s, s.dispatch(s.items[s.menu.Selected()])
		}
	}
	return s, nil
}

func (s *CryptoMenuScreen) dispatch(item CryptoMenuItem) tea.Cmd {
	switch item.Action {
	case ActionSelectSymbol:
		return s.selectSymbol(item.Symbol)
	case ActionAddHolding:
		return ui.Navigate(ui.RouterMsg{To: ui.RouteHoldingForm, Kind: portfolio.Buy})
	case ActionSellHolding:
		return ui.Navigate(ui.RouterMsg{To: ui.RouteHoldingForm, Kind: portfolio.Sell})
	case ActionViewPortfolio:
		return ui.Navigate(ui.RouterMsg{To: ui.RoutePortfolio})
	case ActionViewHistory:
		return ui.Navigate(ui.RouterMsg{To: ui.RouteHistory})
	}
	return nil
}

// selectSymbol logs the choice, publishes cryptoSelected and holds the menu for
// the redraw delay.
func (s *CryptoMenuScreen) selectSymbol(symbol string) tea.Cmd {
	s.busy = true
	s.pending = symbol
	s.progress = fmt.Sprintf("Fetching data for %s...", symbol)

	bus, ctx := s.services.Bus, s.services.Context()
	publish := func() tea.Msg {
		bus.Publish(ctx, events.NewCryptoSelected(symbol))
		return nil
	}

	return tea.Batch(
		s.spinner.Tick,
		tea.Sequence(
			func() tea.Msg { return ui.HistoryMsg{Line: "You selected: " + symbol} },
			publish,
		),
		tea.Tick(s.services.Timing.RedrawDelay, func(time.Time) tea.Msg { return ui.RedrawMsg{} }),
	)
}

// Selected returns the highlighted option index.
func (s *CryptoMenuScreen) Selected() int {
	return s.menu.Selected()
}

// Busy reports whether the menu is waiting for its redraw.
func (s *CryptoMenuScreen) Busy() bool {
	return s.busy
}

// Progress returns the current price lookup status line.
func (s *CryptoMenuScreen) Progress() string {
	return s.progress
}

// View renders the crypto menu screen
func (s *CryptoMenuScreen) View() string {
	var content strings.Builder
	content.WriteString(style.Title.Render("Select a cryptocurrency or an action:"))
	content.WriteString("\n")
	content.WriteString(s.menu.View())
	content.WriteString("\n")

	if s.busy {
		content.WriteString(s.spinner.View() + " " + style.Muted.Render(s.progress))
		return content.String()
	}
	content.WriteString(s.helpBar.View())
	return content.String()
}

// SetSize sets the screen dimensions
func (s *CryptoMenuScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.helpBar.SetWidth(width)
}
