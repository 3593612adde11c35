package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/identity"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/shopspring/decimal"
)

// Tea message types for UI communication

// RouterMsg represents navigation between screens
type RouterMsg struct {
	To   Route
	Mode identity.Mode  // RouteCredentials
	Kind portfolio.Kind // RouteHoldingForm
}

// AuthenticatedMsg is delivered when the broker announces a signed-in identity.
type AuthenticatedMsg struct {
	Identity string
}

// ShowAuthMenuMsg is delivered after an authentication failure cooled down.
type ShowAuthMenuMsg struct{}

// PriceUpdatedMsg carries a quote or a lookup failure.
type PriceUpdatedMsg struct {
	Symbol  string
	Quote   market.Quote
	Err     error
	Message string
}

// PriceProgressMsg reports one pacing step of an in-flight price lookup.
type PriceProgressMsg struct {
	Symbol string
	Step   int
	Total  int
}

// HistoryMsg appends a line to the session history above the current screen.
type HistoryMsg struct {
	Line string
}

// AuthResultMsg is the outcome of a credentials submission.
type AuthResultMsg struct {
	Mode identity.Mode
	User identity.User
	Err  error
}

// HoldingResultMsg is the outcome of an add or sell submission.
type HoldingResultMsg struct {
	Kind    portfolio.Kind
	Holding portfolio.Holding
	Price   *decimal.Decimal
	Err     error
}

// RedrawMsg ends a screen's busy period.
type RedrawMsg struct{}

// DismissMsg ends an inline input error.
type DismissMsg struct{}

// Route represents different screens in the application
type Route int

const (
	RouteAuthMenu Route = iota
	RouteCredentials
	RouteCryptoMenu
	RouteHoldingForm
	RoutePortfolio
	RouteHistory
	RouteBack
)

// String returns the string representation of the route
func (r Route) String() string {
	switch r {
	case RouteAuthMenu:
		return "auth_menu"
	case RouteCredentials:
		return "credentials"
	case RouteCryptoMenu:
		return "crypto_menu"
	case RouteHoldingForm:
		return "holding_form"
	case RoutePortfolio:
		return "portfolio"
	case RouteHistory:
		return "history"
	case RouteBack:
		return "back"
	default:
		return "unknown"
	}
}

// Navigate returns a command that emits a RouterMsg.
func Navigate(msg RouterMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}
