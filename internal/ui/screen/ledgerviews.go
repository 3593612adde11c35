package screen

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/component"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/router"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// LedgerView is a read-only table over the user's ledger. Any key returns to the
// menu. The table is built once, when the view is opened.
type LedgerView struct {
	width  int
	height int
	title  string
	route  ui.Route

	table   *component.Table
	helpBar *component.HelpBar
}

// NewPortfolioScreen shows the user's holdings, valued with cached quotes when
// available.
func NewPortfolioScreen(user string, services *ui.Services) *LedgerView {
	t := component.NewTable().
		AddColumn("Symbol", 8, lipgloss.Left).
		AddColumn("Quantity", 18, lipgloss.Right).
		AddColumn("Price", 14, lipgloss.Right).
		AddColumn("Value", 16, lipgloss.Right).
		SetEmptyText("Your portfolio is empty.")

	for _, h := range services.Ledger.GetAllHoldings(user) {
		price, value := "-", "-"
		if services.Quotes != nil {
			if q, ok := services.Quotes.Get(h.Symbol); ok {
				price = "$" + q.Price.StringFixed(2)
				value = "$" + h.Value(q.Price).StringFixed(2)
			}
		}
		t.AddRow(h.Symbol, h.Quantity.String(), price, value)
	}

	return newLedgerView("Your portfolio", ui.RoutePortfolio, t)
}

// NewHistoryScreen shows the user's transactions, most recent first.
func NewHistoryScreen(user string, services *ui.Services) *LedgerView {
	palette := style.DefaultPalette()
	t := component.NewTable().
		AddColumn("Date (UTC)", 21, lipgloss.Left).
		AddColumn("Type", 6, lipgloss.Left).
		AddColumn("Symbol", 8, lipgloss.Left).
		AddColumn("Amount", 18, lipgloss.Right).
		AddColumn("Price", 14, lipgloss.Right).
		SetEmptyText("No transactions yet.")

	for _, tx := range services.Ledger.GetTransactionHistory(user) {
		price := "-"
		if tx.Price != nil {
			price = "$" + tx.Price.StringFixed(2)
		}
		color := palette.Buy
		if tx.Kind == portfolio.Sell {
			color = palette.Sell
		}
		t.AddStyledRow(color,
			tx.Timestamp.UTC().Format(historyTimeLayout),
			string(tx.Kind),
			tx.Symbol,
			tx.Amount.String(),
			price)
	}

	return newLedgerView("Transaction history", ui.RouteHistory, t)
}

func newLedgerView(title string, route ui.Route, t *component.Table) *LedgerView {
	keyMap := ui.DefaultKeyMap()
	return &LedgerView{
		title:   title,
		route:   route,
		table:   t,
		helpBar: component.NewHelpBar(keyMap.ContextualHelp(route)...),
	}
}

// Init initializes the view
func (v *LedgerView) Init() tea.Cmd {
	return nil
}

// Update returns to the menu on any key.
func (v *LedgerView) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return v, ui.Navigate(ui.RouterMsg{To: ui.RouteBack})
	}
	return v, nil
}

// Route returns which view this is.
func (v *LedgerView) Route() ui.Route {
	return v.route
}

// Rows returns the number of table rows.
func (v *LedgerView) Rows() int {
	return v.table.GetRowCount()
}

// View renders the table
func (v *LedgerView) View() string {
	var content strings.Builder
	content.WriteString(style.Title.Render(v.title))
	content.WriteString("\n")
	content.WriteString(v.table.View())
	content.WriteString("\n")
	content.WriteString(v.helpBar.View())
	return content.String()
}

// SetSize sets the view dimensions
func (v *LedgerView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.helpBar.SetWidth(width)
}
