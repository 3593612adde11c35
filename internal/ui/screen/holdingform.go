package screen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/component"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/router"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/style"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuoteMaxAge is how old a cached quote may be and still value a holding.
const QuoteMaxAge = time.Minute

var errInvalidAmount = errors.New("Invalid amount. Please enter a positive number.")

// HoldingFormScreen prompts for a symbol and amount, then buys or sells.
type HoldingFormScreen struct {
	width    int
	height   int
	keyMap   ui.KeyMap
	kind     portfolio.Kind
	user     string
	services *ui.Services

	form    *component.Form
	spinner spinner.Model
	helpBar *component.HelpBar

	inputErr string
	busy     bool
	result   *ui.HoldingResultMsg
}

// NewHoldingFormScreen creates the add (Buy) or sell (Sell) prompt for user.
func NewHoldingFormScreen(kind portfolio.Kind, user string, services *ui.Services) *HoldingFormScreen {
	keyMap := ui.DefaultKeyMap()

	form := component.NewForm().
		AddField("symbol", component.FieldTypeText, "Symbol (e.g. BTC)", true, "BTC").
		AddField("amount", component.FieldTypeNumber, "Amount", true, "").
		SetFieldValidation("symbol", validateSymbol).
		SetFieldValidation("amount", func(v string) error {
			_, err := parseAmount(v)
			return err
		})

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = style.Muted

	return &HoldingFormScreen{
		keyMap:   keyMap,
		kind:     kind,
		user:     user,
		services: services,
		form:     form,
		spinner:  sp,
		helpBar:  component.NewHelpBar(keyMap.ContextualHelp(ui.RouteHoldingForm)...),
	}
}

func validateSymbol(v string) error {
	if _, ok := market.Lookup(v); !ok {
		return fmt.Errorf("Cryptocurrency %s is not supported", strings.TrimSpace(v))
	}
	return nil
}

func parseAmount(v string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, errInvalidAmount
	}
	return amount, nil
}

// Init initializes the holding form screen
func (s *HoldingFormScreen) Init() tea.Cmd {
	return s.form.Init()
}

// Update handles screen updates
func (s *HoldingFormScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.busy {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case ui.DismissMsg:
		return s, ui.Navigate(ui.RouterMsg{To: ui.RouteBack})

	case ui.HoldingResultMsg:
		s.busy = false
		s.result = &msg
		return s, nil

	case tea.KeyMsg:
		switch {
		case s.inputErr != "" || s.busy:
			return s, nil
		case s.result != nil:
			// Any key dismisses the result.
			return s, ui.Navigate(ui.RouterMsg{To: ui.RouteBack})
		case key.Matches(msg, s.keyMap.Back):
			return s, ui.Navigate(ui.RouterMsg{To: ui.RouteBack})
		}

		var cmd tea.Cmd
		s.form, cmd = s.form.Update(msg)
		if !s.form.Submitted() {
			return s, cmd
		}
		return s, s.submit()
	}

	var cmd tea.Cmd
	s.form, cmd = s.form.Update(msg)
	return s, cmd
}

func (s *HoldingFormScreen) submit() tea.Cmd {
	if first, ok := s.form.Validate(); !ok {
		s.inputErr = first
		return tea.Tick(s.services.Timing.InputErrorDelay, func(time.Time) tea.Msg {
			return ui.DismissMsg{}
		})
	}

	asset, _ := market.Lookup(s.form.GetValue("symbol"))
	amount, _ := parseAmount(s.form.GetValue("amount"))
	s.busy = true

	kind, user, services := s.kind, s.user, s.services
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		ctx := services.Context()

		var opts []portfolio.TxOption
		price := lookupPrice(ctx, services, asset.Symbol())
		if price != nil {
			opts = append(opts, portfolio.AtPrice(*price))
		}

		var (
			h   portfolio.Holding
			err error
		)
		if kind == portfolio.Sell {
			h, err = services.Ledger.RemoveHolding(ctx, user, asset.Ticker, amount, opts...)
		} else {
			h, err = services.Ledger.AddHolding(ctx, user, asset.Ticker, amount, opts...)
		}
		return ui.HoldingResultMsg{Kind: kind, Holding: h, Price: price, Err: err}
	})
}

// lookupPrice values a holding from a fresh cached quote, falling back to one
// live lookup. A failed lookup leaves the transaction unpriced.
func lookupPrice(ctx context.Context, services *ui.Services, symbol string) *decimal.Decimal {
	if services.Quotes != nil {
		if q, ok := services.Quotes.Fresh(symbol, QuoteMaxAge); ok {
			return &q.Price
		}
	}
	if services.Quoter == nil {
		return nil
	}

	q, err := services.Quoter.Quote(ctx, symbol)
	if err != nil {
		services.Logger.Debug("Valuation quote unavailable", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	if services.Quotes != nil {
		services.Quotes.Set(q)
	}
	return &q.Price
}

// InputError returns the inline validation error, if any.
func (s *HoldingFormScreen) InputError() string {
	return s.inputErr
}

// Result returns the outcome of the submission once it arrived.
func (s *HoldingFormScreen) Result() *ui.HoldingResultMsg {
	return s.result
}

// View renders the holding form screen
func (s *HoldingFormScreen) View() string {
	title := "Add to portfolio"
	if s.kind == portfolio.Sell {
		title = "Sell from portfolio"
	}

	var content strings.Builder
	content.WriteString(style.Title.Render(title))
	content.WriteString("\n")

	switch {
	case s.result != nil:
		content.WriteString(s.renderResult())
		content.WriteString("\n")
		content.WriteString(style.Muted.Render("Press any key to return to the menu..."))
	case s.inputErr != "":
		content.WriteString(style.ErrorText.Render(s.inputErr))
	case s.busy:
		content.WriteString(s.spinner.View() + " " + style.Muted.Render("Updating portfolio..."))
	default:
		content.WriteString(s.form.View())
		content.WriteString(s.helpBar.View())
	}
	return content.String()
}

func (s *HoldingFormScreen) renderResult() string {
	r := s.result
	if r.Err != nil {
		switch {
		case errors.Is(r.Err, portfolio.ErrNoHolding):
			return style.ErrorText.Render("You do not hold any " + strings.ToUpper(s.form.GetValue("symbol")) + ".")
		default:
			return style.ErrorText.Render("Error: " + r.Err.Error())
		}
	}

	verb := "Added to"
	if r.Kind == portfolio.Sell {
		verb = "Sold from"
	}
	lines := []string{
		style.SuccessText.Render(fmt.Sprintf("%s portfolio: %s %s", verb, s.form.GetValue("amount"), r.Holding.Symbol)),
		fmt.Sprintf("Holding: %s %s", r.Holding.Quantity.String(), r.Holding.Symbol),
	}
	if r.Price != nil {
		lines = append(lines, fmt.Sprintf("Value: $%s (at $%s)", r.Holding.Value(*r.Price).StringFixed(2), r.Price.StringFixed(2)))
	}
	return strings.Join(lines, "\n")
}

// SetSize sets the screen dimensions
func (s *HoldingFormScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.form.SetWidth(min(width, 60))
	s.helpBar.SetWidth(width)
}
