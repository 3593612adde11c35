package screen

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/events"
	"github.com/rovshanmuradov/cryptofolio/internal/flow"
	"github.com/rovshanmuradov/cryptofolio/internal/identity"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/rovshanmuradov/cryptofolio/internal/ui"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/router"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/state"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQuoter struct {
	mu    sync.Mutex
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeQuoter) Quote(_ context.Context, symbol string) (market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return market.Quote{}, f.err
	}
	return market.Quote{Symbol: symbol, Price: f.price, AsOf: time.Now()}, nil
}

func newServices(t *testing.T, quoter flow.Quoter) *ui.Services {
	t.Helper()
	logger := zap.NewNop()
	dir := t.TempDir()

	bus := events.NewBus(logger)
	provider, err := identity.NewLocalProvider(filepath.Join(dir, "users.json"), logger)
	require.NoError(t, err)

	ledger := portfolio.Open(context.Background(), portfolio.NewFileStore(filepath.Join(dir, "portfolio.json")), nil, logger)
	t.Cleanup(func() { _ = ledger.Close(context.Background()) })

	return &ui.Services{
		Bus:    bus,
		Auth:   flow.NewAuth(bus, provider, logger, 0),
		Ledger: ledger,
		Quoter: quoter,
		Quotes: state.NewQuoteCache(logger),
		Timing: ui.Timing{RedrawDelay: time.Millisecond, InputErrorDelay: time.Millisecond},
		Logger: logger,
	}
}

// drain runs cmd and every batched or sequenced command under it.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	v := reflect.ValueOf(msg)
	if v.Kind() == reflect.Slice && v.Type().Elem() == reflect.TypeOf(tea.Cmd(nil)) {
		var out []tea.Msg
		for i := 0; i < v.Len(); i++ {
			out = append(out, drain(v.Index(i).Interface().(tea.Cmd))...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func press(s router.Screen, k tea.KeyType) tea.Cmd {
	_, cmd := s.Update(tea.KeyMsg{Type: k})
	return cmd
}

func typeText(s router.Screen, text string) {
	s.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestAuthMenuWrapsAndSelectsMode(t *testing.T) {
	s := NewAuthMenuScreen()
	assert.Equal(t, 0, s.Selected())

	press(s, tea.KeyUp)
	assert.Equal(t, 1, s.Selected(), "up from the first option wraps to the last")
	press(s, tea.KeyDown)
	assert.Equal(t, 0, s.Selected(), "down from the last option wraps to the first")

	press(s, tea.KeyDown)
	msgs := drain(press(s, tea.KeyEnter))
	nav, ok := find[ui.RouterMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, ui.RouteCredentials, nav.To)
	assert.Equal(t, identity.SignUp, nav.Mode)

	assert.Empty(t, drain(press(s, tea.KeyLeft)), "other keys are ignored")
}

func TestCryptoMenuWraps(t *testing.T) {
	s := NewCryptoMenuScreen(newServices(t, nil))
	n := len(CryptoMenuItems())
	require.Equal(t, len(market.Supported())+4, n)

	press(s, tea.KeyUp)
	assert.Equal(t, n-1, s.Selected())
	press(s, tea.KeyDown)
	assert.Equal(t, 0, s.Selected())

	for i := 0; i < n; i++ {
		press(s, tea.KeyDown)
	}
	assert.Equal(t, 0, s.Selected())
}

func TestCryptoMenuSymbolPublishesAndHolds(t *testing.T) {
	services := newServices(t, nil)

	var selected []string
	services.Bus.SubscribeFunc(events.CryptoSelected, func(_ context.Context, e events.Event) error {
		selected = append(selected, e.(events.CryptoSelectedEvent).Symbol)
		return nil
	})

	s := NewCryptoMenuScreen(services)
	cmd := press(s, tea.KeyEnter)
	require.True(t, s.Busy())

	press(s, tea.KeyDown)
	assert.Equal(t, 0, s.Selected(), "navigation is ignored while busy")

	s.Update(ui.PriceProgressMsg{Symbol: "btc", Step: 2, Total: 3})
	assert.Equal(t, "Fetching data for btc... (2/3)", s.Progress())

	msgs := drain(cmd)
	hist, ok := find[ui.HistoryMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "You selected: btc", hist.Line)
	assert.Equal(t, []string{"btc"}, selected)

	redraw, ok := find[ui.RedrawMsg](msgs)
	require.True(t, ok)
	s.Update(redraw)
	assert.False(t, s.Busy())
	assert.Empty(t, s.Progress())
}

func TestCryptoMenuActionsNavigate(t *testing.T) {
	cases := []struct {
		downs int
		want  ui.RouterMsg
	}{
		{4, ui.RouterMsg{To: ui.RouteHoldingForm, Kind: portfolio.Buy}},
		{5, ui.RouterMsg{To: ui.RouteHoldingForm, Kind: portfolio.Sell}},
		{6, ui.RouterMsg{To: ui.RoutePortfolio}},
		{7, ui.RouterMsg{To: ui.RouteHistory}},
	}
	for _, tc := range cases {
		s := NewCryptoMenuScreen(newServices(t, nil))
		for i := 0; i < tc.downs; i++ {
			press(s, tea.KeyDown)
		}
		nav, ok := find[ui.RouterMsg](drain(press(s, tea.KeyEnter)))
		require.True(t, ok)
		assert.Equal(t, tc.want, nav)
	}
}

func TestHoldingFormRejectsBadAmount(t *testing.T) {
	services := newServices(t, nil)
	s := NewHoldingFormScreen(portfolio.Buy, "a@x.com", services)

	typeText(s, "BTC")
	press(s, tea.KeyEnter)
	typeText(s, "-1")
	cmd := press(s, tea.KeyEnter)

	assert.Equal(t, "Invalid amount. Please enter a positive number.", s.InputError())
	assert.Contains(t, s.View(), "Invalid amount")

	dismiss, ok := find[ui.DismissMsg](drain(cmd))
	require.True(t, ok)
	_, cmd = s.Update(dismiss)
	nav, ok := find[ui.RouterMsg](drain(cmd))
	require.True(t, ok)
	assert.Equal(t, ui.RouteBack, nav.To)

	assert.Empty(t, services.Ledger.GetAllHoldings("a@x.com"))
	assert.Empty(t, services.Ledger.GetTransactionHistory("a@x.com"))
}

func TestHoldingFormRejectsUnsupportedSymbol(t *testing.T) {
	s := NewHoldingFormScreen(portfolio.Buy, "a@x.com", newServices(t, nil))

	typeText(s, "XRP")
	press(s, tea.KeyEnter)
	typeText(s, "5")
	press(s, tea.KeyEnter)

	assert.Equal(t, "Cryptocurrency XRP is not supported", s.InputError())
}

func TestHoldingFormBuysWithQuote(t *testing.T) {
	quoter := &fakeQuoter{price: decimal.RequireFromString("0.25")}
	services := newServices(t, quoter)
	s := NewHoldingFormScreen(portfolio.Buy, "a@x.com", services)

	typeText(s, "doge")
	press(s, tea.KeyEnter)
	typeText(s, "100")
	cmd := press(s, tea.KeyEnter)

	res, ok := find[ui.HoldingResultMsg](drain(cmd))
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "DOGE", res.Holding.Symbol)
	assert.True(t, res.Holding.Quantity.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, res.Price)
	assert.Equal(t, 1, quoter.calls)

	s.Update(res)
	view := s.View()
	assert.Contains(t, view, "Holding: 100 DOGE")
	assert.Contains(t, view, "Value: $25.00")

	history := services.Ledger.GetTransactionHistory("a@x.com")
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Price)
	assert.True(t, history[0].Price.Equal(decimal.RequireFromString("0.25")))

	nav, ok := find[ui.RouterMsg](drain(press(s, tea.KeySpace)))
	require.True(t, ok, "any key dismisses the result")
	assert.Equal(t, ui.RouteBack, nav.To)
}

func TestHoldingFormUsesCachedQuote(t *testing.T) {
	quoter := &fakeQuoter{err: errors.New("offline")}
	services := newServices(t, quoter)
	services.Quotes.Set(market.Quote{Symbol: "btc", Price: decimal.NewFromInt(50000)})

	s := NewHoldingFormScreen(portfolio.Buy, "a@x.com", services)
	typeText(s, "BTC")
	press(s, tea.KeyEnter)
	typeText(s, "0.5")
	res, ok := find[ui.HoldingResultMsg](drain(press(s, tea.KeyEnter)))
	require.True(t, ok)

	require.NotNil(t, res.Price)
	assert.True(t, res.Price.Equal(decimal.NewFromInt(50000)))
	assert.Zero(t, quoter.calls)
}

func TestHoldingFormSellWithoutHolding(t *testing.T) {
	services := newServices(t, &fakeQuoter{err: errors.New("offline")})
	s := NewHoldingFormScreen(portfolio.Sell, "a@x.com", services)

	typeText(s, "eth")
	press(s, tea.KeyEnter)
	typeText(s, "1")
	res, ok := find[ui.HoldingResultMsg](drain(press(s, tea.KeyEnter)))
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, portfolio.ErrNoHolding)
	assert.Nil(t, res.Price)

	s.Update(res)
	assert.Contains(t, s.View(), "You do not hold any ETH.")
}

func TestHoldingFormEscBacksOut(t *testing.T) {
	s := NewHoldingFormScreen(portfolio.Buy, "a@x.com", newServices(t, nil))
	nav, ok := find[ui.RouterMsg](drain(press(s, tea.KeyEsc)))
	require.True(t, ok)
	assert.Equal(t, ui.RouteBack, nav.To)
}

func TestCredentialsSignUpAndFailure(t *testing.T) {
	services := newServices(t, nil)

	var authed []string
	services.Bus.SubscribeFunc(events.Authenticated, func(_ context.Context, e events.Event) error {
		authed = append(authed, e.(events.AuthenticatedEvent).Identity)
		return nil
	})
	var shown int
	services.Bus.SubscribeFunc(events.ShowAuthMenu, func(context.Context, events.Event) error {
		shown++
		return nil
	})

	s := NewCredentialsScreen(identity.SignUp, services)
	typeText(s, "a@x.com")
	press(s, tea.KeyEnter)
	typeText(s, "secret123")
	cmd := press(s, tea.KeyEnter)
	require.True(t, s.Busy())

	res, ok := find[ui.AuthResultMsg](drain(cmd))
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.Equal(t, []string{"a@x.com"}, authed)

	in := NewCredentialsScreen(identity.SignIn, services)
	typeText(in, "a@x.com")
	press(in, tea.KeyEnter)
	typeText(in, "wrong-password")
	res, ok = find[ui.AuthResultMsg](drain(press(in, tea.KeyEnter)))
	require.True(t, ok)
	require.Error(t, res.Err)

	_, cmd = in.Update(res)
	assert.Equal(t, "Incorrect password.", in.Failure())
	assert.Contains(t, in.View(), "Retrying in 0 seconds...")

	assert.Nil(t, press(in, tea.KeyEsc), "input is locked during the cooldown")

	drain(cmd)
	assert.Equal(t, 1, shown, "the cooldown returns to the auth menu")
}

func TestLedgerViews(t *testing.T) {
	services := newServices(t, nil)
	ctx := context.Background()
	_, err := services.Ledger.AddHolding(ctx, "a@x.com", "BTC", decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = services.Ledger.AddHolding(ctx, "a@x.com", "ETH", decimal.NewFromInt(2))
	require.NoError(t, err)
	_, err = services.Ledger.RemoveHolding(ctx, "a@x.com", "ETH", decimal.NewFromInt(1))
	require.NoError(t, err)

	services.Quotes.Set(market.Quote{Symbol: "btc", Price: decimal.NewFromInt(100)})

	p := NewPortfolioScreen("a@x.com", services)
	assert.Equal(t, 2, p.Rows())
	assert.Contains(t, p.View(), "$100.00")

	h := NewHistoryScreen("a@x.com", services)
	assert.Equal(t, 3, h.Rows())
	assert.Equal(t, ui.RouteHistory, h.Route())

	empty := NewHistoryScreen("nobody@x.com", services)
	assert.Contains(t, empty.View(), "No transactions yet.")

	nav, ok := find[ui.RouterMsg](drain(press(p, tea.KeyEnter)))
	require.True(t, ok)
	assert.Equal(t, ui.RouteBack, nav.To)
}
