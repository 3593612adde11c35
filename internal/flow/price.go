// Package flow connects broker topics to the identity and price adapters.
package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rovshanmuradov/cryptofolio/internal/events"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"go.uber.org/zap"
)

// Quoter fetches a USD quote for a symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (market.Quote, error)
}

// ProgressFunc receives each pacing step before the quote is fetched.
type ProgressFunc func(symbol string, step, total int)

// Price answers cryptoSelected with priceUpdated.
type Price struct {
	bus      *events.Bus
	quoter   Quoter
	logger   *zap.Logger
	steps    int
	delay    time.Duration
	progress ProgressFunc

	once sync.Once
	sub  events.Subscription
}

// PriceOption configures a Price flow.
type PriceOption func(*Price)

// WithPacing sets the number of progress steps and the delay between them.
func WithPacing(steps int, delay time.Duration) PriceOption {
	return func(p *Price) {
		p.steps = steps
		p.delay = delay
	}
}

// WithProgress registers fn to observe pacing steps.
func WithProgress(fn ProgressFunc) PriceOption {
	return func(p *Price) { p.progress = fn }
}

// NewPrice creates the price flow. Call Start to subscribe.
func NewPrice(bus *events.Bus, quoter Quoter, logger *zap.Logger, opts ...PriceOption) *Price {
	p := &Price{
		bus:    bus,
		quoter: quoter,
		logger: logger.Named("price_flow"),
		steps:  3,
		delay:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start subscribes to cryptoSelected. Later calls are no-ops.
func (p *Price) Start() {
	p.once.Do(func() {
		p.sub = p.bus.Subscribe(events.CryptoSelected, events.HandlerFunc(p.handle))
	})
}

// Stop removes the subscription.
func (p *Price) Stop() {
	if p.sub != nil {
		p.sub.Unsubscribe()
	}
}

func (p *Price) handle(ctx context.Context, e events.Event) error {
	sel, ok := e.(events.CryptoSelectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T on %s", e, events.CryptoSelected)
	}
	symbol := sel.Symbol

	if _, ok := market.Lookup(symbol); !ok {
		p.logger.Warn("Unsupported symbol selected", zap.String("symbol", symbol))
		p.bus.Publish(ctx, events.NewPriceFailure(symbol, market.ErrUnknownSymbol,
			market.Message(symbol, market.ErrUnknownSymbol)))
		return nil
	}

	if err := p.pace(ctx, symbol); err != nil {
		return err
	}

	q, err := p.quoter.Quote(ctx, symbol)
	if err != nil {
		p.logger.Error("Quote lookup failed", zap.String("symbol", symbol), zap.Error(err))
		p.bus.Publish(ctx, events.NewPriceFailure(symbol, err, market.Message(symbol, err)))
		return nil
	}

	p.logger.Debug("Quote received",
		zap.String("symbol", q.Symbol),
		zap.String("price", q.Price.String()))
	p.bus.Publish(ctx, events.NewPriceQuote(q))
	return nil
}

func (p *Price) pace(ctx context.Context, symbol string) error {
	for step := 1; step <= p.steps; step++ {
		if p.progress != nil {
			p.progress(symbol, step, p.steps)
		}
		if p.delay <= 0 {
			continue
		}
		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
