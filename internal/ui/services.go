package ui

import (
	"context"
	"time"

	"github.com/rovshanmuradov/cryptofolio/internal/events"
	"github.com/rovshanmuradov/cryptofolio/internal/flow"
	"github.com/rovshanmuradov/cryptofolio/internal/portfolio"
	"github.com/rovshanmuradov/cryptofolio/internal/ui/state"
	"go.uber.org/zap"
)

// Timing holds the fixed UI pacing delays.
type Timing struct {
	RedrawDelay     time.Duration
	InputErrorDelay time.Duration
}

// Services gives screens access to the application's components.
type Services struct {
	Ctx    context.Context
	Bus    *events.Bus
	Auth   *flow.Auth
	Ledger *portfolio.Ledger
	Quoter flow.Quoter
	Quotes *state.QuoteCache
	Timing Timing
	Logger *zap.Logger
}

// Context returns the root context, or Background when none was set.
func (s *Services) Context() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}
