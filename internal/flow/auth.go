package flow

import (
	"context"
	"time"

	"github.com/rovshanmuradov/cryptofolio/internal/events"
	"github.com/rovshanmuradov/cryptofolio/internal/identity"
	"go.uber.org/zap"
)

// Auth runs sign-in/sign-up against a provider and announces the outcome.
type Auth struct {
	bus      *events.Bus
	provider identity.Provider
	logger   *zap.Logger
	cooldown time.Duration
}

// NewAuth creates the auth flow. cooldown is how long a failure stays on screen
// before the auth menu is shown again.
func NewAuth(bus *events.Bus, provider identity.Provider, logger *zap.Logger, cooldown time.Duration) *Auth {
	return &Auth{
		bus:      bus,
		provider: provider,
		logger:   logger.Named("auth_flow"),
		cooldown: cooldown,
	}
}

// CooldownDuration returns the configured cooldown.
func (a *Auth) CooldownDuration() time.Duration {
	return a.cooldown
}

// Authenticate calls the provider once. Success publishes authenticated; failures
// are returned for the caller to classify with identity.Message.
func (a *Auth) Authenticate(ctx context.Context, mode identity.Mode, email, password string) (identity.User, error) {
	user, err := identity.Call(ctx, a.provider, mode, email, password)
	if err != nil {
		a.logger.Warn("Authentication failed",
			zap.Stringer("mode", mode),
			zap.String("email", email),
			zap.Error(err))
		return identity.User{}, err
	}

	a.logger.Info("Authenticated", zap.Stringer("mode", mode), zap.String("email", user.Email))
	a.bus.Publish(ctx, events.NewAuthenticated(user.Email))
	return user, nil
}

// Cooldown waits out the cooldown and publishes showAuthMenu.
func (a *Auth) Cooldown(ctx context.Context) error {
	if a.cooldown > 0 {
		timer := time.NewTimer(a.cooldown)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	a.bus.Publish(ctx, events.NewShowAuthMenu())
	return nil
}
