package events

import (
	"time"

	"github.com/rovshanmuradov/cryptofolio/internal/market"
)

// EventType names a broker topic.
type EventType string

const (
	// Authenticated carries the signed-in user's identity.
	Authenticated EventType = "authenticated"
	// ShowAuthMenu asks the UI to return to the auth menu.
	ShowAuthMenu EventType = "showAuthMenu"
	// CryptoSelected carries the lower-case symbol the user picked.
	CryptoSelected EventType = "cryptoSelected"
	// PriceUpdated carries a quote or a lookup failure.
	PriceUpdated EventType = "priceUpdated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// AuthenticatedEvent is emitted once the identity provider accepted the credentials.
type AuthenticatedEvent struct {
	BaseEvent
	Identity string
}

// NewAuthenticated builds an AuthenticatedEvent.
func NewAuthenticated(identity string) AuthenticatedEvent {
	return AuthenticatedEvent{BaseEvent: newBase(Authenticated), Identity: identity}
}

// ShowAuthMenuEvent has no payload.
type ShowAuthMenuEvent struct {
	BaseEvent
}

// NewShowAuthMenu builds a ShowAuthMenuEvent.
func NewShowAuthMenu() ShowAuthMenuEvent {
	return ShowAuthMenuEvent{BaseEvent: newBase(ShowAuthMenu)}
}

// CryptoSelectedEvent is emitted by the crypto menu.
type CryptoSelectedEvent struct {
	BaseEvent
	Symbol string
}

// NewCryptoSelected builds a CryptoSelectedEvent.
func NewCryptoSelected(symbol string) CryptoSelectedEvent {
	return CryptoSelectedEvent{BaseEvent: newBase(CryptoSelected), Symbol: symbol}
}

// PriceUpdatedEvent holds either Quote or Error/Message.
type PriceUpdatedEvent struct {
	BaseEvent
	Symbol  string
	Quote   market.Quote
	Error   error
	Message string
}

// NewPriceQuote builds a successful PriceUpdatedEvent.
func NewPriceQuote(q market.Quote) PriceUpdatedEvent {
	return PriceUpdatedEvent{BaseEvent: newBase(PriceUpdated), Symbol: q.Symbol, Quote: q}
}

// NewPriceFailure builds a failed PriceUpdatedEvent.
func NewPriceFailure(symbol string, err error, message string) PriceUpdatedEvent {
	return PriceUpdatedEvent{
		BaseEvent: newBase(PriceUpdated),
		Symbol:    symbol,
		Error:     err,
		Message:   message,
	}
}

// Failed reports whether the event carries an error instead of a quote.
func (e PriceUpdatedEvent) Failed() bool {
	return e.Error != nil
}
