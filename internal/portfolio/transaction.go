package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a transaction.
type Kind string

const (
	Buy  Kind = "BUY"
	Sell Kind = "SELL"
)

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Symbol    string           `json:"symbol"`
	Kind      Kind             `json:"type"`
	Amount    decimal.Decimal  `json:"amount"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Signed returns the amount with the sign of its effect on the holding.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == Sell {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Holding is the current quantity of one symbol for one user.
type Holding struct {
	Symbol   string
	Quantity decimal.Decimal
}

// Value returns the holding valued at price.
func (h Holding) Value(price decimal.Decimal) decimal.Decimal {
	return h.Quantity.Mul(price)
}

// TxOption customizes a transaction before it is recorded.
type TxOption func(*Transaction)

// AtPrice records the unit price the transaction happened at.
func AtPrice(price decimal.Decimal) TxOption {
	return func(t *Transaction) {
		p := price
		t.Price = &p
	}
}
