package market

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownSymbol is returned for symbols outside the catalog.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrNetwork wraps transport failures and non-2xx answers.
	ErrNetwork = errors.New("price service unreachable")
	// ErrNoData is returned when the service answered without data for the coin.
	ErrNoData = errors.New("no price data")
)

// Quote is a USD price snapshot.
type Quote struct {
	Symbol    string
	CoinID    string
	Price     decimal.Decimal
	Change24h decimal.Decimal // percent
	MarketCap decimal.Decimal
	Volume24h decimal.Decimal
	AsOf      time.Time
}

// Message converts a lookup error into the text shown to the user.
func Message(symbol string, err error) string {
	switch {
	case errors.Is(err, ErrUnknownSymbol):
		return "Cryptocurrency " + symbol + " is not supported"
	case errors.Is(err, ErrNoData):
		return "No data for " + symbol
	case errors.Is(err, ErrNetwork):
		return "Price service unreachable, check your connection"
	default:
		return "Error while fetching data about crypto: " + err.Error()
	}
}
