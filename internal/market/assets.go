package market

import "strings"

// Asset is a cryptocurrency the application can quote and hold.
type Asset struct {
	Ticker string // upper-case, e.g. BTC
	CoinID string // CoinGecko id, e.g. bitcoin
	Name   string
}

// Symbol returns the lower-case symbol used on the cryptoSelected topic.
func (a Asset) Symbol() string {
	return strings.ToLower(a.Ticker)
}

var catalog = []Asset{
	{Ticker: "BTC", CoinID: "bitcoin", Name: "Bitcoin"},
	{Ticker: "ETH", CoinID: "ethereum", Name: "Ethereum"},
	{Ticker: "DOGE", CoinID: "dogecoin", Name: "Dogecoin"},
	{Ticker: "SOL", CoinID: "solana", Name: "Solana"},
}

// Supported returns the supported assets in menu order.
func Supported() []Asset {
	return append([]Asset(nil), catalog...)
}

// Lookup finds an asset by symbol, case-insensitively.
func Lookup(symbol string) (Asset, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, a := range catalog {
		if a.Ticker == s {
			return a, true
		}
	}
	return Asset{}, false
}
