package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultCoinGeckoURL is the public simple/price endpoint.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"

// Client fetches quotes from the CoinGecko simple/price API.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates a CoinGecko client. An empty endpoint selects DefaultCoinGeckoURL.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultCoinGeckoURL
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.Named("coingecko"),
	}
}

// Quote returns the current USD quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	asset, ok := Lookup(symbol)
	if !ok {
		return Quote{}, fmt.Errorf("%q: %w", symbol, ErrUnknownSymbol)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Quote{}, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("ids", asset.CoinID)
	q.Set("vs_currencies", "usd")
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_vol", "true")
	q.Set("include_24hr_change", "true")
	q.Set("include_last_updated_at", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Price request failed", zap.String("coin", asset.CoinID), zap.Error(err))
		return Quote{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Price API error",
			zap.String("coin", asset.CoinID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return Quote{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	var result map[string]map[string]json.Number
	if err := json.Unmarshal(body, &result); err != nil {
		return Quote{}, fmt.Errorf("decode %s: %w", asset.CoinID, err)
	}

	data, exists := result[asset.CoinID]
	if !exists || data["usd"] == "" {
		return Quote{}, fmt.Errorf("%s: %w", asset.CoinID, ErrNoData)
	}

	quote := Quote{
		Symbol:    asset.Symbol(),
		CoinID:    asset.CoinID,
		Price:     number(data, "usd"),
		MarketCap: number(data, "usd_market_cap"),
		Volume24h: number(data, "usd_24h_vol"),
		Change24h: number(data, "usd_24h_change"),
		AsOf:      time.Now().UTC(),
	}
	if ts := number(data, "last_updated_at"); ts.IsPositive() {
		quote.AsOf = time.Unix(ts.IntPart(), 0).UTC()
	}

	c.logger.Debug("Quote fetched",
		zap.String("coin", asset.CoinID),
		zap.String("price", quote.Price.String()),
		zap.Duration("took", time.Since(start)))

	return quote, nil
}

// number extracts a decimal value, treating missing or malformed fields as zero.
func number(data map[string]json.Number, key string) decimal.Decimal {
	v, ok := data[key]
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
