package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQuoteParsesSimplePrice(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dogecoin":{"usd":0.1234,"usd_market_cap":17000000000.5,` +
			`"usd_24h_vol":900000000,"usd_24h_change":-2.5,"last_updated_at":1700000000}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	q, err := c.Quote(context.Background(), "DOGE")
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "ids=dogecoin")
	assert.Contains(t, gotQuery, "include_24hr_change=true")
	assert.Equal(t, "doge", q.Symbol)
	assert.Equal(t, "dogecoin", q.CoinID)
	assert.Equal(t, "0.1234", q.Price.String())
	assert.Equal(t, "-2.5", q.Change24h.String())
	assert.Equal(t, "900000000", q.Volume24h.String())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), q.AsOf)
}

func TestQuoteUnknownSymbol(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", time.Second, zap.NewNop())

	_, err := c.Quote(context.Background(), "xrp")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	assert.Equal(t, "Cryptocurrency xrp is not supported", Message("xrp", err))
}

func TestQuoteNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	_, err := c.Quote(context.Background(), "btc")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestQuoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zap.NewNop())
	_, err := c.Quote(context.Background(), "eth")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestQuoteTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, zap.NewNop())
	_, err := c.Quote(context.Background(), "sol")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestLookup(t *testing.T) {
	a, ok := Lookup(" eth ")
	require.True(t, ok)
	assert.Equal(t, "ETH", a.Ticker)
	assert.Equal(t, "eth", a.Symbol())

	_, ok = Lookup("ada")
	assert.False(t, ok)
	assert.Len(t, Supported(), 4)
}
