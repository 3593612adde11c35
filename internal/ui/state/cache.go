package state

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"go.uber.org/zap"
)

// QuoteCache keeps the latest quote per symbol so screens can value holdings
// without another lookup.
type QuoteCache struct {
	quotes map[string]cachedQuote
	mu     sync.RWMutex
	now    func() time.Time
	logger *zap.Logger

	// Statistics (accessed atomically)
	reads  uint64
	writes uint64
}

type cachedQuote struct {
	quote    market.Quote
	storedAt time.Time
}

// NewQuoteCache creates an empty cache.
func NewQuoteCache(logger *zap.Logger) *QuoteCache {
	return &QuoteCache{
		quotes: make(map[string]cachedQuote),
		now:    time.Now,
		logger: logger.Named("quote_cache"),
	}
}

func key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Set stores q under its symbol.
func (c *QuoteCache) Set(q market.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.quotes[key(q.Symbol)] = cachedQuote{quote: q, storedAt: c.now()}
	atomic.AddUint64(&c.writes, 1)
}

// Get returns the cached quote for symbol.
func (c *QuoteCache) Get(symbol string) (market.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	cq, ok := c.quotes[key(symbol)]
	return cq.quote, ok
}

// Fresh returns the cached quote only when it is younger than maxAge.
func (c *QuoteCache) Fresh(symbol string, maxAge time.Duration) (market.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	atomic.AddUint64(&c.reads, 1)
	cq, ok := c.quotes[key(symbol)]
	if !ok || c.now().Sub(cq.storedAt) > maxAge {
		return market.Quote{}, false
	}
	return cq.quote, true
}

// GetStats returns cache statistics
func (c *QuoteCache) GetStats() (quotes, reads, writes uint64) {
	c.mu.RLock()
	quotes = uint64(len(c.quotes))
	c.mu.RUnlock()

	reads = atomic.LoadUint64(&c.reads)
	writes = atomic.LoadUint64(&c.writes)
	return quotes, reads, writes
}

// CleanupStale removes quotes older than maxAge.
func (c *QuoteCache) CleanupStale(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	removed := 0
	for sym, cq := range c.quotes {
		if cq.storedAt.Before(cutoff) {
			delete(c.quotes, sym)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Cleaned up stale quotes",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.quotes)))
	}
	return removed
}
