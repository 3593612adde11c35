// Package portfolio keeps per-user holdings and the append-only transaction log
// that explains them.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rovshanmuradov/cryptofolio/internal/market"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrUnsupportedSymbol = errors.New("unsupported symbol")
	ErrNoHolding         = errors.New("no holding for symbol")
	ErrNoUser            = errors.New("user id is required")
	ErrDiverged          = errors.New("holdings diverge from transactions")
)

// Ledger is the in-memory portfolio backed by a Store and mirrored remotely.
type Ledger struct {
	mu  sync.RWMutex
	doc Document

	writeMu sync.Mutex
	store   Store
	remote  Mirror
	retry   RetryPolicy
	bg      errgroup.Group

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRetryPolicy bounds mirror retries.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(l *Ledger) { l.retry = p }
}

// WithClock replaces time.Now for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Open loads the ledger from store. A missing or unreadable document is replaced
// by an empty one; Open itself never fails.
func Open(ctx context.Context, store Store, mirror Mirror, logger *zap.Logger, opts ...Option) *Ledger {
	if mirror == nil {
		mirror = NopMirror{}
	}
	l := &Ledger{
		store:  store,
		remote: mirror,
		retry:  DefaultRetryPolicy,
		now:    time.Now,
		logger: logger.Named("ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}

	doc, err := store.Load(ctx)
	switch {
	case err == nil:
		if doc.Holdings == nil {
			doc.Holdings = make(map[string]Positions)
		}
		if doc.Transactions == nil {
			doc.Transactions = make(map[string][]Transaction)
		}
		l.doc = doc
		l.logger.Info("Ledger loaded",
			zap.Int("users", len(doc.Holdings)),
			zap.Int("transaction_users", len(doc.Transactions)))
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Info("No ledger document found, starting empty")
		l.doc = NewDocument()
		l.persist(ctx)
	default:
		l.logger.Warn("Ledger document unreadable, starting empty", zap.Error(err))
		l.doc = NewDocument()
		l.persist(ctx)
	}

	for _, user := range l.users() {
		if err := l.Verify(user); err != nil {
			l.logger.Error("Ledger verification failed", zap.String("user", user), zap.Error(err))
		}
	}
	return l
}

// AddHolding records a BUY of amount and returns the resulting holding. The document
// is saved before returning; the mirror write follows.
func (l *Ledger) AddHolding(ctx context.Context, userID, symbol string, amount decimal.Decimal, opts ...TxOption) (Holding, error) {
	asset, err := checkInput(userID, symbol, amount)
	if err != nil {
		return Holding{}, err
	}

	l.mu.Lock()
	tx := l.newTransaction(userID, asset.Ticker, Buy, amount, opts)
	h := l.apply(tx)
	l.mu.Unlock()

	l.logger.Info("Holding added",
		zap.String("user", userID),
		zap.String("symbol", asset.Ticker),
		zap.String("amount", amount.String()),
		zap.String("quantity", h.Quantity.String()))

	l.persist(ctx)
	l.mirror(ctx, tx)
	return h, nil
}

// RemoveHolding records a SELL. The amount is clamped to the held quantity and the
// holding disappears when it reaches zero. Persistence and mirroring run in the
// background; Close waits for them.
func (l *Ledger) RemoveHolding(ctx context.Context, userID, symbol string, amount decimal.Decimal, opts ...TxOption) (Holding, error) {
	asset, err := checkInput(userID, symbol, amount)
	if err != nil {
		return Holding{}, err
	}

	l.mu.Lock()
	held := l.quantity(userID, asset.Ticker)
	if !held.IsPositive() {
		l.mu.Unlock()
		return Holding{}, fmt.Errorf("%s: %w", asset.Ticker, ErrNoHolding)
	}
	effective := decimal.Min(amount, held)
	tx := l.newTransaction(userID, asset.Ticker, Sell, effective, opts)
	h := l.apply(tx)
	l.mu.Unlock()

	l.logger.Info("Holding removed",
		zap.String("user", userID),
		zap.String("symbol", asset.Ticker),
		zap.String("requested", amount.String()),
		zap.String("amount", effective.String()),
		zap.String("quantity", h.Quantity.String()))

	bgCtx := context.WithoutCancel(ctx)
	l.bg.Go(func() error {
		l.persist(bgCtx)
		l.mirror(bgCtx, tx)
		return nil
	})
	return h, nil
}

// GetAllHoldings returns the user's holdings in first-insertion order.
func (l *Ledger) GetAllHoldings(userID string) []Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Holding(nil), l.doc.Holdings[userID]...)
}

// GetHolding returns the holding for symbol, with zero quantity when nothing is held.
func (l *Ledger) GetHolding(userID, symbol string) Holding {
	ticker := strings.ToUpper(strings.TrimSpace(symbol))
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Holding{Symbol: ticker, Quantity: l.quantity(userID, ticker)}
}

// GetTransactionHistory returns the user's transactions, most recent first. Equal
// timestamps keep the later insertion first.
func (l *Ledger) GetTransactionHistory(userID string) []Transaction {
	l.mu.RLock()
	src := l.doc.Transactions[userID]
	out := make([]Transaction, len(src))
	for i, tx := range src {
		out[len(src)-1-i] = tx
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Snapshot returns a deep copy of the whole document.
func (l *Ledger) Snapshot() Document {
	l.mu.RLock()
	defer l.mu.RUnlock()

	doc := NewDocument()
	for user, pos := range l.doc.Holdings {
		doc.Holdings[user] = append(Positions(nil), pos...)
	}
	for user, txs := range l.doc.Transactions {
		doc.Transactions[user] = append([]Transaction(nil), txs...)
	}
	return doc
}

// Verify checks that every holding of userID equals the signed sum of its
// transactions.
func (l *Ledger) Verify(userID string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sums := make(map[string]decimal.Decimal)
	for _, tx := range l.doc.Transactions[userID] {
		sums[tx.Symbol] = sums[tx.Symbol].Add(tx.Signed())
	}

	seen := make(map[string]bool)
	for _, h := range l.doc.Holdings[userID] {
		seen[h.Symbol] = true
		if !h.Quantity.Equal(sums[h.Symbol]) {
			return fmt.Errorf("%w: %s holds %s, transactions sum to %s",
				ErrDiverged, h.Symbol, h.Quantity, sums[h.Symbol])
		}
	}
	for symbol, sum := range sums {
		if !seen[symbol] && sum.IsPositive() {
			return fmt.Errorf("%w: %s missing, transactions sum to %s", ErrDiverged, symbol, sum)
		}
	}
	return nil
}

// Close waits for background writes or until ctx is done.
func (l *Ledger) Close(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- l.bg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("waiting for ledger writes: %w", ctx.Err())
	}
}

func checkInput(userID, symbol string, amount decimal.Decimal) (market.Asset, error) {
	if strings.TrimSpace(userID) == "" {
		return market.Asset{}, ErrNoUser
	}
	asset, ok := market.Lookup(symbol)
	if !ok {
		return market.Asset{}, fmt.Errorf("%q: %w", symbol, ErrUnsupportedSymbol)
	}
	if !amount.IsPositive() {
		return market.Asset{}, fmt.Errorf("%s: %w", amount, ErrInvalidAmount)
	}
	return asset, nil
}

// newTransaction must be called with mu held.
func (l *Ledger) newTransaction(userID, ticker string, kind Kind, amount decimal.Decimal, opts []TxOption) Transaction {
	tx := Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    ticker,
		Kind:      kind,
		Amount:    amount,
		Timestamp: l.now().UTC().Truncate(time.Millisecond),
	}
	for _, opt := range opts {
		opt(&tx)
	}
	return tx
}

// apply appends tx and updates the matching holding. mu must be held.
func (l *Ledger) apply(tx Transaction) Holding {
	l.doc.Transactions[tx.UserID] = append(l.doc.Transactions[tx.UserID], tx)

	pos := l.doc.Holdings[tx.UserID]
	idx := -1
	for i, h := range pos {
		if h.Symbol == tx.Symbol {
			idx = i
			break
		}
	}

	qty := tx.Signed()
	if idx >= 0 {
		qty = pos[idx].Quantity.Add(qty)
	}

	switch {
	case !qty.IsPositive() && idx >= 0:
		pos = append(pos[:idx:idx], pos[idx+1:]...)
		qty = decimal.Zero
	case !qty.IsPositive():
		qty = decimal.Zero
	case idx >= 0:
		pos[idx].Quantity = qty
	default:
		pos = append(pos, Holding{Symbol: tx.Symbol, Quantity: qty})
	}

	if len(pos) == 0 {
		delete(l.doc.Holdings, tx.UserID)
	} else {
		l.doc.Holdings[tx.UserID] = pos
	}
	return Holding{Symbol: tx.Symbol, Quantity: qty}
}

// quantity must be called with mu held.
func (l *Ledger) quantity(userID, ticker string) decimal.Decimal {
	for _, h := range l.doc.Holdings[userID] {
		if h.Symbol == ticker {
			return h.Quantity
		}
	}
	return decimal.Zero
}

func (l *Ledger) users() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	set := make(map[string]struct{})
	for u := range l.doc.Holdings {
		set[u] = struct{}{}
	}
	for u := range l.doc.Transactions {
		set[u] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// persist saves a snapshot taken under writeMu so concurrent saves land in order.
// Failures are logged only.
func (l *Ledger) persist(ctx context.Context) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := l.store.Save(ctx, l.Snapshot()); err != nil {
		l.logger.Error("Failed to save ledger", zap.Error(err))
	}
}
