package portfolio

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MirrorRecord is what the remote store receives for each transaction.
type MirrorRecord struct {
	Email     string           `json:"email"`
	Crypto    string           `json:"crypto"`
	Type      Kind             `json:"type"`
	Amount    decimal.Decimal  `json:"amount"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Timestamp int64            `json:"timestamp"` // unix milliseconds
}

func recordOf(tx Transaction) MirrorRecord {
	return MirrorRecord{
		Email:     tx.UserID,
		Crypto:    tx.Symbol,
		Type:      tx.Kind,
		Amount:    tx.Amount,
		Price:     tx.Price,
		Timestamp: tx.Timestamp.UnixMilli(),
	}
}

// Mirror receives a copy of every transaction. Failures never affect local state.
type Mirror interface {
	AppendTransaction(ctx context.Context, rec MirrorRecord) error
}

// NopMirror discards records.
type NopMirror struct{}

// AppendTransaction implements Mirror.
func (NopMirror) AppendTransaction(context.Context, MirrorRecord) error { return nil }

// RetryPolicy bounds mirror retries.
type RetryPolicy struct {
	MaxTries   uint
	MaxElapsed time.Duration
}

// DefaultRetryPolicy is used when Open receives no WithRetryPolicy option.
var DefaultRetryPolicy = RetryPolicy{MaxTries: 3, MaxElapsed: 5 * time.Second}

// mirror pushes tx to the remote store with bounded exponential backoff. The last
// error is logged and dropped.
func (l *Ledger) mirror(ctx context.Context, tx Transaction) {
	rec := recordOf(tx)
	operation := func() (struct{}, error) {
		return struct{}{}, l.remote.AppendTransaction(ctx, rec)
	}
	notify := func(err error, wait time.Duration) {
		l.logger.Debug("Mirror write failed, retrying",
			zap.String("tx_id", tx.ID),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	tries := l.retry.MaxTries
	if tries == 0 {
		tries = 1
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(l.retry.MaxElapsed),
		backoff.WithNotify(notify))
	if err != nil {
		l.logger.Error("Error saving transaction to remote mirror",
			zap.String("tx_id", tx.ID),
			zap.String("user", tx.UserID),
			zap.Error(err))
		return
	}
	l.logger.Info("Transaction mirrored", zap.String("tx_id", tx.ID), zap.String("user", tx.UserID))
}
