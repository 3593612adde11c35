package ui

import (
	"context"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/cryptofolio/internal/events"
	"go.uber.org/zap"
)

// Bridge turns broker events into tea messages. Topic events block until the
// program takes them; progress reports are dropped when the buffer is full.
type Bridge struct {
	msgChan chan tea.Msg
	done    chan struct{}
	once    sync.Once
	subs    []events.Subscription
	logger  *zap.Logger

	sentUpdates    uint64
	droppedUpdates uint64
}

// NewBridge subscribes to the UI-facing topics of bus.
func NewBridge(bus *events.Bus, buffer int, logger *zap.Logger) *Bridge {
	b := &Bridge{
		msgChan: make(chan tea.Msg, buffer),
		done:    make(chan struct{}),
		logger:  logger.Named("ui_bridge"),
	}

	b.subs = append(b.subs,
		bus.SubscribeFunc(events.Authenticated, func(ctx context.Context, e events.Event) error {
			ev := e.(events.AuthenticatedEvent)
			b.deliver(ctx, AuthenticatedMsg{Identity: ev.Identity})
			return nil
		}),
		bus.SubscribeFunc(events.ShowAuthMenu, func(ctx context.Context, _ events.Event) error {
			b.deliver(ctx, ShowAuthMenuMsg{})
			return nil
		}),
		bus.SubscribeFunc(events.PriceUpdated, func(ctx context.Context, e events.Event) error {
			ev := e.(events.PriceUpdatedEvent)
			b.deliver(ctx, PriceUpdatedMsg{
				Symbol:  ev.Symbol,
				Quote:   ev.Quote,
				Err:     ev.Error,
				Message: ev.Message,
			})
			return nil
		}),
	)
	return b
}

// deliver blocks until msg is queued, the bridge closes or ctx ends.
func (b *Bridge) deliver(ctx context.Context, msg tea.Msg) {
	select {
	case b.msgChan <- msg:
		atomic.AddUint64(&b.sentUpdates, 1)
	case <-b.done:
		atomic.AddUint64(&b.droppedUpdates, 1)
	case <-ctx.Done():
		atomic.AddUint64(&b.droppedUpdates, 1)
		b.logger.Debug("UI delivery abandoned", zap.Error(ctx.Err()))
	}
}

// Progress queues a PriceProgressMsg without blocking. It matches flow.ProgressFunc.
func (b *Bridge) Progress(symbol string, step, total int) {
	select {
	case b.msgChan <- PriceProgressMsg{Symbol: symbol, Step: step, Total: total}:
		atomic.AddUint64(&b.sentUpdates, 1)
	default:
		atomic.AddUint64(&b.droppedUpdates, 1)
	}
}

// Listen waits for the next bridged message. Re-issue it after every bridge
// message is handled.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgChan:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// IsBridged reports whether msg came through Listen.
func IsBridged(msg tea.Msg) bool {
	switch msg.(type) {
	case AuthenticatedMsg, ShowAuthMenuMsg, PriceUpdatedMsg, PriceProgressMsg:
		return true
	default:
		return false
	}
}

// GetStats returns current statistics
func (b *Bridge) GetStats() (sent, dropped uint64) {
	sent = atomic.LoadUint64(&b.sentUpdates)
	dropped = atomic.LoadUint64(&b.droppedUpdates)
	return sent, dropped
}

// Close unsubscribes from the broker and releases blocked publishers.
func (b *Bridge) Close() {
	b.once.Do(func() {
		for _, s := range b.subs {
			s.Unsubscribe()
		}
		close(b.done)

		sent, dropped := b.GetStats()
		b.logger.Info("UI bridge closed",
			zap.Uint64("sent", sent),
			zap.Uint64("dropped", dropped))
	})
}
