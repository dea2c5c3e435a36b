package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain/event"
)

// publisher is the consumer interface for pub/sub operations (ISP).
type publisher interface {
	Publish(ctx context.Context, channel string, msg []byte) (int64, error)
}

// Publisher broadcasts display events on per-item channels.
type Publisher struct {
	store  publisher
	prefix string
	logger *zap.Logger
}

// New creates an event publisher. Channels are named {prefix}events:{item}.
func New(s publisher, prefix string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{store: s, prefix: prefix, logger: logger}
}

// Channel returns the channel name for an item.
func (p *Publisher) Channel(item string) string {
	return p.prefix + "events:" + item
}

// Publish implements display.Sink.
func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	data, err := event.Encode(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	channel := p.Channel(e.Item)
	n, err := p.store.Publish(ctx, channel, data)
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		zap.String("channel", channel),
		zap.String("slot", string(e.Slot)),
		zap.Int64("receivers", n),
	)
	return nil
}
