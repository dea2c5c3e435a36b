package display

import (
	"context"
	"errors"

	"github.com/kailas-cloud/invman/internal/domain/event"
)

// Fanout publishes every event to all sinks and joins their errors.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(ctx context.Context, e event.Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e event.Event) error

// Publish implements Sink.
func (f SinkFunc) Publish(ctx context.Context, e event.Event) error { return f(ctx, e) }
