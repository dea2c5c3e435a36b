package display

import (
	"context"

	"github.com/kailas-cloud/invman/internal/domain/event"
	"github.com/kailas-cloud/invman/internal/domain/tracker"
)

// Source is the read side of a consumption tracker.
type Source interface {
	Snapshot() tracker.Snapshot
}

// Sink receives refreshed display state.
type Sink interface {
	Publish(ctx context.Context, e event.Event) error
}
