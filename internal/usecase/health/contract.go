package health

import "context"

// Pinger checks availability of the event backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ItemCounter reports how many items are tracked.
type ItemCounter interface {
	Count() int
}
