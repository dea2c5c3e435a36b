package db

import (
	"context"
	"time"
)

// Store is the event backend facade.
type Store interface {
	Pinger
	Publisher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Publisher delivers messages to channel subscribers.
type Publisher interface {
	// Publish sends msg to channel and returns the number of receivers.
	Publish(ctx context.Context, channel string, msg []byte) (int64, error)
}
