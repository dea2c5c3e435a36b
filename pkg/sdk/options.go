package invman

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Inventory.
type Option interface {
	apply(*config)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	addrs     []string
	password  string
	keyPrefix string

	now func() time.Time

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis publishes display events to a Redis (or Valkey) instance.
// Channels are named {prefix}events:{item}; the default prefix is "invman:".
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *config) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix overrides the channel prefix used with WithRedis.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *config) {
		c.keyPrefix = prefix
	})
}

// WithClock overrides the time source used for depletion predictions.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *config) {
		c.now = now
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *config) {
		c.metricsReg = reg
	})
}
