// Package tracker implements per-item consumption tracking: stored supply and
// dose amounts, derived depletion metrics and refresh notification.
package tracker

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain"
	"github.com/kailas-cloud/invman/internal/domain/observer"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
)

// Unbounded is returned by DaysRemaining when there is no daily consumption.
// It is also a legal projection for large supplies, so consumers decide
// availability from Snapshot.Projectable rather than comparing against it.
const Unbounded = 10000.0

// RefreshFunc is invoked after every mutation of the tracker.
type RefreshFunc func()

// Snapshot is a consistent copy of the tracker state.
type Snapshot struct {
	Values           map[quantity.Quantity]float64
	DailyConsumption float64
	DaysRemaining    float64
	// Projectable is false exactly when DaysRemaining holds Unbounded because nothing is consumed.
	Projectable bool
	// Seq increases with every stored value; a larger Seq is a newer state.
	Seq uint64
}

// Tracker holds the consumption quantities of one item.
// All methods are safe for concurrent use; writes are serialized per tracker.
type Tracker struct {
	mu        sync.Mutex
	values    map[quantity.Quantity]float64
	observers map[observer.Slot]RefreshFunc
	seq       uint64
	name      string
	logger    *zap.Logger
}

// New creates an empty tracker. name is only used for logging.
func New(name string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		values:    make(map[quantity.Quantity]float64, len(quantity.All())),
		observers: make(map[observer.Slot]RefreshFunc, len(observer.Slots())),
		name:      name,
		logger:    logger.With(zap.String("item", name)),
	}
}

// Register attaches fn to slot, replacing any previous callback.
func (t *Tracker) Register(slot observer.Slot, fn RefreshFunc) error {
	if !slot.IsValid() {
		return fmt.Errorf("register %q: %w", slot, domain.ErrInvalidSlot)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if fn == nil {
		delete(t.observers, slot)
		return nil
	}
	t.observers[slot] = fn
	return nil
}

// Unregister detaches the callback of slot, if any.
func (t *Tracker) Unregister(slot observer.Slot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.observers, slot)
}

// Set stores v for q. Negative values are stored as 0.
// Both observer slots are notified afterwards regardless of which quantity changed.
func (t *Tracker) Set(q quantity.Quantity, v float64) error {
	if !q.IsValid() {
		return domain.NewInvalidQuantity(string(q))
	}
	if !isFinite(v) {
		return fmt.Errorf("set %s to %v: %w", q, v, domain.ErrInvalidValue)
	}

	t.mu.Lock()
	t.store(q, v)
	callbacks := t.callbacks()
	t.mu.Unlock()

	t.notify(callbacks)
	return nil
}

// Get returns the stored value of q, or 0 if it was never set.
func (t *Tracker) Get(q quantity.Quantity) (float64, error) {
	if !q.IsValid() {
		return 0, domain.NewInvalidQuantity(string(q))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.values[q], nil
}

// TakeAmount subtracts amount from the supply, clamped at 0.
// A zero amount is a no-op and does not notify observers.
// A negative amount adds to the supply.
func (t *Tracker) TakeAmount(amount float64) error {
	if !isFinite(amount) {
		return fmt.Errorf("take %v: %w", amount, domain.ErrInvalidValue)
	}
	if amount == 0 {
		return nil
	}

	t.mu.Lock()
	next := t.values[quantity.Supply] - amount
	if !isFinite(next) {
		t.mu.Unlock()
		return fmt.Errorf("take %v: supply out of range: %w", amount, domain.ErrInvalidValue)
	}
	t.store(quantity.Supply, next)
	callbacks := t.callbacks()
	t.mu.Unlock()

	t.notify(callbacks)
	return nil
}

// TakeDose consumes the configured amount of dose from the supply.
// Tags other than the four time-of-day doses are ignored.
func (t *Tracker) TakeDose(dose quantity.Quantity) {
	if !dose.IsDose() {
		t.logger.Debug("Ignoring invalid dose", zap.String("dose", string(dose)))
		return
	}

	t.mu.Lock()
	amount := t.values[dose]
	t.mu.Unlock()

	// stored values are finite, so TakeAmount cannot fail here
	_ = t.TakeAmount(amount)
}

// DailyConsumption returns the sum of the four dose amounts.
// A faulty sum degrades to 0.
func (t *Tracker) DailyConsumption() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dailyConsumption()
}

// DaysRemaining returns supply divided by daily consumption, or Unbounded
// when nothing is consumed.
func (t *Tracker) DaysRemaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.daysRemaining()
}

// Snapshot returns a copy of all stored values and both derived metrics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	values := make(map[quantity.Quantity]float64, len(quantity.All()))
	for _, q := range quantity.All() {
		values[q] = t.values[q]
	}
	daily := t.dailyConsumption()
	return Snapshot{
		Values:           values,
		DailyConsumption: daily,
		DaysRemaining:    t.daysRemaining(),
		Projectable:      daily > 0,
		Seq:              t.seq,
	}
}

// store must be called with mu held.
func (t *Tracker) store(q quantity.Quantity, v float64) {
	if v < 0 {
		v = 0
	}
	t.values[q] = v
	t.seq++
	t.logger.Debug("Quantity set", zap.String("quantity", string(q)), zap.Float64("value", v))
}

func (t *Tracker) callbacks() []RefreshFunc {
	out := make([]RefreshFunc, 0, len(observer.Slots()))
	for _, slot := range observer.Slots() {
		if fn, ok := t.observers[slot]; ok {
			out = append(out, fn)
		} else {
			t.logger.Debug("No observer registered", zap.String("slot", string(slot)))
		}
	}
	return out
}

// notify runs outside mu so callbacks can read the tracker.
func (t *Tracker) notify(callbacks []RefreshFunc) {
	for _, fn := range callbacks {
		fn()
	}
}

func (t *Tracker) dailyConsumption() float64 {
	sum, err := t.consumption()
	if err != nil {
		t.logger.Warn("Daily consumption unavailable", zap.Error(err))
		return 0
	}
	return sum
}

// consumption sums the doses, reporting a non-finite sum as an error.
func (t *Tracker) consumption() (float64, error) {
	var sum float64
	for _, q := range quantity.Doses() {
		sum += t.values[q]
	}
	if !isFinite(sum) {
		return 0, fmt.Errorf("sum of doses: %w", domain.ErrConsumptionOverflow)
	}
	return sum, nil
}

func (t *Tracker) daysRemaining() float64 {
	daily := t.dailyConsumption()
	if daily > 0 {
		return t.values[quantity.Supply] / daily
	}
	return Unbounded
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
