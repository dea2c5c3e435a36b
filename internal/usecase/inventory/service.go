package inventory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain"
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/observer"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	"github.com/kailas-cloud/invman/internal/domain/tracker"
	"github.com/kailas-cloud/invman/internal/usecase/display"
)

type entry struct {
	item       item.Item
	tracker    *tracker.Tracker
	warning    *display.WarningSensor
	prediction *display.PredictionSensor
}

func (e *entry) status() Status {
	return Status{
		Item:       e.item,
		Snapshot:   e.tracker.Snapshot(),
		Warning:    e.warning.State(),
		Prediction: e.prediction.State(),
	}
}

// Service owns the trackers of all registered items and wires their displays.
type Service struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	pending  map[string]struct{}
	sink     display.Sink
	now      func() time.Time
	onRemove []func(id string)
	logger   *zap.Logger
}

// New creates a Service. sink can be nil (displays are kept in memory only).
func New(sink display.Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		entries: make(map[string]*entry),
		pending: make(map[string]struct{}),
		sink:    sink,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock overrides the time source of depletion predictions.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRemoveHook adds fn to the hooks run after an item is removed.
func (s *Service) WithRemoveHook(fn func(id string)) *Service {
	s.onRemove = append(s.onRemove, fn)
	return s
}

// Register adds an item with optional initial quantities and refreshes its displays.
func (s *Service) Register(
	_ context.Context, it item.Item, initial map[quantity.Quantity]float64,
) (Status, error) {
	for q, v := range initial {
		if !q.IsValid() {
			return Status{}, domain.NewInvalidQuantity(string(q))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Status{}, fmt.Errorf("initial %s: %w", q, domain.ErrInvalidValue)
		}
	}

	// The ID is reserved while the item is seeded; it becomes visible only
	// once its displays reflect the initial values.
	s.mu.Lock()
	_, exists := s.entries[it.ID()]
	_, seeding := s.pending[it.ID()]
	if exists || seeding {
		s.mu.Unlock()
		return Status{}, fmt.Errorf("register %q: %w", it.ID(), domain.ErrItemAlreadyExists)
	}
	s.pending[it.ID()] = struct{}{}
	s.mu.Unlock()

	logger := s.logger.With(zap.String("item", it.ID()))
	tr := tracker.New(it.ID(), logger)
	e := &entry{
		item:       it,
		tracker:    tr,
		warning:    display.NewWarningSensor(it, tr, s.sink, logger),
		prediction: display.NewPredictionSensor(it, tr, s.sink, logger).WithClock(s.now),
	}

	// Seed values before attaching observers so the displays refresh once.
	for _, q := range quantity.All() {
		if v, ok := initial[q]; ok {
			_ = tr.Set(q, v)
		}
	}
	_ = tr.Register(observer.EmptyPrediction, e.prediction.Refresh)
	_ = tr.Register(observer.Warning, e.warning.Refresh)
	e.prediction.Refresh()
	e.warning.Refresh()
	st := e.status()

	s.mu.Lock()
	delete(s.pending, it.ID())
	s.entries[it.ID()] = e
	s.mu.Unlock()

	logger.Info("Item registered",
		zap.String("name", it.DisplayName()),
		zap.Float64("warn_before_empty", it.WarnBeforeEmpty()),
	)
	return st, nil
}

// Remove unloads an item and detaches its displays.
func (s *Service) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("remove %q: %w", id, domain.ErrItemNotFound)
	}
	for _, slot := range observer.Slots() {
		e.tracker.Unregister(slot)
	}
	for _, fn := range s.onRemove {
		fn(id)
	}
	s.logger.Info("Item removed", zap.String("item", id))
	return nil
}

// Get returns the status of an item.
func (s *Service) Get(_ context.Context, id string) (Status, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Status{}, err
	}
	return e.status(), nil
}

// List returns the status of all items ordered by ID.
func (s *Service) List(_ context.Context) []Status {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].item.ID() < entries[j].item.ID() })

	out := make([]Status, len(entries))
	for i, e := range entries {
		out[i] = e.status()
	}
	return out
}

// Set stores a quantity of an item.
func (s *Service) Set(_ context.Context, id string, q quantity.Quantity, v float64) (Status, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Status{}, err
	}
	if err := e.tracker.Set(q, v); err != nil {
		return Status{}, fmt.Errorf("set %s of %q: %w", q, id, err)
	}
	return e.status(), nil
}

// TakeDose consumes one dose of an item. Unknown dose tags are ignored.
func (s *Service) TakeDose(_ context.Context, id string, dose quantity.Quantity) (Status, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Status{}, err
	}
	e.tracker.TakeDose(dose)
	return e.status(), nil
}

// TakeAmount consumes an arbitrary amount of an item.
func (s *Service) TakeAmount(_ context.Context, id string, amount float64) (Status, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Status{}, err
	}
	if err := e.tracker.TakeAmount(amount); err != nil {
		return Status{}, fmt.Errorf("take from %q: %w", id, err)
	}
	return e.status(), nil
}

// Restock adds a positive amount to the supply of an item.
func (s *Service) Restock(ctx context.Context, id string, amount float64) (Status, error) {
	if !(amount > 0) || math.IsInf(amount, 0) {
		return Status{}, fmt.Errorf("restock %q by %v: %w", id, amount, domain.ErrInvalidValue)
	}
	return s.TakeAmount(ctx, id, -amount)
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("item %q: %w", id, domain.ErrItemNotFound)
	}
	return e, nil
}

// Count returns the number of registered items.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
