package display

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain/event"
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/observer"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	"github.com/kailas-cloud/invman/internal/domain/tracker"
)

const defaultPublishTimeout = 2 * time.Second

// WarningState is the problem indicator of an item.
type WarningState struct {
	Available bool
	On        bool
}

// PredictionState is the projected depletion of an item.
type PredictionState struct {
	Available     bool
	DaysRemaining float64
	EmptyAt       time.Time
}

// sensor holds what both displays share: identity, source, sink and clock.
type sensor struct {
	item     item.Item
	entityID string
	src      Source
	sink     Sink
	now      func() time.Time
	timeout  time.Duration
	logger   *zap.Logger
}

func newSensor(it item.Item, slot observer.Slot, src Source, sink Sink, logger *zap.Logger) sensor {
	if logger == nil {
		logger = zap.NewNop()
	}
	entityID := ""
	for _, e := range it.Entities() {
		if e.Kind == slot.String() {
			entityID = e.EntityID
		}
	}
	return sensor{
		item:     it,
		entityID: entityID,
		src:      src,
		sink:     sink,
		now:      time.Now,
		timeout:  defaultPublishTimeout,
		logger:   logger.With(zap.String("entity_id", entityID)),
	}
}

func (s *sensor) event(slot observer.Slot, snap tracker.Snapshot) event.Event {
	return event.Event{
		Item:             s.item.ID(),
		EntityID:         s.entityID,
		Slot:             slot,
		Supply:           snap.Values[quantity.Supply],
		DailyConsumption: snap.DailyConsumption,
		DaysRemaining:    snap.DaysRemaining,
		At:               s.now(),
	}
}

// publish never fails the refresh; sink errors are logged.
func (s *sensor) publish(e event.Event) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.sink.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish display state", zap.Error(err))
	}
}

// WarningSensor turns on when the item runs out within its warning threshold.
type WarningSensor struct {
	sensor
	mu      sync.Mutex
	state   WarningState
	applied uint64
}

// NewWarningSensor creates a warning display. sink may be nil.
func NewWarningSensor(it item.Item, src Source, sink Sink, logger *zap.Logger) *WarningSensor {
	return &WarningSensor{sensor: newSensor(it, observer.Warning, src, sink, logger)}
}

// Refresh recomputes the state from the source and publishes it.
func (w *WarningSensor) Refresh() {
	snap := w.src.Snapshot()

	var st WarningState
	if snap.Projectable {
		st.Available = true
		st.On = snap.DaysRemaining < w.item.WarnBeforeEmpty()
	}

	w.mu.Lock()
	if snap.Seq < w.applied {
		w.mu.Unlock()
		w.logger.Debug("Dropping stale warning refresh", zap.Uint64("seq", snap.Seq))
		return
	}
	w.state = st
	w.applied = snap.Seq
	w.mu.Unlock()

	w.logger.Debug("Warning refreshed",
		zap.Bool("available", st.Available),
		zap.Bool("on", st.On),
		zap.Float64("days_remaining", snap.DaysRemaining),
	)

	e := w.event(observer.Warning, snap)
	e.Available = st.Available
	e.Active = st.On
	w.publish(e)
}

// State returns the last refreshed state.
func (w *WarningSensor) State() WarningState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// PredictionSensor projects the date on which the supply runs out.
type PredictionSensor struct {
	sensor
	mu      sync.Mutex
	state   PredictionState
	applied uint64
}

// NewPredictionSensor creates a depletion prediction display. sink may be nil.
func NewPredictionSensor(it item.Item, src Source, sink Sink, logger *zap.Logger) *PredictionSensor {
	return &PredictionSensor{sensor: newSensor(it, observer.EmptyPrediction, src, sink, logger)}
}

// WithClock overrides the time source.
func (p *PredictionSensor) WithClock(now func() time.Time) *PredictionSensor {
	p.now = now
	return p
}

// Refresh recomputes the projection from the source and publishes it.
func (p *PredictionSensor) Refresh() {
	snap := p.src.Snapshot()

	st := PredictionState{DaysRemaining: snap.DaysRemaining}
	if snap.Projectable {
		st.Available = true
		st.EmptyAt = p.now().Add(untilEmpty(snap.DaysRemaining))
	}

	p.mu.Lock()
	if snap.Seq < p.applied {
		p.mu.Unlock()
		p.logger.Debug("Dropping stale prediction refresh", zap.Uint64("seq", snap.Seq))
		return
	}
	p.state = st
	p.applied = snap.Seq
	p.mu.Unlock()

	p.logger.Debug("Prediction refreshed",
		zap.Bool("available", st.Available),
		zap.Float64("days_remaining", snap.DaysRemaining),
	)

	e := p.event(observer.EmptyPrediction, snap)
	e.Available = st.Available
	e.EmptyAt = st.EmptyAt
	p.publish(e)
}

// State returns the last refreshed state.
func (p *PredictionSensor) State() PredictionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// untilEmpty converts days to a duration, saturating at the largest one.
func untilEmpty(days float64) time.Duration {
	d := days * float64(24*time.Hour)
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
