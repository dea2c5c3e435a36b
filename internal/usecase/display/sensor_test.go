package display

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain/event"
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/observer"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	"github.com/kailas-cloud/invman/internal/domain/tracker"
)

// --- Mocks ---

type mockSink struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (m *mockSink) Publish(_ context.Context, e event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.err
}

func (m *mockSink) last() event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[len(m.events)-1]
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// pausingSource blocks the first Snapshot taken after hold until release is closed.
type pausingSource struct {
	*tracker.Tracker
	armed   atomic.Bool
	taken   chan struct{}
	release chan struct{}
}

func newPausingSource(tr *tracker.Tracker) *pausingSource {
	return &pausingSource{Tracker: tr, taken: make(chan struct{}), release: make(chan struct{})}
}

func (s *pausingSource) hold() { s.armed.Store(true) }

func (s *pausingSource) Snapshot() tracker.Snapshot {
	snap := s.Tracker.Snapshot()
	if s.armed.CompareAndSwap(true, false) {
		close(s.taken)
		<-s.release
	}
	return snap
}

// --- Helpers ---

func newItem(t *testing.T, warn float64) item.Item {
	t.Helper()
	it, err := item.New("Aspirin", "100mg", "", warn)
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it
}

func newSource(t *testing.T, values map[quantity.Quantity]float64) *tracker.Tracker {
	t.Helper()
	tr := tracker.New("test", zap.NewNop())
	for q, v := range values {
		if err := tr.Set(q, v); err != nil {
			t.Fatalf("Set(%s): %v", q, err)
		}
	}
	return tr
}

// --- Tests ---

func TestWarningSensor(t *testing.T) {
	tests := []struct {
		name          string
		warn          float64
		values        map[quantity.Quantity]float64
		wantAvailable bool
		wantOn        bool
	}{
		{"no consumption", 3, map[quantity.Quantity]float64{quantity.Supply: 1}, false, false},
		{"empty tracker", 3, nil, false, false},
		{"plenty left", 3, map[quantity.Quantity]float64{quantity.Supply: 10, quantity.Morning: 1}, true, false},
		{"at threshold", 3, map[quantity.Quantity]float64{quantity.Supply: 3, quantity.Morning: 1}, true, false},
		{"below threshold", 3, map[quantity.Quantity]float64{quantity.Supply: 2, quantity.Morning: 1}, true, true},
		{"empty supply", 1, map[quantity.Quantity]float64{quantity.Night: 1}, true, true},
		{"zero threshold", 0, map[quantity.Quantity]float64{quantity.Night: 1}, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink := &mockSink{}
			w := NewWarningSensor(newItem(t, tc.warn), newSource(t, tc.values), sink, zap.NewNop())

			w.Refresh()

			st := w.State()
			if st.Available != tc.wantAvailable || st.On != tc.wantOn {
				t.Errorf("State() = %+v, want available=%v on=%v", st, tc.wantAvailable, tc.wantOn)
			}
			e := sink.last()
			if e.Slot != observer.Warning {
				t.Errorf("Slot = %q", e.Slot)
			}
			if e.Available != tc.wantAvailable || e.Active != tc.wantOn {
				t.Errorf("event = %+v", e)
			}
			if e.EntityID != "binary_sensor.aspirin_100mg_warning" {
				t.Errorf("EntityID = %q", e.EntityID)
			}
			if e.Item != "aspirin-100mg" {
				t.Errorf("Item = %q", e.Item)
			}
		})
	}
}

func TestWarningSensor_InitialStateUnavailable(t *testing.T) {
	w := NewWarningSensor(newItem(t, 1), newSource(t, nil), nil, nil)
	if st := w.State(); st.Available || st.On {
		t.Errorf("initial State() = %+v", st)
	}
	w.Refresh() // nil sink must not panic
}

func TestWarningSensor_SinkErrorIsSwallowed(t *testing.T) {
	sink := &mockSink{err: errors.New("redis down")}
	src := newSource(t, map[quantity.Quantity]float64{quantity.Supply: 1, quantity.Noon: 1})
	w := NewWarningSensor(newItem(t, 2), src, sink, zap.NewNop())

	w.Refresh()

	if !w.State().On {
		t.Error("state not updated after sink error")
	}
}

func TestPredictionSensor(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	sink := &mockSink{}
	src := newSource(t, map[quantity.Quantity]float64{
		quantity.Supply:  10,
		quantity.Morning: 1,
		quantity.Noon:    1,
		quantity.Evening: 1,
		quantity.Night:   1,
	})
	p := NewPredictionSensor(newItem(t, 1), src, sink, zap.NewNop()).
		WithClock(func() time.Time { return now })

	p.Refresh()

	st := p.State()
	if !st.Available {
		t.Fatal("expected available prediction")
	}
	if st.DaysRemaining != 2.5 {
		t.Errorf("DaysRemaining = %v, want 2.5", st.DaysRemaining)
	}
	want := now.Add(60 * time.Hour)
	if !st.EmptyAt.Equal(want) {
		t.Errorf("EmptyAt = %v, want %v", st.EmptyAt, want)
	}

	e := sink.last()
	if e.Slot != observer.EmptyPrediction || !e.EmptyAt.Equal(want) {
		t.Errorf("event = %+v", e)
	}
	if e.Supply != 10 || e.DailyConsumption != 4 {
		t.Errorf("event metrics = supply %v daily %v", e.Supply, e.DailyConsumption)
	}
	if !e.At.Equal(now) {
		t.Errorf("At = %v, want %v", e.At, now)
	}
	if e.EntityID != "sensor.aspirin_100mg_empty_prediction" {
		t.Errorf("EntityID = %q", e.EntityID)
	}
}

func TestPredictionSensor_Unbounded(t *testing.T) {
	sink := &mockSink{}
	p := NewPredictionSensor(newItem(t, 1), newSource(t, map[quantity.Quantity]float64{quantity.Supply: 5}), sink, nil)

	p.Refresh()

	st := p.State()
	if st.Available {
		t.Error("prediction should be unavailable without consumption")
	}
	if !st.EmptyAt.IsZero() {
		t.Errorf("EmptyAt = %v, want zero", st.EmptyAt)
	}
	if st.DaysRemaining != tracker.Unbounded {
		t.Errorf("DaysRemaining = %v", st.DaysRemaining)
	}
	if sink.last().Available {
		t.Error("event should be unavailable")
	}
}

func TestSensors_AsTrackerObservers(t *testing.T) {
	it := newItem(t, 5)
	tr := tracker.New("aspirin", zap.NewNop())
	sink := &mockSink{}

	w := NewWarningSensor(it, tr, sink, zap.NewNop())
	p := NewPredictionSensor(it, tr, sink, zap.NewNop())
	_ = tr.Register(observer.Warning, w.Refresh)
	_ = tr.Register(observer.EmptyPrediction, p.Refresh)

	_ = tr.Set(quantity.Supply, 8)
	_ = tr.Set(quantity.Morning, 2)

	if sink.count() != 4 {
		t.Fatalf("published %d events, want 4", sink.count())
	}
	if !w.State().On {
		t.Error("warning should be on: 4 days left, threshold 5")
	}
	if p.State().DaysRemaining != 4 {
		t.Errorf("DaysRemaining = %v, want 4", p.State().DaysRemaining)
	}

	_ = tr.TakeAmount(8)
	if !w.State().On || p.State().DaysRemaining != 0 {
		t.Errorf("after depletion: warning=%+v prediction=%+v", w.State(), p.State())
	}
}

func TestWarningSensor_LargeProjectionIsAvailable(t *testing.T) {
	src := newSource(t, map[quantity.Quantity]float64{quantity.Supply: 20000, quantity.Morning: 1})
	w := NewWarningSensor(newItem(t, 3), src, nil, nil)

	w.Refresh()

	if st := w.State(); !st.Available || st.On {
		t.Errorf("State() = %+v, want available and off", st)
	}
}

func TestPredictionSensor_LargeProjection(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	t.Run("beyond sentinel", func(t *testing.T) {
		src := newSource(t, map[quantity.Quantity]float64{quantity.Supply: 20000, quantity.Morning: 1})
		p := NewPredictionSensor(newItem(t, 1), src, nil, nil).WithClock(func() time.Time { return now })

		p.Refresh()

		st := p.State()
		if !st.Available || st.DaysRemaining != 20000 {
			t.Fatalf("State() = %+v", st)
		}
		if want := now.Add(20000 * 24 * time.Hour); !st.EmptyAt.Equal(want) {
			t.Errorf("EmptyAt = %v, want %v", st.EmptyAt, want)
		}
	})

	t.Run("saturates duration", func(t *testing.T) {
		src := newSource(t, map[quantity.Quantity]float64{quantity.Supply: 1e12, quantity.Night: 1})
		p := NewPredictionSensor(newItem(t, 1), src, nil, nil).WithClock(func() time.Time { return now })

		p.Refresh()

		st := p.State()
		if !st.Available {
			t.Fatal("expected available prediction")
		}
		if want := now.Add(time.Duration(math.MaxInt64)); !st.EmptyAt.Equal(want) {
			t.Errorf("EmptyAt = %v, want %v", st.EmptyAt, want)
		}
	})
}

func TestSensors_StaleRefreshDoesNotOverwrite(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, src Source, sink Sink) (refresh, check func())
	}{
		{
			name: "warning",
			build: func(t *testing.T, src Source, sink Sink) (func(), func()) {
				w := NewWarningSensor(newItem(t, 5), src, sink, zap.NewNop())
				return w.Refresh, func() {
					if st := w.State(); !st.Available || !st.On {
						t.Errorf("State() = %+v, want on from the newer snapshot", st)
					}
				}
			},
		},
		{
			name: "prediction",
			build: func(t *testing.T, src Source, sink Sink) (func(), func()) {
				p := NewPredictionSensor(newItem(t, 5), src, sink, zap.NewNop())
				return p.Refresh, func() {
					if st := p.State(); st.DaysRemaining != 1 {
						t.Errorf("DaysRemaining = %v, want 1 from the newer snapshot", st.DaysRemaining)
					}
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := newSource(t, map[quantity.Quantity]float64{quantity.Supply: 100, quantity.Morning: 1})
			src := newPausingSource(tr)
			sink := &mockSink{}
			refresh, check := tc.build(t, src, sink)

			src.hold()
			done := make(chan struct{})
			go func() {
				defer close(done)
				refresh()
			}()
			<-src.taken

			if err := tr.Set(quantity.Supply, 1); err != nil {
				t.Fatalf("Set: %v", err)
			}
			refresh()
			close(src.release)
			<-done

			check()
			if n := sink.count(); n != 1 {
				t.Errorf("published %d events, want 1", n)
			}
			if e := sink.last(); e.DaysRemaining != 1 {
				t.Errorf("last event DaysRemaining = %v, want 1", e.DaysRemaining)
			}
		})
	}
}
