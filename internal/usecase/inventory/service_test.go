package inventory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain"
	"github.com/kailas-cloud/invman/internal/domain/event"
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	"github.com/kailas-cloud/invman/internal/domain/tracker"
)

// --- Mocks ---

type mockSink struct {
	mu     sync.Mutex
	events []event.Event
}

func (m *mockSink) Publish(_ context.Context, e event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// seedingSink inspects the service from inside the first display refresh of Register.
type seedingSink struct {
	svc  *Service
	item item.Item
	once sync.Once

	getErr      error
	registerErr error
	listed      int
}

func (s *seedingSink) Publish(ctx context.Context, _ event.Event) error {
	s.once.Do(func() {
		_, s.getErr = s.svc.Get(ctx, s.item.ID())
		_, s.registerErr = s.svc.Register(ctx, s.item, nil)
		s.listed = len(s.svc.List(ctx))
	})
	return nil
}

// --- Helpers ---

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(sink *mockSink) *Service {
	return New(sink, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

func mustItem(t *testing.T, name, size string, warn float64) item.Item {
	t.Helper()
	it, err := item.New(name, size, "", warn)
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it
}

// --- Tests ---

func TestRegister(t *testing.T) {
	sink := &mockSink{}
	svc := newService(sink)

	st, err := svc.Register(context.Background(), mustItem(t, "Aspirin", "", 3), map[quantity.Quantity]float64{
		quantity.Supply:  10,
		quantity.Morning: 1,
		quantity.Noon:    1,
		quantity.Evening: 1,
		quantity.Night:   1,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if st.Snapshot.DaysRemaining != 2.5 {
		t.Errorf("DaysRemaining = %v, want 2.5", st.Snapshot.DaysRemaining)
	}
	if !st.Warning.Available || !st.Warning.On {
		t.Errorf("Warning = %+v, want available and on", st.Warning)
	}
	want := fixedNow.Add(60 * time.Hour)
	if !st.Prediction.EmptyAt.Equal(want) {
		t.Errorf("EmptyAt = %v, want %v", st.Prediction.EmptyAt, want)
	}
	// one initial refresh per display, seeding happens before observers attach
	if sink.count() != 2 {
		t.Errorf("published %d events, want 2", sink.count())
	}
}

func TestRegister_Duplicate(t *testing.T) {
	svc := newService(&mockSink{})
	ctx := context.Background()

	if _, err := svc.Register(ctx, mustItem(t, "Aspirin", "100mg", 1), nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, mustItem(t, "ASPIRIN", "100MG", 2), nil)
	if !errors.Is(err, domain.ErrItemAlreadyExists) {
		t.Fatalf("expected ErrItemAlreadyExists, got %v", err)
	}
}

func TestRegister_NotVisibleUntilSeeded(t *testing.T) {
	it := mustItem(t, "Aspirin", "100mg", 3)
	sink := &seedingSink{item: it}
	svc := New(sink, zap.NewNop())
	sink.svc = svc
	ctx := context.Background()

	st, err := svc.Register(ctx, it, map[quantity.Quantity]float64{quantity.Supply: 2, quantity.Morning: 1})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !errors.Is(sink.getErr, domain.ErrItemNotFound) {
		t.Errorf("Get during seeding = %v, want ErrItemNotFound", sink.getErr)
	}
	if sink.listed != 0 {
		t.Errorf("List during seeding returned %d items, want 0", sink.listed)
	}
	if !errors.Is(sink.registerErr, domain.ErrItemAlreadyExists) {
		t.Errorf("Register during seeding = %v, want ErrItemAlreadyExists", sink.registerErr)
	}

	got, err := svc.Get(ctx, it.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Snapshot.Values[quantity.Supply] != 2 || !got.Warning.On || !got.Prediction.Available {
		t.Errorf("Get after Register = %+v", got)
	}
	if st.Snapshot.Seq != got.Snapshot.Seq {
		t.Errorf("returned Seq %d differs from stored %d", st.Snapshot.Seq, got.Snapshot.Seq)
	}
}

func TestRegister_InvalidInitial(t *testing.T) {
	svc := newService(&mockSink{})
	ctx := context.Background()

	_, err := svc.Register(ctx, mustItem(t, "A", "", 1), map[quantity.Quantity]float64{"warning": 1})
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}

	_, err = svc.Register(ctx, mustItem(t, "B", "", 1), map[quantity.Quantity]float64{quantity.Supply: math.NaN()})
	if !errors.Is(err, domain.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}

	if len(svc.List(ctx)) != 0 {
		t.Error("rejected items must not be registered")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := newService(&mockSink{})
	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestList_SortedByID(t *testing.T) {
	svc := newService(&mockSink{})
	ctx := context.Background()
	for _, name := range []string{"Zinc", "Aspirin", "Melatonin"} {
		if _, err := svc.Register(ctx, mustItem(t, name, "", 1), nil); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	list := svc.List(ctx)
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	want := []string{"aspirin", "melatonin", "zinc"}
	for i, st := range list {
		if st.Item.ID() != want[i] {
			t.Errorf("list[%d] = %q, want %q", i, st.Item.ID(), want[i])
		}
	}
}

func TestSet_RefreshesDisplays(t *testing.T) {
	sink := &mockSink{}
	svc := newService(sink)
	ctx := context.Background()
	_, _ = svc.Register(ctx, mustItem(t, "Aspirin", "", 2), map[quantity.Quantity]float64{quantity.Supply: 1})
	before := sink.count()

	st, err := svc.Set(ctx, "aspirin", quantity.Morning, 1)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !st.Warning.On {
		t.Errorf("Warning = %+v, want on", st.Warning)
	}
	if sink.count()-before != 2 {
		t.Errorf("published %d events, want 2", sink.count()-before)
	}
}

func TestSet_Errors(t *testing.T) {
	svc := newService(&mockSink{})
	ctx := context.Background()
	_, _ = svc.Register(ctx, mustItem(t, "Aspirin", "", 2), nil)

	if _, err := svc.Set(ctx, "aspirin", "empty_prediction", 1); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Set(ctx, "nope", quantity.Supply, 1); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestTakeDose(t *testing.T) {
	svc := newService(&mockSink{})
	ctx := context.Background()
	_, _ = svc.Register(ctx, mustItem(t, "Aspirin", "", 2), map[quantity.Quantity]float64{
		quantity.Supply:  5,
		quantity.Evening: 2,
	})

	st, err := svc.TakeDose(ctx, "aspirin", quantity.Evening)
	if err != nil {
		t.Fatalf("TakeDose: %v", err)
	}
	if st.Snapshot.Values[quantity.Supply] != 3 {
		t.Errorf("supply = %v, want 3", st.Snapshot.Values[quantity.Supply])
	}

	st, err = svc.TakeDose(ctx, "aspirin", "lunch")
	if err != nil {
		t.Fatalf("invalid dose must be ignored, got %v", err)
	}
	if st.Snapshot.Values[quantity.Supply] != 3 {
		t.Errorf("supply changed by invalid dose: %v", st.Snapshot.Values[quantity.Supply])
	}
}

func TestTakeAmount(t *testing.T) {
	svc := newService(&mockSink{})
	ctx := context.Background()
	_, _ = svc.Register(ctx, mustItem(t, "Aspirin", "", 2), map[quantity.Quantity]float64{quantity.Supply: 3})

	st, err := svc.TakeAmount(ctx, "aspirin", 5)
	if err != nil {
		t.Fatalf("TakeAmount: %v", err)
	}
	if st.Snapshot.Values[quantity.Supply] != 0 {
		t.Errorf("supply = %v, want 0", st.Snapshot.Values[quantity.Supply])
	}

	if _, err := svc.TakeAmount(ctx, "aspirin", math.Inf(1)); !errors.Is(err, domain.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestRestock(t *testing.T) {
	svc := newService(&mockSink{})
	ctx := context.Background()
	_, _ = svc.Register(ctx, mustItem(t, "Aspirin", "", 2), map[quantity.Quantity]float64{quantity.Supply: 3})

	st, err := svc.Restock(ctx, "aspirin", 30)
	if err != nil {
		t.Fatalf("Restock: %v", err)
	}
	if st.Snapshot.Values[quantity.Supply] != 33 {
		t.Errorf("supply = %v, want 33", st.Snapshot.Values[quantity.Supply])
	}

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := svc.Restock(ctx, "aspirin", bad); !errors.Is(err, domain.ErrInvalidValue) {
			t.Errorf("Restock(%v) error = %v, want ErrInvalidValue", bad, err)
		}
	}
}

func TestRemove(t *testing.T) {
	sink := &mockSink{}
	svc := newService(sink)
	ctx := context.Background()
	_, _ = svc.Register(ctx, mustItem(t, "Aspirin", "", 2), nil)

	if err := svc.Remove(ctx, "aspirin"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.Get(ctx, "aspirin"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound after remove, got %v", err)
	}
	if err := svc.Remove(ctx, "aspirin"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("second Remove: expected ErrItemNotFound, got %v", err)
	}

	// re-registration after unload is allowed
	if _, err := svc.Register(ctx, mustItem(t, "Aspirin", "", 2), nil); err != nil {
		t.Errorf("re-register: %v", err)
	}
}

func TestStatus_UnboundedWithoutDoses(t *testing.T) {
	svc := newService(&mockSink{})
	st, _ := svc.Register(context.Background(), mustItem(t, "Aspirin", "", 2), map[quantity.Quantity]float64{
		quantity.Supply: 5,
	})
	if st.Snapshot.DaysRemaining != tracker.Unbounded {
		t.Errorf("DaysRemaining = %v", st.Snapshot.DaysRemaining)
	}
	if st.Warning.Available || st.Prediction.Available {
		t.Errorf("displays should be unavailable: %+v %+v", st.Warning, st.Prediction)
	}
}

func TestNilSink(t *testing.T) {
	svc := New(nil, nil)
	ctx := context.Background()
	if _, err := svc.Register(ctx, mustItem(t, "Aspirin", "", 2), nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Set(ctx, "aspirin", quantity.Supply, 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestRemove_RunsHooks(t *testing.T) {
	var removed []string
	svc := newService(&mockSink{}).WithRemoveHook(func(id string) { removed = append(removed, id) })
	ctx := context.Background()
	_, _ = svc.Register(ctx, mustItem(t, "Aspirin", "", 2), nil)

	_ = svc.Remove(ctx, "aspirin")
	_ = svc.Remove(ctx, "aspirin")

	if len(removed) != 1 || removed[0] != "aspirin" {
		t.Errorf("hooks ran for %v, want [aspirin]", removed)
	}
}
