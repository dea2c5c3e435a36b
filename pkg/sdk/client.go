package invman

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/invman/internal/db"
	dbRedis "github.com/kailas-cloud/invman/internal/db/redis"
	"github.com/kailas-cloud/invman/internal/domain/item"
	"github.com/kailas-cloud/invman/internal/domain/quantity"
	eventsrepo "github.com/kailas-cloud/invman/internal/repository/events"
	"github.com/kailas-cloud/invman/internal/usecase/display"
	healthuc "github.com/kailas-cloud/invman/internal/usecase/health"
	inventoryuc "github.com/kailas-cloud/invman/internal/usecase/inventory"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "invman:"
)

type inventoryUseCase interface {
	Register(ctx context.Context, it item.Item, initial map[quantity.Quantity]float64) (inventoryuc.Status, error)
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (inventoryuc.Status, error)
	List(ctx context.Context) []inventoryuc.Status
	Set(ctx context.Context, id string, q quantity.Quantity, v float64) (inventoryuc.Status, error)
	TakeDose(ctx context.Context, id string, dose quantity.Quantity) (inventoryuc.Status, error)
	TakeAmount(ctx context.Context, id string, amount float64) (inventoryuc.Status, error)
	Restock(ctx context.Context, id string, amount float64) (inventoryuc.Status, error)
}

// Inventory is the invman SDK entry point. It is safe for concurrent use.
type Inventory struct {
	store     db.Store // nil without WithRedis
	svc       inventoryUseCase
	healthSvc healthUseCase
	watchers  *watchers
	obs       *observer
}

// New creates an Inventory. With WithRedis it connects to the event backend;
// the provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Inventory, error) {
	cfg := &config{
		keyPrefix: defaultKeyPrefix,
		now:       time.Now,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("invman: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("invman: event backend not ready: %w", err)
		}
		store = s
	}

	return wireInventory(store, cfg, obs), nil
}

func wireInventory(store db.Store, cfg *config, obs *observer) *Inventory {
	w := newWatchers(obs)
	sinks := display.Fanout{w}

	// Pass nil interface (not typed nil pointer) when no event backend is configured.
	var pinger healthuc.Pinger
	if store != nil {
		sinks = append(sinks, eventsrepo.New(store, cfg.keyPrefix, nil))
		pinger = store
	}

	svc := inventoryuc.New(sinks, nil).
		WithClock(cfg.now).
		WithRemoveHook(w.closeItem)

	return &Inventory{
		store:     store,
		svc:       svc,
		healthSvc: healthuc.New(pinger, svc),
		watchers:  w,
		obs:       obs,
	}
}

// Close ends all watches and releases the event backend.
func (inv *Inventory) Close() {
	inv.watchers.closeAll()
	if inv.store != nil {
		inv.store.Close()
	}
}

// Register adds an item. Quantities not listed start at 0.
func (inv *Inventory) Register(ctx context.Context, it Item) (st Status, err error) {
	start := time.Now()
	defer func() { inv.obs.observe("register", st.ID, start, err) }()

	domItem, err := item.New(it.Name, it.Size, it.Vendor, it.WarnBeforeEmpty)
	if err != nil {
		return Status{}, fmt.Errorf("register: %w", err)
	}
	initial := make(map[quantity.Quantity]float64, len(it.Quantities))
	for k, v := range it.Quantities {
		q, err := quantity.Parse(string(k))
		if err != nil {
			return Status{}, fmt.Errorf("register %q: %w", domItem.ID(), err)
		}
		initial[q] = v
	}

	res, err := inv.svc.Register(ctx, domItem, initial)
	if err != nil {
		return Status{}, fmt.Errorf("register: %w", err)
	}
	return statusFromDomain(res), nil
}

// Item returns the state of one item.
func (inv *Inventory) Item(ctx context.Context, id string) (Status, error) {
	res, err := inv.svc.Get(ctx, id)
	if err != nil {
		return Status{}, fmt.Errorf("get: %w", err)
	}
	return statusFromDomain(res), nil
}

// Items returns all items ordered by ID.
func (inv *Inventory) Items(ctx context.Context) []Status {
	list := inv.svc.List(ctx)
	out := make([]Status, len(list))
	for i, st := range list {
		out[i] = statusFromDomain(st)
	}
	return out
}

// Remove unloads an item and ends its watches.
func (inv *Inventory) Remove(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { inv.obs.observe("remove", id, start, err) }()

	if err = inv.svc.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Set stores a quantity. Negative values are stored as 0.
func (inv *Inventory) Set(ctx context.Context, id string, q Quantity, v float64) (st Status, err error) {
	start := time.Now()
	defer func() { inv.obs.observe("set", id, start, err) }()

	res, err := inv.svc.Set(ctx, id, quantity.Quantity(q), v)
	if err != nil {
		return Status{}, fmt.Errorf("set: %w", err)
	}
	return statusFromDomain(res), nil
}

// TakeDose consumes the dose amount stored for dose. Anything but
// Morning, Noon, Evening or Night is ignored.
func (inv *Inventory) TakeDose(ctx context.Context, id string, dose Quantity) (st Status, err error) {
	start := time.Now()
	defer func() { inv.obs.observe("take_dose", id, start, err) }()

	res, err := inv.svc.TakeDose(ctx, id, quantity.Quantity(dose))
	if err != nil {
		return Status{}, fmt.Errorf("take dose: %w", err)
	}
	return statusFromDomain(res), nil
}

// TakeAmount consumes amount from the supply, which never drops below 0.
func (inv *Inventory) TakeAmount(ctx context.Context, id string, amount float64) (st Status, err error) {
	start := time.Now()
	defer func() { inv.obs.observe("take_amount", id, start, err) }()

	res, err := inv.svc.TakeAmount(ctx, id, amount)
	if err != nil {
		return Status{}, fmt.Errorf("take amount: %w", err)
	}
	return statusFromDomain(res), nil
}

// Restock adds a positive amount to the supply.
func (inv *Inventory) Restock(ctx context.Context, id string, amount float64) (st Status, err error) {
	start := time.Now()
	defer func() { inv.obs.observe("restock", id, start, err) }()

	res, err := inv.svc.Restock(ctx, id, amount)
	if err != nil {
		return Status{}, fmt.Errorf("restock: %w", err)
	}
	return statusFromDomain(res), nil
}
