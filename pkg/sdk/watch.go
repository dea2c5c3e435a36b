package invman

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/invman/internal/domain/event"
)

const watchBuffer = 16

type subscription struct {
	ch   chan Event
	done chan struct{}
}

// watchers delivers display events to in-process subscribers.
// Slow subscribers drop events instead of blocking the tracker.
type watchers struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
	obs    *observer
}

func newWatchers(obs *observer) *watchers {
	return &watchers{
		subs: make(map[string]map[*subscription]struct{}),
		obs:  obs,
	}
}

// Publish implements display.Sink.
func (w *watchers) Publish(_ context.Context, e event.Event) error {
	ev := eventFromDomain(e)

	w.mu.Lock()
	defer w.mu.Unlock()
	for sub := range w.subs[e.Item] {
		select {
		case sub.ch <- ev:
		default:
			w.obs.droppedEvent(e.Item)
		}
	}
	return nil
}

func (w *watchers) add(item string) (*subscription, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, false
	}
	sub := &subscription{
		ch:   make(chan Event, watchBuffer),
		done: make(chan struct{}),
	}
	if w.subs[item] == nil {
		w.subs[item] = make(map[*subscription]struct{})
	}
	w.subs[item][sub] = struct{}{}
	return sub, true
}

func (w *watchers) remove(item string, sub *subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.subs[item][sub]; !ok {
		return
	}
	delete(w.subs[item], sub)
	if len(w.subs[item]) == 0 {
		delete(w.subs, item)
	}
	sub.close()
}

func (w *watchers) closeItem(item string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for sub := range w.subs[item] {
		sub.close()
	}
	delete(w.subs, item)
}

func (w *watchers) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, subs := range w.subs {
		for sub := range subs {
			sub.close()
		}
	}
	w.subs = make(map[string]map[*subscription]struct{})
	w.closed = true
}

func (s *subscription) close() {
	close(s.done)
	close(s.ch)
}

// Watch streams the display events of an item. The channel is closed when
// ctx is done, the item is removed or the Inventory is closed.
func (inv *Inventory) Watch(ctx context.Context, id string) (<-chan Event, error) {
	sub, ok := inv.watchers.add(id)
	if !ok {
		return nil, fmt.Errorf("watch %q: inventory closed", id)
	}
	// Checked after subscribing so a concurrent Remove closes the channel.
	if _, err := inv.svc.Get(ctx, id); err != nil {
		inv.watchers.remove(id, sub)
		return nil, fmt.Errorf("watch: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			inv.watchers.remove(id, sub)
		case <-sub.done:
		}
	}()
	return sub.ch, nil
}
