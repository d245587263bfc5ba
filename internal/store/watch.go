package store

import (
	"context"
	"log"
	"reflect"
	"sync"
)

// Table names a local table whose changes can be observed.
type Table string

const (
	TableUsers     Table = "users"
	TableTools     Table = "tools"
	TableCheckouts Table = "tool_checkouts"
	TableChemicals Table = "chemicals"
	TableIssuances Table = "chemical_issuances"
)

// Subscriber delivers a signal after every committed write to a table.
type Subscriber interface {
	Subscribe(tables ...Table) (<-chan struct{}, func())
}

type hub struct {
	mu   sync.Mutex
	subs map[Table]map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[Table]map[chan struct{}]struct{})}
}

// subscribe registers a coalescing signal channel for the given tables.
func (h *hub) subscribe(tables ...Table) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	for _, t := range tables {
		if h.subs[t] == nil {
			h.subs[t] = make(map[chan struct{}]struct{})
		}
		h.subs[t][ch] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, t := range tables {
				delete(h.subs[t], ch)
			}
		})
	}
}

// publish signals every subscriber of the given tables. A pending signal
// already covers later writes, so sends never block.
func (h *hub) publish(tables ...Table) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range tables {
		for ch := range h.subs[t] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Watch runs query once and again after every change to tables, emitting each
// snapshot that differs from the previous one. The channel is closed when ctx
// is done.
func Watch[T any](ctx context.Context, sub Subscriber, query func(context.Context) (T, error), tables ...Table) <-chan T {
	out := make(chan T)
	changed, unsubscribe := sub.Subscribe(tables...)

	go func() {
		defer close(out)
		defer unsubscribe()

		var last T
		sent := false
		for {
			snapshot, err := query(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return
				}
				log.Printf("Warning: watch query on %v failed: %v", tables, err)
			case !sent || !reflect.DeepEqual(last, snapshot):
				select {
				case out <- snapshot:
					last, sent = snapshot, true
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
