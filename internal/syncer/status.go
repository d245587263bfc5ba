package syncer

import (
	"sort"
	"sync"
	"time"
)

// State is the lifecycle position of a registered sync work.
type State string

const (
	StateEnqueued  State = "ENQUEUED"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateRetrying  State = "RETRYING"
	StateCancelled State = "CANCELLED"
)

// Event reports a state change of one unique work.
type Event struct {
	Name    string    `json:"name"`
	Type    Type      `json:"type"`
	State   State     `json:"state"`
	Attempt int       `json:"attempt"`
	Time    time.Time `json:"time"`
	Error   string    `json:"error,omitempty"`
}

// statusBoard keeps the latest event per work name and fans events out to
// subscribers.
type statusBoard struct {
	mu     sync.Mutex
	latest map[string]Event
	subs   map[chan Event]struct{}
}

func newStatusBoard() *statusBoard {
	return &statusBoard{
		latest: make(map[string]Event),
		subs:   make(map[chan Event]struct{}),
	}
}

func (b *statusBoard) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest[e.Name] = e
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Slow subscribers miss events; Latest still has the state.
		}
	}
}

func (b *statusBoard) subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
		})
	}
}

func (b *statusBoard) get(name string) (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.latest[name]
	return e, ok
}

func (b *statusBoard) all() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := make([]Event, 0, len(b.latest))
	for _, e := range b.latest {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })
	return events
}
