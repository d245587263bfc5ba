package connectivity

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"supplyline-sync/config"
)

// Monitor tracks whether the backend is reachable by probing it on an
// interval.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client

	connected atomic.Bool
	mu        sync.Mutex
	watchers  map[chan bool]struct{}
}

// NewMonitor creates a monitor. It reports disconnected until the first probe.
func NewMonitor(cfg *config.ConnectivityConfig, timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		probeURL: cfg.ProbeURL,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		watchers: make(map[chan bool]struct{}),
	}
}

// Run probes once, then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	if m.probeURL == "" {
		log.Println("Connectivity probe URL is empty. Not starting.")
		return
	}
	log.Println("Starting connectivity monitor...")

	m.ProbeOnce(ctx)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Connectivity monitor shutting down.")
			return
		case <-timer.C:
			m.ProbeOnce(ctx)
			timer.Reset(m.interval)
		}
	}
}

// ProbeOnce checks the probe URL and records the result. Any HTTP response
// counts as reachable; transport failures do not.
func (m *Monitor) ProbeOnce(ctx context.Context) bool {
	ok := m.probe(ctx)
	m.Set(ok)
	return ok
}

func (m *Monitor) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.probeURL, nil)
	if err != nil {
		log.Printf("Warning: invalid connectivity probe URL %q: %v", m.probeURL, err)
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Set records the connectivity state and notifies watchers when it changes.
func (m *Monitor) Set(connected bool) {
	if m.connected.Swap(connected) == connected {
		return
	}
	if connected {
		log.Println("Backend is reachable")
	} else {
		log.Println("Warning: backend is unreachable")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.watchers {
		select {
		case ch <- connected:
		default:
			// Drop the stale value so the watcher sees the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- connected
		}
	}
}

// IsConnected returns the result of the most recent probe.
func (m *Monitor) IsConnected() bool {
	return m.connected.Load()
}

// Watch emits the current state, then every change, until ctx is done.
// Repeated values are never emitted back to back.
func (m *Monitor) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)
	m.mu.Lock()
	ch <- m.connected.Load()
	m.watchers[ch] = struct{}{}
	m.mu.Unlock()

	out := make(chan bool)
	go func() {
		defer close(out)
		defer func() {
			m.mu.Lock()
			delete(m.watchers, ch)
			m.mu.Unlock()
		}()

		last, first := false, true
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-ch:
				if !first && v == last {
					continue
				}
				first, last = false, v
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
