package syncer

import (
	"context"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"supplyline-sync/config"
)

const (
	// PeriodicWorkName identifies the recurring full sync.
	PeriodicWorkName = "sync_work"
	// OneShotWorkName identifies a user-triggered full sync.
	OneShotWorkName = "sync_now"
)

// OneShotName is the unique work name of a user-triggered sync of type t.
func OneShotName(t Type) string {
	return OneShotWorkName + "_" + string(t)
}

// work is one unique registration.
type work struct {
	name                 string
	typ                  Type
	periodic             bool
	requireBatteryNotLow bool
	ctx                  context.Context
	cancel               context.CancelFunc
}

// Scheduler registers periodic and one-shot sync works and runs them on a
// worker pool once their constraints hold.
type Scheduler struct {
	cfg     config.SyncConfig
	network Connectivity
	battery Battery
	metrics *Metrics
	now     func() time.Time
	poll    time.Duration

	pool  *WorkerPool
	board *statusBoard

	mu    sync.Mutex
	ctx   context.Context
	stop  context.CancelFunc
	works map[string]*work
	wg    sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithBattery(b Battery) Option {
	return func(s *Scheduler) { s.battery = b }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPollInterval sets how often unmet constraints are re-checked.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.poll = d }
}

// NewScheduler creates a scheduler that executes runs with runner.
func NewScheduler(cfg config.SyncConfig, runner Runner, network Connectivity, opts ...Option) *Scheduler {
	ctx, stop := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:     cfg,
		network: network,
		now:     func() time.Time { return time.Now().UTC() },
		poll:    5 * time.Second,
		board:   newStatusBoard(),
		ctx:     ctx,
		stop:    stop,
		works:   make(map[string]*work),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Workers <= 0 {
		s.cfg.Workers = 1
	}
	if s.cfg.BackoffBase <= 0 {
		s.cfg.BackoffBase = 30 * time.Second
	}
	if s.cfg.Period <= 0 {
		s.cfg.Period = 15 * time.Minute
	}
	if s.cfg.BackoffCap < s.cfg.BackoffBase {
		s.cfg.BackoffCap = s.cfg.BackoffBase
	}
	s.pool = newWorkerPool(s.cfg.Workers, runner, s.metrics, s.report)
	return s
}

// Start launches the worker pool. The scheduler stops when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.pool.Start(s.ctx)
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
}

// Stop cancels every registration and waits for their loops to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for name, w := range s.works {
		s.cancelLocked(name, w)
	}
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
}

// SchedulePeriodicSync registers the recurring full sync. An existing
// registration is kept; the return value reports whether a new one was made.
func (s *Scheduler) SchedulePeriodicSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.works[PeriodicWorkName]; ok {
		return false
	}
	s.registerLocked(PeriodicWorkName, TypeAll, true, s.cfg.RequireBatteryNotLow)
	log.Printf("Scheduled periodic sync every %s (flex %s)", s.cfg.Period, s.cfg.Flex)
	return true
}

// SyncNow replaces any pending user-triggered full sync with a new one.
func (s *Scheduler) SyncNow() {
	s.enqueueOneShot(OneShotWorkName, TypeAll)
}

// SyncNowType replaces any pending user-triggered sync of type t.
func (s *Scheduler) SyncNowType(t Type) {
	s.enqueueOneShot(OneShotName(t), t)
}

func (s *Scheduler) enqueueOneShot(name string, t Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.works[name]; ok {
		s.cancelLocked(name, old)
	}
	s.registerLocked(name, t, false, false)
}

// CancelSync removes the periodic registration and every one-shot
// registration.
func (s *Scheduler) CancelSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, w := range s.works {
		if name == PeriodicWorkName || strings.HasPrefix(name, OneShotWorkName) {
			s.cancelLocked(name, w)
		}
	}
}

// Registered reports whether a work with the given name is registered.
func (s *Scheduler) Registered(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.works[name]
	return ok
}

// Subscribe streams state changes of every work. Events are dropped for a
// subscriber that falls behind.
func (s *Scheduler) Subscribe() (<-chan Event, func()) {
	return s.board.subscribe(64)
}

// Status returns the latest event of the named work.
func (s *Scheduler) Status(name string) (Event, bool) {
	return s.board.get(name)
}

// Statuses returns the latest event of every work seen so far, by name.
func (s *Scheduler) Statuses() []Event {
	return s.board.all()
}

// IsRunning reports whether any work is currently executing.
func (s *Scheduler) IsRunning() bool {
	for _, e := range s.board.all() {
		if e.State == StateRunning {
			return true
		}
	}
	return false
}

func (s *Scheduler) registerLocked(name string, t Type, periodic, requireBatteryNotLow bool) {
	ctx, cancel := context.WithCancel(s.ctx)
	w := &work{
		name:                 name,
		typ:                  t,
		periodic:             periodic,
		requireBatteryNotLow: requireBatteryNotLow,
		ctx:                  ctx,
		cancel:               cancel,
	}
	s.works[name] = w
	s.board.publish(Event{Name: name, Type: t, State: StateEnqueued, Attempt: 1, Time: s.now()})

	s.wg.Add(1)
	go s.drive(w)
}

func (s *Scheduler) cancelLocked(name string, w *work) {
	delete(s.works, name)
	w.cancel()
	s.board.publish(Event{Name: name, Type: w.typ, State: StateCancelled, Time: s.now()})
}

// report publishes an event for w unless w has been cancelled or replaced.
func (s *Scheduler) report(w *work, state State, attempt int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.works[w.name] != w {
		return
	}
	e := Event{Name: w.name, Type: w.typ, State: state, Attempt: attempt, Time: s.now()}
	if err != nil {
		e.Error = err.Error()
	}
	s.board.publish(e)
}

func (s *Scheduler) finish(w *work) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.works[w.name] == w {
		delete(s.works, w.name)
	}
	w.cancel()
}

func (s *Scheduler) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(s.cfg.BackoffCap, retry.NewExponential(s.cfg.BackoffBase))
}

// nextPeriod picks the next periodic start inside the flex window at the
// end of the period.
func (s *Scheduler) nextPeriod() time.Duration {
	flex := s.cfg.Flex
	if flex > s.cfg.Period {
		flex = s.cfg.Period
	}
	if flex < 0 {
		flex = 0
	}
	return s.cfg.Period - flex + rand.N(flex+1)
}

func (s *Scheduler) constraintsMet(w *work) bool {
	if !s.network.IsConnected() {
		return false
	}
	if w.requireBatteryNotLow && s.battery != nil && s.battery.IsBatteryLow() {
		return false
	}
	return true
}

// drive runs w until it completes or is cancelled.
func (s *Scheduler) drive(w *work) {
	defer s.wg.Done()

	attempt := 1
	backoff := s.newBackoff()
	var delay time.Duration
	for {
		if delay > 0 && !sleep(w.ctx, delay) {
			return
		}
		for !s.constraintsMet(w) {
			if !sleep(w.ctx, s.poll) {
				return
			}
		}

		done := make(chan outcome, 1)
		if !s.pool.Dispatch(w.ctx, job{w: w, attempt: attempt, done: done}) {
			return
		}
		var out outcome
		select {
		case out = <-done:
		case <-w.ctx.Done():
			return
		}

		switch out.result {
		case ResultRetry:
			delay, _ = backoff.Next()
			s.report(w, StateRetrying, attempt, out.err)
			attempt++
			continue
		case ResultSuccess:
			s.report(w, StateSucceeded, attempt, nil)
		default:
			s.report(w, StateFailed, attempt, out.err)
		}

		if !w.periodic {
			s.finish(w)
			return
		}
		attempt = 1
		backoff = s.newBackoff()
		delay = s.nextPeriod()
		s.report(w, StateEnqueued, attempt, nil)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
