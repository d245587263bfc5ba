package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyline-sync/config"
)

// scriptedRunner returns the queued results in order, then ResultSuccess.
type scriptedRunner struct {
	mu      sync.Mutex
	results []Result
	types   []Type
}

func (r *scriptedRunner) Run(ctx context.Context, t Type) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t)
	if len(r.results) == 0 {
		return ResultSuccess, nil
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next, nil
}

func (r *scriptedRunner) runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.types)
}

type switchable struct{ on atomic.Bool }

func (s *switchable) IsConnected() bool  { return s.on.Load() }
func (s *switchable) IsBatteryLow() bool { return s.on.Load() }

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		Period:      time.Hour,
		Flex:        0,
		BackoffBase: 10 * time.Millisecond,
		BackoffCap:  40 * time.Millisecond,
		Workers:     2,
	}
}

func newTestScheduler(t *testing.T, runner Runner, network Connectivity, opts ...Option) *Scheduler {
	t.Helper()
	opts = append([]Option{WithPollInterval(5 * time.Millisecond)}, opts...)
	s := NewScheduler(testSyncConfig(), runner, network, opts...)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s
}

func connected() *switchable {
	s := &switchable{}
	s.on.Store(true)
	return s
}

// waitFor reads events until one for name reaches state.
func waitFor(t *testing.T, events <-chan Event, name string, state State) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Name == name && e.State == state {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s to reach %s", name, state)
		}
	}
}

func TestSyncNow_RunsOnce(t *testing.T) {
	runner := &scriptedRunner{}
	s := newTestScheduler(t, runner, connected())
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SyncNow()

	waitFor(t, events, OneShotWorkName, StateRunning)
	e := waitFor(t, events, OneShotWorkName, StateSucceeded)
	assert.Equal(t, TypeAll, e.Type)
	assert.Equal(t, 1, e.Attempt)
	assert.Eventually(t, func() bool { return !s.Registered(OneShotWorkName) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, runner.runs())
}

func TestSyncNow_RetriesWithBackoff(t *testing.T) {
	runner := &scriptedRunner{results: []Result{ResultRetry, ResultRetry}}
	s := newTestScheduler(t, runner, connected())
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SyncNowType(TypeTools)
	name := OneShotName(TypeTools)

	assert.Equal(t, 1, waitFor(t, events, name, StateRetrying).Attempt)
	assert.Equal(t, 2, waitFor(t, events, name, StateRetrying).Attempt)
	e := waitFor(t, events, name, StateSucceeded)
	assert.Equal(t, 3, e.Attempt)
	assert.Equal(t, []Type{TypeTools, TypeTools, TypeTools}, runner.types)
}

func TestSyncNow_FailureIsTerminal(t *testing.T) {
	runner := &scriptedRunner{results: []Result{ResultFailure}}
	s := newTestScheduler(t, runner, connected())
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SyncNow()

	waitFor(t, events, OneShotWorkName, StateFailed)
	assert.Eventually(t, func() bool { return !s.Registered(OneShotWorkName) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, runner.runs())
}

func TestSyncNow_WaitsForConnectivity(t *testing.T) {
	runner := &scriptedRunner{}
	network := &switchable{}
	s := newTestScheduler(t, runner, network)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SyncNow()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.runs())
	status, ok := s.Status(OneShotWorkName)
	require.True(t, ok)
	assert.Equal(t, StateEnqueued, status.State)

	network.on.Store(true)
	waitFor(t, events, OneShotWorkName, StateSucceeded)
}

func TestSyncNow_ReplacesPendingWork(t *testing.T) {
	runner := &scriptedRunner{}
	s := newTestScheduler(t, runner, &switchable{})
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SyncNowType(TypeUsers)
	s.SyncNowType(TypeUsers)

	name := OneShotName(TypeUsers)
	waitFor(t, events, name, StateEnqueued)
	waitFor(t, events, name, StateCancelled)
	waitFor(t, events, name, StateEnqueued)
	assert.True(t, s.Registered(name))
}

func TestSchedulePeriodicSync_KeepsExisting(t *testing.T) {
	s := newTestScheduler(t, &scriptedRunner{}, &switchable{})

	assert.True(t, s.SchedulePeriodicSync())
	assert.False(t, s.SchedulePeriodicSync())
	assert.True(t, s.Registered(PeriodicWorkName))
}

func TestSchedulePeriodicSync_RespectsBattery(t *testing.T) {
	runner := &scriptedRunner{}
	battery := &switchable{}
	battery.on.Store(true)
	cfg := testSyncConfig()
	cfg.RequireBatteryNotLow = true
	s := NewScheduler(cfg, runner, connected(), WithBattery(battery), WithPollInterval(5*time.Millisecond))
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SchedulePeriodicSync()
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.runs())

	// One-shot syncs only need connectivity.
	s.SyncNow()
	waitFor(t, events, OneShotWorkName, StateSucceeded)
	assert.Equal(t, 1, runner.runs())

	battery.on.Store(false)
	waitFor(t, events, PeriodicWorkName, StateSucceeded)
	e := waitFor(t, events, PeriodicWorkName, StateEnqueued)
	assert.Equal(t, 1, e.Attempt)
}

func TestCancelSync(t *testing.T) {
	s := newTestScheduler(t, &scriptedRunner{}, &switchable{})
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SchedulePeriodicSync()
	s.SyncNow()
	s.SyncNowType(TypeChemicals)

	s.CancelSync()

	for _, name := range []string{PeriodicWorkName, OneShotWorkName, OneShotName(TypeChemicals)} {
		waitFor(t, events, name, StateCancelled)
		assert.False(t, s.Registered(name))
	}
	assert.Len(t, s.Statuses(), 3)
	assert.False(t, s.IsRunning())
}

func TestMetricsCountRuns(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	runner := &scriptedRunner{results: []Result{ResultRetry}}
	s := newTestScheduler(t, runner, connected(), WithMetrics(metrics))
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.SyncNow()
	waitFor(t, events, OneShotWorkName, StateSucceeded)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("all", "retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("all", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.duration))
}
