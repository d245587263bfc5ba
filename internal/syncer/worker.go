package syncer

import (
	"context"
	"log"
	"time"
)

// job is one attempt of a registered work.
type job struct {
	w       *work
	attempt int
	done    chan outcome
}

type outcome struct {
	result Result
	err    error
}

// WorkerPool runs sync attempts on a fixed number of goroutines.
type WorkerPool struct {
	size    int
	jobs    chan job
	runner  Runner
	metrics *Metrics
	report  func(w *work, state State, attempt int, err error)
}

func newWorkerPool(size int, runner Runner, metrics *Metrics, report func(*work, State, int, error)) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan job, size),
		runner:  runner,
		metrics: metrics,
		report:  report,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Sync worker %d started", id)
	for {
		select {
		case j := <-wp.jobs:
			j.done <- wp.run(j)
		case <-ctx.Done():
			log.Printf("Sync worker %d shutting down", id)
			return
		}
	}
}

// Dispatch hands j to the pool. It gives up when ctx ends first.
func (wp *WorkerPool) Dispatch(ctx context.Context, j job) bool {
	select {
	case wp.jobs <- j:
		return true
	case <-ctx.Done():
		return false
	}
}

func (wp *WorkerPool) run(j job) outcome {
	w := j.w
	if err := w.ctx.Err(); err != nil {
		return outcome{result: ResultRetry, err: err}
	}
	wp.report(w, StateRunning, j.attempt, nil)

	start := time.Now()
	result, err := wp.runner.Run(w.ctx, w.typ)
	wp.metrics.observe(w.typ, result, time.Since(start))

	if err != nil {
		log.Printf("Sync %s (attempt %d) finished with %s: %v", w.name, j.attempt, result, err)
	} else {
		log.Printf("Sync %s (attempt %d) finished with %s", w.name, j.attempt, result)
	}
	return outcome{result: result, err: err}
}
