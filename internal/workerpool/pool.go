// Package workerpool is a small bounded worker pool built on gopkg.in/tomb.v2
// for lifetime management, adapted from the exchange's original connection
// worker pool. It backs the transport layer's connection handling and is
// also available to a subscriber that wants to offload callback dispatch
// off the matching goroutine.
package workerpool

import (
	"runtime"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// TaskChanSize bounds how many pending tasks may queue before AddTask
// blocks.
const TaskChanSize = 100

// WorkerFunc processes one task of type T; t.Dying() is closed when the
// pool is shutting down.
type WorkerFunc[T any] func(t *tomb.Tomb, task T) error

// Pool runs up to n concurrent workers pulling typed tasks from a shared
// channel. The original connection worker pool this is adapted from took
// an untyped task channel and recovered the concrete type with a type
// assertion inside the worker body; here the task type is a type
// parameter, so a mismatched caller fails at compile time instead of
// surfacing an `ErrImproperConversion` at run time.
type Pool[T any] struct {
	n     int
	tasks chan T
	work  WorkerFunc[T]
}

// New creates a pool sized for n concurrent workers. n <= 0 sizes the
// pool from the host's available parallelism instead, since a caller that
// doesn't know its expected connection concurrency up front (a server
// just coming up) shouldn't have to hardcode a guess.
func New[T any](n int) *Pool[T] {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0) * 4
	}
	return &Pool[T]{
		tasks: make(chan T, TaskChanSize),
		n:     n,
	}
}

// Len reports the number of tasks currently queued, for backpressure
// monitoring.
func (p *Pool[T]) Len() int {
	return len(p.tasks)
}

// AddTask enqueues a unit of work, blocking if the pool is saturated.
func (p *Pool[T]) AddTask(task T) {
	p.tasks <- task
}

// Setup keeps the pool topped up at n workers until t starts dying.
func (p *Pool[T]) Setup(t *tomb.Tomb, work WorkerFunc[T]) {
	p.work = work
	log.Info().Int("workers", p.n).Msg("starting worker pool")

	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < p.n {
				t.Go(func() error {
					err := p.worker(t)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (p *Pool[T]) worker(t *tomb.Tomb) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-p.tasks:
		if err := p.work(t, task); err != nil {
			log.Error().Err(err).Msg("worker exiting on error")
			return err
		}
	}
	return nil
}
