// Package scheduler runs work that reactors defer past the current dispatch,
// typically a re-dispatch that would otherwise recurse without bound.
package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
)

type Task func(ctx context.Context) error

type Scheduler interface {
	Defer(task Task)
}

// Loop runs deferred tasks one at a time, in order, on the goroutine that
// calls Run. Defer never blocks.
type Loop struct {
	mu    sync.Mutex
	queue []Task
	wake  chan struct{}
}

func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

func (l *Loop) Defer(task Task) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes tasks until ctx is done. Task errors are logged.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.wake:
				continue
			}
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		if err := task(ctx); err != nil {
			log.Printf("deferred task failed: %v", err)
		}
	}
}

// Manual only runs deferred tasks when asked to.
type Manual struct {
	mu      sync.Mutex
	pending []Task
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Defer(task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, task)
}

func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// YieldOnce runs the tasks that were pending when it was called. Tasks they
// defer wait for the next yield.
func (m *Manual) YieldOnce(ctx context.Context) error {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	var errs []error
	for _, task := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := task(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunAllPending yields until nothing is pending.
func (m *Manual) RunAllPending(ctx context.Context) error {
	var errs []error
	for m.Pending() > 0 {
		if err := m.YieldOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
