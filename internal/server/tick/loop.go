// Package tick runs the server's fixed-rate game loop. State owned by the
// loop is only touched from the loop goroutine; other goroutines hand it
// work through Submit or Do.
package tick

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// DefaultRate is the vanilla 20 ticks per second.
const DefaultRate = 20

// queueSize bounds the pending task backlog.
const queueSize = 256

// ErrStopped is returned for work submitted after the loop exited.
var ErrStopped = errors.New("tick loop stopped")

// StepFunc advances game state by one tick.
type StepFunc func(tick int64)

// Loop calls a StepFunc at a fixed rate and runs submitted tasks between
// steps, all on one goroutine.
type Loop struct {
	interval time.Duration
	step     StepFunc
	tasks    chan func()
	done     chan struct{}
	ticks    atomic.Int64
}

// NewLoop returns a loop that calls step rate times per second. A
// non-positive rate selects DefaultRate.
func NewLoop(rate int, step StepFunc) *Loop {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Loop{
		interval: time.Second / time.Duration(rate),
		step:     step,
		tasks:    make(chan func(), queueSize),
		done:     make(chan struct{}),
	}
}

// Ticks returns how many steps have run.
func (l *Loop) Ticks() int64 { return l.ticks.Load() }

// Run drives the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			fn()
		case <-ticker.C:
			l.step(l.ticks.Inc())
		}
	}
}

// Submit queues fn to run on the loop goroutine without waiting for it.
func (l *Loop) Submit(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("submit task: %w", ctx.Err())
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Submit(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("wait for task: %w", ctx.Err())
	}
}
