// Package reactor serializes all events of one connection onto a single
// goroutine. A protocol engine is not safe for concurrent use; the loop
// guarantees that receives, sends, timeouts and disconnects are processed
// one at a time, in arrival order.
package reactor

import (
	"context"
	"errors"
	"sync"
	"time"

	"projekt/machine/lib/machine"
)

var LoopClosed = errors.New("event loop is closed")

// Loop owns the event goroutine of one connection.
// All events submitted through Do, Post and Schedule run on the goroutine
// that called Run, never concurrently with each other.
type Loop struct {
	events chan event
	done   chan struct{}
	once   sync.Once
}

type event struct {
	run    func() error
	result chan<- error
}

func NewLoop() *Loop {
	return &Loop{
		events: make(chan event),
		done:   make(chan struct{}),
	}
}

// Run processes events until the context is cancelled or Close is called.
// It returns nil after Close and the context error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case e := <-l.events:
			err := e.run()
			if e.result != nil {
				e.result <- err
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// Do runs fn on the event loop and waits for its result.
// It must not be called from the loop goroutine itself:
// an event that waits for another event deadlocks the loop.
func (l *Loop) Do(fn func() error) error {
	result := make(chan error, 1)
	select {
	case l.events <- event{run: fn, result: result}:
		return <-result
	case <-l.done:
		return LoopClosed
	}
}

// Post schedules fn on the event loop without waiting for it.
// Events posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	e := event{run: func() error { fn(); return nil }}
	select {
	case l.events <- e:
	case <-l.done:
	}
}

// Schedule implements machine.Scheduler. The fire callback runs on the
// event loop, satisfying the engine's serialized execution contract.
func (l *Loop) Schedule(after time.Duration, fire func()) machine.Timer {
	return loopTimer{time.AfterFunc(after, func() { l.Post(fire) })}
}

// Close stops the loop. It is safe to call more than once.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Closed reports whether Close was called.
func (l *Loop) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

type loopTimer struct {
	timer *time.Timer
}

func (t loopTimer) Cancel() {
	t.timer.Stop()
}
