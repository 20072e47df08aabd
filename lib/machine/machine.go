// Package machine implements a declarative engine for finite-state message
// protocols over a duplex connection. A protocol is declared once as an
// immutable Definition of named states and the messages each state may send
// or receive. Every running connection owns an Engine that validates messages
// against the Definition and advances its current state.
package machine

import "time"

// Identity identifies the kind of a message.
// Two messages are of the same kind iff their identities are equal.
// The connection layer supplies identities, commonly by mapping
// a message's type to a canonical name.
type Identity string

// NoIdentity is the null message identity.
// It is passed to the start state's entry handler on connect.
const NoIdentity Identity = ""

// Any is an opaque message payload.
type Any = interface{}

// Handler is a callback invoked when a state is entered or exited.
// It receives the engine that is performing the transition and the message
// that triggered it. The message is nil for the entry handler of the start
// state on connect.
type Handler func(engine *Engine, message Any) error

// TimeoutHandler is invoked when an engine remains in a state longer than
// the state's declared timeout without transitioning.
type TimeoutHandler func(engine *Engine) error

// UnbindHandler is invoked when the underlying connection terminates
// while the engine is in the state that declared it.
type UnbindHandler func(engine *Engine) error

// Deliver transmits a message on the underlying connection.
// The engine invokes it exactly once per accepted outbound message,
// before the state advances.
type Deliver func(message Any) error

// Timer is the handle of a scheduled state timeout.
type Timer interface {
	Cancel()
}

// Scheduler schedules one-shot timers for state timeouts.
// The fire callback must be invoked on the same serialized event path
// that drives the engine.
type Scheduler interface {
	Schedule(after time.Duration, fire func()) Timer
}

// systemScheduler schedules timers with time.AfterFunc.
// It fires callbacks on their own goroutine and is only suitable
// when the surrounding layer does not serialize events itself.
type systemScheduler struct{}

func (systemScheduler) Schedule(after time.Duration, fire func()) Timer {
	return systemTimer{time.AfterFunc(after, fire)}
}

type systemTimer struct {
	timer *time.Timer
}

func (t systemTimer) Cancel() {
	t.timer.Stop()
}
