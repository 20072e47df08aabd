package machine

// Config supplies the collaborator capabilities an Engine consumes.
type Config struct {
	// Scheduler schedules state timeouts. If nil, timers fire on their own
	// goroutine via time.AfterFunc; a surrounding event loop should instead
	// supply a scheduler that fires on its serialized event path.
	Scheduler Scheduler

	// Close terminates the underlying connection. It is invoked by a state
	// timeout that declared no handler of its own.
	Close func()

	// OnError receives errors returned by timeout handlers, which fire
	// asynchronously and have no caller to return to.
	OnError func(error)

	// Data is an opaque collaborator value, commonly the connection or
	// session the engine belongs to. Handlers of a shared definition
	// retrieve it through Engine.Data to reach their connection.
	Data Any
}

// Engine enforces a protocol Definition at runtime for one connection.
// It owns the connection's current state and nothing else; the shared
// Definition is never mutated.
//
// The engine assumes single-threaded, event-driven execution: exactly one
// event (a receive, a send, a timeout firing or a disconnect) is processed
// to completion before the next begins. It does no locking of its own.
// Handlers run synchronously and may re-enter the engine through
// TransitionOnSend; the state pointer is updated before any entry handler
// runs, so a handler that immediately sends again sees the new state.
type Engine struct {
	definition *Definition
	config     Config
	current    *state
	timers     []*scheduledTimeout
}

// scheduledTimeout guards a scheduled timer against firing after the engine
// left the state that scheduled it, even if the underlying timer already
// went off before it could be cancelled.
type scheduledTimeout struct {
	timer   Timer
	stopped bool
}

// NewEngine creates an engine for one connection, bound to the shared
// definition. The engine is inert until OnConnected is called.
func NewEngine(definition *Definition, config Config) *Engine {
	if config.Scheduler == nil {
		config.Scheduler = systemScheduler{}
	}
	return &Engine{definition: definition, config: config}
}

// Definition returns the shared protocol definition this engine enforces.
func (e *Engine) Definition() *Definition {
	return e.definition
}

// Data returns the collaborator value this engine was configured with.
func (e *Engine) Data() Any {
	return e.config.Data
}

// CurrentStateName returns the name of the engine's current state,
// or an empty string before OnConnected.
func (e *Engine) CurrentStateName() string {
	if e.current == nil {
		return ""
	}
	return e.current.name
}

// OnConnected initializes the current state to the definition's start state,
// schedules its timeout if one is declared and fires its entry handler with
// a nil message and the null identity.
func (e *Engine) OnConnected() error {
	e.current = e.definition.state(e.definition.start)
	e.scheduleTimeout()
	return e.runHandler(&e.current.enter, NoIdentity, nil)
}

// TransitionOnRecv validates an inbound message against the current state's
// receive transitions and advances the engine. A message without a
// registered transition yields a *ProtocolError and changes nothing.
func (e *Engine) TransitionOnRecv(identity Identity, message Any) error {
	next, has := e.current.recvs.target(identity)
	if !has {
		return &ProtocolError{
			Engine:   e,
			State:    e.current.name,
			Action:   Recv,
			Identity: identity,
			Message:  message,
		}
	}
	return e.advance(next, identity, message)
}

// TransitionOnSend validates an outbound message against the current state's
// send transitions, transmits it through deliver and advances the engine.
// Deliver runs before any state change, so a failure to transmit is observed
// while still in the pre-transition state and aborts the transition.
func (e *Engine) TransitionOnSend(identity Identity, message Any, deliver Deliver) error {
	next, has := e.current.sends.target(identity)
	if !has {
		return &ProtocolError{
			Engine:   e,
			State:    e.current.name,
			Action:   Send,
			Identity: identity,
			Message:  message,
		}
	}
	if deliver != nil {
		if err := deliver(message); err != nil {
			return err
		}
	}
	return e.advance(next, identity, message)
}

// OnDisconnected runs the current state's unbind handler, if any, and
// cancels all timers owned by this engine. It does not close the connection;
// that already happened or is the caller's business.
func (e *Engine) OnDisconnected() error {
	var err error
	if e.current != nil && e.current.unbind != nil {
		err = e.current.unbind(e)
	}
	e.cancelTimeouts()
	return err
}

// advance performs the exit/advance/entry sequence shared by send and recv
// transitions. Handler errors propagate unchanged: a failing exit handler
// aborts the transition, a failing entry handler does not roll it back.
func (e *Engine) advance(next string, identity Identity, message Any) error {
	if err := e.runHandler(&e.current.exit, identity, message); err != nil {
		return err
	}
	e.current = e.definition.state(next)
	e.cancelTimeouts()
	e.scheduleTimeout()
	return e.runHandler(&e.current.enter, identity, message)
}

func (e *Engine) runHandler(table *handlerTable, identity Identity, message Any) error {
	handler := table.resolve(identity)
	if handler == nil {
		return nil
	}
	return handler(e, message)
}

func (e *Engine) scheduleTimeout() {
	timeout := e.current.timeout
	if timeout == nil || timeout.after <= 0 {
		return
	}
	pending := &scheduledTimeout{}
	pending.timer = e.config.Scheduler.Schedule(timeout.after, func() {
		e.fireTimeout(pending, timeout)
	})
	e.timers = append(e.timers, pending)
}

func (e *Engine) cancelTimeouts() {
	for _, pending := range e.timers {
		pending.stopped = true
		if pending.timer != nil {
			pending.timer.Cancel()
		}
	}
	e.timers = nil
}

// fireTimeout runs a state timeout unless the engine left the state first.
// A timeout without a handler performs the default action and closes the
// connection through the configured Close capability.
func (e *Engine) fireTimeout(pending *scheduledTimeout, timeout *stateTimeout) {
	if pending.stopped {
		return
	}
	pending.stopped = true
	if timeout.handler == nil {
		if e.config.Close != nil {
			e.config.Close()
		}
		return
	}
	if err := timeout.handler(e); err != nil && e.config.OnError != nil {
		e.config.OnError(err)
	}
}
