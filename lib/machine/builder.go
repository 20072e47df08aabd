package machine

import "time"

// Builder accumulates a protocol Definition through an ordered sequence of
// state declarations. The first declared state becomes the start state.
// All definition defects panic with one of the sentinel errors of this
// package; a defective protocol never reaches runtime.
type Builder struct {
	states   map[string]*state
	order    []string
	declared map[string]bool
	open     *StateScope
	start    string
	sealed   bool
}

func NewBuilder() *Builder {
	return &Builder{
		states:   map[string]*state{},
		declared: map[string]bool{},
	}
}

// state returns the named state, materializing an empty one if necessary.
func (b *Builder) state(name string) *state {
	if s, has := b.states[name]; has {
		return s
	}
	s := newState(name)
	b.states[name] = s
	b.order = append(b.order, name)
	return s
}

// State declares a state and opens a scope in which the given configure
// function may register handlers, transitions, a timeout and an unbind
// handler. Declaring a state inside another open scope is a definition error,
// as is declaring the same name twice. States that so far only exist as
// transition successors or as mirror imports may be declared to attach
// handlers to them.
func (b *Builder) State(name string, configure func(*StateScope)) {
	if b.sealed {
		panic(SealedBuilder)
	}
	if b.open != nil {
		panic(NestedStateScope)
	}
	if b.declared[name] {
		panic(DuplicateState)
	}
	b.declared[name] = true
	if b.start == "" {
		b.start = name
	}
	scope := &StateScope{builder: b, state: b.state(name)}
	b.open = scope
	defer func() { b.open = nil }()
	configure(scope)
}

// Mirror copies every state of the source definition into this builder with
// the roles of send and receive exchanged: the copy's recv table is the
// source's send table and vice versa. Entry and exit handlers, defaults,
// unbind handlers and timeouts are not copied; the caller attaches its own
// by declaring the states it cares about. Mirroring is only valid on a
// builder without declarations and outside any state scope.
func (b *Builder) Mirror(source *Definition) {
	if b.sealed {
		panic(SealedBuilder)
	}
	if b.open != nil {
		panic(MirrorInOpenScope)
	}
	if len(b.declared) > 0 {
		panic(MirrorAfterDeclaration)
	}
	for _, name := range source.order {
		src := source.states[name]
		dst := b.state(name)
		for _, identity := range src.recvs.order {
			dst.sends.register(identity, src.recvs.targets[identity])
		}
		for _, identity := range src.sends.order {
			dst.recvs.register(identity, src.sends.targets[identity])
		}
	}
}

// Seal materializes all states that were only referenced as transition
// successors and freezes the definition. The builder accepts no further
// declarations afterwards.
func (b *Builder) Seal() *Definition {
	if b.sealed {
		panic(SealedBuilder)
	}
	if b.start == "" {
		panic(EmptyDefinition)
	}
	b.sealed = true

	// Materializing a successor appends to b.order,
	// so iterate over a snapshot. New states have no successors of their own.
	snapshot := make([]string, len(b.order))
	copy(snapshot, b.order)
	for _, name := range snapshot {
		s := b.states[name]
		for _, identity := range s.sends.order {
			b.state(s.sends.targets[identity])
		}
		for _, identity := range s.recvs.order {
			b.state(s.recvs.targets[identity])
		}
	}

	return &Definition{states: b.states, order: b.order, start: b.start}
}

// Mirror derives a counterpart definition from an existing sealed one by
// exchanging the roles of send and receive, e.g. a client from a server.
// The configure function receives a fresh builder that already contains the
// mirrored states; the first state it declares becomes the start state of
// the mirrored definition, regardless of the source's start state.
func Mirror(source *Definition, configure func(*Builder)) *Definition {
	b := NewBuilder()
	b.Mirror(source)
	configure(b)
	return b.Seal()
}

// StateScope configures a single state while its declaration is open.
// Using a scope after its configure function returned is a definition error.
type StateScope struct {
	builder *Builder
	state   *state
}

func (s *StateScope) require() {
	if s.builder.open != s {
		panic(ClosedStateScope)
	}
}

// OnEnter registers an entry handler for each given message identity.
// With no identities it registers the state's default entry handler,
// which runs for every entering message without a specific handler.
func (s *StateScope) OnEnter(handler Handler, identities ...Identity) {
	s.require()
	s.state.enter.register(handler, identities)
}

// OnExit registers an exit handler; it follows the same rules as OnEnter.
func (s *StateScope) OnExit(handler Handler, identities ...Identity) {
	s.require()
	s.state.exit.register(handler, identities)
}

// OnSend declares that each given message identity may be sent from this
// state and that sending it advances the engine to the next state.
// At least one identity is required. Re-registering an identity overwrites
// its successor.
func (s *StateScope) OnSend(next string, identities ...Identity) {
	s.require()
	if len(identities) == 0 {
		panic(MissingMessageIdentity)
	}
	for _, identity := range identities {
		s.state.sends.register(identity, next)
	}
}

// OnRecv is the receiving counterpart of OnSend.
func (s *StateScope) OnRecv(next string, identities ...Identity) {
	s.require()
	if len(identities) == 0 {
		panic(MissingMessageIdentity)
	}
	for _, identity := range identities {
		s.state.recvs.register(identity, next)
	}
}

// Timeout declares that remaining in this state longer than the given
// duration without a transition fires the handler. A nil handler requests
// the default action of closing the connection. A state may declare at most
// one timeout.
func (s *StateScope) Timeout(after time.Duration, handler TimeoutHandler) {
	s.require()
	if s.state.timeout != nil {
		panic(DuplicateTimeout)
	}
	s.state.timeout = &stateTimeout{after: after, handler: handler}
}

// OnUnbind registers a handler that runs when the connection terminates
// while the engine is in this state.
func (s *StateScope) OnUnbind(handler UnbindHandler) {
	s.require()
	if s.state.unbind != nil {
		panic(DuplicateUnbindHandler)
	}
	s.state.unbind = handler
}
