package machine

import "time"

// handlerTable resolves the entry or exit callbacks of one state.
// A handler registered for an exact message identity wins over the default.
type handlerTable struct {
	specific map[Identity]Handler
	fallback Handler
}

func newHandlerTable() handlerTable {
	return handlerTable{specific: map[Identity]Handler{}}
}

// register binds a handler to each given identity,
// or registers the state's default handler when no identity is given.
// Registering an occupied slot twice is a definition error.
func (t *handlerTable) register(handler Handler, identities []Identity) {
	if len(identities) == 0 {
		if t.fallback != nil {
			panic(DuplicateDefaultHandler)
		}
		t.fallback = handler
		return
	}
	for _, identity := range identities {
		if _, has := t.specific[identity]; has {
			panic(DuplicateHandler)
		}
		t.specific[identity] = handler
	}
}

// resolve returns the handler to run for the given identity
// or nil if the state registered neither a specific nor a default handler.
func (t *handlerTable) resolve(identity Identity) Handler {
	if handler, has := t.specific[identity]; has {
		return handler
	}
	return t.fallback
}

// transitionTable maps message identities to successor state names.
// Unlike handlers, transition targets are last-write-wins;
// the identity keeps the position of its first registration.
type transitionTable struct {
	targets map[Identity]string
	order   []Identity
}

func newTransitionTable() transitionTable {
	return transitionTable{targets: map[Identity]string{}}
}

func (t *transitionTable) register(identity Identity, next string) {
	if _, has := t.targets[identity]; !has {
		t.order = append(t.order, identity)
	}
	t.targets[identity] = next
}

func (t *transitionTable) target(identity Identity) (next string, has bool) {
	next, has = t.targets[identity]
	return
}

// stateTimeout is a state's declared timeout.
// A nil handler means the default action: close the connection.
type stateTimeout struct {
	after   time.Duration
	handler TimeoutHandler
}

// state is a named node of a protocol Definition.
type state struct {
	name    string
	enter   handlerTable
	exit    handlerTable
	sends   transitionTable
	recvs   transitionTable
	unbind  UnbindHandler
	timeout *stateTimeout
}

func newState(name string) *state {
	return &state{
		name:  name,
		enter: newHandlerTable(),
		exit:  newHandlerTable(),
		sends: newTransitionTable(),
		recvs: newTransitionTable(),
	}
}
