package machine

import (
	"errors"
	"fmt"
)

// Definition errors. A protocol with one of these defects must never become
// runtime-reachable, so the Builder panics with them immediately.
var (
	NestedStateScope        = errors.New("cannot declare a state while another state scope is open")
	ClosedStateScope        = errors.New("state scope is no longer open")
	DuplicateState          = errors.New("state is already declared")
	DuplicateHandler        = errors.New("a handler for this message identity is already registered")
	DuplicateDefaultHandler = errors.New("a default handler is already registered")
	DuplicateTimeout        = errors.New("state already declares a timeout")
	DuplicateUnbindHandler  = errors.New("state already declares an unbind handler")
	MissingMessageIdentity  = errors.New("at least one message identity is required")
	MirrorInOpenScope       = errors.New("cannot mirror a definition while a state scope is open")
	MirrorAfterDeclaration  = errors.New("cannot mirror into a builder that already declares states")
	SealedBuilder           = errors.New("builder is sealed and cannot accept new declarations")
	EmptyDefinition         = errors.New("definition requires at least one declared state")
)

// Action is the direction of a message relative to this side of the connection.
type Action string

const (
	Send Action = "send"
	Recv Action = "recv"
)

// ProtocolError reports a message that has no registered transition
// for the engine's current state and the given direction.
// The engine never recovers from it internally; it is returned to the caller,
// which decides whether to log, close the connection or keep going.
// The engine's current state is left unchanged.
type ProtocolError struct {
	Engine   *Engine
	State    string
	Action   Action
	Identity Identity
	Message  Any
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("machine: cannot %v message %q in state %q", e.Action, e.Identity, e.State)
}
