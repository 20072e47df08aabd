// Package protocol binds a machine.Engine to protobuf messages on a duplex
// connection. It supplies the pieces the engine treats as collaborators:
// a message identity mapping, a wire codec and a per-connection session
// that serializes all engine events.
package protocol

import (
	"google.golang.org/protobuf/proto"

	"projekt/machine/lib/machine"
)

// Identifier maps a protobuf message to its machine identity.
// Two messages map to the same identity iff they are of the same kind.
type Identifier interface {
	IdentityOf(message proto.Message) machine.Identity
}

// TypeIdentifier identifies messages by their protobuf type:
// the identity is the full name of the message descriptor.
// It is the default Identifier of a Session.
type TypeIdentifier struct{}

func (TypeIdentifier) IdentityOf(message proto.Message) machine.Identity {
	return IdentityOf(message)
}

// IdentityOf returns the identity a TypeIdentifier assigns to a message.
// Protocol definitions use it to name the message kinds of their
// transitions, e.g. IdentityOf(&pb.Noise{}).
func IdentityOf(message proto.Message) machine.Identity {
	return machine.Identity(message.ProtoReflect().Descriptor().FullName())
}
