// Package base holds what the binaries share: the echo protocol
// definition and device key helpers.
package base

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"log"
	mathRand "math/rand"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"projekt/machine/lib/device"
	"projekt/machine/lib/machine"
	"projekt/machine/lib/protocol"
)

// EchoIdentity is the identity of the one message kind the echo protocol
// speaks, a protobuf string wrapper.
var EchoIdentity = protocol.IdentityOf(&wrapperspb.StringValue{})

// IdleTimeout drops server connections that stay silent for too long.
var IdleTimeout = time.Minute

// ServerDefinition builds the server's view of the echo protocol: wait for
// a string, answer with the identical string, wait again. The definition is
// shared by every connection the server accepts.
func ServerDefinition() *machine.Definition {
	b := machine.NewBuilder()
	b.State("listening", func(s *machine.StateScope) {
		s.OnRecv("speaking", EchoIdentity)
		s.Timeout(IdleTimeout, nil)
	})
	b.State("speaking", func(s *machine.StateScope) {
		s.OnSend("listening", EchoIdentity)
		s.OnEnter(func(engine *machine.Engine, message machine.Any) error {
			return protocol.SessionOf(engine).Reply(message.(proto.Message))
		})
	})
	return b.Seal()
}

// ClientDefinition derives the client's view by mirroring the server's and
// delivers every received echo to the given channel.
func ClientDefinition(echoes chan<- string) *machine.Definition {
	return machine.Mirror(ServerDefinition(), func(b *machine.Builder) {
		b.State("listening", func(s *machine.StateScope) {
			s.OnEnter(func(engine *machine.Engine, message machine.Any) error {
				if message == nil {
					// Initial entry on connect.
					return nil
				}
				echoes <- message.(*wrapperspb.StringValue).Value
				return nil
			})
		})
	})
}

func CryptoRandom() io.Reader {
	return rand.Reader
}

func PredictableRandom(seed int64) io.Reader {
	return mathRand.New(mathRand.NewSource(seed))
}

func GenerateKeys(randSource io.Reader) device.KeyPair {
	keys, err := device.GenerateKeyPair(randSource)
	if err != nil {
		log.Fatalln("failed to generate identity key:", err)
	}
	log.Println("ED25519-IDENTITY", hex.EncodeToString(keys.Public))
	log.Println("X25519-IDENTITY ", hex.EncodeToString(keys.Public.X25519()))
	return keys
}
