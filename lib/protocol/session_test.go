package protocol

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"projekt/machine/lib/machine"
)

var noiseIdentity = IdentityOf(&wrapperspb.StringValue{})

// echoServerDefinition answers every received noise message with an
// identical outbound one. It is shared by all sessions serving it; the
// entry handler finds its own session through the engine.
func echoServerDefinition() *machine.Definition {
	b := machine.NewBuilder()
	b.State("listening", func(s *machine.StateScope) {
		s.OnRecv("speaking", noiseIdentity)
	})
	b.State("speaking", func(s *machine.StateScope) {
		s.OnSend("listening", noiseIdentity)
		s.OnEnter(func(engine *machine.Engine, message machine.Any) error {
			return SessionOf(engine).Reply(message.(proto.Message))
		})
	})
	return b.Seal()
}

// echoClientDefinition mirrors the server and collects received echoes.
func echoClientDefinition(source *machine.Definition, echoes chan<- string) *machine.Definition {
	return machine.Mirror(source, func(b *machine.Builder) {
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

func closer(conn net.Conn) func() error {
	return func() error { return conn.Close() }
}

func TestSession_Echo(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	serverDefinition := echoServerDefinition()
	server := NewSession(serverDefinition, NewWire(serverConn), closer(serverConn))

	echoes := make(chan string, 3)
	client := NewSession(echoClientDefinition(serverDefinition, echoes), NewWire(clientConn), closer(clientConn))

	group, ctx := errgroup.WithContext(context.Background())
	group.Go(func() error { return server.Run(ctx) })
	group.Go(func() error { return client.Run(ctx) })

	var received []string
	for _, payload := range []string{"foo", "bar", "baz"} {
		assert.Nil(t, client.Send(wrapperspb.String(payload)))
		select {
		case echo := <-echoes:
			received = append(received, echo)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for echo")
		}
	}
	assert.EqualValues(t, []string{"foo", "bar", "baz"}, received)

	assert.Nil(t, client.Close())
	assert.Nil(t, server.Close())
	assert.Nil(t, group.Wait())
}

func TestSession_SurfacesProtocolError(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	server := NewSession(echoServerDefinition(), NewWire(serverConn), closer(serverConn))

	result := make(chan error, 1)
	go func() { result <- server.Run(context.Background()) }()

	// Bypass a client session and write a message kind
	// the echo protocol never registered.
	wire := NewWire(clientConn)
	assert.Nil(t, wire.Write(wrapperspb.Int64(23)))

	select {
	case err := <-server.Errors():
		var protocolError *machine.ProtocolError
		assert.True(t, errors.As(err, &protocolError))
		assert.Equal(t, "listening", protocolError.State)
		assert.Equal(t, machine.Recv, protocolError.Action)
		assert.EqualValues(t, "google.protobuf.Int64Value", protocolError.Identity)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for protocol error")
	}

	// The violation left the session in its state; it still echoes.
	assert.Nil(t, wire.Write(wrapperspb.String("still alive")))
	message, err := wire.Read()
	assert.Nil(t, err)
	assert.True(t, proto.Equal(wrapperspb.String("still alive"), message))

	assert.Nil(t, server.Close())
	assert.Nil(t, <-result)
	assert.Nil(t, clientConn.Close())
}

func TestSession_BareTimeoutClosesConnection(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	b := machine.NewBuilder()
	b.State("waiting", func(s *machine.StateScope) {
		s.OnRecv("done", noiseIdentity)
		s.Timeout(10*time.Millisecond, nil)
	})
	session := NewSession(b.Seal(), NewWire(serverConn), closer(serverConn))

	result := make(chan error, 1)
	go func() { result <- session.Run(context.Background()) }()

	select {
	case err := <-result:
		assert.Nil(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout did not terminate the session")
	}
}

func TestSession_UnbindRunsOnTeardown(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	unbound := make(chan struct{})
	b := machine.NewBuilder()
	b.State("waiting", func(s *machine.StateScope) {
		s.OnRecv("done", noiseIdentity)
		s.OnUnbind(func(engine *machine.Engine) error {
			close(unbound)
			return nil
		})
	})
	session := NewSession(b.Seal(), NewWire(serverConn), closer(serverConn))

	result := make(chan error, 1)
	go func() { result <- session.Run(context.Background()) }()

	// The remote hangs up; the session unbinds the current state.
	assert.Nil(t, clientConn.Close())
	select {
	case <-result:
	case <-time.After(time.Second):
		t.Fatal("session did not stop on remote hang-up")
	}
	select {
	case <-unbound:
	default:
		t.Fatal("unbind handler did not run")
	}
}
