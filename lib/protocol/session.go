package protocol

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/proto"

	"projekt/machine/lib/machine"
	"projekt/machine/lib/reactor"
)

// Session drives one protocol engine over one connection. It owns the
// connection's event loop, so receives, sends, state timeouts and the
// disconnect all run serialized, as the engine requires.
type Session struct {
	engine *machine.Engine
	conn   ReadWriter
	ids    Identifier
	loop   *reactor.Loop
	errs   chan error
	close  func() error

	closeOnce sync.Once
	closeErr  error
	info      *log.Logger
}

// NewSession creates a session for one connection. The close function is
// invoked when the protocol asks for the connection to be terminated, e.g.
// by a state timeout without a handler; it must close the underlying
// transport so that the read loop unblocks. It may be nil if the transport
// is torn down elsewhere.
func NewSession(definition *machine.Definition, conn ReadWriter, close func() error) *Session {
	s := &Session{
		conn:  conn,
		ids:   TypeIdentifier{},
		loop:  reactor.NewLoop(),
		errs:  make(chan error, 16),
		close: close,
		info:  log.New(log.Writer(), "PROTOCOL ", log.Flags()|log.Lmsgprefix),
	}
	s.engine = machine.NewEngine(definition, machine.Config{
		Scheduler: s.loop,
		Close:     func() { _ = s.Close() },
		OnError:   s.surface,
		Data:      s,
	})
	return s
}

// SessionOf returns the session an engine belongs to. It is the inverse of
// the engine's Data binding and lets handlers of a shared definition reach
// their connection.
func SessionOf(engine *machine.Engine) *Session {
	return engine.Data().(*Session)
}

// Run drives the session: it connects the engine, reads inbound messages
// until the connection or the context ends, and unbinds the engine on the
// way out. A deliberate Close and a remote hang-up both end the session
// cleanly; any other transport or handler failure is returned.
func (s *Session) Run(ctx context.Context) (err error) {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		// Closing the transport unblocks the read loop.
		defer func() { _ = s.closeTransport() }()
		return s.loop.Run(ctx)
	})

	err = s.loop.Do(s.engine.OnConnected)
	if err == nil {
		group.Go(func() error {
			defer s.loop.Close()
			return s.read()
		})
	} else {
		s.loop.Close()
	}

	if waitErr := group.Wait(); err == nil {
		err = waitErr
	}
	if unbindErr := s.engine.OnDisconnected(); err == nil {
		err = unbindErr
	}
	return
}

func (s *Session) read() error {
	for {
		message, err := s.conn.Read()
		if err != nil {
			if s.loop.Closed() || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		s.info.Println("<-", message.ProtoReflect().Descriptor().Name())
		err = s.loop.Do(func() error {
			return s.engine.TransitionOnRecv(s.ids.IdentityOf(message), message)
		})
		if err == reactor.LoopClosed {
			return nil
		}
		if err != nil {
			var protocolError *machine.ProtocolError
			if errors.As(err, &protocolError) {
				// A violation never corrupts engine state;
				// surface it and keep processing events.
				s.surface(err)
				continue
			}
			return err
		}
	}
}

// Send validates and transmits a message. It runs on the session's event
// loop and must not be called from within a handler; handlers use Reply.
func (s *Session) Send(message proto.Message) error {
	return s.loop.Do(func() error { return s.Reply(message) })
}

// Reply validates and transmits a message from within a handler or timeout
// callback, which already run on the session's event path.
func (s *Session) Reply(message proto.Message) error {
	return s.engine.TransitionOnSend(s.ids.IdentityOf(message), message, s.deliver)
}

func (s *Session) deliver(message machine.Any) error {
	m := message.(proto.Message)
	s.info.Println("->", m.ProtoReflect().Descriptor().Name())
	return s.conn.Write(m)
}

// Errors exposes protocol violations and timeout handler failures.
// The session keeps running after surfacing one; whether to close the
// connection in response is the receiver's decision.
func (s *Session) Errors() <-chan error {
	return s.errs
}

func (s *Session) surface(err error) {
	select {
	case s.errs <- err:
	default:
		s.info.Println("dropped error:", err)
	}
}

// State returns the name of the engine's current state. It reads without
// synchronization; use it on the event path or after Run returned.
func (s *Session) State() string {
	return s.engine.CurrentStateName()
}

// Engine returns the session's engine.
func (s *Session) Engine() *machine.Engine {
	return s.engine
}

// Close stops the session's event loop and closes the underlying transport.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.loop.Close()
	return s.closeTransport()
}

func (s *Session) closeTransport() error {
	s.closeOnce.Do(func() {
		if s.close != nil {
			s.closeErr = s.close()
		}
	})
	return s.closeErr
}
