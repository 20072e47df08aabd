package protocol

import (
	"io"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"

	"projekt/machine/lib/packet"
)

// ReadWriter exchanges whole protobuf messages with a peer.
type ReadWriter interface {
	Write(message proto.Message) (err error)
	Read() (message proto.Message, err error)
}

// Wire implements ReadWriter on a byte stream. Messages travel as anypb
// envelopes in length-delimited packets; the receiving side reconstructs
// the concrete message type through the registry of linked-in types.
type Wire struct {
	conn       io.ReadWriter
	writeMutex sync.Mutex
}

func NewWire(conn io.ReadWriter) *Wire {
	return &Wire{conn: conn}
}

// Write marshals and frames one message.
// A message and its envelope need to hit the wire as one atomic unit,
// so concurrent writes are serialized.
func (w *Wire) Write(message proto.Message) (err error) {
	wrapped, err := anypb.New(message)
	if err != nil {
		return
	}
	data, err := proto.Marshal(wrapped)
	if err != nil {
		return
	}
	w.writeMutex.Lock()
	defer w.writeMutex.Unlock()
	_, err = packet.New(data).WriteTo(w.conn)
	return
}

// Read reads one framed message and reconstructs its concrete type.
func (w *Wire) Read() (message proto.Message, err error) {
	data, err := packet.DecodeFrom(w.conn)
	if err != nil {
		return
	}
	wrapped := &anypb.Any{}
	err = proto.Unmarshal(data, wrapped)
	if err != nil {
		return
	}
	message, err = wrapped.UnmarshalNew()
	return
}
