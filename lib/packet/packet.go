// Package packet frames protocol messages on a byte stream.
// Every packet is a length header followed by that many payload bytes,
// so message boundaries survive the stream transport.
package packet

import "io"

// Packet is one length-delimited frame of a message stream.
type Packet []byte

// New constructs a new Packet from a sequence of bytes.
func New(data []byte) Packet {
	return data
}

// WriteTo writes the length header and the payload to an io.Writer.
func (p Packet) WriteTo(w io.Writer) (n int64, err error) {
	length, err := LengthOf(p)
	if err != nil {
		return
	}
	n1, err := w.Write(length.Bytes())
	if err != nil {
		return
	}
	n2, err := w.Write(p)
	n = int64(n1 + n2)
	return
}

// DecodeFrom reads one whole Packet from an io.Reader and returns it.
func DecodeFrom(r io.Reader) (packet Packet, err error) {
	var header [LengthSize]byte
	_, err = io.ReadFull(r, header[:])
	if err != nil {
		return
	}
	length, err := DecodeLength(header[:])
	if err != nil {
		return
	}
	packet = make([]byte, length)
	_, err = io.ReadFull(r, packet)
	return
}

// Size returns the number of bytes that encode this packet on the wire.
func (p Packet) Size() int64 {
	return int64(LengthSize + len(p))
}
