package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Length is the length header of a Packet.
// It must be encoded with the Bytes method to ensure consistency on the wire.
type Length uint16

// LengthSize is the byte size of a Length.
const LengthSize = 2

// MaxLength is the maximum payload length of a Packet.
const MaxLength = (1 << (LengthSize << 3)) - 1

// LengthOf returns the Length of the passed payload.
// It returns an error if the payload is larger than MaxLength.
func LengthOf(data []byte) (Length, error) {
	if len(data) > MaxLength {
		return 0, fmt.Errorf("packet payload may not exceed %v bytes", MaxLength)
	}
	return Length(len(data)), nil
}

// DecodeLength decodes a Length that was encoded with Length.Bytes.
func DecodeLength(raw []byte) (Length, error) {
	if len(raw) != LengthSize {
		return 0, errors.New(fmt.Sprintf("a length header must be %v bytes long", LengthSize))
	}
	return Length(binary.BigEndian.Uint16(raw)), nil
}

// Bytes encodes a Length to two big endian bytes.
func (l Length) Bytes() []byte {
	bytes := make([]byte, LengthSize)
	binary.BigEndian.PutUint16(bytes, uint16(l))
	return bytes
}
