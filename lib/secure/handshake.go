package secure

import (
	"crypto/rand"
	"errors"
	"net"

	"github.com/flynn/noise"

	"projekt/machine/lib/device"
	"projekt/machine/lib/packet"
)

// CipherSuite is the noise cipher suite both sides must handshake with.
var CipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

var MissingRemoteIdentity = errors.New("handshake did not yield the peer's static key")

// Client performs the initiator side of an XX handshake on conn
// and returns the encrypted connection.
func Client(conn net.Conn, keys device.NoiseKeyPair) (Conn, error) {
	handshake, err := newHandshakeState(keys, true)
	if err != nil {
		return nil, err
	}

	// -> e
	message, _, _, err := handshake.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if err = writeHandshakeMessage(conn, message); err != nil {
		return nil, err
	}

	// <- e, ee, s, es
	message, err = readHandshakeMessage(conn)
	if err != nil {
		return nil, err
	}
	if _, _, _, err = handshake.ReadMessage(nil, message); err != nil {
		return nil, err
	}

	// -> s, se
	message, toResponder, toInitiator, err := handshake.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if err = writeHandshakeMessage(conn, message); err != nil {
		return nil, err
	}

	return wrapHandshake(conn, keys, handshake, toResponder, toInitiator)
}

// Server performs the responder side of an XX handshake on conn
// and returns the encrypted connection.
func Server(conn net.Conn, keys device.NoiseKeyPair) (Conn, error) {
	handshake, err := newHandshakeState(keys, false)
	if err != nil {
		return nil, err
	}

	// <- e
	message, err := readHandshakeMessage(conn)
	if err != nil {
		return nil, err
	}
	if _, _, _, err = handshake.ReadMessage(nil, message); err != nil {
		return nil, err
	}

	// -> e, ee, s, es
	message, _, _, err = handshake.WriteMessage(nil, nil)
	if err != nil {
		return nil, err
	}
	if err = writeHandshakeMessage(conn, message); err != nil {
		return nil, err
	}

	// <- s, se
	message, err = readHandshakeMessage(conn)
	if err != nil {
		return nil, err
	}
	_, toResponder, toInitiator, err := handshake.ReadMessage(nil, message)
	if err != nil {
		return nil, err
	}

	return wrapHandshake(conn, keys, handshake, toInitiator, toResponder)
}

func newHandshakeState(keys device.NoiseKeyPair, initiator bool) (*noise.HandshakeState, error) {
	return noise.NewHandshakeState(noise.Config{
		CipherSuite:   CipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: keys,
	})
}

// wrapHandshake finishes a handshake by extracting the peer's identity.
// The noise library returns the two cipher states in the same order on both
// sides: the first encrypts initiator-to-responder traffic.
func wrapHandshake(conn net.Conn, keys device.NoiseKeyPair,
	handshake *noise.HandshakeState, writeCipher, readCipher *noise.CipherState) (Conn, error) {
	remote := handshake.PeerStatic()
	if len(remote) == 0 {
		return nil, MissingRemoteIdentity
	}
	local := device.X25519Identity(keys.Public)
	return WrapConn(local, device.X25519Identity(remote), conn, writeCipher, readCipher), nil
}

func writeHandshakeMessage(conn net.Conn, message []byte) error {
	_, err := packet.New(message).WriteTo(conn)
	return err
}

func readHandshakeMessage(conn net.Conn) ([]byte, error) {
	return packet.DecodeFrom(conn)
}
