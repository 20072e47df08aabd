// Package secure encrypts a duplex connection with the Noise protocol
// framework. Payloads travel as length-delimited ciphertexts; the length
// header is authenticated as associated data.
package secure

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/flynn/noise"

	"projekt/machine/lib/device"
	"projekt/machine/lib/packet"
)

// TagSize is the size of the authentication tag of the noise ciphers.
const TagSize = 16

// MessageMaxSize is the maximum byte size of an encrypted noise message.
const MessageMaxSize = packet.MaxLength

// PayloadMaxSize is the maximum byte size of one message's plaintext.
const PayloadMaxSize = MessageMaxSize - TagSize

// Conn is an encrypted connection between two authenticated devices.
type Conn interface {
	net.Conn

	// LocalIdentity returns the identity this side handshakes as.
	LocalIdentity() device.X25519Identity

	// RemoteIdentity returns the identity of the peer on the other side.
	RemoteIdentity() device.X25519Identity
}

// WrapConn encrypts an established connection with the cipher states
// produced by a completed handshake.
func WrapConn(local, remote device.X25519Identity, conn net.Conn,
	writeCipher, readCipher *noise.CipherState) Conn {
	return &noiseConn{
		Conn:        conn,
		local:       local,
		remote:      remote,
		writeCipher: writeCipher,
		readCipher:  readCipher,
	}
}

type noiseConn struct {
	net.Conn
	local       device.X25519Identity
	remote      device.X25519Identity
	writeCipher *noise.CipherState
	readCipher  *noise.CipherState
	writeMutex  sync.Mutex
	readMutex   sync.Mutex
	leftover    []byte
}

// Write encrypts p and writes it to the underlying connection, splitting
// payloads longer than PayloadMaxSize across multiple noise messages.
func (c *noiseConn) Write(p []byte) (n int, err error) {
	// Noise enforces that messages are decrypted in the order they were
	// encrypted, so encrypting and writing must be one atomic operation.
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()

	for len(p) > 0 {
		chunk := p
		if len(chunk) > PayloadMaxSize {
			chunk = chunk[:PayloadMaxSize]
		}
		header := packet.Length(len(chunk) + TagSize).Bytes()
		message, encryptErr := c.writeCipher.Encrypt(header, header, chunk)
		if encryptErr != nil {
			err = encryptErr
			return
		}
		m, writeErr := c.Conn.Write(message)
		if writeErr != nil {
			err = writeErr
			return
		}
		if m != len(message) {
			err = errors.New("failed to write entire noise message")
			return
		}
		n += len(chunk)
		p = p[len(chunk):]
	}
	return
}

// Read decrypts the next noise message and copies its plaintext into p.
// Plaintext that does not fit is buffered for subsequent reads,
// giving the stream semantics of a net.Conn.
func (c *noiseConn) Read(p []byte) (n int, err error) {
	c.readMutex.Lock()
	defer c.readMutex.Unlock()

	if len(c.leftover) == 0 {
		var header [packet.LengthSize]byte
		_, err = io.ReadFull(c.Conn, header[:])
		if err != nil {
			return
		}
		size, decodeErr := packet.DecodeLength(header[:])
		if decodeErr != nil {
			err = decodeErr
			return
		}
		ciphertext := make([]byte, size)
		_, err = io.ReadFull(c.Conn, ciphertext)
		if err != nil {
			return
		}
		c.leftover, err = c.readCipher.Decrypt(ciphertext[:0], size.Bytes(), ciphertext)
		if err != nil {
			return
		}
	}

	n = copy(p, c.leftover)
	c.leftover = c.leftover[n:]
	return
}

func (c *noiseConn) LocalIdentity() device.X25519Identity {
	return c.local
}

func (c *noiseConn) RemoteIdentity() device.X25519Identity {
	return c.remote
}
