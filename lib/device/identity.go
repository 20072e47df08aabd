// Package device holds the long-lived identity key of a device.
// A device is identified by its ed25519 public key; the X25519 conversion
// of the key pair is what the noise transport handshakes with.
package device

import (
	"io"

	"github.com/flynn/noise"
	"github.com/oasisprotocol/curve25519-voi/primitives/ed25519"
	"github.com/oasisprotocol/curve25519-voi/primitives/x25519"
)

// Key is the private key of a device.
type Key ed25519.PrivateKey

// X25519Key is the X25519 version of a Key.
type X25519Key []byte

func (k Key) X25519() X25519Key {
	return x25519.EdPrivateKeyToX25519(ed25519.PrivateKey(k))
}

// Identity is the public key of a device. It identifies the device.
type Identity ed25519.PublicKey

// X25519Identity is the X25519 version of an Identity.
type X25519Identity []byte

func (k Identity) X25519() X25519Identity {
	key, ok := x25519.EdPublicKeyToX25519(ed25519.PublicKey(k))
	if !ok {
		panic("failed to convert ed25519 public key to X25519 key")
	}
	return key
}

// Equal reports whether two X25519 identities name the same device.
func (k X25519Identity) Equal(other X25519Identity) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// KeyPair holds both a Key and its corresponding Identity.
type KeyPair struct {
	Private Key
	Public  Identity
}

// NoiseKeyPair is the X25519 version of a KeyPair,
// as consumed by the noise handshake.
type NoiseKeyPair = noise.DHKey

// GenerateKeyPair generates a new KeyPair from the given randomness source.
func GenerateKeyPair(reader io.Reader) (KeyPair, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		Private: Key(privateKey),
		Public:  Identity(publicKey),
	}, nil
}

// Noise returns the NoiseKeyPair that holds the X25519 version of this KeyPair.
func (k *KeyPair) Noise() NoiseKeyPair {
	return noise.DHKey{
		Private: k.Private.X25519(),
		Public:  k.Public.X25519(),
	}
}
