// Package ed25519 signs and verifies data with Ed25519 long-term keys.
package ed25519

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/ed25519"
)

// GenerateKey returns a new public and private key pair.
func GenerateKey() ([]byte, []byte, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)

	return public, private, err
}

// Signature returns the signature of data signed with the private key.
func Signature(privateKey, data []byte) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, errors.New("ed25519: invalid private key size")
	}

	return ed25519.Sign(privateKey, data), nil
}

// ValidateSignature reports whether signature is a valid signature of
// data by the public key.
func ValidateSignature(publicKey, data, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}

	return ed25519.Verify(publicKey, data, signature)
}
