package hap

import (
	"github.com/boundless-engineering/hap/hkdf"

	"golang.org/x/crypto/curve25519"

	"crypto/rand"
	"fmt"
	"io"
)

// pairVerifySession is the transient state of a pair-verify exchange on
// one connection: an ephemeral Curve25519 key pair and the derived
// shared secret. It is replaced by a session once M4 is sent.
type pairVerifySession struct {
	PublicKey      [32]byte
	OtherPublicKey [32]byte
	SharedKey      [32]byte
	EncryptionKey  [32]byte

	privateKey [32]byte
}

// newPairVerifySession returns a session with a fresh ephemeral
// Curve25519 key pair.
func newPairVerifySession() (*pairVerifySession, error) {
	s := &pairVerifySession{}
	if _, err := io.ReadFull(rand.Reader, s.privateKey[:]); err != nil {
		return nil, err
	}

	pub, err := curve25519.X25519(s.privateKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(s.PublicKey[:], pub)

	return s, nil
}

// GenerateSharedSecret computes the Diffie-Hellman secret with the
// controller public key and derives the verify encryption key.
func (s *pairVerifySession) GenerateSharedSecret(otherPublicKey []byte) error {
	if len(otherPublicKey) != 32 {
		return fmt.Errorf("invalid public key length %d", len(otherPublicKey))
	}
	copy(s.OtherPublicKey[:], otherPublicKey)

	shared, err := curve25519.X25519(s.privateKey[:], otherPublicKey)
	if err != nil {
		return err
	}
	copy(s.SharedKey[:], shared)

	s.EncryptionKey, err = hkdf.Sha512(s.SharedKey[:], []byte("Pair-Verify-Encrypt-Salt"), []byte("Pair-Verify-Encrypt-Info"))

	return err
}
