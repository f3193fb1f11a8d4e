// Package chacha20poly1305 provides ChaCha20-Poly1305 encryption with the
// nonce layout used by HAP, where nonces shorter than 12 bytes are
// left-padded with zeros.
package chacha20poly1305

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// EncryptAndSeal encrypts the message with the given key and nonce and
// returns the ciphertext and the 16-byte Poly1305 tag.
func EncryptAndSeal(key, nonce, message []byte, add []byte) ([]byte, [16]byte, error) {
	var mac [16]byte

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, mac, err
	}

	n, err := fullNonce(nonce)
	if err != nil {
		return nil, mac, err
	}

	sealed := aead.Seal(nil, n, message, add)
	out := sealed[:len(sealed)-16]
	copy(mac[:], sealed[len(out):])

	return out, mac, nil
}

// DecryptAndVerify decrypts the message with the given key and nonce and
// verifies the Poly1305 tag. It returns an error if verification fails.
func DecryptAndVerify(key, nonce, message []byte, mac [16]byte, add []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	n, err := fullNonce(nonce)
	if err != nil {
		return nil, err
	}

	return aead.Open(nil, n, append(append([]byte{}, message...), mac[:]...), add)
}

var errNonceTooLong = errors.New("chacha20poly1305: nonce longer than 12 bytes")

// fullNonce left-pads the nonce with zeros to 12 bytes.
func fullNonce(nonce []byte) ([]byte, error) {
	if len(nonce) > chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("%v (%d)", errNonceTooLong, len(nonce))
	}

	n := make([]byte, chacha20poly1305.NonceSize)
	copy(n[chacha20poly1305.NonceSize-len(nonce):], nonce)

	return n, nil
}
