package hap

import (
	"github.com/boundless-engineering/hap/chacha20poly1305"
	"github.com/boundless-engineering/hap/hkdf"

	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// PacketLengthMax is the maximum plaintext length of a single frame.
const PacketLengthMax = 0x400

// session holds the AEAD keys and nonce counters of a verified
// connection. Writes are encrypted with the read key of the controller,
// reads are decrypted with its write key. Counters start at zero and
// advance by one per frame in each direction.
type session struct {
	Pairing Pairing

	encryptKey   [32]byte
	decryptKey   [32]byte
	encryptCount uint64
	decryptCount uint64
}

// newSession derives the session keys from the shared secret of a
// completed pair-verify exchange.
func newSession(shared [32]byte, p Pairing) (*session, error) {
	salt := []byte("Control-Salt")

	encryptKey, err := hkdf.Sha512(shared[:], salt, []byte("Control-Read-Encryption-Key"))
	if err != nil {
		return nil, err
	}
	decryptKey, err := hkdf.Sha512(shared[:], salt, []byte("Control-Write-Encryption-Key"))
	if err != nil {
		return nil, err
	}

	return &session{
		Pairing:    p,
		encryptKey: encryptKey,
		decryptKey: decryptKey,
	}, nil
}

// Encrypt frames and encrypts plain, splitting it into frames of at
// most PacketLengthMax bytes:
//
//	[ length (2 bytes) ] [ ciphertext ] [ auth tag (16 bytes) ]
//
// The length bytes are the associated data of each frame.
func (s *session) Encrypt(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	for len(plain) > 0 {
		n := len(plain)
		if n > PacketLengthMax {
			n = PacketLengthMax
		}

		var head [2]byte
		binary.LittleEndian.PutUint16(head[:], uint16(n))

		ciphertext, mac, err := chacha20poly1305.EncryptAndSeal(s.encryptKey[:], s.nextNonce(&s.encryptCount), plain[:n], head[:])
		if err != nil {
			return nil, err
		}

		buf.Write(head[:])
		buf.Write(ciphertext)
		buf.Write(mac[:])
		plain = plain[n:]
	}

	return buf.Bytes(), nil
}

// Decrypt reads frames from r until it is drained and returns the
// concatenated plaintext.
func (s *session) Decrypt(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		plain, err := s.decryptFrame(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		buf.Write(plain)
	}

	return buf.Bytes(), nil
}

// decryptFrame reads and decrypts a single frame from r. Reading
// continues until the whole frame arrived; a frame failing
// authentication is an error, and the caller must drop the session.
func (s *session) decryptFrame(r io.Reader) ([]byte, error) {
	var head [2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint16(head[:])
	if length == 0 || length > PacketLengthMax {
		return nil, fmt.Errorf("invalid frame length %d", length)
	}

	body := make([]byte, int(length)+16)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	var mac [16]byte
	copy(mac[:], body[length:])

	plain, err := chacha20poly1305.DecryptAndVerify(s.decryptKey[:], s.nextNonce(&s.decryptCount), body[:length], mac, head[:])
	if err != nil {
		return nil, fmt.Errorf("frame authentication failed: %s", err)
	}

	return plain, nil
}

// nextNonce returns the 8 byte nonce for the current counter value and
// advances the counter.
func (s *session) nextNonce(counter *uint64) []byte {
	var nonce [8]byte
	binary.LittleEndian.PutUint64(nonce[:], *counter)
	*counter++

	return nonce[:]
}
