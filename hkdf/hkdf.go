// Package hkdf derives fixed-size keys with HKDF-SHA512.
package hkdf

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Sha512 derives a 32-byte key from master, salt and info with HKDF-SHA512.
func Sha512(master, salt, info []byte) ([32]byte, error) {
	var key [32]byte
	r := hkdf.New(sha512.New, master, salt, info)
	_, err := io.ReadFull(r, key[:])

	return key, err
}
