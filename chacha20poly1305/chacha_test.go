package chacha20poly1305

import (
	"bytes"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	nonce := []byte("PS-Msg05")
	add := []byte{0x02, 0x00}
	msg := []byte("hello hap")

	encrypted, mac, err := EncryptAndSeal(key, nonce, msg, add)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(encrypted, msg) {
		t.Fatal("message is not encrypted")
	}

	decrypted, err := DecryptAndVerify(key, nonce, encrypted, mac, add)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted, msg) {
		t.Fatalf("%q != %q", decrypted, msg)
	}
}

func TestDecryptFailsOnBitFlip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	nonce := []byte("PS-Msg05")
	add := []byte{0x02, 0x00}
	msg := []byte("hello hap")

	encrypted, mac, err := EncryptAndSeal(key, nonce, msg, add)
	if err != nil {
		t.Fatal(err)
	}

	flip := func(b []byte, i int) []byte {
		c := append([]byte{}, b...)
		c[i] ^= 0x1
		return c
	}

	if _, err := DecryptAndVerify(key, nonce, flip(encrypted, 0), mac, add); err == nil {
		t.Fatal("flipped ciphertext bit accepted")
	}

	var badMac [16]byte
	copy(badMac[:], flip(mac[:], 3))
	if _, err := DecryptAndVerify(key, nonce, encrypted, badMac, add); err == nil {
		t.Fatal("flipped tag bit accepted")
	}

	if _, err := DecryptAndVerify(key, flip(nonce, 0), encrypted, mac, add); err == nil {
		t.Fatal("flipped nonce bit accepted")
	}

	if _, err := DecryptAndVerify(key, nonce, encrypted, mac, flip(add, 1)); err == nil {
		t.Fatal("flipped associated data bit accepted")
	}
}

func TestNonceTooLong(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	if _, _, err := EncryptAndSeal(key, bytes.Repeat([]byte{0x1}, 13), []byte("x"), nil); err == nil {
		t.Fatal("13 byte nonce accepted")
	}
}
