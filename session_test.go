package hap

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func testSession(t *testing.T) (*session, *session) {
	t.Helper()

	var shared [32]byte
	copy(shared[:], bytes.Repeat([]byte{0x7}, 32))

	s, err := newSession(shared, Pairing{Name: "test"})
	if err != nil {
		t.Fatal(err)
	}

	// the controller end encrypts with the accessory's read key
	peer := &session{
		encryptKey: s.decryptKey,
		decryptKey: s.encryptKey,
	}

	return s, peer
}

func TestSessionRoundTrip(t *testing.T) {
	s, peer := testSession(t)

	msg := []byte("HTTP/1.1 200 OK\r\n\r\n")
	raw, err := s.Encrypt(msg)
	if err != nil {
		t.Fatal(err)
	}

	b, err := peer.Decrypt(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, msg) {
		t.Fatalf("%q != %q", b, msg)
	}

	if s.encryptCount != 1 || peer.decryptCount != 1 {
		t.Fatalf("counters %d/%d, want 1/1", s.encryptCount, peer.decryptCount)
	}
}

func TestFrameSplit(t *testing.T) {
	s, peer := testSession(t)

	// a 2050 byte message is framed as 1024 + 1024 + 2 bytes
	msg := bytes.Repeat([]byte{0xaa}, 2050)
	raw, err := s.Encrypt(msg)
	if err != nil {
		t.Fatal(err)
	}

	var lengths []int
	for i := 0; i < len(raw); {
		l := int(binary.LittleEndian.Uint16(raw[i:]))
		lengths = append(lengths, l)
		i += 2 + l + 16
	}
	want := []int{1024, 1024, 2}
	if len(lengths) != len(want) {
		t.Fatalf("%d frames, want %d", len(lengths), len(want))
	}
	for i := range want {
		if lengths[i] != want[i] {
			t.Fatalf("frame %d has length %d, want %d", i, lengths[i], want[i])
		}
	}

	if s.encryptCount != 3 {
		t.Fatalf("encrypt counter %d, want 3", s.encryptCount)
	}

	b, err := peer.Decrypt(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, msg) {
		t.Fatal("decrypted message differs")
	}
	if peer.decryptCount != 3 {
		t.Fatalf("decrypt counter %d, want 3", peer.decryptCount)
	}
}

func TestReplayedFrameFails(t *testing.T) {
	s, peer := testSession(t)

	raw, err := s.Encrypt([]byte("turn the lights on"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := peer.Decrypt(bytes.NewReader(raw)); err != nil {
		t.Fatal(err)
	}

	// the peer counter moved on, replaying the frame must fail
	if _, err := peer.Decrypt(bytes.NewReader(raw)); err == nil {
		t.Fatal("replayed frame accepted")
	}
}

func TestTamperedFrameFails(t *testing.T) {
	s, peer := testSession(t)

	raw, err := s.Encrypt([]byte("abc"))
	if err != nil {
		t.Fatal(err)
	}
	raw[2] ^= 0x1

	if _, err := peer.Decrypt(bytes.NewReader(raw)); err == nil {
		t.Fatal("tampered frame accepted")
	}
}

func TestOversizedFrameRejected(t *testing.T) {
	_, peer := testSession(t)

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint16(PacketLengthMax+1))
	buf.Write(bytes.Repeat([]byte{0}, PacketLengthMax+1+16))

	if _, err := peer.Decrypt(&buf); err == nil {
		t.Fatal("oversized frame accepted")
	}
}
