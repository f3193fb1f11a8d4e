package hap

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

func TestConnUpgradeEnc(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := newConn(server)
	ss, peer := testSession(t)

	// before the upgrade everything is plaintext
	go c.Write([]byte("M2"))
	buf := make([]byte, 2)
	if _, err := client.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "M2" {
		t.Fatalf("%q != %q", buf, "M2")
	}

	c.UpgradeEnc(ss)

	// the response armed with the session still leaves in plaintext
	go c.Write([]byte("M4"))
	if _, err := client.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "M4" {
		t.Fatalf("%q != %q", buf, "M4")
	}

	// the next read activates the session
	raw, err := peer.Encrypt([]byte("GET"))
	if err != nil {
		t.Fatal(err)
	}
	go client.Write(raw)

	plain := make([]byte, 3)
	if _, err := c.Read(plain); err != nil {
		t.Fatal(err)
	}
	if string(plain) != "GET" {
		t.Fatalf("%q != %q", plain, "GET")
	}

	// writes are encrypted from now on
	done := make(chan struct{})
	go func() {
		defer close(done)
		frame := make([]byte, 2+4+16)
		if _, err := io.ReadFull(client, frame); err != nil {
			t.Error(err)
			return
		}
		b, err := peer.Decrypt(bytes.NewReader(frame))
		if err != nil {
			t.Error(err)
			return
		}
		if string(b) != "resp" {
			t.Errorf("%q != %q", b, "resp")
		}
	}()
	if _, err := c.Write([]byte("resp")); err != nil {
		t.Fatal(err)
	}
	<-done
}

func TestConnPartialFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := newConn(server)
	ss, peer := testSession(t)
	c.UpgradeEnc(ss)

	raw, err := peer.Encrypt([]byte("split"))
	if err != nil {
		t.Fatal(err)
	}

	// the frame arrives in two chunks; the reader waits for the rest
	go func() {
		client.Write(raw[:3])
		time.Sleep(10 * time.Millisecond)
		client.Write(raw[3:])
	}()

	plain := make([]byte, 5)
	if _, err := c.Read(plain); err != nil {
		t.Fatal(err)
	}
	if string(plain) != "split" {
		t.Fatalf("%q != %q", plain, "split")
	}
}

func TestConnLeftoverPlaintext(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := newConn(server)
	ss, peer := testSession(t)
	c.UpgradeEnc(ss)

	raw, err := peer.Encrypt([]byte("abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	go client.Write(raw)

	// decrypted bytes beyond the caller's buffer are kept for the
	// next read
	buf := make([]byte, 4)
	if _, err := c.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abcd" {
		t.Fatalf("%q != %q", buf, "abcd")
	}
	rest := make([]byte, 2)
	if _, err := c.Read(rest); err != nil {
		t.Fatal(err)
	}
	if string(rest) != "ef" {
		t.Fatalf("%q != %q", rest, "ef")
	}
}
