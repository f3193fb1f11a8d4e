package hap

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestEventQueueOverwritesOldest(t *testing.T) {
	q := newEventQueue()
	for i := 1; i <= 6; i++ {
		q.push(event{aid: 1, iid: uint64(i), value: i})
	}

	evs := q.drain()
	if len(evs) != eventQueueSize {
		t.Fatalf("%d events, want %d", len(evs), eventQueueSize)
	}
	for i, ev := range evs {
		if want := uint64(i + 3); ev.iid != want {
			t.Fatalf("event %d has iid %d, want %d", i, ev.iid, want)
		}
	}

	if evs := q.drain(); len(evs) != 0 {
		t.Fatalf("%d events after drain, want 0", len(evs))
	}
}

func TestEventQueueCoalesces(t *testing.T) {
	q := newEventQueue()
	q.push(event{aid: 1, iid: 4, value: 10})
	q.push(event{aid: 1, iid: 5, value: true})
	q.push(event{aid: 1, iid: 4, value: 30})

	evs := q.drain()
	if len(evs) != 2 {
		t.Fatalf("%d events, want 2", len(evs))
	}
	// one entry per characteristic, carrying the latest value
	if evs[0].iid != 4 || evs[0].value != 30 {
		t.Fatalf("event 0 is %d=%v, want 4=30", evs[0].iid, evs[0].value)
	}
	if evs[1].iid != 5 || evs[1].value != true {
		t.Fatalf("event 1 is %d=%v, want 5=true", evs[1].iid, evs[1].value)
	}
}

func TestFlushEvents(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.50:5001"
	c, client := establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})

	peer := &session{
		encryptKey: c.ss.decryptKey,
		decryptKey: c.ss.encryptKey,
	}

	c.events.push(event{aid: 1, iid: 9, value: true})

	msg := make(chan []byte, 1)
	go func() {
		// a batch fits into one frame
		var length [2]byte
		io.ReadFull(client, length[:])
		rest := make([]byte, (int(length[0])|int(length[1])<<8)+16)
		io.ReadFull(client, rest)
		b, err := peer.Decrypt(bytes.NewReader(append(length[:], rest...)))
		if err != nil {
			msg <- nil
			return
		}
		msg <- b
	}()

	srv.flushEvents()

	b := <-msg
	if b == nil {
		t.Fatal("event frame did not decrypt")
	}
	s := string(b)
	if !strings.HasPrefix(s, "EVENT/1.0 200 OK\r\n") {
		t.Fatalf("unexpected event message %q", s)
	}
	if !strings.Contains(s, "Content-Type: application/hap+json") {
		t.Fatalf("missing content type in %q", s)
	}
	if !strings.Contains(s, `"aid":1`) || !strings.Contains(s, `"iid":9`) || !strings.Contains(s, `"value":true`) {
		t.Fatalf("unexpected event body %q", s)
	}
}

func TestFlushSkipsBusyConnections(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.50:5002"
	c, _ := establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})

	c.events.push(event{aid: 1, iid: 9, value: true})
	c.requestStarted()
	defer c.requestDone()

	// nothing is written while a request is in flight; a write would
	// block forever on the unread pipe
	srv.flushEvents()

	if evs := c.events.drain(); len(evs) != 1 {
		t.Fatalf("%d events left, want 1", len(evs))
	}
}
