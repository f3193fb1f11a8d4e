package hap

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// registry tracks every client connection and its pairing state,
// keyed by remote address. A connection starts with no state, carries a
// *pairVerifySession while pair-verify runs and a *session once it is
// established.
type registry struct {
	mu       sync.Mutex
	conns    map[string]*conn
	sessions map[string]interface{}
}

var clients = &registry{
	conns:    make(map[string]*conn),
	sessions: make(map[string]interface{}),
}

func (r *registry) addConn(addr string, c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[addr] = c
}

func (r *registry) conn(addr string) *conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.conns[addr]
}

// activeConns returns a snapshot of all tracked connections.
func (r *registry) activeConns() map[string]*conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make(map[string]*conn, len(r.conns))
	for addr, c := range r.conns {
		all[addr] = c
	}

	return all
}

func (r *registry) setSession(addr string, state interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[addr] = state
}

func (r *registry) removeSession(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, addr)
}

// session returns the established session of the connection at addr.
func (r *registry) session(addr string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.sessions[addr]; ok {
		if s, ok := v.(*session); ok {
			return s, nil
		}
		return nil, fmt.Errorf("unexpected session %T for %s", v, addr)
	}

	return nil, fmt.Errorf("no session for %s", addr)
}

// verifySession returns the running pair-verify state of the
// connection at addr.
func (r *registry) verifySession(addr string) (*pairVerifySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.sessions[addr]; ok {
		if s, ok := v.(*pairVerifySession); ok {
			return s, nil
		}
		return nil, fmt.Errorf("unexpected session %T for %s", v, addr)
	}

	return nil, fmt.Errorf("no session for %s", addr)
}

// drop forgets the connection at addr and its state.
func (r *registry) drop(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, addr)
	delete(r.sessions, addr)
}

// conn is a client connection. It starts out as a plaintext TCP
// connection and upgrades to encrypted framing once pair-verify
// completed on it.
type conn struct {
	net.Conn

	smu sync.Mutex
	// ss is the active session, nil before pair verify completed
	ss *session
	// upSess is activated on the next read, so that the pair-verify M4
	// response still leaves under the previous keys (or in plaintext)
	upSess *session

	// readBuf holds decrypted bytes not yet consumed by the parser
	readBuf bytes.Buffer

	wmu sync.Mutex

	events *eventQueue

	inflight int32
}

func newConn(c net.Conn) *conn {
	return &conn{
		Conn:   c,
		events: newEventQueue(),
	}
}

// UpgradeEnc arms the session for the connection. Encryption starts
// with the next read.
func (c *conn) UpgradeEnc(s *session) {
	c.smu.Lock()
	defer c.smu.Unlock()

	c.upSess = s
}

// Encrypted reports whether the connection upgraded to encrypted framing.
func (c *conn) Encrypted() bool {
	c.smu.Lock()
	defer c.smu.Unlock()

	return c.ss != nil || c.upSess != nil
}

// Write writes bytes to the connection. The bytes are encrypted and
// framed when a session is active.
func (c *conn) Write(b []byte) (int, error) {
	c.smu.Lock()
	ss := c.ss
	c.smu.Unlock()

	if ss == nil {
		return c.Conn.Write(b)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	enc, err := ss.Encrypt(b)
	if err != nil {
		return 0, err
	}

	if _, err := c.Conn.Write(enc); err != nil {
		return 0, err
	}

	return len(b), nil
}

// Read reads bytes from the connection. With an active session, whole
// frames are read from the socket and decrypted; leftover plaintext is
// kept for the next read. A frame which fails authentication is an
// error and ends the connection without a reply.
func (c *conn) Read(b []byte) (int, error) {
	if c.readBuf.Len() > 0 {
		return c.readBuf.Read(b)
	}

	c.smu.Lock()
	if c.upSess != nil {
		c.ss = c.upSess
		c.upSess = nil
	}
	ss := c.ss
	c.smu.Unlock()

	if ss == nil {
		return c.Conn.Read(b)
	}

	plain, err := ss.decryptFrame(c.Conn)
	if err != nil {
		return 0, err
	}
	c.readBuf.Write(plain)

	return c.readBuf.Read(b)
}

func (c *conn) requestStarted() {
	atomic.AddInt32(&c.inflight, 1)
}

func (c *conn) requestDone() {
	atomic.AddInt32(&c.inflight, -1)
}

// idle reports whether no request is currently served on the connection.
// Events are only flushed to idle connections.
func (c *conn) idle() bool {
	return atomic.LoadInt32(&c.inflight) == 0
}
