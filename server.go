package hap

import (
	"github.com/boundless-engineering/hap/accessory"
	"github.com/boundless-engineering/hap/characteristic"
	"github.com/boundless-engineering/hap/ed25519"
	"github.com/boundless-engineering/hap/log"
	"github.com/go-chi/chi"

	"context"
	"crypto/sha512"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultAddr is the address the server listens on unless
	// configured otherwise.
	DefaultAddr = ":5556"

	// DefaultMaxClients is the number of concurrently connected
	// controllers unless configured otherwise.
	DefaultMaxClients = 8

	// keepAlivePeriod is the TCP keep-alive probe interval used to
	// detect dead peers.
	keepAlivePeriod = 30 * time.Second

	// eventFlushInterval is the pace at which queued events are
	// delivered to idle connections.
	eventFlushInterval = 250 * time.Millisecond
)

// Server is a HomeKit accessory server. It terminates encrypted HAP
// sessions from controllers and mediates access to the accessory tree.
type Server struct {
	// Pin is the 8-digit setup code, either bare ("00102003") or
	// dash-formatted ("001-02-003").
	Pin string

	// PinFunc, if set, provides the setup code at start instead of Pin.
	PinFunc func() string

	// Addr is the listen address.
	Addr string

	// MaxClients caps the concurrently connected controllers.
	// Connections beyond the cap are closed right after accept.
	MaxClients int

	// SetupId is an optional 4-character id used for the Bonjour
	// setup hash.
	SetupId string

	// ResourceHandler serves POST /resource requests, e.g. camera
	// snapshots. Requests are answered with 404 when nil.
	ResourceHandler http.HandlerFunc

	// BeforeHeavyCrypto and AfterHeavyCrypto, if set, are called
	// around long-running cryptographic operations. Hosts with
	// watchdogs can use them to extend deadlines.
	BeforeHeavyCrypto func()
	AfterHeavyCrypto  func()

	// Key is the long-term key pair of the accessory.
	Key KeyPair

	uuid string

	a  *accessory.A
	as []*accessory.A

	st *storer

	router chi.Router
	http   *http.Server

	setupMu sync.Mutex
	setup   *pairSetupSession

	numClients int32

	mdns *mdnsService
}

// NewServer returns a server for one or more accessories backed by the
// given store. The first accessory acts as a bridge when more than one
// accessory is hosted. Accessory ids are assigned in order and are
// stable for the lifetime of the process.
func NewServer(store Store, a *accessory.A, as ...*accessory.A) (*Server, error) {
	srv := &Server{
		Pin:        "00102003",
		Addr:       DefaultAddr,
		MaxClients: DefaultMaxClients,
		a:          a,
		as:         as,
		st:         &storer{store},
	}

	a.Id = 1
	for i, ex := range as {
		ex.Id = uint64(i + 2)
	}

	uuid, err := srv.st.AccessoryId()
	if err != nil {
		return nil, err
	}
	srv.uuid = uuid

	key, err := srv.st.KeyPair()
	if err != nil {
		public, private, err := ed25519.GenerateKey()
		if err != nil {
			return nil, err
		}
		key = KeyPair{Public: public, Private: private}
		if err := srv.st.SaveKeyPair(key); err != nil {
			return nil, err
		}
	}
	srv.Key = key

	// fan value changes out to subscribed connections
	for _, acc := range srv.accessories() {
		aid := acc.Id
		for _, s := range acc.Ss {
			for _, c := range s.Cs {
				c.OnCValueUpdate(func(c *characteristic.C, new, old interface{}, req *http.Request) {
					srv.notify(aid, c, new, req)
				})
			}
		}
	}

	srv.updateConfigNumber()
	srv.setupRouter()

	return srv, nil
}

// ListenAndServe starts the server and blocks until the context is
// cancelled or the listener fails.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	if srv.PinFunc != nil {
		srv.Pin = srv.PinFunc()
	}
	if err := validatePin(srv.Pin); err != nil {
		return err
	}

	if !srv.isPaired() {
		// precompute the SRP state so M1 answers fast
		srv.prepPairSetupAsync()
	}

	addr := srv.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return err
	}
	defer ln.Close()

	srv.http = &http.Server{
		Handler:   srv.router,
		ConnState: srv.connState,
	}

	go srv.advertise(ctx, ln.Addr().(*net.TCPAddr).Port)

	go func() {
		t := time.NewTicker(eventFlushInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				srv.flushEvents()
			}
		}
	}()

	go func() {
		<-ctx.Done()
		srv.http.Close()
	}()

	err = srv.http.Serve(&tcpListener{TCPListener: ln, srv: srv})
	if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
		return ctx.Err()
	}

	return err
}

// tcpListener accepts client connections and enforces the client cap.
type tcpListener struct {
	*net.TCPListener
	srv *Server
}

func (l *tcpListener) Accept() (net.Conn, error) {
	for {
		c, err := l.AcceptTCP()
		if err != nil {
			return nil, err
		}

		if int(atomic.LoadInt32(&l.srv.numClients)) >= l.srv.MaxClients {
			log.Info.Println("too many clients, rejecting", c.RemoteAddr())
			c.Close()
			continue
		}
		atomic.AddInt32(&l.srv.numClients, 1)

		c.SetKeepAlive(true)
		c.SetKeepAlivePeriod(keepAlivePeriod)
		c.SetNoDelay(true)

		hc := newConn(c)
		clients.addConn(c.RemoteAddr().String(), hc)

		return hc, nil
	}
}

func (srv *Server) connState(c net.Conn, state http.ConnState) {
	if state != http.StateClosed {
		return
	}

	addr := c.RemoteAddr().String()
	atomic.AddInt32(&srv.numClients, -1)
	clients.drop(addr)
	srv.unsubscribeAll(addr)
	srv.releasePairSetup(addr)
}

// unsubscribeAll removes the connection from every characteristic's
// subscriber set with one walk over the tree.
func (srv *Server) unsubscribeAll(addr string) {
	for _, a := range srv.accessories() {
		for _, s := range a.Ss {
			for _, c := range s.Cs {
				c.Unsubscribe(addr)
			}
		}
	}
}

func (srv *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(srv.trackRequest)

	r.Post("/pair-setup", srv.pairSetup)
	r.Post("/pair-verify", srv.pairVerify)
	r.Post("/identify", srv.identify)
	r.Post("/reset", srv.reset)

	// only valid on verified connections
	r.Group(func(r chi.Router) {
		r.Use(srv.requireSecured)
		r.Get("/accessories", srv.getAccessories)
		r.Get("/characteristics", srv.getCharacteristics)
		r.Put("/characteristics", srv.putCharacteristics)
		r.Post("/pairings", srv.pairings)
		r.Post("/resource", srv.resource)
	})

	srv.router = r
}

// trackRequest marks the connection busy for the duration of a request
// so that no event message interleaves a response.
func (srv *Server) trackRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		if c := clients.conn(req.RemoteAddr); c != nil {
			c.requestStarted()
			defer c.requestDone()
		}
		next.ServeHTTP(res, req)
	})
}

// requireSecured answers 404 for requests outside an established
// session.
func (srv *Server) requireSecured(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		c := clients.conn(req.RemoteAddr)
		if c == nil || !c.Encrypted() {
			log.Debug.Println(req.URL.Path, "requires a verified session")
			http.NotFound(res, req)
			return
		}
		next.ServeHTTP(res, req)
	})
}

func (srv *Server) isPaired() bool {
	return len(srv.st.Pairings()) > 0
}

func (srv *Server) pairedWithAdmin() bool {
	for _, p := range srv.st.Pairings() {
		if p.Permission == PermissionAdmin {
			return true
		}
	}

	return false
}

func (srv *Server) savePairing(p Pairing) error {
	if err := srv.st.SavePairing(p); err != nil {
		return err
	}
	srv.updateAdvertisement()

	return nil
}

func (srv *Server) deletePairing(name string) error {
	if err := srv.st.DeletePairing(name); err != nil {
		return err
	}
	srv.updateAdvertisement()

	return nil
}

var errSetupBusy = errors.New("pair-setup is in progress with another controller")

// claimPairSetup hands the process-wide pair-setup session to the
// controller at addr, creating one when needed. At most one session
// exists across the server.
func (srv *Server) claimPairSetup(addr string) (*pairSetupSession, error) {
	srv.setupMu.Lock()
	defer srv.setupMu.Unlock()

	if s := srv.setup; s != nil {
		if s.addr != "" && s.addr != addr {
			return nil, errSetupBusy
		}
		if !s.advanced {
			s.addr = addr
			return s, nil
		}
		// a new M1 from the same controller restarts the exchange
		srv.setup = nil
	}

	if srv.BeforeHeavyCrypto != nil {
		srv.BeforeHeavyCrypto()
	}
	s, err := newPairSetupSession(srv.uuid, srv.fmtPin())
	if srv.AfterHeavyCrypto != nil {
		srv.AfterHeavyCrypto()
	}
	if err != nil {
		return nil, err
	}

	s.addr = addr
	srv.setup = s

	return s, nil
}

// pairSetupFor returns the pair-setup session owned by addr.
func (srv *Server) pairSetupFor(addr string) (*pairSetupSession, error) {
	srv.setupMu.Lock()
	defer srv.setupMu.Unlock()

	if srv.setup == nil || srv.setup.addr != addr {
		return nil, fmt.Errorf("no pair-setup session for %s", addr)
	}

	return srv.setup, nil
}

// releasePairSetup destroys the pair-setup session owned by addr. When
// the accessory is still unpaired, a fresh session is precomputed in
// the background.
func (srv *Server) releasePairSetup(addr string) {
	srv.setupMu.Lock()
	owned := srv.setup != nil && srv.setup.addr == addr
	if owned {
		srv.setup = nil
	}
	srv.setupMu.Unlock()

	if owned && !srv.isPaired() {
		srv.prepPairSetupAsync()
	}
}

func (srv *Server) prepPairSetupAsync() {
	go func() {
		if srv.BeforeHeavyCrypto != nil {
			srv.BeforeHeavyCrypto()
		}
		s, err := newPairSetupSession(srv.uuid, srv.fmtPin())
		if srv.AfterHeavyCrypto != nil {
			srv.AfterHeavyCrypto()
		}
		if err != nil {
			log.Info.Println("pair-setup:", err)
			return
		}

		srv.setupMu.Lock()
		if srv.setup == nil && !srv.isPaired() {
			srv.setup = s
		}
		srv.setupMu.Unlock()
	}()
}

// updateConfigNumber bumps the configuration number when the accessory
// tree changed since the last start.
func (srv *Server) updateConfigNumber() {
	hash := srv.configHash()
	old, err := srv.st.ConfigHash()
	if err == nil && string(old) == string(hash) {
		return
	}

	cn := srv.st.ConfigNumber()
	if err == nil {
		cn++
		if cn == 0 { // wraps to 1, not 0
			cn = 1
		}
		srv.st.SetConfigNumber(cn)
	}
	srv.st.SetConfigHash(hash)
}

// configHash digests the structure of the accessory tree.
func (srv *Server) configHash() []byte {
	var b strings.Builder
	for _, a := range srv.accessories() {
		fmt.Fprintf(&b, "a%d;", a.Id)
		for _, s := range a.Ss {
			fmt.Fprintf(&b, "s%d:%s;", s.Id, s.Type)
			for _, c := range s.Cs {
				fmt.Fprintf(&b, "c%d:%s:%s;", c.Id, c.Type, c.Format)
			}
		}
	}
	sum := sha512.Sum512([]byte(b.String()))

	return sum[:]
}
