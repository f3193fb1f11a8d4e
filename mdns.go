package hap

import (
	"github.com/boundless-engineering/hap/log"
	"github.com/brutella/dnssd"
	godiacritics "gopkg.in/Regis24GmbH/go-diacritics.v2"

	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
)

// mdnsService advertises the accessory as _hap._tcp via DNS-SD.
type mdnsService struct {
	responder dnssd.Responder
	handle    dnssd.ServiceHandle
}

// advertise announces the server on the local network and keeps the
// announcement alive until the context is cancelled.
func (srv *Server) advertise(ctx context.Context, port int) {
	// Bonjour names must not contain diacritics
	name := godiacritics.Normalize(srv.a.Name())

	cfg := dnssd.Config{
		Name:   name,
		Type:   "_hap._tcp",
		Domain: "local",
		Text:   srv.txtRecords(),
		Port:   port,
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		log.Info.Println("dnssd:", err)
		return
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		log.Info.Println("dnssd:", err)
		return
	}

	handle, err := rp.Add(sv)
	if err != nil {
		log.Info.Println("dnssd:", err)
		return
	}

	srv.mdns = &mdnsService{
		responder: rp,
		handle:    handle,
	}

	if err := rp.Respond(ctx); err != nil && ctx.Err() == nil {
		log.Info.Println("dnssd:", err)
	}
}

// updateAdvertisement re-announces the TXT records, e.g. after the
// pairing state changed.
func (srv *Server) updateAdvertisement() {
	if srv.mdns == nil {
		return
	}

	srv.mdns.handle.UpdateText(srv.txtRecords(), srv.mdns.responder)
}

// txtRecords returns the Bonjour TXT records of the accessory.
func (srv *Server) txtRecords() map[string]string {
	sf := "0"
	if !srv.isPaired() {
		// discoverable for pairing
		sf = "1"
	}

	txt := map[string]string{
		"pv": "1.1",
		"id": srv.uuid,
		"c#": fmt.Sprintf("%d", srv.st.ConfigNumber()),
		"s#": "1",
		"sf": sf,
		"ff": "0",
		"md": srv.a.Name(),
		"ci": fmt.Sprintf("%d", srv.a.Type),
	}

	if hash := srv.setupHash(); len(hash) > 0 {
		txt["sh"] = hash
	}

	return txt
}

// setupHash returns the truncated digest of setup id and accessory id
// used by controllers to match a scanned setup payload.
func (srv *Server) setupHash() string {
	if len(srv.SetupId) != 4 {
		return ""
	}

	sum := sha512.Sum512([]byte(srv.SetupId + srv.uuid))

	return base64.StdEncoding.EncodeToString(sum[:4])
}
