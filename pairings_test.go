package hap

import (
	"github.com/boundless-engineering/hap/tlv8"

	"bytes"
	"net/http/httptest"
	"testing"
)

type pairingsRequest struct {
	Method     byte   `tlv8:"0"`
	Identifier string `tlv8:"1"`
	PublicKey  []byte `tlv8:"3"`
	State      byte   `tlv8:"6"`
	Permission byte   `tlv8:"11"`
}

func postPairings(t *testing.T, srv *Server, addr string, v pairingsRequest) *httptest.ResponseRecorder {
	t.Helper()

	v.State = Step1
	b, err := tlv8.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/pairings", bytes.NewReader(b))
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	srv.pairings(rec, req)

	return rec
}

func parseError(t *testing.T, rec *httptest.ResponseRecorder) (byte, byte) {
	t.Helper()

	out := struct {
		State byte `tlv8:"6"`
		Error byte `tlv8:"7"`
	}{}
	if err := tlv8.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}

	return out.State, out.Error
}

func TestAddPairing(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.60:6001"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: testDeviceId, PublicKey: []byte{1, 2}, Permission: PermissionAdmin})

	rec := postPairings(t, srv, addr, pairingsRequest{
		Method:     MethodAddPairing,
		Identifier: "new-controller",
		PublicKey:  []byte{3, 4},
		Permission: PermissionUser,
	})
	if state, errc := parseError(t, rec); state != Step2 || errc != 0 {
		t.Fatalf("state %d error %d", state, errc)
	}

	p, err := srv.st.Pairing("new-controller")
	if err != nil {
		t.Fatal(err)
	}
	if p.Permission != PermissionUser {
		t.Fatalf("permission %d, want %d", p.Permission, PermissionUser)
	}
}

func TestAddPairingKeyMismatch(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.60:6002"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: "existing", PublicKey: []byte{1, 2}, Permission: PermissionUser})

	// the provided key must match the stored one
	rec := postPairings(t, srv, addr, pairingsRequest{
		Method:     MethodAddPairing,
		Identifier: "existing",
		PublicKey:  []byte{9, 9},
		Permission: PermissionAdmin,
	})
	if _, errc := parseError(t, rec); errc != TlvErrorUnknown {
		t.Fatalf("error %d, want %d", errc, TlvErrorUnknown)
	}

	p, _ := srv.st.Pairing("existing")
	if p.Permission != PermissionUser {
		t.Fatal("permissions changed despite key mismatch")
	}
}

func TestAddPairingUpdatesPermission(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.60:6003"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: "existing", PublicKey: []byte{1, 2}, Permission: PermissionUser})

	rec := postPairings(t, srv, addr, pairingsRequest{
		Method:     MethodAddPairing,
		Identifier: "existing",
		PublicKey:  []byte{1, 2},
		Permission: PermissionAdmin,
	})
	if state, errc := parseError(t, rec); state != Step2 || errc != 0 {
		t.Fatalf("state %d error %d", state, errc)
	}

	p, _ := srv.st.Pairing("existing")
	if p.Permission != PermissionAdmin {
		t.Fatal("permission not updated")
	}
}

func TestPairingsRequireAdmin(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.60:6004"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionUser})

	rec := postPairings(t, srv, addr, pairingsRequest{Method: MethodListPairings})
	if _, errc := parseError(t, rec); errc != TlvErrorAuthentication {
		t.Fatalf("error %d, want %d", errc, TlvErrorAuthentication)
	}
}

func TestListPairings(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.60:6005"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: testDeviceId, PublicKey: []byte{1}, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: "second", PublicKey: []byte{2}, Permission: PermissionUser})

	rec := postPairings(t, srv, addr, pairingsRequest{Method: MethodListPairings})

	var out []pairingPayload
	if err := tlv8.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("%d records, want 2", len(out))
	}
}

func TestRemoveLastAdmin(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.60:6006"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: testDeviceId, PublicKey: []byte{1}, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: "second", PublicKey: []byte{2}, Permission: PermissionUser})

	rec := postPairings(t, srv, addr, pairingsRequest{
		Method:     MethodDeletePairing,
		Identifier: testDeviceId,
	})
	if state, errc := parseError(t, rec); state != Step2 || errc != 0 {
		t.Fatalf("state %d error %d", state, errc)
	}

	// without an admin the server re-enters unpaired mode
	if srv.isPaired() {
		t.Fatal("still paired after removing the last admin")
	}

	// pair-setup is available again
	m2 := postTLV8(t, srv.pairSetup, "192.0.2.61:6007", pairSetupPayload{Method: MethodPair, State: Step1})
	if m2.Error != 0 {
		t.Fatalf("M2 error %d after unpairing", m2.Error)
	}
	if len(m2.PublicKey) == 0 {
		t.Fatal("no SRP public key after unpairing")
	}
}

func TestRemoveUnknownPairing(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.60:6008"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})
	srv.st.SavePairing(Pairing{Name: testDeviceId, PublicKey: []byte{1}, Permission: PermissionAdmin})

	rec := postPairings(t, srv, addr, pairingsRequest{
		Method:     MethodDeletePairing,
		Identifier: "never-paired",
	})
	if state, errc := parseError(t, rec); state != Step2 || errc != 0 {
		t.Fatalf("state %d error %d", state, errc)
	}
	if !srv.isPaired() {
		t.Fatal("existing pairing removed")
	}
}
