package hap

import (
	"github.com/boundless-engineering/hap/characteristic"

	"encoding/json"
	"net/http/httptest"
	"testing"
)

type accessoriesResponse struct {
	Accessories []struct {
		Aid      uint64 `json:"aid"`
		Services []struct {
			Iid             uint64 `json:"iid"`
			Type            string `json:"type"`
			Characteristics []struct {
				Iid    uint64      `json:"iid"`
				Type   string      `json:"type"`
				Value  interface{} `json:"value"`
				Perms  []string    `json:"perms"`
				Format string      `json:"format"`
			} `json:"characteristics"`
		} `json:"services"`
	} `json:"accessories"`
}

func TestGetAccessories(t *testing.T) {
	srv := newTestServer(t)
	addr := "192.0.2.40:4001"
	establish(t, addr, Pairing{Name: testDeviceId, Permission: PermissionAdmin})

	req := httptest.NewRequest("GET", "/accessories", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	srv.getAccessories(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status %d, want 200", rec.Code)
	}

	var resp accessoriesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	if len(resp.Accessories) != 1 {
		t.Fatalf("%d accessories, want 1", len(resp.Accessories))
	}
	a := resp.Accessories[0]
	if a.Aid != 1 {
		t.Fatalf("aid %d, want 1", a.Aid)
	}

	// the accessory information service must be complete
	want := map[string]bool{
		characteristic.TypeName:             false,
		characteristic.TypeManufacturer:     false,
		characteristic.TypeModel:            false,
		characteristic.TypeSerialNumber:     false,
		characteristic.TypeFirmwareRevision: false,
		characteristic.TypeIdentify:         false,
	}
	var info *struct {
		Iid             uint64 `json:"iid"`
		Type            string `json:"type"`
		Characteristics []struct {
			Iid    uint64      `json:"iid"`
			Type   string      `json:"type"`
			Value  interface{} `json:"value"`
			Perms  []string    `json:"perms"`
			Format string      `json:"format"`
		} `json:"characteristics"`
	}
	for i := range a.Services {
		if a.Services[i].Type == "3E" {
			info = &a.Services[i]
		}
	}
	if info == nil {
		t.Fatal("no accessory information service")
	}
	for _, c := range info.Characteristics {
		if _, ok := want[c.Type]; ok {
			want[c.Type] = true
		}
	}
	for typ, found := range want {
		if !found {
			t.Fatalf("characteristic %s missing", typ)
		}
	}

	// write-only characteristics carry no value
	for _, c := range info.Characteristics {
		if c.Type == characteristic.TypeIdentify && c.Value != nil {
			t.Fatal("identify has a value despite missing paired-read")
		}
		if c.Type == characteristic.TypeName && c.Value == nil {
			t.Fatal("name has no value despite paired-read")
		}
	}
}
