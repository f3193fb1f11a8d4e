package characteristic

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func remoteReq() *http.Request {
	return httptest.NewRequest("PUT", "/characteristics", nil)
}

func TestBoolCoercion(t *testing.T) {
	c := NewOn()

	// json numbers 0 and 1 are valid bools
	if _, status := c.C.SetValueRequest(float64(1), remoteReq()); status != StatusSuccess {
		t.Fatalf("status %d", status)
	}
	if !c.Value() {
		t.Fatal("value not true")
	}

	if _, status := c.C.SetValueRequest(float64(2), remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatalf("status %d, want %d", status, StatusInvalidValueInRequest)
	}

	if _, status := c.C.SetValueRequest("true", remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatalf("status %d for a string, want %d", status, StatusInvalidValueInRequest)
	}
}

func TestIntRangeValidation(t *testing.T) {
	c := NewBrightness()

	if _, status := c.C.SetValueRequest(float64(50), remoteReq()); status != StatusSuccess {
		t.Fatalf("status %d", status)
	}
	if c.Value() != 50 {
		t.Fatalf("value %d, want 50", c.Value())
	}

	for _, v := range []float64{-1, 101, 50.5} {
		if _, status := c.C.SetValueRequest(v, remoteReq()); status != StatusInvalidValueInRequest {
			t.Fatalf("value %v accepted", v)
		}
	}
	if c.Value() != 50 {
		t.Fatalf("value changed to %d", c.Value())
	}
}

func TestStepIsAdvisory(t *testing.T) {
	c := NewInt("99")
	c.Permissions = []string{PermissionRead, PermissionWrite}
	c.SetMinValue(0)
	c.SetMaxValue(10)
	c.SetStepValue(2)

	// values off the step grid are reported but not refused
	if _, status := c.C.SetValueRequest(float64(3), remoteReq()); status != StatusSuccess {
		t.Fatalf("status %d for an off-step value", status)
	}
}

func TestValidValues(t *testing.T) {
	c := NewInt("98")
	c.Permissions = []string{PermissionRead, PermissionWrite}
	c.ValidVals = []int{0, 2, 4}

	if _, status := c.C.SetValueRequest(float64(2), remoteReq()); status != StatusSuccess {
		t.Fatalf("status %d", status)
	}
	if _, status := c.C.SetValueRequest(float64(3), remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatal("value outside valid-values accepted")
	}
}

func TestValidValuesRange(t *testing.T) {
	c := NewInt("97")
	c.Permissions = []string{PermissionRead, PermissionWrite}
	c.ValidRange = []int{1, 3}

	if _, status := c.C.SetValueRequest(float64(4), remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatal("value outside valid-values-range accepted")
	}
}

func TestUintBounds(t *testing.T) {
	c := New()
	c.Format = FormatUInt8
	c.Permissions = []string{PermissionRead, PermissionWrite}

	if _, status := c.SetValueRequest(float64(255), remoteReq()); status != StatusSuccess {
		t.Fatalf("status %d", status)
	}
	if _, status := c.SetValueRequest(float64(256), remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatal("value beyond uint8 accepted")
	}
	if _, status := c.SetValueRequest(float64(-1), remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatal("negative uint accepted")
	}
}

func TestStringMaxLen(t *testing.T) {
	c := NewString("96")
	c.Permissions = []string{PermissionRead, PermissionWrite}
	c.MaxLen = 4

	if _, status := c.C.SetValueRequest("abcd", remoteReq()); status != StatusSuccess {
		t.Fatalf("status %d", status)
	}
	if _, status := c.C.SetValueRequest("abcde", remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatal("overlong string accepted")
	}
}

func TestDataBase64(t *testing.T) {
	c := NewBytes("95")
	c.Permissions = []string{PermissionRead, PermissionWrite}

	v, status := c.C.SetValueRequest(base64.StdEncoding.EncodeToString([]byte{0xde, 0xad}), remoteReq())
	if status != StatusSuccess {
		t.Fatalf("status %d", status)
	}
	b, ok := v.([]byte)
	if !ok || len(b) != 2 || b[0] != 0xde {
		t.Fatalf("decoded value %v", v)
	}

	if _, status := c.C.SetValueRequest("%%%", remoteReq()); status != StatusInvalidValueInRequest {
		t.Fatal("invalid base64 accepted")
	}
}

func TestPermissionChecks(t *testing.T) {
	c := NewName() // read-only

	if _, status := c.C.SetValueRequest("x", remoteReq()); status != StatusReadOnlyCharacteristic {
		t.Fatalf("status %d, want %d", status, StatusReadOnlyCharacteristic)
	}

	identify := NewIdentify() // write-only
	if _, status := identify.C.ValueRequest(remoteReq()); status != StatusWriteOnlyCharacteristic {
		t.Fatalf("status %d, want %d", status, StatusWriteOnlyCharacteristic)
	}
}

func TestLocalSetClamps(t *testing.T) {
	c := NewBrightness()

	c.C.SetValue(150)
	if c.Value() != 100 {
		t.Fatalf("value %d, want clamped 100", c.Value())
	}
	c.C.SetValue(-5)
	if c.Value() != 0 {
		t.Fatalf("value %d, want clamped 0", c.Value())
	}
}

func TestValueUpdateFuncs(t *testing.T) {
	c := NewOn()

	var gotNew, gotOld interface{}
	var gotReq *http.Request
	c.OnCValueUpdate(func(c *C, new, old interface{}, req *http.Request) {
		gotNew, gotOld, gotReq = new, old, req
	})

	req := remoteReq()
	c.C.SetValueRequest(true, req)

	if gotNew != true || gotOld != false {
		t.Fatalf("update %v -> %v, want false -> true", gotOld, gotNew)
	}
	if gotReq != req {
		t.Fatal("request not passed to the update func")
	}
}

func TestGetterCallback(t *testing.T) {
	c := NewOn()
	c.ValueRequestFunc = func(req *http.Request) interface{} {
		return true
	}

	v, status := c.C.ValueRequest(remoteReq())
	if status != StatusSuccess {
		t.Fatalf("status %d", status)
	}
	if v != true {
		t.Fatalf("value %v, want true", v)
	}
}
