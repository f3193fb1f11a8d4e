package hap

import (
	"github.com/boundless-engineering/hap/log"
	"github.com/boundless-engineering/hap/tlv8"

	"encoding/json"
	"net/http"
)

// HTTP content types used by HAP.
const (
	ContentTypePairingTLV8 = "application/pairing+tlv8"
	ContentTypeHapJson     = "application/hap+json"
)

// Pairing methods.
const (
	MethodPair          byte = 0
	MethodPairMFi       byte = 1 // pair setup with MFi auth
	MethodVerifyPair    byte = 2
	MethodAddPairing    byte = 3
	MethodDeletePairing byte = 4
	MethodListPairings  byte = 5
)

// Pairing permissions.
const (
	PermissionUser  byte = 0
	PermissionAdmin byte = 1
)

// TLV8 error codes.
const (
	TlvErrorUnknown        byte = 0x1
	TlvErrorAuthentication byte = 0x2
	TlvErrorBackoff        byte = 0x3
	TlvErrorMaxPeers       byte = 0x4
	TlvErrorMaxTries       byte = 0x5
	TlvErrorUnavailable    byte = 0x6
	TlvErrorBusy           byte = 0x7
)

// HAP status codes used in json responses.
const (
	JsonStatusSuccess                     = 0
	JsonStatusInsufficientPrivileges      = -70401
	JsonStatusServiceCommunicationFailure = -70402
	JsonStatusResourceBusy                = -70403
	JsonStatusReadOnlyCharacteristic      = -70404
	JsonStatusWriteOnlyCharacteristic     = -70405
	JsonStatusNotificationNotSupported    = -70406
	JsonStatusOutOfResource               = -70407
	JsonStatusOperationTimedOut           = -70408
	JsonStatusResourceDoesNotExist        = -70409
	JsonStatusInvalidValueInRequest       = -70410
	JsonStatusInsufficientAuthorization   = -70411
)

// tlv8OK writes v as a tlv8 response body.
func tlv8OK(res http.ResponseWriter, v interface{}) {
	b, err := tlv8.Marshal(v)
	if err != nil {
		log.Info.Println("tlv8:", err)
		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", ContentTypePairingTLV8)
	res.Write(b)
}

// tlv8Error writes an error tlv8 echoing the state of the failed step.
func tlv8Error(res http.ResponseWriter, state byte, code byte) {
	v := struct {
		State byte `tlv8:"6"`
		Error byte `tlv8:"7"`
	}{
		State: state,
		Error: code,
	}
	tlv8OK(res, v)
}

// jsonOK writes v as a hap+json response body.
func jsonOK(res http.ResponseWriter, v interface{}) {
	writeJSON(res, http.StatusOK, v)
}

// jsonMultiStatus writes v with a 207 Multi-Status code.
func jsonMultiStatus(res http.ResponseWriter, v interface{}) {
	writeJSON(res, http.StatusMultiStatus, v)
}

// jsonError writes a 400 response with a global status code body.
func jsonError(res http.ResponseWriter, status int) {
	v := struct {
		Status int `json:"status"`
	}{
		Status: status,
	}
	writeJSON(res, http.StatusBadRequest, v)
}

func writeJSON(res http.ResponseWriter, code int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Info.Println("json:", err)
		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.Header().Set("Content-Type", ContentTypeHapJson)
	res.WriteHeader(code)
	res.Write(b)
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return err.Error()
	}

	return string(b)
}
