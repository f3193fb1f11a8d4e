package hap

import (
	"github.com/boundless-engineering/hap/chacha20poly1305"
	"github.com/boundless-engineering/hap/ed25519"
	"github.com/boundless-engineering/hap/log"
	"github.com/boundless-engineering/hap/tlv8"

	"net/http"
)

type pairVerifyPayload struct {
	Method        byte   `tlv8:"0"`
	Identifier    string `tlv8:"1"`
	PublicKey     []byte `tlv8:"3"`
	EncryptedData []byte `tlv8:"5"`
	State         byte   `tlv8:"6"`
	Error         byte   `tlv8:"7"`
	Signature     []byte `tlv8:"10"`
}

func (srv *Server) pairVerify(res http.ResponseWriter, req *http.Request) {
	data := pairVerifyPayload{}
	if err := tlv8.UnmarshalReader(req.Body, &data); err != nil {
		log.Info.Println("tlv8:", err)
		res.WriteHeader(http.StatusBadRequest)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	switch data.State {
	case Step1:
		srv.pairVerifyStep1(res, req, data)
	case Step3:
		srv.pairVerifyStep3(res, req, data)
	default:
		log.Info.Println("invalid state", data.State)
		res.WriteHeader(http.StatusBadRequest)
		tlv8Error(res, Step2, TlvErrorUnknown)
	}
}

type pairVerifyStep2EncryptedPayload struct {
	Identifier string `tlv8:"1"`
	Signature  []byte `tlv8:"10"`
}

type pairVerifyStep2Payload struct {
	PublicKey     []byte `tlv8:"3"`
	EncryptedData []byte `tlv8:"5"`
	State         byte   `tlv8:"6"`
}

type pairVerifyStep4Payload struct {
	State byte `tlv8:"6"`
}

func (srv *Server) pairVerifyStep1(res http.ResponseWriter, req *http.Request, data pairVerifyPayload) {
	ses, err := newPairVerifySession()
	if err != nil {
		log.Info.Println(err)
		res.WriteHeader(http.StatusInternalServerError)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	if err := ses.GenerateSharedSecret(data.PublicKey); err != nil {
		log.Info.Println(err)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	var material []byte
	material = append(material, ses.PublicKey[:]...)
	material = append(material, srv.uuid[:]...)
	material = append(material, ses.OtherPublicKey[:]...)

	signature, err := ed25519.Signature(srv.Key.Private, material)
	if err != nil {
		log.Info.Println(err)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	encData := pairVerifyStep2EncryptedPayload{
		Identifier: srv.uuid,
		Signature:  signature,
	}
	b, err := tlv8.Marshal(encData)
	if err != nil {
		log.Info.Println("tlv8:", err)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	encrypted, mac, err := chacha20poly1305.EncryptAndSeal(ses.EncryptionKey[:], []byte("PV-Msg02"), b, nil)
	if err != nil {
		log.Info.Println(err)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	// a new M1 restarts the verify state machine
	clients.setSession(req.RemoteAddr, ses)

	resp := pairVerifyStep2Payload{
		PublicKey:     ses.PublicKey[:],
		EncryptedData: append(encrypted, mac[:]...),
		State:         Step2,
	}
	tlv8OK(res, resp)
}

func (srv *Server) pairVerifyStep3(res http.ResponseWriter, req *http.Request, data pairVerifyPayload) {
	ses, err := clients.verifySession(req.RemoteAddr)
	if err != nil {
		log.Info.Println(err)
		tlv8Error(res, Step4, TlvErrorAuthentication)
		return
	}

	if len(data.EncryptedData) < 16 {
		clients.removeSession(req.RemoteAddr)
		tlv8Error(res, Step4, TlvErrorAuthentication)
		return
	}
	msg := data.EncryptedData[:len(data.EncryptedData)-16]
	var mac [16]byte
	copy(mac[:], data.EncryptedData[len(msg):])

	decrypted, err := chacha20poly1305.DecryptAndVerify(ses.EncryptionKey[:], []byte("PV-Msg03"), msg, mac, nil)
	if err != nil {
		clients.removeSession(req.RemoteAddr)
		tlv8Error(res, Step4, TlvErrorAuthentication)
		return
	}

	encData := pairVerifyStep2EncryptedPayload{}
	if err := tlv8.Unmarshal(decrypted, &encData); err != nil {
		log.Info.Println("tlv8:", err)
		clients.removeSession(req.RemoteAddr)
		tlv8Error(res, Step4, TlvErrorAuthentication)
		return
	}

	p, err := srv.st.Pairing(encData.Identifier)
	if err != nil {
		log.Info.Println("not paired with", encData.Identifier)
		clients.removeSession(req.RemoteAddr)
		tlv8Error(res, Step4, TlvErrorAuthentication)
		return
	}

	var material []byte
	material = append(material, ses.OtherPublicKey[:]...)
	material = append(material, encData.Identifier[:]...)
	material = append(material, ses.PublicKey[:]...)

	if !ed25519.ValidateSignature(p.PublicKey, material, encData.Signature) {
		log.Info.Println("ed25519 signature invalid")
		clients.removeSession(req.RemoteAddr)
		tlv8Error(res, Step4, TlvErrorAuthentication)
		return
	}

	ss, err := newSession(ses.SharedKey, p)
	if err != nil {
		log.Info.Println(err)
		clients.removeSession(req.RemoteAddr)
		tlv8Error(res, Step4, TlvErrorUnknown)
		return
	}

	// the verify session is no longer needed
	clients.setSession(req.RemoteAddr, ss)

	resp := pairVerifyStep4Payload{
		State: Step4,
	}
	tlv8OK(res, resp)

	// all traffic after the M4 response is framed and encrypted
	if c := clients.conn(req.RemoteAddr); c != nil {
		c.UpgradeEnc(ss)
	}

	log.Debug.Println("verified", p.Name)
}
