package hap

import (
	"github.com/boundless-engineering/hap/log"
	"github.com/boundless-engineering/hap/tlv8"

	"net/http"
	"reflect"
)

type pairingPayload struct {
	Identifier string `tlv8:"1"`
	PublicKey  []byte `tlv8:"3"`
	Permission byte   `tlv8:"11"`
}

func (srv *Server) pairings(res http.ResponseWriter, req *http.Request) {
	ss, err := clients.session(req.RemoteAddr)
	if err != nil {
		log.Info.Println(err)
		res.WriteHeader(http.StatusInternalServerError)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	d := struct {
		Method     byte   `tlv8:"0"`
		Identifier string `tlv8:"1"`
		PublicKey  []byte `tlv8:"3"`
		Permission byte   `tlv8:"11"`
		State      byte   `tlv8:"6"`
	}{}

	if err := tlv8.UnmarshalReader(req.Body, &d); err != nil {
		log.Info.Println("tlv8:", err)
		res.WriteHeader(http.StatusBadRequest)
		tlv8Error(res, Step2, TlvErrorUnknown)
		return
	}

	if ss.Pairing.Permission != PermissionAdmin {
		log.Info.Println("operation not allowed for non-admin controllers")
		tlv8Error(res, Step2, TlvErrorAuthentication)
		return
	}

	switch d.Method {
	case MethodAddPairing:
		log.Debug.Println("add pairing", d.Identifier)

		p, err := srv.st.Pairing(d.Identifier)
		if err != nil {
			p = Pairing{
				Name:       d.Identifier,
				PublicKey:  d.PublicKey,
				Permission: d.Permission,
			}
		} else {
			if !reflect.DeepEqual(p.PublicKey, d.PublicKey) {
				log.Info.Println("invalid public key")
				tlv8Error(res, Step2, TlvErrorUnknown)
				return
			}
			// Update permission
			p.Permission = d.Permission
		}

		err = srv.savePairing(p)
		if err != nil {
			log.Info.Println(err)
			tlv8Error(res, Step2, TlvErrorMaxPeers)
			return
		}

		resp := struct {
			State byte `tlv8:"6"`
		}{
			State: Step2,
		}
		tlv8OK(res, resp)

	case MethodDeletePairing:
		log.Debug.Println("delete pairing", d.Identifier)

		// removing an unknown controller is a success
		if p, err := srv.st.Pairing(d.Identifier); err == nil {
			if err := srv.deletePairing(p.Name); err != nil {
				log.Info.Println(err)
				tlv8Error(res, Step2, TlvErrorUnknown)
				return
			}
		}

		resp := struct {
			State byte `tlv8:"6"`
		}{
			State: Step2,
		}
		tlv8OK(res, resp)

		if !srv.pairedWithAdmin() {
			// the last admin is gone, forget all pairings and
			// close every connection
			for _, p := range srv.st.Pairings() {
				srv.deletePairing(p.Name)
			}
			for addr, c := range clients.activeConns() {
				log.Debug.Println("closing connection to", addr)
				c.Close()
			}
			// the accessory is discoverable for pairing again
			srv.prepPairSetupAsync()
			return
		}

		// close connections of the removed controller
		for addr, c := range clients.activeConns() {
			ss, err := clients.session(addr)
			if err != nil {
				continue
			}
			if ss.Pairing.Name == d.Identifier {
				log.Debug.Println("closing connection of removed controller", d.Identifier)
				c.Close()
			}
		}

	case MethodListPairings:
		log.Debug.Println("list pairings")
		ps := srv.st.Pairings()
		resp := make([]pairingPayload, len(ps))
		for i, p := range ps {
			resp[i] = pairingPayload{
				Identifier: p.Name,
				PublicKey:  p.PublicKey,
				Permission: p.Permission,
			}
		}
		tlv8OK(res, resp)

	default:
		log.Info.Println("pairings: invalid method", d.Method)
		res.WriteHeader(http.StatusBadRequest)
		tlv8Error(res, Step2, TlvErrorUnknown)
	}
}
