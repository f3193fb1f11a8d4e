package hap

import (
	"github.com/boundless-engineering/hap/log"

	"net/http"
)

// identify identifies the primary accessory, e.g. by blinking a light.
// It is only available over unsecured connections while no admin
// pairing exists; paired accessories are identified through the
// identify characteristic instead.
func (srv *Server) identify(res http.ResponseWriter, req *http.Request) {
	if srv.isPaired() {
		log.Info.Println("identify is not allowed when paired")
		jsonError(res, JsonStatusInsufficientPrivileges)
		return
	}

	srv.a.Identify()
	res.WriteHeader(http.StatusNoContent)
}
