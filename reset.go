package hap

import (
	"github.com/boundless-engineering/hap/log"

	"net/http"
)

// reset wipes the persisted identity and all pairings and drops every
// connection. The host is expected to restart the process afterwards.
func (srv *Server) reset(res http.ResponseWriter, req *http.Request) {
	log.Info.Println("resetting accessory state")

	if err := srv.st.Reset(); err != nil {
		log.Info.Println(err)
		res.WriteHeader(http.StatusInternalServerError)
		return
	}

	res.WriteHeader(http.StatusOK)

	for addr, c := range clients.activeConns() {
		log.Debug.Println("closing connection to", addr)
		c.Close()
	}
}
