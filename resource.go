package hap

import (
	"net/http"
)

// resource hands the request to the configured resource handler,
// e.g. for camera snapshots. The payload is opaque to the server.
func (srv *Server) resource(res http.ResponseWriter, req *http.Request) {
	if srv.ResourceHandler == nil {
		http.NotFound(res, req)
		return
	}

	srv.ResourceHandler(res, req)
}
