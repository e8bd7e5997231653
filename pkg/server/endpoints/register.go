package endpoints

import (
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterSerialEndpoints(srv)
	RegisterLabelEndpoints(srv)
	RegisterMarathonEndpoints(srv)
	RegisterHistoryEndpoints(srv)
	RegisterWebSocketEndpoint(srv)
}
