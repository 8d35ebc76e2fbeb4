package server

import "net/http"

// SetupRoutes configures the ServeMux: health check, WebSocket endpoint, and
// the status diagnostic.
func SetupRoutes(hub *Hub) *http.ServeMux {
	hd := NewHandler(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/", hd.Health)
	mux.HandleFunc("/ws", hd.ServeWS)
	mux.HandleFunc("/status", hd.Status)
	return mux
}
