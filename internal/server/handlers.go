package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Handler bundles the HTTP endpoints with the hub they serve.
type Handler struct {
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler wires the hub's configuration into the HTTP surface, including
// the origin policy used for WebSocket upgrades.
func NewHandler(hub *Hub) *Handler {
	origins := newOriginPolicy(hub.cfg.AllowedOrigins, hub.logger)
	return &Handler{
		hub:    hub,
		logger: hub.logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
	}
}

// ServeWS upgrades the request to a WebSocket channel and registers it with
// the hub, which starts the read/write pumps.
func (hd *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := hd.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hd.logger.Warn("websocket upgrade failed",
			"remote_addr", r.RemoteAddr, "error", err)
		return
	}

	hd.hub.Register(NewClient(conn, hd.hub, r.RemoteAddr))
}

// Health responds with a plain text liveness message.
func (hd *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Halo Nusantara relay is running"))
}

type statusResponse struct {
	Status          string `json:"status"`
	OnlineUserCount int    `json:"onlineUserCount"`
	MessageCount    int    `json:"messageCount"`
}

// Status reports the read-only diagnostic document: server status, online
// user count, and stored message count.
func (hd *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	users, messages := hd.hub.Stats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{
		Status:          "Server running",
		OnlineUserCount: users,
		MessageCount:    messages,
	}); err != nil {
		hd.logger.Warn("error writing status response", "error", err)
	}
}
