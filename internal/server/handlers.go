// Package server exposes HTTP handlers: the WebSocket upgrade endpoint and
// the health check.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/roomcast/roomcast/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection and hands the new client to
// the global hub, which admits it, starts its pumps, and auto-joins the
// default room.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	serveWebSocket(GetHub(), w, r)
}

// NewWebSocketHandler returns an upgrade handler bound to a specific hub
// instance instead of the global one.
func NewWebSocketHandler(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveWebSocket(h, w, r)
	}
}

func serveWebSocket(h *Hub, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, h, r.RemoteAddr)
	h.register <- client
}

// HealthHandler provides a simple health check endpoint that returns
// server status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Roomcast hub is running!")
}
