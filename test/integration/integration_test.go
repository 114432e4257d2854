// Package integration exercises the Roomcast server end to end: real HTTP
// listeners, real WebSocket connections, and the full command/event
// protocol in between.
package integration

import (
	"testing"

	"github.com/gorilla/websocket"

	"github.com/roomcast/roomcast/internal/server"
	"github.com/roomcast/roomcast/test/testhelpers"
)

// startTestServer configures the server for tests, makes sure the global
// hub is running, and returns the websocket URL of a fresh test listener.
func startTestServer(t *testing.T) string {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	server.SetConfig(cfg)

	server.StartHub()

	ts := testhelpers.CreateTestServer(server.SetupRoutes())
	t.Cleanup(ts.Close)

	return testhelpers.WebSocketURL(t, ts.URL)
}

// connect dials the hub and registers cleanup for the connection.
func connect(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, err := testhelpers.ConnectWebSocket(wsURL)
	if err != nil {
		t.Fatalf("failed to connect websocket: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
