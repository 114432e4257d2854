// Package testhelpers provides shared utilities for exercising the
// Roomcast server over real HTTP and WebSocket connections.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// CreateTestServer creates a running test HTTP server with the given
// handler. Close it after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// WebSocketURL converts a test server's http:// base URL into the ws://
// address of its upgrade endpoint.
func WebSocketURL(t *testing.T, baseURL string) string {
	t.Helper()
	if !strings.HasPrefix(baseURL, "http") {
		t.Fatalf("unexpected test server URL: %s", baseURL)
	}
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
}

// ConnectWebSocket dials the websocket endpoint with a test origin header.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", "http://localhost:8080")

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendCommand writes one JSON command frame.
func SendCommand(t *testing.T, conn *websocket.Conn, cmd map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("failed to send %v: %v", cmd["type"], err)
	}
}

// ReceiveEvent reads one JSON event frame, bounded by a read deadline.
func ReceiveEvent(conn *websocket.Conn, timeout time.Duration) (map[string]any, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	var event map[string]any
	err := conn.ReadJSON(&event)
	return event, err
}

// WaitForEvent reads frames until one with the given type tag arrives,
// discarding everything else. It fails the test after the timeout.
func WaitForEvent(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		event, err := ReceiveEvent(conn, time.Until(deadline))
		if err != nil {
			t.Fatalf("waiting for %q event: %v", eventType, err)
		}
		if event["type"] == eventType {
			return event
		}
	}
	t.Fatalf("no %q event arrived", eventType)
	return nil
}

// AssertNoEvent verifies that no frame of the given type arrives within the
// window. Frames of other types are discarded.
func AssertNoEvent(t *testing.T, conn *websocket.Conn, eventType string, window time.Duration) {
	t.Helper()
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		event, err := ReceiveEvent(conn, time.Until(deadline))
		if err != nil {
			return // deadline hit with nothing of interest: success
		}
		if event["type"] == eventType {
			t.Fatalf("unexpected %q event: %v", eventType, event)
		}
	}
}

// ParticipantNames extracts the username list from a participants event.
func ParticipantNames(t *testing.T, event map[string]any) []string {
	t.Helper()
	raw, ok := event["participants"].([]any)
	if !ok {
		t.Fatalf("event has no participants list: %v", event)
	}
	names := make([]string, 0, len(raw))
	for _, p := range raw {
		names = append(names, p.(map[string]any)["username"].(string))
	}
	return names
}

// RoomIDByName extracts a room id from a room-list-updated event.
func RoomIDByName(t *testing.T, event map[string]any, name string) string {
	t.Helper()
	rooms, ok := event["rooms"].([]any)
	if !ok {
		t.Fatalf("event has no rooms list: %v", event)
	}
	for _, r := range rooms {
		room := r.(map[string]any)
		if room["name"] == name {
			return room["id"].(string)
		}
	}
	t.Fatalf("room %q not in list event: %v", name, event)
	return ""
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest creates and executes an HTTP request with a short timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("failed to make request: %v", err)
	}
	return resp
}

// AssertStatusCode checks the HTTP response status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status code %d, got %d", expected, resp.StatusCode)
	}
}
