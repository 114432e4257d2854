package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// receiveEvent reads one queued event from a client's send channel, waiting
// for the hub loop to produce it.
func receiveEvent(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev map[string]any
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func waitForEventType(t *testing.T, c *Client, eventType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		ev := receiveEvent(t, c)
		if ev["type"] == eventType {
			return ev
		}
	}
	t.Fatalf("no %q event arrived", eventType)
	return nil
}

func TestHubRunAdmitsThroughChannels(t *testing.T) {
	SetConfig(nil)
	h := NewHub()
	go h.Run()

	c := NewClient(nil, h, "test-addr")
	h.RegisterChan() <- c

	joined := waitForEventType(t, c, eventRoomJoined)
	assert.Equal(t, "Main Chat", joined["roomName"])
	assert.Equal(t, h.DefaultRoomID(), joined["roomId"])

	require.NoError(t, h.Shutdown(time.Second))
}

func TestHubRunSkipsNilRegistration(t *testing.T) {
	SetConfig(nil)
	h := NewHub()
	go h.Run()

	h.RegisterChan() <- nil

	c := NewClient(nil, h, "test-addr")
	h.RegisterChan() <- c
	waitForEventType(t, c, eventRoomJoined)

	require.NoError(t, h.Shutdown(time.Second))
}

func TestHubRunDispatchesInbound(t *testing.T) {
	SetConfig(nil)
	h := NewHub()
	go h.Run()

	c := NewClient(nil, h, "test-addr")
	h.RegisterChan() <- c
	waitForEventType(t, c, eventRoomJoined)

	h.inbound <- inboundFrame{client: c, payload: []byte(`{"type":"set-username","username":"alice"}`)}

	ev := waitForEventType(t, c, eventParticipantsUpdated)
	require.Len(t, ev["participants"], 1)
	assert.Equal(t, "alice",
		ev["participants"].([]any)[0].(map[string]any)["username"])

	require.NoError(t, h.Shutdown(time.Second))
}

func TestHubRunUnregisterClosesSendChannel(t *testing.T) {
	SetConfig(nil)
	h := NewHub()
	go h.Run()

	c := NewClient(nil, h, "test-addr")
	h.RegisterChan() <- c
	waitForEventType(t, c, eventRoomJoined)

	h.UnregisterChan() <- c

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				require.NoError(t, h.Shutdown(time.Second))
				return
			}
		case <-deadline:
			t.Fatal("send channel never closed after unregister")
		}
	}
}

func TestHubShutdownIdle(t *testing.T) {
	SetConfig(nil)
	h := NewHub()
	go h.Run()

	require.NoError(t, h.Shutdown(time.Second))

	// A second shutdown must not hang or panic.
	require.NoError(t, h.Shutdown(time.Second))
}

func TestSendToClosedClientIsIgnored(t *testing.T) {
	h := newTestHub()
	a := admitTestClient(h)
	b := admitTestClient(h)
	h.dropClient(b)

	// Delivery to an already-closed client is skipped, not treated as a
	// fresh buffer-full drop.
	h.sendTo(b, errorEvent{Type: eventError, Message: "late"})

	assert.Nil(t, h.registry.lookup(b.id))
	assert.NotNil(t, h.registry.lookup(a.id))
}

func TestSlowClientIsDroppedNotBlocking(t *testing.T) {
	h := newTestHub()
	a := admitTestClient(h)
	b := admitTestClient(h)
	send(h, a, `{"type":"set-username","username":"alice"}`)
	send(h, b, `{"type":"set-username","username":"bob"}`)

	// Saturate b's outbound queue so the next fan-out cannot reach it.
	for len(b.send) < cap(b.send) {
		b.send <- []byte(`{}`)
	}

	send(h, a, `{"type":"new-message","text":"hi"}`)

	assert.Nil(t, h.registry.lookup(b.id), "saturated peer is dropped")
	assert.NotNil(t, h.registry.lookup(a.id), "other clients are unaffected")
	assert.False(t, h.rooms.get(h.defaultRoomID).hasMember(b.id))
}
