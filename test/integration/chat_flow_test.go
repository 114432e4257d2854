package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomcast/roomcast/test/testhelpers"
)

// TestRoomScopedChatFlow walks the whole protocol: username claims and
// collisions, room creation, room-scoped fan-out, history replay for late
// joiners, edits, and foreign delete rejection.
func TestRoomScopedChatFlow(t *testing.T) {
	wsURL := startTestServer(t)

	// A connects and lands in the default room.
	connA := connect(t, wsURL)
	joinedA := testhelpers.WaitForEvent(t, connA, "room-joined")
	assert.Equal(t, "Main Chat", joinedA["roomName"])
	require.NotEmpty(t, joinedA["roomId"])

	testhelpers.SendCommand(t, connA, map[string]any{"type": "set-username", "username": "alice-flow"})
	ev := testhelpers.WaitForEvent(t, connA, "participants-updated")
	assert.Contains(t, testhelpers.ParticipantNames(t, ev), "alice-flow")

	// B connects and tries to steal the name.
	connB := connect(t, wsURL)
	testhelpers.WaitForEvent(t, connB, "room-joined")

	testhelpers.SendCommand(t, connB, map[string]any{"type": "set-username", "username": "alice-flow"})
	errEv := testhelpers.WaitForEvent(t, connB, "error")
	assert.Equal(t, "Username already taken.", errEv["message"])

	testhelpers.SendCommand(t, connB, map[string]any{"type": "set-username", "username": "bob-flow"})
	ev = testhelpers.WaitForEvent(t, connB, "participants-updated")
	assert.Contains(t, testhelpers.ParticipantNames(t, ev), "alice-flow", "A kept the name")
	assert.Contains(t, testhelpers.ParticipantNames(t, ev), "bob-flow")

	// A creates a room; everyone hears about it.
	testhelpers.SendCommand(t, connA, map[string]any{"type": "create-room", "roomName": "Dev Flow"})
	devID := testhelpers.RoomIDByName(t, testhelpers.WaitForEvent(t, connA, "room-list-updated"), "Dev Flow")
	assert.Equal(t, devID,
		testhelpers.RoomIDByName(t, testhelpers.WaitForEvent(t, connB, "room-list-updated"), "Dev Flow"))

	// A moves to the new room; B sees A leave the default room.
	testhelpers.SendCommand(t, connA, map[string]any{"type": "join-room", "roomId": devID})
	joinedDev := testhelpers.WaitForEvent(t, connA, "room-joined")
	assert.Equal(t, "Dev Flow", joinedDev["roomName"])

	left := testhelpers.WaitForEvent(t, connB, "room-participants-updated")
	assert.NotContains(t, testhelpers.ParticipantNames(t, left), "alice-flow")

	// A talks in Dev Flow; B, still in the default room, hears nothing.
	testhelpers.SendCommand(t, connA, map[string]any{"type": "new-message", "text": "hi"})
	msgEv := testhelpers.WaitForEvent(t, connA, "new-message")
	assert.Equal(t, "hi", msgEv["text"])
	assert.Equal(t, "alice-flow", msgEv["user"])
	msgID := msgEv["id"].(string)

	testhelpers.AssertNoEvent(t, connB, "new-message", 300*time.Millisecond)

	// C joins afterwards and gets the history in its snapshot.
	connC := connect(t, wsURL)
	testhelpers.WaitForEvent(t, connC, "room-joined")
	testhelpers.SendCommand(t, connC, map[string]any{"type": "set-username", "username": "carol-flow"})
	testhelpers.SendCommand(t, connC, map[string]any{"type": "join-room", "roomId": devID})

	joinedC := testhelpers.WaitForEvent(t, connC, "room-joined")
	require.Equal(t, "Dev Flow", joinedC["roomName"])
	messages := joinedC["messages"].([]any)
	require.NotEmpty(t, messages)
	last := messages[len(messages)-1].(map[string]any)
	assert.Equal(t, "hi", last["text"])
	assert.Equal(t, "alice-flow", last["user"])

	// A edits; every Dev Flow member observes the new text.
	testhelpers.SendCommand(t, connA, map[string]any{"type": "edit-message", "id": msgID, "text": "hello"})
	editA := testhelpers.WaitForEvent(t, connA, "edit-message")
	assert.Equal(t, "hello", editA["text"])
	editC := testhelpers.WaitForEvent(t, connC, "edit-message")
	assert.Equal(t, msgID, editC["id"])

	// B cannot touch A's message from another room; state is unchanged.
	testhelpers.SendCommand(t, connB, map[string]any{"type": "delete-message", "id": msgID})
	delErr := testhelpers.WaitForEvent(t, connB, "error")
	assert.Equal(t, "Message not found.", delErr["message"])

	testhelpers.SendCommand(t, connC, map[string]any{"type": "join-room", "roomId": devID})
	rejoined := testhelpers.WaitForEvent(t, connC, "room-joined")
	messages = rejoined["messages"].([]any)
	last = messages[len(messages)-1].(map[string]any)
	assert.Equal(t, "hello", last["text"])
	assert.Nil(t, last["deleted"], "message was not deleted")
}

// TestDeleteTombstoneOverWire verifies that a deleted message keeps its
// place in replayed history with the text blanked.
func TestDeleteTombstoneOverWire(t *testing.T) {
	wsURL := startTestServer(t)

	conn := connect(t, wsURL)
	testhelpers.WaitForEvent(t, conn, "room-joined")
	testhelpers.SendCommand(t, conn, map[string]any{"type": "set-username", "username": "dana-tomb"})
	testhelpers.SendCommand(t, conn, map[string]any{"type": "create-room", "roomName": "Tombstones"})
	roomID := testhelpers.RoomIDByName(t, testhelpers.WaitForEvent(t, conn, "room-list-updated"), "Tombstones")
	testhelpers.SendCommand(t, conn, map[string]any{"type": "join-room", "roomId": roomID})
	testhelpers.WaitForEvent(t, conn, "room-joined")

	testhelpers.SendCommand(t, conn, map[string]any{"type": "new-message", "text": "secret"})
	msgEv := testhelpers.WaitForEvent(t, conn, "new-message")
	msgID := msgEv["id"].(string)

	testhelpers.SendCommand(t, conn, map[string]any{"type": "delete-message", "id": msgID})
	delEv := testhelpers.WaitForEvent(t, conn, "delete-message")
	assert.Equal(t, msgID, delEv["id"])

	testhelpers.SendCommand(t, conn, map[string]any{"type": "join-room", "roomId": roomID})
	rejoined := testhelpers.WaitForEvent(t, conn, "room-joined")
	messages := rejoined["messages"].([]any)
	require.Len(t, messages, 1)
	tombstone := messages[0].(map[string]any)
	assert.Equal(t, msgID, tombstone["id"])
	assert.Equal(t, true, tombstone["deleted"])
	assert.Empty(t, tombstone["text"], "deleted text never reaches clients")
	assert.NotNil(t, tombstone["timestamp"])
}
