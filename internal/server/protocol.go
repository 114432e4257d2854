// Package server defines the tagged JSON protocol spoken over each
// WebSocket connection: one inbound command or outbound event per frame.
package server

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Inbound command tags.
const (
	cmdSetUsername   = "set-username"
	cmdCreateRoom    = "create-room"
	cmdJoinRoom      = "join-room"
	cmdNewMessage    = "new-message"
	cmdEditMessage   = "edit-message"
	cmdDeleteMessage = "delete-message"
)

// Outbound event tags.
const (
	eventRoomJoined              = "room-joined"
	eventRoomParticipantsUpdated = "room-participants-updated"
	eventParticipantsUpdated     = "participants-updated"
	eventRoomListUpdated         = "room-list-updated"
	eventNewMessage              = "new-message"
	eventEditMessage             = "edit-message"
	eventDeleteMessage           = "delete-message"
	eventError                   = "error"
)

// Command is the envelope for every inbound frame. Only the fields relevant
// to the tagged type are expected to be populated; anything that does not
// decode into this shape is rejected at the boundary.
type Command struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	RoomName string `json:"roomName,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// decodeCommand parses a raw frame into a Command. Frames that are not
// valid JSON objects or carry no type tag are malformed; dispatching of
// unknown-but-present tags is left to the dispatcher.
func decodeCommand(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, errors.WithMessage(errMalformedPayload, err.Error())
	}
	if cmd.Type == "" {
		return Command{}, errors.WithMessage(errMalformedPayload, "missing type tag")
	}
	return cmd, nil
}

// Participant identifies one connected client inside participant lists.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// RoomSummary is the room-list entry pushed to every client.
type RoomSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	UnreadCount int    `json:"unreadCount"`
}

type roomJoinedEvent struct {
	Type         string        `json:"type"`
	RoomID       string        `json:"roomId"`
	RoomName     string        `json:"roomName"`
	Messages     []Message     `json:"messages"`
	Participants []Participant `json:"participants"`
}

type participantsEvent struct {
	Type         string        `json:"type"`
	Participants []Participant `json:"participants"`
}

type roomListEvent struct {
	Type  string        `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

type newMessageEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
	User      string `json:"user"`
	RoomID    string `json:"roomId"`
}

type editMessageEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

type deleteMessageEvent struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorEvent(err error) errorEvent {
	return errorEvent{Type: eventError, Message: wireMessage(err)}
}
