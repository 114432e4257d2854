// Package server validates inbound commands against registry and room
// state, applies the mutation, and emits the resulting events.
package server

import (
	"go.uber.org/zap"

	"github.com/roomcast/roomcast/internal/logger"
)

// dispatch decodes one frame and runs the matching transition. Every
// failure answers the sender with an error event; no failure closes the
// connection or leaks to other clients.
func (h *Hub) dispatch(c *Client, payload []byte) {
	// A frame can sit on the inbound channel while its client is dropped
	// (buffer-full drop, disconnect). Acting on it would resurrect the dead
	// client's id in registry or room state.
	if c == nil || c.closed || h.registry.lookup(c.id) == nil {
		return
	}

	cmd, err := decodeCommand(payload)
	if err != nil {
		logger.Debug("undecodable frame",
			zap.String("client_id", c.id), zap.Error(err))
		h.sendError(c, err)
		return
	}

	switch cmd.Type {
	case cmdSetUsername:
		h.handleSetUsername(c, cmd.Username)
	case cmdCreateRoom:
		h.handleCreateRoom(c, cmd.RoomName)
	case cmdJoinRoom:
		h.handleJoinRoom(c, cmd.RoomID)
	case cmdNewMessage:
		h.handleNewMessage(c, cmd.Text)
	case cmdEditMessage:
		h.handleEditMessage(c, cmd.ID, cmd.Text)
	case cmdDeleteMessage:
		h.handleDeleteMessage(c, cmd.ID)
	default:
		logger.Debug("unsupported command type",
			zap.String("client_id", c.id), zap.String("type", cmd.Type))
		h.sendTo(c, errorEvent{Type: eventError, Message: "Unsupported action."})
	}
}

// handleSetUsername claims a display name. On success the client's current
// room learns about it; failures go to the sender only.
func (h *Hub) handleSetUsername(c *Client, username string) {
	if err := h.registry.setUsername(c.id, username); err != nil {
		h.sendError(c, err)
		return
	}

	logger.Info("username claimed",
		zap.String("client_id", c.id), zap.String("username", c.name))

	if room := h.rooms.get(c.roomID); room != nil {
		h.sendToRoom(room, participantsEvent{
			Type:         eventParticipantsUpdated,
			Participants: h.participants(room),
		})
	}
}

// handleCreateRoom always succeeds and announces the new room list to
// every connected client.
func (h *Hub) handleCreateRoom(c *Client, roomName string) {
	room := h.rooms.create(roomName)
	logger.Info("room created",
		zap.String("room_id", room.ID),
		zap.String("room_name", room.Name),
		zap.String("client_id", c.id))

	h.sendToAll(roomListEvent{Type: eventRoomListUpdated, Rooms: h.rooms.list()})
}

func (h *Hub) handleJoinRoom(c *Client, roomID string) {
	if !h.joinRoom(c, roomID) {
		h.sendError(c, ErrRoomNotFound)
	}
}

// requireActive enforces the shared precondition for room actions: a
// claimed username and a current room.
func (h *Hub) requireActive(c *Client) (*Room, error) {
	if c.name == "" {
		return nil, ErrNoUsername
	}
	if c.roomID == "" {
		return nil, ErrNoRoom
	}
	room := h.rooms.get(c.roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (h *Hub) handleNewMessage(c *Client, text string) {
	room, err := h.requireActive(c)
	if err != nil {
		h.sendError(c, err)
		return
	}

	msg := room.log.append(c.name, room.ID, text)
	room.unread++

	h.sendToRoom(room, newMessageEvent{
		Type:      eventNewMessage,
		ID:        msg.ID,
		Timestamp: msg.Timestamp,
		Text:      msg.Text,
		User:      msg.User,
		RoomID:    msg.RoomID,
	})
}

func (h *Hub) handleEditMessage(c *Client, id, text string) {
	room, err := h.requireActive(c)
	if err != nil {
		h.sendError(c, err)
		return
	}

	if err := room.log.edit(id, text, c.name); err != nil {
		h.sendError(c, err)
		return
	}

	msg := room.log.find(id)
	h.sendToRoom(room, editMessageEvent{Type: eventEditMessage, ID: msg.ID, Text: msg.Text})
}

func (h *Hub) handleDeleteMessage(c *Client, id string) {
	room, err := h.requireActive(c)
	if err != nil {
		h.sendError(c, err)
		return
	}

	if err := room.log.delete(id, c.name); err != nil {
		h.sendError(c, err)
		return
	}

	h.sendToRoom(room, deleteMessageEvent{Type: eventDeleteMessage, ID: id})
}
