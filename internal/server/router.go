// Package server fans events out to one connection, one room, or every
// connected client. Delivery is best effort: an unreachable or saturated
// peer is dropped through the normal disconnect path and never stalls or
// fails the fan-out for anyone else.
package server

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/roomcast/roomcast/internal/logger"
)

// trySend queues a payload for one client without blocking. It must only
// run on the hub loop goroutine, which is the sole closer of send channels.
func (h *Hub) trySend(c *Client, payload []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) encode(event any) ([]byte, bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("encode event", zap.Error(err))
		return nil, false
	}
	return payload, true
}

// sendTo delivers an event to a single client. Failure drops the peer; it
// is never surfaced to the caller.
func (h *Hub) sendTo(c *Client, event any) {
	payload, ok := h.encode(event)
	if !ok {
		return
	}
	if !h.trySend(c, payload) {
		h.dropUnreachable(c)
	}
}

// sendToRoom delivers an event to every current member of a room. The
// member set is snapshotted before iterating, so drops triggered mid
// fan-out cannot skip or duplicate a recipient.
func (h *Hub) sendToRoom(room *Room, event any) {
	payload, ok := h.encode(event)
	if !ok {
		return
	}

	var failed []*Client
	for _, id := range room.memberIDs() {
		c := h.registry.lookup(id)
		if c == nil {
			continue
		}
		if !h.trySend(c, payload) {
			failed = append(failed, c)
		}
	}
	h.dropFailed(failed)
}

// sendToAll delivers an event to every registered connection.
func (h *Hub) sendToAll(event any) {
	payload, ok := h.encode(event)
	if !ok {
		return
	}

	var failed []*Client
	for _, c := range h.registry.all() {
		if !h.trySend(c, payload) {
			failed = append(failed, c)
		}
	}
	h.dropFailed(failed)
}

func (h *Hub) dropFailed(failed []*Client) {
	for _, c := range failed {
		h.dropUnreachable(c)
	}
}

// dropUnreachable handles a failed delivery. A closed client is already on
// its way out and is skipped; a saturated one gets dropped.
func (h *Hub) dropUnreachable(c *Client) {
	if c.closed {
		logger.Debug("skipping delivery to closed client",
			zap.String("client_id", c.id))
		return
	}
	logger.Warn("send buffer full, dropping client",
		zap.String("client_id", c.id), zap.String("addr", c.addr))
	h.dropClient(c)
}

// sendError reports a command failure to the sender only.
func (h *Hub) sendError(c *Client, err error) {
	h.sendTo(c, newErrorEvent(err))
}
