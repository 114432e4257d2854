// Package server coordinates the hub run loop: the single goroutine that
// owns the connection registry and room store and applies every state
// mutation in arrival order.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roomcast/roomcast/internal/logger"
)

// inboundFrame pairs a raw frame with the connection it arrived on.
type inboundFrame struct {
	client  *Client
	payload []byte
}

// Hub is the process-wide coordinator. Registry and room state are owned
// exclusively by Run's goroutine; pumps and handlers communicate with it
// through the register, unregister, and inbound channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame

	registry      *registry
	rooms         *roomStore
	defaultRoomID string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub with the default room already seeded, so it exists
// before any connection can be admitted.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame),
		registry:   newRegistry(),
		rooms:      newRoomStore(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	name := currentConfig().DefaultRoomName
	if name == "" {
		name = defaultRoomName
	}
	h.defaultRoomID = h.rooms.create(name).ID
	return h
}

// RegisterChan returns the channel used to admit new clients.
func (h *Hub) RegisterChan() chan<- *Client {
	return h.register
}

// UnregisterChan returns the channel used to withdraw clients.
func (h *Hub) UnregisterChan() chan<- *Client {
	return h.unregister
}

// DefaultRoomID returns the id of the room every connection is auto-joined
// into.
func (h *Hub) DefaultRoomID() string {
	return h.defaultRoomID
}

// Run is the hub's event loop. It must be the only goroutine that touches
// h.registry and h.rooms; run it once, in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case c := <-h.register:
			if c == nil {
				logger.Warn("nil client registration, skipping")
				continue
			}
			h.admitClient(c)

		case c := <-h.unregister:
			h.dropClient(c)

		case frame := <-h.inbound:
			h.dispatch(frame.client, frame.payload)
		}
	}
}

// admitClient records the connection, starts its pumps, and auto-joins it
// into the default room with a history snapshot.
func (h *Hub) admitClient(c *Client) {
	h.registry.add(c)
	logger.Info("client connected",
		zap.String("client_id", c.id),
		zap.String("addr", c.addr),
		zap.Int("clients", h.registry.count()))

	if c.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			c.writePump()
		}()
		go func() {
			defer h.wg.Done()
			c.readPump()
		}()
	}

	h.joinRoom(c, h.defaultRoomID)
}

// dropClient runs the disconnect lifecycle: vacate the occupied room,
// notify its remaining members, free the username, and close the send
// channel. Safe to call more than once for the same client.
func (h *Hub) dropClient(c *Client) {
	if c == nil || h.registry.lookup(c.id) == nil {
		return
	}

	if c.roomID != "" {
		if room := h.rooms.get(c.roomID); room != nil {
			room.removeMember(c.id)
			c.roomID = ""
			h.broadcastParticipants(room)
		}
	}

	h.registry.remove(c.id)
	c.closed = true
	close(c.send)

	logger.Info("client disconnected",
		zap.String("client_id", c.id),
		zap.String("addr", c.addr),
		zap.Int("clients", h.registry.count()))
}

// joinRoom moves a client into roomID: it leaves any previous room first,
// resets the target's unread counter, replays history to the joiner, and
// notifies both member sets. Reports whether the room existed.
func (h *Hub) joinRoom(c *Client, roomID string) bool {
	room := h.rooms.get(roomID)
	if room == nil {
		return false
	}

	if c.roomID != "" && c.roomID != roomID {
		if prev := h.rooms.get(c.roomID); prev != nil {
			prev.removeMember(c.id)
			h.sendToRoom(prev, participantsEvent{
				Type:         eventRoomParticipantsUpdated,
				Participants: h.participants(prev),
			})
		}
	}

	c.roomID = room.ID
	room.addMember(c.id)
	room.resetUnread()

	h.sendTo(c, roomJoinedEvent{
		Type:         eventRoomJoined,
		RoomID:       room.ID,
		RoomName:     room.Name,
		Messages:     room.log.snapshot(),
		Participants: h.participants(room),
	})
	h.sendToRoom(room, participantsEvent{
		Type:         eventRoomParticipantsUpdated,
		Participants: h.participants(room),
	})
	return true
}

// participants resolves a room's member set against the registry.
func (h *Hub) participants(room *Room) []Participant {
	out := make([]Participant, 0, room.memberCount())
	for _, id := range room.memberIDs() {
		c := h.registry.lookup(id)
		if c == nil {
			continue
		}
		out = append(out, Participant{ID: c.id, Username: c.name})
	}
	return out
}

// broadcastParticipants pushes both membership views to a room after a
// membership or identity change. Both events are room-scoped.
func (h *Hub) broadcastParticipants(room *Room) {
	h.sendToRoom(room, participantsEvent{
		Type:         eventRoomParticipantsUpdated,
		Participants: h.participants(room),
	})
	h.sendToRoom(room, participantsEvent{
		Type:         eventParticipantsUpdated,
		Participants: h.participants(room),
	})
}

// shutdownClients closes every live connection so the pump goroutines can
// drain and exit.
func (h *Hub) shutdownClients() {
	clients := h.registry.all()
	for _, c := range clients {
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				logger.Warnf("close client connection from %s: %v", c.addr, err)
			}
		}
	}
	logger.Infof("closed %d client connections", len(clients))
}

// Shutdown stops the run loop, closes all connections, and waits for pump
// goroutines to finish or the timeout to expire.
func (h *Hub) Shutdown(timeout time.Duration) error {
	logger.Info("hub shutdown initiated")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		logger.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		logger.Warn("hub shutdown timed out, goroutines may still be running")
		return context.DeadlineExceeded
	}
}
