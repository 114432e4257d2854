// Package server tracks rooms: identity, membership, message history, and
// the per-room unread counter.
package server

import "github.com/google/uuid"

// Room bundles a room's identity with its member set and message log.
// Rooms are created by command or seeded at startup and never deleted.
type Room struct {
	ID   string
	Name string

	log     *messageLog
	members map[string]struct{}
	unread  int
}

func newRoom(name string) *Room {
	return &Room{
		ID:      uuid.NewString(),
		Name:    name,
		log:     newMessageLog(),
		members: make(map[string]struct{}),
	}
}

// addMember is idempotent: adding a present member is a no-op.
func (r *Room) addMember(clientID string) {
	r.members[clientID] = struct{}{}
}

// removeMember is idempotent: removing an absent member is a no-op.
func (r *Room) removeMember(clientID string) {
	delete(r.members, clientID)
}

func (r *Room) hasMember(clientID string) bool {
	_, ok := r.members[clientID]
	return ok
}

// memberIDs snapshots the member set so fan-out iteration is immune to
// membership changes made while delivering.
func (r *Room) memberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

func (r *Room) memberCount() int {
	return len(r.members)
}

// resetUnread clears the counter. Policy: unread increments on every
// appended message and resets when any client joins the room.
func (r *Room) resetUnread() {
	r.unread = 0
}

// roomStore owns every room, keyed by id, with creation order retained for
// room listings. It is only ever touched from the hub run loop.
type roomStore struct {
	rooms map[string]*Room
	order []string
}

func newRoomStore() *roomStore {
	return &roomStore{rooms: make(map[string]*Room)}
}

// create always succeeds; room names are free text and need not be unique.
func (s *roomStore) create(name string) *Room {
	room := newRoom(name)
	s.rooms[room.ID] = room
	s.order = append(s.order, room.ID)
	return room
}

func (s *roomStore) get(id string) *Room {
	return s.rooms[id]
}

// list summarizes every room in creation order.
func (s *roomStore) list() []RoomSummary {
	out := make([]RoomSummary, 0, len(s.order))
	for _, id := range s.order {
		room := s.rooms[id]
		out = append(out, RoomSummary{ID: room.ID, Name: room.Name, UnreadCount: room.unread})
	}
	return out
}

func (s *roomStore) len() int {
	return len(s.rooms)
}
