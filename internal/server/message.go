// Package server keeps each room's message history in an append-ordered
// log with in-place edit and tombstone-delete semantics.
package server

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a room's history. A deleted message stays in the
// log as a tombstone: id, timestamp, and ordering survive, but its text must
// never reach a client again.
type Message struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
	User      string `json:"user"`
	RoomID    string `json:"roomId"`
	Edited    bool   `json:"edited,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// messageLog is the append-mostly history of a single room. Entries are
// ordered by arrival and never reordered or physically removed.
type messageLog struct {
	entries []*Message
	byID    map[string]*Message
}

func newMessageLog() *messageLog {
	return &messageLog{byID: make(map[string]*Message)}
}

// append stamps and stores a new message. The author name is captured by
// value; later renames (unsupported today) would not rewrite history.
func (l *messageLog) append(author, roomID, text string) *Message {
	msg := &Message{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Text:      strings.TrimSpace(text),
		User:      author,
		RoomID:    roomID,
	}
	l.entries = append(l.entries, msg)
	l.byID[msg.ID] = msg
	return msg
}

func (l *messageLog) find(id string) *Message {
	return l.byID[id]
}

// edit replaces the text of a live message owned by requester and marks it
// edited. Tombstoned messages cannot be edited.
func (l *messageLog) edit(id, newText, requester string) error {
	msg := l.find(id)
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.User != requester {
		return ErrNotMessageAuthor
	}
	if msg.Deleted {
		return ErrMessageDeleted
	}
	msg.Text = strings.TrimSpace(newText)
	msg.Edited = true
	return nil
}

// delete tombstones a message owned by requester. Deleting an already
// deleted message is a no-op.
func (l *messageLog) delete(id, requester string) error {
	msg := l.find(id)
	if msg == nil {
		return ErrMessageNotFound
	}
	if msg.User != requester {
		return ErrNotMessageAuthor
	}
	msg.Deleted = true
	return nil
}

// snapshot returns copies of the log in append order for history replay.
// Tombstoned entries have their text blanked so deleted content never
// leaves the hub.
func (l *messageLog) snapshot() []Message {
	out := make([]Message, 0, len(l.entries))
	for _, msg := range l.entries {
		copied := *msg
		if copied.Deleted {
			copied.Text = ""
		}
		out = append(out, copied)
	}
	return out
}

func (l *messageLog) len() int {
	return len(l.entries)
}
