// Package server tracks every live connection and enforces first-come
// username claims across them.
package server

import "strings"

// registry is the authoritative map of connected clients. It is only ever
// touched from the hub run loop, so no locking is needed here.
type registry struct {
	clients map[string]*Client
}

func newRegistry() *registry {
	return &registry{clients: make(map[string]*Client)}
}

func (r *registry) add(c *Client) {
	r.clients[c.id] = c
}

func (r *registry) remove(id string) {
	delete(r.clients, id)
}

func (r *registry) lookup(id string) *Client {
	return r.clients[id]
}

// findByName returns the client holding name exactly (case-sensitive), or
// nil. Unnamed clients never match.
func (r *registry) findByName(name string) *Client {
	if name == "" {
		return nil
	}
	for _, c := range r.clients {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (r *registry) all() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *registry) count() int {
	return len(r.clients)
}

// setUsername claims a display name for a registered client. The name is
// trimmed first; empty names, renames, and names held by another live
// client are rejected. Disconnecting frees the name for reclaim.
func (r *registry) setUsername(id, name string) error {
	c := r.lookup(id)
	if c == nil {
		return ErrClientNotFound
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrUsernameEmpty
	}
	if c.name != "" {
		return ErrUsernameSet
	}
	if holder := r.findByName(trimmed); holder != nil && holder.id != c.id {
		return ErrUsernameTaken
	}

	c.name = trimmed
	return nil
}
