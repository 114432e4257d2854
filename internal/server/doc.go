// Package server implements the Roomcast hub: a room-scoped WebSocket
// broadcast service in which clients claim a display name, join or create
// rooms, and exchange messages their author can later edit or soft-delete.
// All registry and room state is owned by a single hub run loop; connection
// goroutines only decode frames and drain their own send buffers.
package server
