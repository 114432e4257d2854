// Package server defines the sentinel errors produced by the hub state
// machine and their client-facing wire messages.
package server

import "github.com/pkg/errors"

var (
	ErrUsernameEmpty = errors.New("username is empty")
	ErrUsernameTaken = errors.New("username already taken")
	ErrUsernameSet   = errors.New("username already set")

	ErrClientNotFound = errors.New("client not found")
	ErrNoUsername     = errors.New("client has no username")
	ErrNoRoom         = errors.New("client is not in a room")
	ErrRoomNotFound   = errors.New("room not found")

	ErrMessageNotFound  = errors.New("message not found")
	ErrNotMessageAuthor = errors.New("requester is not the message author")
	ErrMessageDeleted   = errors.New("message has been deleted")

	errMalformedPayload = errors.New("malformed payload")
)

// wireMessage maps an internal error to the text carried by an error event.
// Unknown errors get a generic message so internals never leak to clients.
func wireMessage(err error) string {
	switch {
	case errors.Is(err, ErrUsernameEmpty):
		return "Username cannot be empty."
	case errors.Is(err, ErrUsernameTaken):
		return "Username already taken."
	case errors.Is(err, ErrUsernameSet):
		return "Username already set."
	case errors.Is(err, ErrNoUsername):
		return "You must set a username first."
	case errors.Is(err, ErrNoRoom):
		return "You must join a room first."
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found."
	case errors.Is(err, ErrMessageNotFound):
		return "Message not found."
	case errors.Is(err, ErrNotMessageAuthor):
		return "You can only modify your own messages."
	case errors.Is(err, ErrMessageDeleted):
		return "Message has been deleted."
	case errors.Is(err, errMalformedPayload):
		return "Invalid message format."
	default:
		return "Unable to process request."
	}
}
