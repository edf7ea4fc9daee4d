package socket

import "errors"

// Handshake failures.  The message sent to the peer is produced by
// RejectionMessage.
var (
	ErrTokenNotProvided = errors.New("token not provided")
	ErrInvalidToken     = errors.New("invalid token")
	ErrUserNotFound     = errors.New("user not found")
)

// Send failures returned by Client.Emit.
var (
	ErrClientClosed   = errors.New("socket: client closed")
	ErrSendBufferFull = errors.New("socket: send buffer full")
)

// RejectionMessage maps a handshake error to the text carried by the
// connect_error frame.  Anything that is not one of the three known
// causes is reported with its own message.
func RejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenNotProvided):
		return "Authentication error: Token not provided"
	case errors.Is(err, ErrInvalidToken):
		return "Authentication error: Invalid token"
	case errors.Is(err, ErrUserNotFound):
		return "Authentication error: User not found"
	case err == nil:
		return "Authentication error"
	default:
		return "Authentication error: " + err.Error()
	}
}
