package transport

import "errors"

var (
	// ErrTimeout is returned when a send or receive deadline expires.
	ErrTimeout = errors.New("transport: deadline exceeded")

	// ErrClosed is returned when a socket or client is used after Close.
	ErrClosed = errors.New("transport: closed")

	// ErrEmptyReply is returned when the peer answered with an empty frame,
	// which is how a replica refuses a request it may not serve.
	ErrEmptyReply = errors.New("transport: empty reply")

	// ErrMalformedReply is returned when a reply cannot be decoded.
	ErrMalformedReply = errors.New("transport: malformed reply")

	// ErrRemote is returned when the peer answered with an error envelope.
	ErrRemote = errors.New("transport: remote error")

	// ErrUnknownMethod is reported by a server that has no handler for a method.
	ErrUnknownMethod = errors.New("transport: unknown method")

	// ErrUnknownBackend is returned for an unregistered socket backend name.
	ErrUnknownBackend = errors.New("transport: unknown backend")

	// ErrDrop may be returned by a handler to answer with an empty frame.
	ErrDrop = errors.New("transport: request dropped")
)

// IsReplyError reports whether err means a reply arrived but was unusable,
// as opposed to the peer being unreachable.
func IsReplyError(err error) bool {
	return errors.Is(err, ErrEmptyReply) ||
		errors.Is(err, ErrMalformedReply) ||
		errors.Is(err, ErrRemote)
}
