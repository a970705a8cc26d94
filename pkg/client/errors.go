package client

import "errors"

var (
	// ErrNoPrimary is returned when no replica claims the primary role.
	ErrNoPrimary = errors.New("client: no primary found")

	// ErrPrimaryUnreachable is returned when the known primary stopped
	// answering heartbeats and rediscovery found no replacement.
	ErrPrimaryUnreachable = errors.New("client: primary unreachable")

	// ErrPrimaryNoReply is returned when the fan-out completed without a
	// usable reply from the primary.
	ErrPrimaryNoReply = errors.New("client: primary did not reply")
)
