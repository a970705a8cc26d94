package config

import "errors"

var (
	// ErrUnknownReplica is returned when an id is not in the topology.
	ErrUnknownReplica = errors.New("unknown replica")

	// ErrUnknownDetector is returned when a detector id is not in the topology.
	ErrUnknownDetector = errors.New("unknown detector")

	// ErrMissingEndpoint is returned when neither port nor url is configured.
	ErrMissingEndpoint = errors.New("endpoint needs a port or url")
)
