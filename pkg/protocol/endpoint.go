package protocol

import (
	"fmt"
)

// Endpoint locates a daemon's reply socket. URL, when set, overrides
// host/port and may name any transport scheme (tcp, ipc, inproc).
type Endpoint struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`
	URL  string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Addr is the dial address.
func (e Endpoint) Addr() string {
	if e.URL != "" {
		return e.URL
	}
	return fmt.Sprintf("tcp://%s:%d", e.Host, e.Port)
}

// ListenAddr is the bind address: every interface on the configured port.
func (e Endpoint) ListenAddr() string {
	if e.URL != "" {
		return e.URL
	}
	return fmt.Sprintf("tcp://0.0.0.0:%d", e.Port)
}

// IsSet reports whether the endpoint names anything.
func (e Endpoint) IsSet() bool {
	return e.URL != "" || e.Port != 0
}

// ReplicaIdentity is a replica's immutable id and location.
type ReplicaIdentity struct {
	ID       string `yaml:"id" json:"id" validate:"required"`
	Endpoint `yaml:",inline"`
}

func (r ReplicaIdentity) String() string {
	return fmt.Sprintf("%s@%s", r.ID, r.Addr())
}
