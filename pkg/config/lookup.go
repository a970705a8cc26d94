package config

import (
	"fmt"

	"github.com/dd0wney/cluso-counter/pkg/protocol"
)

// ReplicaByID returns the replica entry for id.
func (c *Config) ReplicaByID(id string) (ReplicaConfig, error) {
	for _, r := range c.Replicas {
		if r.ID == id {
			return r, nil
		}
	}
	return ReplicaConfig{}, fmt.Errorf("%w: %q", ErrUnknownReplica, id)
}

// DetectorByID returns the detector entry for id.
func (c *Config) DetectorByID(id string) (DetectorConfig, error) {
	for _, d := range c.Detectors {
		if d.ID == id {
			return d, nil
		}
	}
	return DetectorConfig{}, fmt.Errorf("%w: %q", ErrUnknownDetector, id)
}

// Identities returns every replica identity in topology order.
func (c *Config) Identities() []protocol.ReplicaIdentity {
	ids := make([]protocol.ReplicaIdentity, len(c.Replicas))
	for i, r := range c.Replicas {
		ids[i] = r.ReplicaIdentity
	}
	return ids
}

// Peers returns every replica identity except self, in topology order.
func (c *Config) Peers(self string) []protocol.ReplicaIdentity {
	peers := make([]protocol.ReplicaIdentity, 0, len(c.Replicas))
	for _, r := range c.Replicas {
		if r.ID != self {
			peers = append(peers, r.ReplicaIdentity)
		}
	}
	return peers
}
