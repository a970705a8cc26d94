package config

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/validation"
)

// Validate checks struct tags first, then the cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	v := validation.NewConfigValidator("Config")

	replicaIDs := make([]string, len(c.Replicas))
	known := make(map[string]bool, len(c.Replicas))
	primaries := 0
	for i, r := range c.Replicas {
		replicaIDs[i] = r.ID
		known[r.ID] = true
		if r.Primary {
			primaries++
		}
		v.Custom(fmt.Sprintf("Replicas[%s]", r.ID), endpointSet(r.Endpoint))
	}
	v.Unique("Replicas", replicaIDs)
	v.When(c.Mode == protocol.ModePassive, func(v *validation.ConfigValidator) {
		v.RangeInt("Replicas.primary", primaries, 0, 1)
	})

	detectorIDs := make([]string, len(c.Detectors))
	for i, d := range c.Detectors {
		detectorIDs[i] = d.ID
		replicaID := d.ReplicaID
		v.Custom(fmt.Sprintf("Detectors[%s].ReplicaID", d.ID), func() error {
			if !known[replicaID] {
				return fmt.Errorf("%w: %q", ErrUnknownReplica, replicaID)
			}
			return nil
		})
		v.Custom(fmt.Sprintf("Detectors[%s]", d.ID), endpointSet(d.Endpoint))
	}
	v.Unique("Detectors", detectorIDs)

	v.Custom("GFD", endpointSet(c.GFD.Endpoint))
	v.Custom("RM", endpointSet(c.RM.Endpoint))

	v.MinDuration("GFD.SweepInterval", c.GFD.SweepInterval, time.Millisecond)
	v.MinDuration("Replica.CheckpointFreq", c.Replica.CheckpointFreq, time.Millisecond)
	v.MinDuration("Replica.PollInterval", c.Replica.PollInterval, time.Millisecond)
	v.MinDuration("GFD.PollInterval", c.GFD.PollInterval, time.Millisecond)
	v.MinDuration("RM.PollInterval", c.RM.PollInterval, time.Millisecond)
	v.MinDuration("LFD.HeartbeatFreq", c.LFD.HeartbeatFreq, time.Millisecond)
	v.AtLeast("LFD.Timeout", c.LFD.Timeout, "LFD.HeartbeatFreq", c.LFD.HeartbeatFreq)
	v.AtLeast("GFD.Timeout", c.GFD.Timeout, "LFD.HeartbeatFreq", c.LFD.HeartbeatFreq)

	return v.Validate()
}

func endpointSet(ep protocol.Endpoint) func() error {
	return func() error {
		if !ep.IsSet() {
			return ErrMissingEndpoint
		}
		return nil
	}
}
