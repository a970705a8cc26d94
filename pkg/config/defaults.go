package config

import (
	"time"

	"github.com/dd0wney/cluso-counter/pkg/validation"
)

// Default values applied to zero fields.
const (
	DefaultGFDTimeout        = 10 * time.Second
	DefaultSweepInterval     = 1 * time.Second
	DefaultCheckpointFreq    = 5 * time.Second
	DefaultReplicaPoll       = 100 * time.Millisecond
	DefaultHeartbeatFreq     = 5 * time.Second
	DefaultLFDTimeout        = 10 * time.Second
	DefaultRegisterBackoff   = 3 * time.Second
	DefaultClientTimeout     = 2 * time.Second
	DefaultDiscoveryInterval = 1 * time.Second
	DefaultRequestInterval   = 2 * time.Second
	DefaultCallTimeout       = 2 * time.Second
	DefaultCompressThreshold = 1024
	DefaultHost              = "127.0.0.1"
)

// ApplyDefaults fills every zero duration, backend and host.
func (c *Config) ApplyDefaults() {
	c.Mode = validation.DefaultOr(c.Mode, "passive")

	for i := range c.Replicas {
		c.Replicas[i].Host = validation.DefaultOr(c.Replicas[i].Host, DefaultHost)
	}
	for i := range c.Detectors {
		c.Detectors[i].Host = validation.DefaultOr(c.Detectors[i].Host, DefaultHost)
	}
	c.GFD.Host = validation.DefaultOr(c.GFD.Host, DefaultHost)
	c.RM.Host = validation.DefaultOr(c.RM.Host, DefaultHost)

	c.GFD.Timeout = validation.DefaultOrDuration(c.GFD.Timeout, DefaultGFDTimeout)
	c.GFD.SweepInterval = validation.DefaultOrDuration(c.GFD.SweepInterval, DefaultSweepInterval)

	c.Replica.CheckpointFreq = validation.DefaultOrDuration(c.Replica.CheckpointFreq, DefaultCheckpointFreq)
	c.Replica.PollInterval = validation.DefaultOrDuration(c.Replica.PollInterval, DefaultReplicaPoll)
	c.GFD.PollInterval = validation.DefaultOrDuration(c.GFD.PollInterval, c.Replica.PollInterval)
	c.RM.PollInterval = validation.DefaultOrDuration(c.RM.PollInterval, c.Replica.PollInterval)

	c.LFD.HeartbeatFreq = validation.DefaultOrDuration(c.LFD.HeartbeatFreq, DefaultHeartbeatFreq)
	c.LFD.Timeout = validation.DefaultOrDuration(c.LFD.Timeout, DefaultLFDTimeout)
	c.LFD.RegisterBackoff = validation.DefaultOrDuration(c.LFD.RegisterBackoff, DefaultRegisterBackoff)

	c.Client.Timeout = validation.DefaultOrDuration(c.Client.Timeout, DefaultClientTimeout)
	c.Client.DiscoveryInterval = validation.DefaultOrDuration(c.Client.DiscoveryInterval, DefaultDiscoveryInterval)
	c.Client.RequestInterval = validation.DefaultOrDuration(c.Client.RequestInterval, DefaultRequestInterval)

	c.Transport.Backend = validation.DefaultOr(c.Transport.Backend, "mangos")
	c.Transport.CallTimeout = validation.DefaultOrDuration(c.Transport.CallTimeout, DefaultCallTimeout)
	c.Transport.CompressThreshold = validation.DefaultOrInt(c.Transport.CompressThreshold, DefaultCompressThreshold)

	c.Log.Level = validation.DefaultOr(c.Log.Level, "info")
	c.Log.Format = validation.DefaultOr(c.Log.Format, "json")
}
