// Package cluster assembles the daemons of a counter deployment from its
// topology file: one constructor per component, shared by the binaries and
// the end-to-end tests.
package cluster

import (
	"fmt"

	"github.com/dd0wney/cluso-counter/pkg/client"
	"github.com/dd0wney/cluso-counter/pkg/config"
	"github.com/dd0wney/cluso-counter/pkg/gfd"
	"github.com/dd0wney/cluso-counter/pkg/lfd"
	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/replica"
	"github.com/dd0wney/cluso-counter/pkg/rm"
	"github.com/dd0wney/cluso-counter/pkg/transport"
)

// Options are the process-level dependencies handed to every component.
type Options struct {
	// Factory overrides the backend named in the topology.
	Factory transport.SocketFactory
	Logger  logging.Logger
	Metrics *metrics.Registry
	// Recoverer overrides the detector's recovery command.
	Recoverer lfd.Recoverer
}

func (o Options) factory(cfg *config.Config) (transport.SocketFactory, error) {
	if o.Factory != nil {
		return o.Factory, nil
	}
	f, err := transport.NewSocketFactory(cfg.Transport.Backend)
	if err != nil {
		return nil, fmt.Errorf("transport backend: %w", err)
	}
	return f, nil
}

// NewReplica builds the replica with the given id.
func NewReplica(cfg *config.Config, id string, opts Options) (*replica.Server, error) {
	rc, err := cfg.ReplicaByID(id)
	if err != nil {
		return nil, err
	}
	factory, err := opts.factory(cfg)
	if err != nil {
		return nil, err
	}

	return replica.New(replica.Config{
		Identity:          rc.ReplicaIdentity,
		Mode:              cfg.Mode,
		Primary:           rc.Primary,
		Peers:             cfg.Peers(id),
		CheckpointFreq:    cfg.Replica.CheckpointFreq,
		PollInterval:      cfg.Replica.PollInterval,
		Factory:           factory,
		CompressThreshold: cfg.Transport.CompressThreshold,
		CallTimeout:       cfg.Transport.CallTimeout,
		Logger:            opts.Logger,
		Metrics:           opts.Metrics,
	}), nil
}

// NewDetector builds the local failure detector with the given id.
func NewDetector(cfg *config.Config, id string, opts Options) (*lfd.Detector, error) {
	dc, err := cfg.DetectorByID(id)
	if err != nil {
		return nil, err
	}
	rc, err := cfg.ReplicaByID(dc.ReplicaID)
	if err != nil {
		return nil, err
	}
	factory, err := opts.factory(cfg)
	if err != nil {
		return nil, err
	}

	recoverer := opts.Recoverer
	if recoverer == nil && len(cfg.LFD.RecoveryCommand) > 0 {
		recoverer = &lfd.ExecRecoverer{Command: cfg.LFD.RecoveryCommand, Logger: opts.Logger}
	}

	return lfd.New(lfd.Config{
		ID:                dc.ID,
		ReplicaID:         dc.ReplicaID,
		ReplicaAddr:       rc.Addr(),
		GFDAddr:           cfg.GFD.Addr(),
		ListenAddr:        dc.ListenAddr(),
		AdvertiseAddr:     dc.Addr(),
		HeartbeatFreq:     cfg.LFD.HeartbeatFreq,
		Timeout:           cfg.LFD.Timeout,
		RegisterBackoff:   cfg.LFD.RegisterBackoff,
		Recoverer:         recoverer,
		Factory:           factory,
		CallTimeout:       cfg.Transport.CallTimeout,
		CompressThreshold: cfg.Transport.CompressThreshold,
		Logger:            opts.Logger,
		Metrics:           opts.Metrics,
	}), nil
}

// NewGFD builds the global failure detector.
func NewGFD(cfg *config.Config, opts Options) (*gfd.Service, error) {
	factory, err := opts.factory(cfg)
	if err != nil {
		return nil, err
	}
	return gfd.New(gfd.Config{
		ListenAddr:        cfg.GFD.ListenAddr(),
		RMAddr:            cfg.RM.Addr(),
		Timeout:           cfg.GFD.Timeout,
		SweepInterval:     cfg.GFD.SweepInterval,
		TriggerRecovery:   cfg.GFD.TriggerRecovery,
		Factory:           factory,
		PollInterval:      cfg.GFD.PollInterval,
		CallTimeout:       cfg.Transport.CallTimeout,
		CompressThreshold: cfg.Transport.CompressThreshold,
		Logger:            opts.Logger,
		Metrics:           opts.Metrics,
	}), nil
}

// NewRM builds the replication manager.
func NewRM(cfg *config.Config, opts Options) (*rm.Manager, error) {
	factory, err := opts.factory(cfg)
	if err != nil {
		return nil, err
	}
	return rm.New(rm.Config{
		ListenAddr:        cfg.RM.ListenAddr(),
		Mode:              cfg.Mode,
		Replicas:          cfg.Identities(),
		Factory:           factory,
		PollInterval:      cfg.RM.PollInterval,
		CallTimeout:       cfg.Transport.CallTimeout,
		CompressThreshold: cfg.Transport.CompressThreshold,
		Logger:            opts.Logger,
		Metrics:           opts.Metrics,
	}), nil
}

// NewClient builds a client; an empty id gets a generated one.
func NewClient(cfg *config.Config, id string, opts Options) (*client.Client, error) {
	factory, err := opts.factory(cfg)
	if err != nil {
		return nil, err
	}
	return client.New(client.Config{
		ID:                id,
		Replicas:          cfg.Identities(),
		Factory:           factory,
		Timeout:           cfg.Client.Timeout,
		CompressThreshold: cfg.Transport.CompressThreshold,
		DiscoveryInterval: cfg.Client.DiscoveryInterval,
		Logger:            opts.Logger,
		Metrics:           opts.Metrics,
	}), nil
}
