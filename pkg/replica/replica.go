// Package replica implements the counter replica: it serves get, increase
// and decrease, answers heartbeats, accepts role assignments, and while
// primary pushes periodic checkpoints to the other replicas.
package replica

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
	"github.com/dd0wney/cluso-counter/pkg/validation"
)

const (
	defaultCheckpointFreq = 5 * time.Second
	defaultCallTimeout    = 2 * time.Second
)

// New creates a replica server. Nothing listens until Listen or Run.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("replica"), logging.ReplicaID(cfg.Identity.ID))

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		id:       cfg.Identity.ID,
		mode:     validation.DefaultOr(cfg.Mode, protocol.ModePassive),
		peers:    cfg.Peers,
		ckptFreq: validation.DefaultOrDuration(cfg.CheckpointFreq, defaultCheckpointFreq),
		caller:   cfg.Caller,
		logger:   logger,
		metrics:  cfg.Metrics,
		now:      now,
		role:     protocol.RoleBackup,
	}
	if cfg.Primary {
		s.role = protocol.RolePrimary
	}
	if s.caller == nil {
		s.ownClient = transport.NewClient(transport.ClientConfig{
			Factory:           cfg.Factory,
			Timeout:           validation.DefaultOrDuration(cfg.CallTimeout, defaultCallTimeout),
			CompressThreshold: cfg.CompressThreshold,
			Logger:            logger,
			Metrics:           cfg.Metrics,
		})
		s.caller = s.ownClient
	}
	s.lastCheckpoint = now()

	s.rpc = transport.NewServer(transport.ServerConfig{
		Factory:           cfg.Factory,
		ListenAddr:        cfg.Identity.ListenAddr(),
		PollInterval:      cfg.PollInterval,
		CompressThreshold: cfg.CompressThreshold,
		Tick:              s.Tick,
		Logger:            logger,
		Metrics:           cfg.Metrics,
	})
	s.registerHandlers()

	if s.metrics != nil {
		s.metrics.SetReplicaRole(string(s.role))
	}
	return s
}

func (s *Server) registerHandlers() {
	transport.Handle(s.rpc, protocol.MethodGet, s.Get)
	transport.Handle(s.rpc, protocol.MethodIncrease, s.Increase)
	transport.Handle(s.rpc, protocol.MethodDecrease, s.Decrease)
	transport.Handle(s.rpc, protocol.MethodHeartbeat, s.Heartbeat)
	transport.Handle(s.rpc, protocol.MethodCheckpoint, s.ApplyCheckpoint)
	transport.Handle(s.rpc, protocol.MethodSelectPrimary, s.SelectPrimary)
	transport.Handle(s.rpc, protocol.MethodSelectBackup, s.SelectBackup)
}

// Listen binds the replica's socket so address errors surface before Run.
func (s *Server) Listen() error {
	return s.rpc.Listen()
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("replica starting",
		logging.String("mode", string(s.mode)),
		logging.Role(string(s.State().Role)),
		logging.Addr(s.rpc.Addr()))

	err := s.rpc.Serve(ctx)
	if s.ownClient != nil {
		if cerr := s.ownClient.Close(); cerr != nil {
			s.logger.Debug("close checkpoint client", logging.Error(cerr))
		}
	}
	s.logger.Info("replica stopped")
	return err
}

// State returns a snapshot of the replica.
func (s *Server) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		ReplicaID:          s.id,
		Counter:            s.counter,
		Role:               s.role,
		Mode:               s.mode,
		CheckpointSequence: s.checkpointSeq,
		Serving:            s.legalToServeLocked(),
	}
}

// legalToServeLocked: every replica serves in active mode; only the primary
// serves in passive mode.
func (s *Server) legalToServeLocked() bool {
	return s.mode == protocol.ModeActive || s.role == protocol.RolePrimary
}
