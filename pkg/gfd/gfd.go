// Package gfd implements the global failure detector. It aggregates
// detector reports into an ordered membership set and pushes every change
// to the replication manager.
package gfd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
	"github.com/dd0wney/cluso-counter/pkg/validation"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultSweepInterval = time.Second
)

// MembershipPusher delivers the full membership list to the RM.
type MembershipPusher interface {
	PushMembership(ctx context.Context, members []string) error
}

// RecoveryTrigger asks a detector to restart its replica.
type RecoveryTrigger interface {
	TriggerRecovery(ctx context.Context, detectorAddr, replicaID string) error
}

// Config configures the GFD.
type Config struct {
	ListenAddr    string
	RMAddr        string
	Timeout       time.Duration
	SweepInterval time.Duration
	// TriggerRecovery sends recover to the registered detectors of a replica
	// that leaves membership.
	TriggerRecovery bool

	Pusher  MembershipPusher
	Trigger RecoveryTrigger

	Factory           transport.SocketFactory
	PollInterval      time.Duration
	CallTimeout       time.Duration
	CompressThreshold int

	Logger  logging.Logger
	Metrics *metrics.Registry
	Now     func() time.Time
}

// Service is the GFD daemon.
type Service struct {
	sweepInterval   time.Duration
	triggerRecovery bool

	pusher  MembershipPusher
	trigger RecoveryTrigger
	client  *transport.Client
	rpc     *transport.Server

	logger  logging.Logger
	metrics *metrics.Registry
	now     func() time.Time

	mu        sync.Mutex
	table     *Table
	lastSweep time.Time
}

// New creates the GFD and registers its handlers.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("gfd"))

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Service{
		sweepInterval:   validation.DefaultOrDuration(cfg.SweepInterval, defaultSweepInterval),
		triggerRecovery: cfg.TriggerRecovery,
		pusher:          cfg.Pusher,
		trigger:         cfg.Trigger,
		logger:          logger,
		metrics:         cfg.Metrics,
		now:             now,
		table:           NewTable(validation.DefaultOrDuration(cfg.Timeout, defaultTimeout)),
	}
	s.lastSweep = now()

	if s.pusher == nil || s.trigger == nil {
		s.client = transport.NewClient(transport.ClientConfig{
			Factory:           cfg.Factory,
			Timeout:           cfg.CallTimeout,
			CompressThreshold: cfg.CompressThreshold,
			Logger:            logger,
			Metrics:           cfg.Metrics,
		})
	}
	if s.pusher == nil {
		s.pusher = &rpcPusher{caller: s.client, addr: cfg.RMAddr}
	}
	if s.trigger == nil {
		s.trigger = &rpcTrigger{caller: s.client}
	}

	s.rpc = transport.NewServer(transport.ServerConfig{
		Factory:           cfg.Factory,
		ListenAddr:        cfg.ListenAddr,
		PollInterval:      cfg.PollInterval,
		CompressThreshold: cfg.CompressThreshold,
		Tick:              func(time.Time) { s.Tick(context.Background()) },
		Logger:            logger,
		Metrics:           cfg.Metrics,
	})
	transport.Handle(s.rpc, protocol.MethodRegister, s.HandleRegister)
	transport.Handle(s.rpc, protocol.MethodStatus, s.HandleStatus)
	return s
}

// Listen binds the GFD socket.
func (s *Service) Listen() error {
	return s.rpc.Listen()
}

// Run pushes the initial empty membership and serves until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	if err := s.rpc.Listen(); err != nil {
		return err
	}
	s.logger.Info("GFD started", logging.Addr(s.rpc.Addr()))
	s.push(ctx, s.Members())

	err := s.rpc.Serve(ctx)
	if s.client != nil {
		s.client.Close()
	}
	s.logger.Info("GFD stopped")
	return err
}

// HandleRegister records a detector registration.
func (s *Service) HandleRegister(ctx context.Context, req *protocol.RegisterRequest) (*protocol.Ack, error) {
	s.mu.Lock()
	changes := s.table.Register(req.LFDID, req.ServerID, req.LFDAddr, s.now())
	s.mu.Unlock()

	s.logger.Info("detector registered",
		logging.DetectorID(req.LFDID),
		logging.ReplicaID(req.ServerID),
		logging.Addr(req.LFDAddr))
	s.record(protocol.StatusRegistered)
	s.apply(ctx, changes)
	return &protocol.Ack{OK: true}, nil
}

// HandleStatus records a detector status report.
func (s *Service) HandleStatus(ctx context.Context, req *protocol.StatusRequest) (*protocol.Ack, error) {
	s.mu.Lock()
	prev, changes := s.table.Report(req.LFDID, req.ServerID, req.Status, s.now())
	s.mu.Unlock()

	if prev != req.Status {
		s.logger.Info("detector status changed",
			logging.DetectorID(req.LFDID),
			logging.ReplicaID(req.ServerID),
			logging.String("from", string(prev)),
			logging.Status(string(req.Status)))
	} else {
		s.logger.Debug("detector status",
			logging.DetectorID(req.LFDID),
			logging.ReplicaID(req.ServerID),
			logging.Status(string(req.Status)))
	}
	s.record(req.Status)
	s.apply(ctx, changes)
	return &protocol.Ack{OK: true}, nil
}

// Tick sweeps timed-out reports once per sweep interval.
func (s *Service) Tick(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) < s.sweepInterval {
		s.mu.Unlock()
		return
	}
	s.lastSweep = now
	expired, changes := s.table.Sweep(now)
	s.mu.Unlock()

	if expired > 0 {
		s.logger.Warn("detector reports timed out", logging.Count(expired))
		if s.metrics != nil {
			s.metrics.GFDSweepExpiredTotal.Add(float64(expired))
		}
	}
	s.apply(ctx, changes)
}

// apply logs membership changes, triggers recovery for departures and
// pushes the resulting list once.
func (s *Service) apply(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}

	members := s.Members()
	for _, c := range changes {
		change := "leave"
		if c.Joined {
			change = "join"
		}
		s.logger.Info("membership changed",
			logging.ReplicaID(c.ReplicaID),
			logging.String("change", change),
			logging.Members(members))
		if s.metrics != nil {
			s.metrics.RecordMembershipChange(change, len(members))
		}
		if !c.Joined && s.triggerRecovery {
			s.recover(ctx, c.ReplicaID)
		}
	}
	s.push(ctx, members)
}

// push is best-effort; the next change carries the full list again.
func (s *Service) push(ctx context.Context, members []string) {
	err := s.pusher.PushMembership(ctx, members)
	if s.metrics != nil {
		s.metrics.RecordPush(err)
	}
	if err != nil {
		s.logger.Warn("membership push to RM failed", logging.Members(members), logging.Error(err))
		return
	}
	s.logger.Debug("membership pushed to RM", logging.Members(members))
}

func (s *Service) recover(ctx context.Context, replicaID string) {
	s.mu.Lock()
	detectors := s.table.DetectorsFor(replicaID)
	s.mu.Unlock()

	for _, d := range detectors {
		if d.Addr == "" {
			continue
		}
		s.logger.Info("requesting recovery", logging.ReplicaID(replicaID), logging.DetectorID(d.DetectorID))
		if err := s.trigger.TriggerRecovery(ctx, d.Addr, replicaID); err != nil {
			s.logger.Warn("recovery request failed",
				logging.ReplicaID(replicaID),
				logging.DetectorID(d.DetectorID),
				logging.Error(err))
		}
	}
}

// Members returns the current ordered membership.
func (s *Service) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Members()
}

// Summary returns the membership size and the number of replicas any
// detector has reported on.
func (s *Service) Summary() (members, tracked int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table.Members()), len(s.table.ReplicaIDs())
}

func (s *Service) record(status protocol.Status) {
	if s.metrics != nil {
		s.metrics.RecordReport(string(status))
	}
}

type rpcPusher struct {
	caller transport.Caller
	addr   string
}

func (p *rpcPusher) PushMembership(ctx context.Context, members []string) error {
	var ack protocol.Ack
	if members == nil {
		members = []string{}
	}
	if err := p.caller.Call(ctx, p.addr, protocol.MethodMembership, &protocol.MembershipRequest{Membership: members}, &ack); err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("membership not acknowledged by %s", p.addr)
	}
	return nil
}

type rpcTrigger struct {
	caller transport.Caller
}

func (t *rpcTrigger) TriggerRecovery(ctx context.Context, addr, replicaID string) error {
	var ack protocol.Ack
	return t.caller.Call(ctx, addr, protocol.MethodRecover, &protocol.RecoverRequest{ServerID: replicaID}, &ack)
}
