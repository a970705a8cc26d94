// Package rm implements the replication manager. It receives membership
// from the GFD and, in passive mode, elects the primary and assigns roles.
package rm

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
	"github.com/dd0wney/cluso-counter/pkg/validation"
)

// RoleAssigner delivers a role to one replica.
type RoleAssigner interface {
	AssignRole(ctx context.Context, replica protocol.ReplicaIdentity, role protocol.Role) error
}

// Config configures the replication manager.
type Config struct {
	ListenAddr string
	Mode       protocol.Mode
	// Replicas is the static topology; membership ids outside it are skipped.
	Replicas []protocol.ReplicaIdentity

	Assigner RoleAssigner

	Factory           transport.SocketFactory
	PollInterval      time.Duration
	CallTimeout       time.Duration
	CompressThreshold int

	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Manager tracks membership and the elected primary.
type Manager struct {
	mode     protocol.Mode
	replicas map[string]protocol.ReplicaIdentity
	assigner RoleAssigner
	client   *transport.Client
	rpc      *transport.Server

	logger  logging.Logger
	metrics *metrics.Registry

	mu      sync.RWMutex
	members []string
	primary string
	// primaryAssigned is false until the primary acknowledged select_primary.
	primaryAssigned bool
}

// New creates the manager and registers its membership handler.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("rm"))

	m := &Manager{
		mode:     validation.DefaultOr(cfg.Mode, protocol.ModePassive),
		replicas: make(map[string]protocol.ReplicaIdentity, len(cfg.Replicas)),
		assigner: cfg.Assigner,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
	for _, r := range cfg.Replicas {
		m.replicas[r.ID] = r
	}

	if m.assigner == nil {
		m.client = transport.NewClient(transport.ClientConfig{
			Factory:           cfg.Factory,
			Timeout:           cfg.CallTimeout,
			CompressThreshold: cfg.CompressThreshold,
			Logger:            logger,
			Metrics:           cfg.Metrics,
		})
		m.assigner = &rpcAssigner{caller: m.client}
	}

	m.rpc = transport.NewServer(transport.ServerConfig{
		Factory:           cfg.Factory,
		ListenAddr:        cfg.ListenAddr,
		PollInterval:      cfg.PollInterval,
		CompressThreshold: cfg.CompressThreshold,
		Logger:            logger,
		Metrics:           cfg.Metrics,
	})
	transport.Handle(m.rpc, protocol.MethodMembership, m.HandleMembership)
	return m
}

// Listen binds the RM socket.
func (m *Manager) Listen() error {
	return m.rpc.Listen()
}

// Run serves membership updates until ctx ends.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("RM started", logging.String("mode", string(m.mode)), logging.Addr(m.rpc.Addr()))
	err := m.rpc.Serve(ctx)
	if m.client != nil {
		m.client.Close()
	}
	m.logger.Info("RM stopped")
	return err
}

// HandleMembership applies a membership push from the GFD.
func (m *Manager) HandleMembership(ctx context.Context, req *protocol.MembershipRequest) (*protocol.Ack, error) {
	m.UpdateMembership(ctx, req.Membership)
	return &protocol.Ack{OK: true}, nil
}

// UpdateMembership replaces the recorded membership. In passive mode it
// re-elects the primary when the incumbent left and assigns the backup role
// to members that just joined. A primary that missed select_primary is sent
// it again on the next membership change.
func (m *Manager) UpdateMembership(ctx context.Context, members []string) {
	m.mu.Lock()
	previous := m.members
	m.members = slices.Clone(members)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RMMembershipUpdates.Inc()
	}
	m.logger.Info("membership updated", logging.Members(members), logging.Count(len(members)))

	if m.mode != protocol.ModePassive {
		return
	}

	known := m.known(members)

	m.mu.Lock()
	incumbent := m.primary
	elect := incumbent == "" || !slices.Contains(known, incumbent)
	if elect {
		m.primary = ""
		m.primaryAssigned = false
		if len(known) > 0 {
			m.primary = known[0]
		}
	}
	primary := m.primary
	reassert := !elect && !m.primaryAssigned && !slices.Equal(previous, members)
	m.mu.Unlock()

	if !elect {
		if reassert {
			m.logger.Info("re-sending primary role", logging.ReplicaID(primary))
			m.assignPrimary(ctx, primary)
		}
		for _, id := range known {
			if id != primary && !slices.Contains(previous, id) {
				m.assign(ctx, id, protocol.RoleBackup)
			}
		}
		return
	}

	if primary == "" {
		if incumbent != "" {
			m.logger.Warn("no members left, primary cleared", logging.String("previous", incumbent))
		}
		return
	}

	if m.metrics != nil {
		m.metrics.RMElectionsTotal.Inc()
	}
	m.logger.Info("primary elected", logging.ReplicaID(primary), logging.String("previous", incumbent))

	m.assignPrimary(ctx, primary)
	for _, id := range known {
		if id != primary {
			m.assign(ctx, id, protocol.RoleBackup)
		}
	}
}

// known filters members down to the topology, preserving order.
func (m *Manager) known(members []string) []string {
	out := make([]string, 0, len(members))
	for _, id := range members {
		if _, ok := m.replicas[id]; !ok {
			m.logger.Warn("member not in topology, skipped", logging.ReplicaID(id))
			continue
		}
		out = append(out, id)
	}
	return out
}

// assignPrimary records whether id acknowledged the primary role, as long
// as it is still the elected primary.
func (m *Manager) assignPrimary(ctx context.Context, id string) {
	err := m.assign(ctx, id, protocol.RolePrimary)
	m.mu.Lock()
	if m.primary == id {
		m.primaryAssigned = err == nil
	}
	m.mu.Unlock()
}

// assign is best-effort and never retried inline.
func (m *Manager) assign(ctx context.Context, id string, role protocol.Role) error {
	err := m.assigner.AssignRole(ctx, m.replicas[id], role)
	if m.metrics != nil {
		m.metrics.RecordRoleAssignment(string(role), err)
	}
	if err != nil {
		m.logger.Warn("role assignment failed", logging.ReplicaID(id), logging.Role(string(role)), logging.Error(err))
		return err
	}
	m.logger.Info("role assigned", logging.ReplicaID(id), logging.Role(string(role)))
	return nil
}

// Primary returns the elected primary, or "" when none.
func (m *Manager) Primary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Members returns the last membership received.
func (m *Manager) Members() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.members)
}

// Mode returns the configured replication mode.
func (m *Manager) Mode() protocol.Mode {
	return m.mode
}

type rpcAssigner struct {
	caller transport.Caller
}

func (a *rpcAssigner) AssignRole(ctx context.Context, replica protocol.ReplicaIdentity, role protocol.Role) error {
	method := protocol.MethodSelectBackup
	if role == protocol.RolePrimary {
		method = protocol.MethodSelectPrimary
	}

	var resp protocol.RoleResponse
	return a.caller.Call(ctx, replica.Addr(), method, &protocol.RoleRequest{From: "rm"}, &resp)
}
