package replica

import (
	"context"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
)

// Get returns the counter. A replica that may not serve drops the request.
func (s *Server) Get(_ context.Context, req *protocol.ClientRequest) (*protocol.CounterResponse, error) {
	return s.apply(protocol.MethodGet, req, 0)
}

// Increase adds one to the counter.
func (s *Server) Increase(_ context.Context, req *protocol.ClientRequest) (*protocol.CounterResponse, error) {
	return s.apply(protocol.MethodIncrease, req, 1)
}

// Decrease subtracts one from the counter.
func (s *Server) Decrease(_ context.Context, req *protocol.ClientRequest) (*protocol.CounterResponse, error) {
	return s.apply(protocol.MethodDecrease, req, -1)
}

func (s *Server) apply(op string, req *protocol.ClientRequest, delta int64) (*protocol.CounterResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := []logging.Field{
		logging.ClientID(req.ClientID),
		logging.RequestNumber(req.RequestNumber),
		logging.Operation(op),
	}

	if !s.legalToServeLocked() {
		s.logger.Debug("dropping request, not primary", fields...)
		s.recordRequest(op, "dropped")
		return nil, transport.ErrDrop
	}

	s.logger.Info("received request", fields...)
	s.logger.Info("state before processing", append(fields, logging.Counter(s.counter))...)
	s.counter += delta
	s.logger.Info("state after processing", append(fields, logging.Counter(s.counter))...)

	s.recordRequest(op, "served")
	return &protocol.CounterResponse{
		Counter:   s.counter,
		ReplicaID: s.id,
		Primary:   s.role == protocol.RolePrimary,
	}, nil
}

func (s *Server) recordRequest(op, result string) {
	if s.metrics != nil {
		s.metrics.RecordReplicaRequest(op, result, s.counter)
	}
}

// Heartbeat always answers ok.
func (s *Server) Heartbeat(_ context.Context, req *protocol.HeartbeatRequest) (*protocol.HeartbeatResponse, error) {
	s.logger.Debug("heartbeat", logging.DetectorID(req.LFDID))
	return &protocol.HeartbeatResponse{OK: true, ReplicaID: s.id}, nil
}

// ApplyCheckpoint overwrites the counter with the primary's state. The last
// checkpoint to arrive wins; sequences are recorded, not compared.
func (s *Server) ApplyCheckpoint(_ context.Context, req *protocol.CheckpointRequest) (*protocol.CheckpointResponse, error) {
	s.mu.Lock()
	before := s.counter
	s.counter = req.State
	s.checkpointSeq = req.CheckpointSequence
	s.mu.Unlock()

	s.logger.Info("checkpoint applied",
		logging.String("primary_id", req.PrimaryID),
		logging.Int64("checkpoint_num", req.CheckpointSequence),
		logging.Int64("before", before),
		logging.Counter(req.State))

	if s.metrics != nil {
		s.metrics.RecordCheckpoint("received", req.CheckpointSequence, nil)
		s.metrics.ReplicaCounter.Set(float64(req.State))
	}
	return &protocol.CheckpointResponse{OK: true, ReplicaID: s.id}, nil
}

// SelectPrimary makes this replica primary. Repeating it is harmless.
func (s *Server) SelectPrimary(_ context.Context, _ *protocol.RoleRequest) (*protocol.RoleResponse, error) {
	return s.setRole(protocol.RolePrimary), nil
}

// SelectBackup makes this replica a backup. Repeating it is harmless.
func (s *Server) SelectBackup(_ context.Context, _ *protocol.RoleRequest) (*protocol.RoleResponse, error) {
	return s.setRole(protocol.RoleBackup), nil
}

func (s *Server) setRole(role protocol.Role) *protocol.RoleResponse {
	s.mu.Lock()
	prev := s.role
	s.role = role
	if role == protocol.RolePrimary && prev != protocol.RolePrimary {
		// A new primary waits a full period before its first checkpoint.
		s.lastCheckpoint = s.now()
	}
	s.mu.Unlock()

	if prev != role {
		s.logger.Info("role changed", logging.String("from", string(prev)), logging.Role(string(role)))
	}
	if s.metrics != nil {
		s.metrics.SetReplicaRole(string(role))
	}
	return &protocol.RoleResponse{ReplicaID: s.id, Role: role}
}
