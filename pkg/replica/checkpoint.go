package replica

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
)

// Tick runs the periodic checkpoint. It is the serve loop's tick hook, so it
// never overlaps a request.
func (s *Server) Tick(now time.Time) {
	s.mu.Lock()
	if s.role != protocol.RolePrimary || now.Sub(s.lastCheckpoint) < s.ckptFreq {
		s.mu.Unlock()
		return
	}
	s.checkpointSeq++
	s.lastCheckpoint = now
	req := protocol.CheckpointRequest{
		PrimaryID:          s.id,
		State:              s.counter,
		CheckpointSequence: s.checkpointSeq,
	}
	s.mu.Unlock()

	s.sendCheckpoint(context.Background(), req)
}

// sendCheckpoint pushes one round to every peer independently; a failed
// peer is logged and its connection is redialed on the next round.
func (s *Server) sendCheckpoint(ctx context.Context, req protocol.CheckpointRequest) {
	for _, peer := range s.peers {
		var resp protocol.CheckpointResponse
		err := s.caller.Call(ctx, peer.Addr(), protocol.MethodCheckpoint, &req, &resp)
		if s.metrics != nil {
			s.metrics.RecordCheckpoint("sent", req.CheckpointSequence, err)
		}
		if err != nil {
			s.logger.Warn("checkpoint failed",
				logging.String("backup_id", peer.ID),
				logging.Int64("checkpoint_num", req.CheckpointSequence),
				logging.Error(err))
			s.caller.Drop(peer.Addr())
			continue
		}
		s.logger.Info("checkpoint sent",
			logging.String("backup_id", peer.ID),
			logging.Int64("checkpoint_num", req.CheckpointSequence),
			logging.Counter(req.State))
	}
}
