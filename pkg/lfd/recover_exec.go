package lfd

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/dd0wney/cluso-counter/pkg/logging"
)

// ServerIDPlaceholder in a recovery command argument is replaced with the
// id of the replica being recovered.
const ServerIDPlaceholder = "{server_id}"

// ExecRecoverer restarts a replica by starting a local command. The command
// is not waited on beyond reaping; a restarted replica outlives the detector
// call that launched it.
type ExecRecoverer struct {
	Command []string
	Logger  logging.Logger
}

// Recover starts the configured command for serverID.
func (r *ExecRecoverer) Recover(_ context.Context, serverID string) error {
	if len(r.Command) == 0 {
		return errors.New("empty recovery command")
	}

	args := make([]string, len(r.Command))
	for i, a := range r.Command {
		args[i] = strings.ReplaceAll(a, ServerIDPlaceholder, serverID)
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}

	logger := r.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger.Info("recovery command started",
		logging.ReplicaID(serverID),
		logging.String("command", strings.Join(args, " ")),
		logging.Int("pid", cmd.Process.Pid))

	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("recovery command exited", logging.ReplicaID(serverID), logging.Error(err))
		}
	}()
	return nil
}
