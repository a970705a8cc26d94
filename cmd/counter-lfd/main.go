// Command counter-lfd runs a local failure detector for one replica.
package main

import (
	"context"
	"flag"

	"github.com/dd0wney/cluso-counter/pkg/cluster"
	"github.com/dd0wney/cluso-counter/pkg/logging"
)

func main() {
	flags := cluster.RegisterFlags(flag.CommandLine, "Detector id from the topology (e.g. LFD1)")
	flag.Parse()

	env, err := cluster.Bootstrap("counter-lfd", flags)
	if err != nil {
		cluster.Fatal(nil, "failed to start", err)
	}
	defer env.Close()

	dc, err := env.Config.DetectorByID(flags.ID)
	if err != nil {
		cluster.Fatal(env.Logger, "unknown detector", err)
	}

	det, err := cluster.NewDetector(env.Config, flags.ID, env.Options())
	if err != nil {
		cluster.Fatal(env.Logger, "failed to create detector", err)
	}
	if err := det.Listen(); err != nil {
		cluster.Fatal(env.Logger, "failed to listen", err)
	}

	env.Logger.Info("detector ready",
		logging.ReplicaID(dc.ReplicaID),
		logging.Duration("heartbeat_freq", env.Config.LFD.HeartbeatFreq),
		logging.Duration("timeout", env.Config.LFD.Timeout))

	if err := env.Serve(context.Background(), "lfd", det, cluster.DetectorHealth(det), dc.AdminAddr); err != nil {
		cluster.Fatal(env.Logger, "detector stopped", err)
	}
}
