// Command counter-replica runs one replica of the counter.
package main

import (
	"context"
	"flag"

	"github.com/dd0wney/cluso-counter/pkg/cluster"
	"github.com/dd0wney/cluso-counter/pkg/logging"
)

func main() {
	flags := cluster.RegisterFlags(flag.CommandLine, "Replica id from the topology (e.g. S1)")
	flag.Parse()

	env, err := cluster.Bootstrap("counter-replica", flags)
	if err != nil {
		cluster.Fatal(nil, "failed to start", err)
	}
	defer env.Close()

	rc, err := env.Config.ReplicaByID(flags.ID)
	if err != nil {
		cluster.Fatal(env.Logger, "unknown replica", err)
	}

	srv, err := cluster.NewReplica(env.Config, flags.ID, env.Options())
	if err != nil {
		cluster.Fatal(env.Logger, "failed to create replica", err)
	}
	if err := srv.Listen(); err != nil {
		cluster.Fatal(env.Logger, "failed to listen", err)
	}

	env.Logger.Info("replica ready",
		logging.Addr(rc.Addr()),
		logging.String("mode", string(env.Config.Mode)),
		logging.Role(string(srv.State().Role)))

	if err := env.Serve(context.Background(), "replica", srv, cluster.ReplicaHealth(srv), rc.AdminAddr); err != nil {
		cluster.Fatal(env.Logger, "replica stopped", err)
	}
}
