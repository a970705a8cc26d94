// Command counter-rm runs the replication manager.
package main

import (
	"context"
	"flag"

	"github.com/dd0wney/cluso-counter/pkg/cluster"
	"github.com/dd0wney/cluso-counter/pkg/logging"
)

func main() {
	flags := cluster.RegisterFlags(flag.CommandLine, "")
	flag.Parse()

	env, err := cluster.Bootstrap("counter-rm", flags)
	if err != nil {
		cluster.Fatal(nil, "failed to start", err)
	}
	defer env.Close()

	mgr, err := cluster.NewRM(env.Config, env.Options())
	if err != nil {
		cluster.Fatal(env.Logger, "failed to create RM", err)
	}
	if err := mgr.Listen(); err != nil {
		cluster.Fatal(env.Logger, "failed to listen", err)
	}

	env.Logger.Info("RM ready",
		logging.Addr(env.Config.RM.Addr()),
		logging.String("mode", string(env.Config.Mode)),
		logging.Count(len(env.Config.Replicas)))

	checker := cluster.RMHealth(mgr, len(env.Config.Replicas))
	if err := env.Serve(context.Background(), "rm", mgr, checker, env.Config.RM.AdminAddr); err != nil {
		cluster.Fatal(env.Logger, "RM stopped", err)
	}
}
