// Command counter-gfd runs the global failure detector.
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

	env, err := cluster.Bootstrap("counter-gfd", flags)
	if err != nil {
		cluster.Fatal(nil, "failed to start", err)
	}
	defer env.Close()

	svc, err := cluster.NewGFD(env.Config, env.Options())
	if err != nil {
		cluster.Fatal(env.Logger, "failed to create GFD", err)
	}
	if err := svc.Listen(); err != nil {
		cluster.Fatal(env.Logger, "failed to listen", err)
	}

	env.Logger.Info("GFD ready",
		logging.Addr(env.Config.GFD.Addr()),
		logging.Duration("timeout", env.Config.GFD.Timeout),
		logging.Bool("trigger_recovery", env.Config.GFD.TriggerRecovery))

	if err := env.Serve(context.Background(), "gfd", svc, cluster.GFDHealth(svc), env.Config.GFD.AdminAddr); err != nil {
		cluster.Fatal(env.Logger, "GFD stopped", err)
	}
}
