// Command counter-client sends increase, decrease and get to the replicas,
// either interactively (-tui) or as a random loop like a load generator.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-counter/pkg/cluster"
	"github.com/dd0wney/cluso-counter/pkg/logging"
)

func main() {
	flags := cluster.RegisterFlags(flag.CommandLine, "Client id (default client-<uuid>)")
	useTUI := flag.Bool("tui", false, "Interactive terminal UI")
	count := flag.Int("n", 0, "Stop the random loop after n operations (0 = run until interrupted)")
	flag.Parse()

	env, err := cluster.Bootstrap("counter-client", flags)
	if err != nil {
		cluster.Fatal(nil, "failed to start", err)
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *useTUI {
		if err := runTUI(ctx, env, flags.ID); err != nil {
			cluster.Fatal(env.Logger, "terminal UI failed", err)
		}
		return
	}

	cl, err := cluster.NewClient(env.Config, flags.ID, env.Options())
	if err != nil {
		cluster.Fatal(env.Logger, "failed to create client", err)
	}
	defer cl.Close()

	env.Logger.Info("client starting", logging.ClientID(cl.ID()), logging.Count(len(env.Config.Replicas)))
	runAuto(ctx, cl, env.Config.Client.RequestInterval, *count, env.Logger)
	env.Logger.Info("client disconnected", logging.ClientID(cl.ID()))
}
