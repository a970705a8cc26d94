package cluster

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dd0wney/cluso-counter/pkg/config"
	"github.com/dd0wney/cluso-counter/pkg/health"
	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/server"
)

// Flags are the command-line options every binary accepts.
type Flags struct {
	Config    string
	ID        string
	LogLevel  string
	LogFormat string
	LogFile   string
	AdminAddr string
}

// RegisterFlags binds the shared flags on fs. idUsage is empty for
// singleton daemons, which take no -id.
func RegisterFlags(fs *flag.FlagSet, idUsage string) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "configs/cluster.yaml", "Topology file")
	if idUsage != "" {
		fs.StringVar(&f.ID, "id", "", idUsage)
	}
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL and the config")
	fs.StringVar(&f.LogFormat, "log-format", "", "Log format (json, console); overrides LOG_FORMAT and the config")
	fs.StringVar(&f.LogFile, "log-file", "", "Append a copy of the log to this file")
	fs.StringVar(&f.AdminAddr, "admin-addr", "", "Serve /health and /metrics on this address; overrides the config")
	return f
}

// Env holds what a binary needs after start-up.
type Env struct {
	Config  *config.Config
	Logger  logging.Logger
	Metrics *metrics.Registry
	flags   *Flags
	closer  io.Closer
}

// Bootstrap loads the topology and builds the logger. Precedence for level
// and format is flag, then environment, then config.
func Bootstrap(name string, f *Flags) (*Env, error) {
	cfg, err := config.Load(f.Config)
	if err != nil {
		return nil, err
	}

	level := firstSet(f.LogLevel, os.Getenv("LOG_LEVEL"), cfg.Log.Level)
	format := firstSet(f.LogFormat, os.Getenv("LOG_FORMAT"), cfg.Log.Format)

	file := f.LogFile
	if file == "" && cfg.Log.Dir != "" {
		base := name
		if f.ID != "" {
			base = name + "-" + f.ID
		}
		file = filepath.Join(cfg.Log.Dir, base+".log")
	}

	logger, closer, err := logging.New(logging.Options{
		Format:   logging.Format(format),
		Level:    logging.ParseLevel(level),
		FilePath: file,
	})
	if err != nil {
		return nil, err
	}

	fields := []logging.Field{logging.String("daemon", name)}
	if f.ID != "" {
		fields = append(fields, logging.String("id", f.ID))
	}
	logging.SetDefaultLogger(logger)

	return &Env{
		Config:  cfg,
		Logger:  logger.With(fields...),
		Metrics: metrics.NewRegistry(),
		flags:   f,
		closer:  closer,
	}, nil
}

// Options returns component options bound to this environment.
func (e *Env) Options() Options {
	return Options{Logger: e.Logger, Metrics: e.Metrics}
}

// Close releases the log file.
func (e *Env) Close() error {
	return e.closer.Close()
}

// Reload re-reads the topology and applies its log level unless a flag or
// the environment pinned it. Topology changes need a restart.
func (e *Env) Reload() error {
	cfg, err := config.Load(e.flags.Config)
	if err != nil {
		return err
	}
	if e.flags.LogLevel == "" && os.Getenv("LOG_LEVEL") == "" {
		e.Logger.SetLevel(logging.ParseLevel(cfg.Log.Level))
	}
	return nil
}

// Serve runs the component, plus an admin server when adminAddr (or the
// -admin-addr flag) is set, until a shutdown signal.
func (e *Env) Serve(ctx context.Context, name string, component server.Runner, checker *health.HealthChecker, adminAddr string) error {
	d := server.NewDaemon(name, e.Logger)
	d.SetConfigReloadFunc(e.Reload)
	d.Add(name, component)

	if addr := firstSet(e.flags.AdminAddr, adminAddr); addr != "" && checker != nil {
		e.Logger.Info("admin endpoint enabled", logging.Addr(addr))
		d.Add("admin", health.NewAdminServer(addr, checker, e.Metrics))
	}
	return d.Run(ctx)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Fatal logs err and exits; for start-up failures in main.
func Fatal(logger logging.Logger, msg string, err error) {
	if logger == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
	logger.Error(msg, logging.Error(err))
	os.Exit(1)
}
