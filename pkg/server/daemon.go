// Package server runs a daemon's components until a shutdown signal.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-counter/pkg/logging"
)

// Runner is a component that blocks serving until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// RunFunc adapts a function to Runner.
type RunFunc func(ctx context.Context) error

func (f RunFunc) Run(ctx context.Context) error { return f(ctx) }

// ConfigReloadFunc is called on SIGHUP.
type ConfigReloadFunc func() error

type component struct {
	name   string
	runner Runner
}

// Daemon runs a set of components together. The first component to fail
// stops the rest; SIGINT and SIGTERM stop all of them.
type Daemon struct {
	name       string
	logger     logging.Logger
	components []component

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	configMu       sync.RWMutex
	configReloadFn ConfigReloadFunc
}

// NewDaemon creates a daemon named for its logs.
func NewDaemon(name string, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Daemon{
		name:       name,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Add registers a component. Must be called before Run.
func (d *Daemon) Add(name string, r Runner) {
	d.components = append(d.components, component{name: name, runner: r})
}

// Run starts every component and blocks until ctx ends, a signal arrives
// or a component fails.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range d.components {
		g.Go(func() error {
			if err := c.runner.Run(gctx); err != nil {
				return fmt.Errorf("%s: %w", c.name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				d.markShutdown()
				return nil
			case <-hup:
				d.logger.Info("received SIGHUP, reloading configuration")
				if err := d.ReloadConfig(); err != nil {
					d.logger.Warn("configuration reload failed", logging.Error(err))
				}
			}
		}
	})

	d.logger.Info("daemon started", logging.String("daemon", d.name), logging.Count(len(d.components)))
	err := g.Wait()
	if err != nil {
		d.logger.Error("daemon stopped with error", logging.String("daemon", d.name), logging.Error(err))
		return err
	}
	d.logger.Info("daemon stopped", logging.String("daemon", d.name))
	return nil
}

func (d *Daemon) markShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

// IsShuttingDown returns true once shutdown has begun.
func (d *Daemon) IsShuttingDown() bool {
	select {
	case <-d.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel closes when shutdown begins.
func (d *Daemon) ShutdownChannel() <-chan struct{} {
	return d.shutdownCh
}

// SetConfigReloadFunc sets the SIGHUP handler.
func (d *Daemon) SetConfigReloadFunc(fn ConfigReloadFunc) {
	d.configMu.Lock()
	defer d.configMu.Unlock()
	d.configReloadFn = fn
}

// ReloadConfig runs the reload function, if any.
func (d *Daemon) ReloadConfig() error {
	d.configMu.RLock()
	reloadFn := d.configReloadFn
	d.configMu.RUnlock()

	if reloadFn == nil {
		d.logger.Info("configuration reload requested, but no reload function configured")
		return nil
	}
	if err := reloadFn(); err != nil {
		return err
	}
	d.logger.Info("configuration reload complete")
	return nil
}
