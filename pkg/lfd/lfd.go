// Package lfd implements the local failure detector: a fixed-period
// heartbeat loop against one replica that classifies it alive, warn or
// failed, reports every tick to the GFD, and restarts the replica when it
// fails.
package lfd

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
	"github.com/dd0wney/cluso-counter/pkg/validation"
)

const (
	defaultHeartbeatFreq   = 5 * time.Second
	defaultTimeout         = 10 * time.Second
	defaultRegisterBackoff = 3 * time.Second
)

// New creates a detector. Nothing runs until Run.
func New(cfg Config) *Detector {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("lfd"), logging.DetectorID(cfg.ID), logging.ReplicaID(cfg.ReplicaID))

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	d := &Detector{
		id:            cfg.ID,
		replicaID:     cfg.ReplicaID,
		advertiseAddr: validation.DefaultOr(cfg.AdvertiseAddr, cfg.ListenAddr),
		freq:          validation.DefaultOrDuration(cfg.HeartbeatFreq, defaultHeartbeatFreq),
		timeout:       validation.DefaultOrDuration(cfg.Timeout, defaultTimeout),
		backoff:       validation.DefaultOrDuration(cfg.RegisterBackoff, defaultRegisterBackoff),
		prober:        cfg.Prober,
		reporter:      cfg.Reporter,
		recoverer:     cfg.Recoverer,
		logger:        logger,
		metrics:       cfg.Metrics,
		now:           now,
	}
	d.lastGood = now()

	if d.prober == nil || d.reporter == nil {
		// Probes and reports share the heartbeat period as their deadline
		// unless a tighter one is configured.
		d.client = transport.NewClient(transport.ClientConfig{
			Factory:           cfg.Factory,
			Timeout:           validation.DefaultOrDuration(cfg.CallTimeout, d.freq),
			CompressThreshold: cfg.CompressThreshold,
			Logger:            logger,
			Metrics:           cfg.Metrics,
		})
	}
	if d.prober == nil {
		d.prober = &rpcProber{caller: d.client, addr: cfg.ReplicaAddr, lfdID: cfg.ID}
	}
	if d.reporter == nil {
		d.reporter = &rpcReporter{caller: d.client, addr: cfg.GFDAddr}
	}
	if d.recoverer == nil {
		d.recoverer = RecovererFunc(func(_ context.Context, serverID string) error {
			logger.Warn("no recovery command configured", logging.ReplicaID(serverID))
			return nil
		})
	}

	if cfg.ListenAddr != "" {
		d.rpc = transport.NewServer(transport.ServerConfig{
			Factory:           cfg.Factory,
			ListenAddr:        cfg.ListenAddr,
			CompressThreshold: cfg.CompressThreshold,
			Logger:            logger,
			Metrics:           cfg.Metrics,
		})
		transport.Handle(d.rpc, protocol.MethodRecover, d.HandleRecover)
	}
	return d
}

// Listen binds the recover socket, if configured.
func (d *Detector) Listen() error {
	if d.rpc == nil {
		return nil
	}
	return d.rpc.Listen()
}

// Run drives the heartbeat loop and, when configured, the recover server
// until ctx is cancelled.
func (d *Detector) Run(ctx context.Context) error {
	d.logger.Info("detector starting",
		logging.Duration("heartbeat_freq", d.freq),
		logging.Duration("timeout", d.timeout))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.loop(gctx)
		return nil
	})
	if d.rpc != nil {
		g.Go(func() error {
			return d.rpc.Serve(gctx)
		})
	}

	err := g.Wait()
	if d.client != nil {
		d.client.Close()
	}
	d.logger.Info("detector stopped")
	return err
}

func (d *Detector) loop(ctx context.Context) {
	ticker := time.NewTicker(d.freq)
	defer ticker.Stop()

	d.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick runs one heartbeat, classifies the replica and reports to the GFD.
func (d *Detector) Tick(ctx context.Context) protocol.Status {
	d.logger.Debug("sending heartbeat")
	resp, err := d.prober.Heartbeat(ctx)
	now := d.now()

	var status protocol.Status
	switch {
	case err == nil && resp != nil && resp.OK:
		status = d.onAlive(ctx, now, resp)
	case err != nil && !transport.IsReplyError(err):
		status = d.onUnreachable(ctx, now, err)
	default:
		status = d.onMalformed(err)
	}

	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.SetDetectorStatus(string(status))
	}

	d.report(ctx, status)
	return status
}

func (d *Detector) onAlive(ctx context.Context, now time.Time, resp *protocol.HeartbeatResponse) protocol.Status {
	d.record("ok")
	d.logger.Debug("heartbeat acknowledged", logging.String("by", resp.ReplicaID))

	d.mu.Lock()
	d.lastGood = now
	d.recoveryTriggered = false
	tryRegister := !d.registered && (d.lastRegisterTry.IsZero() || now.Sub(d.lastRegisterTry) >= d.backoff)
	if tryRegister {
		d.lastRegisterTry = now
	}
	d.mu.Unlock()

	if tryRegister {
		d.register(ctx)
	}
	return protocol.StatusAlive
}

func (d *Detector) onUnreachable(ctx context.Context, now time.Time, err error) protocol.Status {
	d.record("unreachable")

	d.mu.Lock()
	silent := now.Sub(d.lastGood)
	failed := silent > d.timeout
	trigger := failed && !d.recoveryTriggered
	if trigger {
		d.recoveryTriggered = true
	}
	d.mu.Unlock()

	if !failed {
		d.logger.Warn("no heartbeat reply, will retry", logging.Duration("silent", silent), logging.Error(err))
		return protocol.StatusWarn
	}

	d.logger.Error("heartbeat timeout, replica failed", logging.Duration("silent", silent), logging.Error(err))
	if trigger {
		d.recover(ctx, d.replicaID)
	}
	return protocol.StatusFailed
}

func (d *Detector) onMalformed(err error) protocol.Status {
	d.record("malformed")
	if err == nil {
		err = errors.New("heartbeat reply without ok")
	}
	d.logger.Warn("unexpected heartbeat reply", logging.Error(err))
	return protocol.StatusWarn
}

func (d *Detector) register(ctx context.Context) {
	err := d.reporter.Register(ctx, &protocol.RegisterRequest{
		LFDID:    d.id,
		ServerID: d.replicaID,
		LFDAddr:  d.advertiseAddr,
	})
	if err != nil {
		d.logger.Warn("registration with GFD failed, will retry",
			logging.Duration("backoff", d.backoff), logging.Error(err))
		return
	}

	d.mu.Lock()
	d.registered = true
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.SetRegistered(true)
	}
	d.logger.Info("registered with GFD")
}

// report is best-effort: a lost report is superseded by the next tick.
func (d *Detector) report(ctx context.Context, status protocol.Status) {
	err := d.reporter.Report(ctx, &protocol.StatusRequest{
		LFDID:    d.id,
		ServerID: d.replicaID,
		Status:   status,
	})
	if err != nil {
		if d.metrics != nil {
			d.metrics.DetectorReportFailuresTotal.Inc()
		}
		d.logger.Warn("status report to GFD failed", logging.Status(string(status)), logging.Error(err))
	}
}

func (d *Detector) recover(ctx context.Context, serverID string) {
	d.logger.Info("triggering local recovery", logging.ReplicaID(serverID))
	if d.metrics != nil {
		d.metrics.DetectorRecoveriesTotal.Inc()
	}
	if err := d.recoverer.Recover(ctx, serverID); err != nil {
		d.logger.Error("local recovery failed", logging.ReplicaID(serverID), logging.Error(err))
	}
}

// HandleRecover serves an inbound recover request.
func (d *Detector) HandleRecover(ctx context.Context, req *protocol.RecoverRequest) (*protocol.Ack, error) {
	d.logger.Info("recovery requested", logging.ReplicaID(req.ServerID))
	d.recover(ctx, req.ServerID)
	return &protocol.Ack{OK: true}, nil
}

// Status returns the last classification and whether registration succeeded.
func (d *Detector) Status() (protocol.Status, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status, d.registered
}

func (d *Detector) record(result string) {
	if d.metrics != nil {
		d.metrics.RecordProbe(result)
	}
}
