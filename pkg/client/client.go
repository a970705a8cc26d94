// Package client is the counter client. It discovers the primary, sends
// every operation to all replicas at once and counts only the primary's
// reply.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
	"github.com/dd0wney/cluso-counter/pkg/validation"
)

const defaultDiscoveryInterval = time.Second

// Config configures a client.
type Config struct {
	// ID defaults to "client-<uuid>".
	ID       string
	Replicas []protocol.ReplicaIdentity

	Caller            transport.Caller
	Factory           transport.SocketFactory
	Timeout           time.Duration
	CompressThreshold int
	DiscoveryInterval time.Duration

	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Session is a snapshot of the client's view.
type Session struct {
	ClientID      string
	Primary       string
	RequestNumber int64
	LastCounter   int64
	HaveCounter   bool
}

// Client talks to every replica in the topology. Operations are serialized.
type Client struct {
	id                string
	replicas          []protocol.ReplicaIdentity
	caller            transport.Caller
	ownClient         *transport.Client
	discoveryInterval time.Duration

	logger  logging.Logger
	metrics *metrics.Registry

	opMu sync.Mutex

	mu            sync.RWMutex
	primary       string
	requestNumber int64
	lastCounter   int64
	haveCounter   bool
}

// New creates a client. No connection is made until the first call.
func New(cfg Config) *Client {
	id := validation.DefaultOr(cfg.ID, "client-"+uuid.NewString())

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("client"), logging.ClientID(id))

	c := &Client{
		id:                id,
		replicas:          cfg.Replicas,
		caller:            cfg.Caller,
		discoveryInterval: validation.DefaultOrDuration(cfg.DiscoveryInterval, defaultDiscoveryInterval),
		logger:            logger,
		metrics:           cfg.Metrics,
		requestNumber:     1,
	}
	if c.caller == nil {
		c.ownClient = transport.NewClient(transport.ClientConfig{
			Factory:           cfg.Factory,
			Timeout:           cfg.Timeout,
			CompressThreshold: cfg.CompressThreshold,
			Logger:            logger,
			Metrics:           cfg.Metrics,
		})
		c.caller = c.ownClient
	}
	return c
}

// ID returns the client id sent with every request.
func (c *Client) ID() string {
	return c.id
}

// Session returns the current primary, request number and last counter.
func (c *Client) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Session{
		ClientID:      c.id,
		Primary:       c.primary,
		RequestNumber: c.requestNumber,
		LastCounter:   c.lastCounter,
		HaveCounter:   c.haveCounter,
	}
}

// Close releases connections owned by the client.
func (c *Client) Close() error {
	if c.ownClient != nil {
		return c.ownClient.Close()
	}
	return nil
}

// DiscoverPrimary probes replicas until one reports itself primary or ctx
// ends.
func (c *Client) DiscoverPrimary(ctx context.Context) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	for {
		if id := c.discoverOnce(ctx); id != "" {
			return id, nil
		}
		c.logger.Warn("no primary available, retrying", logging.Duration("interval", c.discoveryInterval))

		timer := time.NewTimer(c.discoveryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("%w: %w", ErrNoPrimary, ctx.Err())
		case <-timer.C:
		}
	}
}

// discoverOnce sends get to each replica in topology order and records the
// first that answers as primary.
func (c *Client) discoverOnce(ctx context.Context) string {
	req := c.request()
	for _, r := range c.replicas {
		var resp protocol.CounterResponse
		if err := c.caller.Call(ctx, r.Addr(), protocol.MethodGet, req, &resp); err != nil {
			c.logger.Debug("discovery probe failed", logging.ReplicaID(r.ID), logging.Error(err))
			continue
		}
		if resp.Primary {
			c.setPrimary(r.ID)
			c.logger.Info("primary discovered", logging.ReplicaID(r.ID))
			if c.metrics != nil {
				c.metrics.RecordDiscovery(true)
			}
			return r.ID
		}
	}
	if c.metrics != nil {
		c.metrics.RecordDiscovery(false)
	}
	return ""
}

// ensurePrimaryConnection heartbeats the primary, reconnecting once on
// failure.
func (c *Client) ensurePrimaryConnection(ctx context.Context, primary string) bool {
	addr := c.addrOf(primary)
	hb := &protocol.HeartbeatRequest{LFDID: c.id}

	var resp protocol.HeartbeatResponse
	if err := c.caller.Call(ctx, addr, protocol.MethodHeartbeat, hb, &resp); err == nil {
		return true
	}

	c.caller.Drop(addr)
	if err := c.caller.Call(ctx, addr, protocol.MethodHeartbeat, hb, &resp); err != nil {
		c.logger.Warn("primary connection failed after retry", logging.ReplicaID(primary), logging.Error(err))
		return false
	}
	c.logger.Info("reconnected to primary", logging.ReplicaID(primary))
	return true
}

// prepare makes sure a live primary is known before an operation.
func (c *Client) prepare(ctx context.Context) (string, error) {
	primary := c.Session().Primary
	if primary == "" {
		if primary = c.discoverOnce(ctx); primary == "" {
			return "", ErrNoPrimary
		}
	}

	if c.ensurePrimaryConnection(ctx, primary) {
		return primary, nil
	}

	c.logger.Warn("primary connection dead, rediscovering", logging.ReplicaID(primary))
	c.setPrimary("")
	primary = c.discoverOnce(ctx)
	if primary == "" || !c.ensurePrimaryConnection(ctx, primary) {
		return "", ErrPrimaryUnreachable
	}
	return primary, nil
}

// Get reads the counter from the primary.
func (c *Client) Get(ctx context.Context) (int64, error) {
	return c.do(ctx, protocol.MethodGet)
}

// Increase adds one to the counter and returns the primary's new value.
func (c *Client) Increase(ctx context.Context) (int64, error) {
	return c.do(ctx, protocol.MethodIncrease)
}

// Decrease subtracts one from the counter and returns the primary's new value.
func (c *Client) Decrease(ctx context.Context) (int64, error) {
	return c.do(ctx, protocol.MethodDecrease)
}

func (c *Client) do(ctx context.Context, method string) (int64, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	primary, err := c.prepare(ctx)
	if err != nil {
		c.logger.Error("operation aborted", logging.Operation(method), logging.Error(err))
		c.record(method, metrics.ResultError)
		return 0, err
	}

	req := c.request()
	var (
		mu         sync.Mutex
		primaryRes *protocol.CounterResponse
		primaryErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(c.replicas))
	for _, r := range c.replicas {
		g.Go(func() error {
			c.logger.Debug("sent", logging.ReplicaID(r.ID), logging.RequestNumber(req.RequestNumber), logging.Operation(method))

			var resp protocol.CounterResponse
			err := c.caller.Call(gctx, r.Addr(), method, req, &resp)
			if r.ID != primary {
				if err == nil {
					c.logger.Debug("reply discarded", logging.ReplicaID(r.ID), logging.Counter(resp.Counter))
				}
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				primaryErr = err
				return nil
			}
			primaryRes = &resp
			return nil
		})
	}
	_ = g.Wait()

	if primaryRes == nil {
		err := fmt.Errorf("%w: %s", ErrPrimaryNoReply, primary)
		if primaryErr != nil {
			err = fmt.Errorf("%w: %s: %w", ErrPrimaryNoReply, primary, primaryErr)
		}
		c.logger.Error("primary failed or did not reply", logging.ReplicaID(primary), logging.Error(primaryErr))
		c.record(method, metrics.ResultError)
		return 0, err
	}

	c.mu.Lock()
	c.requestNumber++
	c.lastCounter = primaryRes.Counter
	c.haveCounter = true
	c.mu.Unlock()

	c.logger.Info("received",
		logging.ReplicaID(primary),
		logging.Operation(method),
		logging.Counter(primaryRes.Counter),
		logging.RequestNumber(req.RequestNumber))
	c.record(method, metrics.ResultOK)
	return primaryRes.Counter, nil
}

func (c *Client) request() *protocol.ClientRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &protocol.ClientRequest{ClientID: c.id, RequestNumber: c.requestNumber}
}

func (c *Client) setPrimary(id string) {
	c.mu.Lock()
	c.primary = id
	c.mu.Unlock()
}

func (c *Client) addrOf(id string) string {
	for _, r := range c.replicas {
		if r.ID == id {
			return r.Addr()
		}
	}
	return ""
}

func (c *Client) record(method, result string) {
	if c.metrics == nil {
		return
	}
	c.mu.RLock()
	n := c.requestNumber
	c.mu.RUnlock()
	c.metrics.RecordClientOperation(method, result, n)
}
