package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
)

// DefaultCallTimeout bounds one request/reply round trip.
const DefaultCallTimeout = 2 * time.Second

// Caller is the outbound half of the transport; *Client implements it and
// tests substitute fakes.
type Caller interface {
	Call(ctx context.Context, addr, method string, req, resp any) error
	Drop(addr string)
}

var _ Caller = (*Client)(nil)

// ClientConfig configures a Client.
type ClientConfig struct {
	Factory           SocketFactory
	Timeout           time.Duration
	CompressThreshold int
	Logger            logging.Logger
	Metrics           *metrics.Registry
}

// Client issues request/reply calls to any number of peers. Each peer gets
// one lazily dialed REQ socket; a socket that fails is closed and redialed
// on next use. Calls to different peers may run concurrently; calls to the
// same peer are serialized.
type Client struct {
	factory   SocketFactory
	timeout   time.Duration
	threshold int
	logger    logging.Logger
	metrics   *metrics.Registry

	mu     sync.Mutex
	peers  map[string]*peer
	closed bool
}

type peer struct {
	mu   sync.Mutex
	addr string
	sock DialSocket
}

// NewClient creates a transport client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Factory == nil {
		cfg.Factory = NewMangosSocketFactory()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	if cfg.CompressThreshold == 0 {
		cfg.CompressThreshold = DefaultCompressThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &Client{
		factory:   cfg.Factory,
		timeout:   cfg.Timeout,
		threshold: cfg.CompressThreshold,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		peers:     make(map[string]*peer),
	}
}

// Call sends req to addr under method and decodes the reply into resp.
// The round trip is bounded by the client timeout or the ctx deadline,
// whichever is sooner.
func (c *Client) Call(ctx context.Context, addr, method string, req, resp any) error {
	start := time.Now()
	err := c.call(ctx, addr, method, req, resp)
	if c.metrics != nil {
		c.metrics.RecordRPCCall(method, err, time.Since(start))
	}
	return err
}

func (c *Client) call(ctx context.Context, addr, method string, req, resp any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			if remaining <= 0 {
				return fmt.Errorf("%s %s: %w", method, addr, ErrTimeout)
			}
			timeout = remaining
		}
	}

	env, err := NewEnvelope(method, req, c.threshold)
	if err != nil {
		return err
	}
	frame, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", method, err)
	}

	p, err := c.peer(addr)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reply, err := p.roundTrip(c.factory, frame, timeout)
	if err != nil {
		c.logger.Debug("rpc failed", logging.Method(method), logging.Addr(addr), logging.Error(err))
		return fmt.Errorf("%s %s: %w", method, addr, err)
	}

	if len(reply) == 0 {
		return fmt.Errorf("%s %s: %w", method, addr, ErrEmptyReply)
	}
	replyEnv, err := ParseEnvelope(reply)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, addr, ErrMalformedReply, err)
	}
	if replyEnv.Error != "" {
		return fmt.Errorf("%s %s: %w: %s", method, addr, ErrRemote, replyEnv.Error)
	}
	if resp == nil {
		return nil
	}
	if err := replyEnv.Decode(resp); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, addr, ErrMalformedReply, err)
	}
	return nil
}

func (c *Client) peer(addr string) (*peer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	p, ok := c.peers[addr]
	if !ok {
		p = &peer{addr: addr}
		c.peers[addr] = p
	}
	return p, nil
}

// roundTrip must be called with p.mu held. Any failure leaves the REQ socket
// mid-cycle, so it is closed and redialed on the next call.
func (p *peer) roundTrip(factory SocketFactory, frame []byte, timeout time.Duration) ([]byte, error) {
	if p.sock == nil {
		sock, err := factory.NewRequestSocket()
		if err != nil {
			return nil, fmt.Errorf("create request socket: %w", err)
		}
		if err := sock.Dial(p.addr); err != nil {
			sock.Close()
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.sock = sock
	}

	reply, err := p.exchange(frame, timeout)
	if err != nil {
		p.drop()
		return nil, err
	}
	return reply, nil
}

func (p *peer) exchange(frame []byte, timeout time.Duration) ([]byte, error) {
	if err := p.sock.SetSendDeadline(timeout); err != nil {
		return nil, err
	}
	if err := p.sock.SetRecvDeadline(timeout); err != nil {
		return nil, err
	}
	if err := p.sock.Send(frame); err != nil {
		return nil, err
	}
	return p.sock.Recv()
}

func (p *peer) drop() {
	if p.sock != nil {
		p.sock.Close()
		p.sock = nil
	}
}

// Drop closes the connection to addr, if any; the next call redials.
func (c *Client) Drop(addr string) {
	c.mu.Lock()
	p, ok := c.peers[addr]
	c.mu.Unlock()
	if !ok {
		return
	}
	p.mu.Lock()
	p.drop()
	p.mu.Unlock()
}

// Close closes every peer connection. Further calls return ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	peers := c.peers
	c.peers = make(map[string]*peer)
	c.mu.Unlock()

	var errs []error
	for _, p := range peers {
		p.mu.Lock()
		if p.sock != nil {
			if err := p.sock.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", p.addr, err))
			}
			p.sock = nil
		}
		p.mu.Unlock()
	}
	return errors.Join(errs...)
}
