package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/validation"
)

// DefaultPollInterval bounds how long the serve loop blocks in Recv before
// running its tick hook.
const DefaultPollInterval = 100 * time.Millisecond

// HandlerFunc handles one request envelope and returns the reply payload.
// Returning ErrDrop answers with an empty frame.
type HandlerFunc func(ctx context.Context, env *Envelope) (any, error)

// ServerConfig configures a Server.
type ServerConfig struct {
	Factory           SocketFactory
	ListenAddr        string
	PollInterval      time.Duration
	CompressThreshold int
	// Tick runs once per loop iteration, after any request was answered.
	// It never runs concurrently with a handler.
	Tick    func(now time.Time)
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Server is a single-threaded REP serve loop: one request is handled at a
// time, and periodic work rides on the Tick hook.
type Server struct {
	cfg      ServerConfig
	logger   logging.Logger
	handlers map[string]HandlerFunc

	mu   sync.Mutex
	sock ListenSocket
}

// NewServer creates a server; nothing listens until Listen or Serve.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Factory == nil {
		cfg.Factory = NewMangosSocketFactory()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.CompressThreshold == 0 {
		cfg.CompressThreshold = DefaultCompressThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	return &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers a raw handler for method. Must be called before Serve.
func (s *Server) Handle(method string, h HandlerFunc) {
	s.handlers[method] = h
}

// Handle registers a typed handler: the request body is decoded into Req and
// validated against its struct tags before fn runs.
func Handle[Req any, Resp any](s *Server, method string, fn func(ctx context.Context, req *Req) (*Resp, error)) {
	s.Handle(method, func(ctx context.Context, env *Envelope) (any, error) {
		var req Req
		if err := env.Decode(&req); err != nil {
			return nil, fmt.Errorf("decode %s request: %w", method, err)
		}
		if err := validation.Struct(&req); err != nil {
			return nil, fmt.Errorf("invalid %s request: %w", method, err)
		}
		return fn(ctx, &req)
	})
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.ListenAddr
}

// Listen binds the reply socket. Serve calls it if it was not called.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sock != nil {
		return nil
	}

	cleanup := NewResourceCleanup(s.logger)
	defer cleanup.Cleanup()

	sock, err := s.cfg.Factory.NewReplySocket()
	if err != nil {
		return fmt.Errorf("create reply socket: %w", err)
	}
	cleanup.Add(sock, "reply socket")

	if err := sock.Listen(s.cfg.ListenAddr); err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}

	cleanup.Clear()
	s.sock = sock
	return nil
}

// Serve runs the loop until ctx is cancelled, then closes the socket.
// Handler and socket errors are logged; they never stop the loop.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	defer s.close()

	s.logger.Info("serving", logging.Addr(s.cfg.ListenAddr))

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.serveOne(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			s.logger.Warn("serve loop error", logging.Error(err))
		}

		if s.cfg.Tick != nil {
			s.cfg.Tick(time.Now())
		}
	}
}

func (s *Server) serveOne(ctx context.Context) error {
	if err := s.sock.SetRecvDeadline(s.cfg.PollInterval); err != nil {
		return err
	}
	frame, err := s.sock.Recv()
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return nil
		}
		return err
	}

	reply := s.dispatch(ctx, frame)
	if err := s.sock.SetSendDeadline(s.cfg.PollInterval * 10); err != nil {
		return err
	}
	return s.sock.Send(reply)
}

// dispatch turns one request frame into one reply frame; it always produces
// a reply so the REP socket stays in step with its peer.
func (s *Server) dispatch(ctx context.Context, frame []byte) []byte {
	env, err := ParseEnvelope(frame)
	if err != nil {
		s.logger.Warn("malformed request", logging.Error(err))
		s.record("", "error")
		return s.encode(&Envelope{Encoding: EncodingJSON, Error: fmt.Sprintf("malformed request: %v", err)})
	}

	h, ok := s.handlers[env.Method]
	if !ok {
		s.logger.Warn("unknown method", logging.Method(env.Method))
		s.record(env.Method, "error")
		return s.encode(env.ErrorReply(fmt.Errorf("%w: %s", ErrUnknownMethod, env.Method)))
	}

	payload, err := h(ctx, env)
	switch {
	case errors.Is(err, ErrDrop):
		s.record(env.Method, "dropped")
		return []byte{}
	case err != nil:
		s.logger.Warn("request failed", logging.Method(env.Method), logging.Error(err))
		s.record(env.Method, "error")
		return s.encode(env.ErrorReply(err))
	}

	reply, err := env.Reply(payload, s.cfg.CompressThreshold)
	if err != nil {
		s.record(env.Method, "error")
		return s.encode(env.ErrorReply(err))
	}
	s.record(env.Method, metrics.ResultOK)
	return s.encode(reply)
}

func (s *Server) encode(env *Envelope) []byte {
	frame, err := env.Marshal()
	if err != nil {
		s.logger.Error("failed to encode reply", logging.Error(err))
		return []byte{}
	}
	return frame
}

func (s *Server) record(method, result string) {
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordServed(method, result)
	}
}

func (s *Server) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sock != nil {
		if err := s.sock.Close(); err != nil {
			s.logger.Debug("close reply socket", logging.Error(err))
		}
		s.sock = nil
	}
}
