package lfd

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
)

// Prober sends one heartbeat to the local replica.
type Prober interface {
	Heartbeat(ctx context.Context) (*protocol.HeartbeatResponse, error)
}

// Reporter delivers registration and status reports to the GFD.
type Reporter interface {
	Register(ctx context.Context, req *protocol.RegisterRequest) error
	Report(ctx context.Context, req *protocol.StatusRequest) error
}

// Recoverer restarts a failed replica.
type Recoverer interface {
	Recover(ctx context.Context, serverID string) error
}

// RecovererFunc adapts a function to Recoverer.
type RecovererFunc func(ctx context.Context, serverID string) error

func (f RecovererFunc) Recover(ctx context.Context, serverID string) error {
	return f(ctx, serverID)
}

// Config configures a detector.
type Config struct {
	ID        string
	ReplicaID string
	// ReplicaAddr and GFDAddr are dialed by the default prober and reporter.
	ReplicaAddr string
	GFDAddr     string
	// ListenAddr serves inbound recover; empty disables it.
	ListenAddr string
	// AdvertiseAddr is sent to the GFD for recover calls; defaults to ListenAddr.
	AdvertiseAddr string

	HeartbeatFreq   time.Duration
	Timeout         time.Duration
	RegisterBackoff time.Duration

	Recoverer Recoverer
	Prober    Prober
	Reporter  Reporter

	Factory           transport.SocketFactory
	CallTimeout       time.Duration
	CompressThreshold int

	Logger  logging.Logger
	Metrics *metrics.Registry
	Now     func() time.Time
}

// Detector polls one replica and reports its status to the GFD.
type Detector struct {
	id            string
	replicaID     string
	advertiseAddr string
	freq          time.Duration
	timeout       time.Duration
	backoff       time.Duration

	prober    Prober
	reporter  Reporter
	recoverer Recoverer
	client    *transport.Client
	rpc       *transport.Server

	logger  logging.Logger
	metrics *metrics.Registry
	now     func() time.Time

	mu                sync.RWMutex
	status            protocol.Status
	lastGood          time.Time
	registered        bool
	lastRegisterTry   time.Time
	recoveryTriggered bool
}
