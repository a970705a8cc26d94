package replica

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
)

// Config configures one replica server.
type Config struct {
	Identity protocol.ReplicaIdentity
	Mode     protocol.Mode
	// Primary is the starting role; the replication manager may change it.
	Primary bool
	// Peers are the other replicas of the topology, the checkpoint targets.
	Peers          []protocol.ReplicaIdentity
	CheckpointFreq time.Duration
	PollInterval   time.Duration

	// Factory and CompressThreshold configure the serve loop.
	Factory           transport.SocketFactory
	CompressThreshold int

	// Caller sends checkpoints. Defaults to a transport.Client with CallTimeout.
	Caller      transport.Caller
	CallTimeout time.Duration

	Logger  logging.Logger
	Metrics *metrics.Registry
	// Now is the clock; tests inject a fake.
	Now func() time.Time
}

// Server is a counter replica. All request handling and checkpointing runs
// on the serve loop; mu only guards reads from the admin endpoint.
type Server struct {
	id        string
	mode      protocol.Mode
	peers     []protocol.ReplicaIdentity
	ckptFreq  time.Duration
	caller    transport.Caller
	ownClient *transport.Client
	rpc       *transport.Server
	logger    logging.Logger
	metrics   *metrics.Registry
	now       func() time.Time

	mu             sync.RWMutex
	counter        int64
	role           protocol.Role
	checkpointSeq  int64
	lastCheckpoint time.Time
}

// State is a snapshot of a replica for logs, health and tests.
type State struct {
	ReplicaID          string
	Counter            int64
	Role               protocol.Role
	Mode               protocol.Mode
	CheckpointSequence int64
	Serving            bool
}
