package transport

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Socket represents a messaging socket that can send and receive messages.
// This interface abstracts the underlying transport (mangos, ZMQ, or a fake
// in tests).
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address and accept connections.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is a socket that can connect to a remote address.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// SocketFactory creates the two ends of the request/reply pattern.
// Implementations must translate deadline expiry into ErrTimeout and use of a
// closed socket into ErrClosed.
type SocketFactory interface {
	// NewReplySocket creates a REP socket for a serve loop.
	NewReplySocket() (ListenSocket, error)
	// NewRequestSocket creates a REQ socket for one peer.
	NewRequestSocket() (DialSocket, error)
}

// BackendMangos is the default, pure-Go backend.
const BackendMangos = "mangos"

var (
	backendsMu sync.RWMutex
	backends   = map[string]func() SocketFactory{
		BackendMangos: func() SocketFactory { return NewMangosSocketFactory() },
	}
)

// RegisterBackend makes a socket factory selectable by name. Backends built
// behind tags (zmq) register themselves from init.
func RegisterBackend(name string, fn func() SocketFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = fn
}

// NewSocketFactory returns the factory for a backend name; "" selects mangos.
func NewSocketFactory(backend string) (SocketFactory, error) {
	if backend == "" {
		backend = BackendMangos
	}

	backendsMu.RLock()
	defer backendsMu.RUnlock()

	fn, ok := backends[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, backend, availableBackends())
	}
	return fn(), nil
}

func availableBackends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
