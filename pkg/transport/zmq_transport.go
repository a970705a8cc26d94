//go:build zmq
// +build zmq

package transport

import (
	"fmt"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// BackendZMQ selects libzmq REQ/REP sockets.
const BackendZMQ = "zmq"

func init() {
	RegisterBackend(BackendZMQ, func() SocketFactory { return NewZMQSocketFactory() })
}

// zmqSocket wraps a zmq.Socket to implement our Socket interface.
type zmqSocket struct {
	sock *zmq.Socket
}

func (s *zmqSocket) Send(data []byte) error {
	_, err := s.sock.SendBytes(data, 0)
	return translateZMQErr(err)
}

func (s *zmqSocket) Recv() ([]byte, error) {
	data, err := s.sock.RecvBytes(0)
	return data, translateZMQErr(err)
}

func (s *zmqSocket) Close() error {
	// Unsent replies must not hold the process open on shutdown.
	_ = s.sock.SetLinger(0)
	return s.sock.Close()
}

func (s *zmqSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetRcvtimeo(d)
}

func (s *zmqSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetSndtimeo(d)
}

func (s *zmqSocket) Listen(addr string) error {
	return s.sock.Bind(addr)
}

func (s *zmqSocket) Dial(addr string) error {
	return s.sock.Connect(addr)
}

func translateZMQErr(err error) error {
	switch {
	case err == nil:
		return nil
	case zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case zmq.AsErrno(err) == zmq.ETERM, zmq.AsErrno(err) == zmq.Errno(syscall.ENOTSOCK):
		return fmt.Errorf("%w: %v", ErrClosed, err)
	default:
		return err
	}
}

// ZMQSocketFactory creates ZeroMQ REQ/REP sockets.
type ZMQSocketFactory struct{}

// NewZMQSocketFactory creates a new ZeroMQ socket factory.
func NewZMQSocketFactory() *ZMQSocketFactory {
	return &ZMQSocketFactory{}
}

func (f *ZMQSocketFactory) NewReplySocket() (ListenSocket, error) {
	sock, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		return nil, fmt.Errorf("failed to create REP socket: %w", err)
	}
	return &zmqSocket{sock: sock}, nil
}

func (f *ZMQSocketFactory) NewRequestSocket() (DialSocket, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return nil, fmt.Errorf("failed to create REQ socket: %w", err)
	}
	return &zmqSocket{sock: sock}, nil
}

// Ensure ZMQSocketFactory implements SocketFactory
var _ SocketFactory = (*ZMQSocketFactory)(nil)
