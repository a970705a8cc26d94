package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var addrSeq atomic.Int64

func inprocAddr(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("inproc://transport-test-%d", addrSeq.Add(1))
}

type echoRequest struct {
	Text string `json:"text" validate:"required"`
}

type echoResponse struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// startServer runs a server until the returned stop func (or test cleanup)
// shuts it down.
func startServer(t *testing.T, cfg ServerConfig, register func(*Server)) (stop func()) {
	t.Helper()
	srv := NewServer(cfg)
	register(srv)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Serve: %v", err)
			}
		})
	}
	t.Cleanup(stop)
	return stop
}

func TestClientServer_Echo(t *testing.T) {
	addr := inprocAddr(t)
	var calls int
	startServer(t, ServerConfig{ListenAddr: addr, PollInterval: 10 * time.Millisecond}, func(s *Server) {
		Handle(s, "echo", func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
			calls++
			return &echoResponse{Text: req.Text, Count: calls}, nil
		})
	})

	client := NewClient(ClientConfig{Timeout: time.Second})
	defer client.Close()

	for i := 1; i <= 3; i++ {
		var resp echoResponse
		if err := client.Call(context.Background(), addr, "echo", &echoRequest{Text: "hi"}, &resp); err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
		if resp.Text != "hi" || resp.Count != i {
			t.Errorf("Call %d = %+v", i, resp)
		}
	}
}

func TestClientServer_ErrorPaths(t *testing.T) {
	addr := inprocAddr(t)
	startServer(t, ServerConfig{ListenAddr: addr, PollInterval: 10 * time.Millisecond}, func(s *Server) {
		Handle(s, "echo", func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
			return &echoResponse{Text: req.Text}, nil
		})
		Handle(s, "refuse", func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
			return nil, ErrDrop
		})
		Handle(s, "boom", func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
			return nil, errors.New("boom")
		})
	})

	client := NewClient(ClientConfig{Timeout: time.Second})
	defer client.Close()

	tests := []struct {
		name    string
		method  string
		req     any
		wantErr error
	}{
		{"dropped request yields empty reply", "refuse", &echoRequest{Text: "x"}, ErrEmptyReply},
		{"handler error yields remote error", "boom", &echoRequest{Text: "x"}, ErrRemote},
		{"validation failure yields remote error", "echo", &echoRequest{}, ErrRemote},
		{"unknown method yields remote error", "nope", &echoRequest{Text: "x"}, ErrRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp echoResponse
			err := client.Call(context.Background(), addr, tt.method, tt.req, &resp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Call(%s) error = %v, want %v", tt.method, err, tt.wantErr)
			}
			if !IsReplyError(err) {
				t.Errorf("IsReplyError(%v) = false", err)
			}
		})
	}

	// The socket must still be usable after every failure above.
	var resp echoResponse
	if err := client.Call(context.Background(), addr, "echo", &echoRequest{Text: "after"}, &resp); err != nil {
		t.Fatalf("Call after errors: %v", err)
	}
}

func TestClient_UnreachablePeer(t *testing.T) {
	client := NewClient(ClientConfig{Timeout: 50 * time.Millisecond})
	defer client.Close()

	err := client.Call(context.Background(), inprocAddr(t), "echo", &echoRequest{Text: "x"}, nil)
	if err == nil {
		t.Fatal("expected error calling a peer nobody listens on")
	}
	if IsReplyError(err) {
		t.Errorf("unreachable peer reported as reply error: %v", err)
	}
}

func TestClient_RedialsAfterPeerRestart(t *testing.T) {
	addr := inprocAddr(t)
	handler := func(s *Server) {
		Handle(s, "echo", func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
			return &echoResponse{Text: req.Text}, nil
		})
	}

	stop := startServer(t, ServerConfig{ListenAddr: addr, PollInterval: 10 * time.Millisecond}, handler)

	client := NewClient(ClientConfig{Timeout: 200 * time.Millisecond})
	defer client.Close()

	if err := client.Call(context.Background(), addr, "echo", &echoRequest{Text: "1"}, nil); err != nil {
		t.Fatalf("first call: %v", err)
	}

	stop()

	if err := client.Call(context.Background(), addr, "echo", &echoRequest{Text: "2"}, nil); err == nil {
		t.Fatal("expected failure while peer is down")
	}

	startServer(t, ServerConfig{ListenAddr: addr, PollInterval: 10 * time.Millisecond}, handler)

	var resp echoResponse
	if err := client.Call(context.Background(), addr, "echo", &echoRequest{Text: "3"}, &resp); err != nil {
		t.Fatalf("call after restart: %v", err)
	}
	if resp.Text != "3" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestClient_ContextExpired(t *testing.T) {
	client := NewClient(ClientConfig{})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Call(ctx, "inproc://unused", "echo", nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Call with cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestClient_ClosedRejectsCalls(t *testing.T) {
	client := NewClient(ClientConfig{})
	client.Close()

	if err := client.Call(context.Background(), "inproc://unused", "echo", nil, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Call after Close = %v, want ErrClosed", err)
	}
}

func TestServer_TickRunsBetweenRequests(t *testing.T) {
	addr := inprocAddr(t)

	var mu sync.Mutex
	ticks := 0
	startServer(t, ServerConfig{
		ListenAddr:   addr,
		PollInterval: 5 * time.Millisecond,
		Tick: func(time.Time) {
			mu.Lock()
			ticks++
			mu.Unlock()
		},
	}, func(s *Server) {})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := ticks
		mu.Unlock()
		if n >= 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("tick hook did not run while idle")
}

func TestServer_ListenTwiceSameAddrFails(t *testing.T) {
	addr := inprocAddr(t)
	startServer(t, ServerConfig{ListenAddr: addr}, func(s *Server) {})

	if err := NewServer(ServerConfig{ListenAddr: addr}).Listen(); err == nil {
		t.Error("expected second listener on the same address to fail")
	}
}

func TestNewSocketFactory(t *testing.T) {
	if _, err := NewSocketFactory(""); err != nil {
		t.Errorf("default backend: %v", err)
	}
	if _, err := NewSocketFactory(BackendMangos); err != nil {
		t.Errorf("mangos backend: %v", err)
	}
	if _, err := NewSocketFactory("carrier-pigeon"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("unknown backend err = %v", err)
	}
}
