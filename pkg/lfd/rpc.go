package lfd

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-counter/pkg/protocol"
	"github.com/dd0wney/cluso-counter/pkg/transport"
)

type rpcProber struct {
	caller transport.Caller
	addr   string
	lfdID  string
}

func (p *rpcProber) Heartbeat(ctx context.Context) (*protocol.HeartbeatResponse, error) {
	var resp protocol.HeartbeatResponse
	if err := p.caller.Call(ctx, p.addr, protocol.MethodHeartbeat, &protocol.HeartbeatRequest{LFDID: p.lfdID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type rpcReporter struct {
	caller transport.Caller
	addr   string
}

func (r *rpcReporter) Register(ctx context.Context, req *protocol.RegisterRequest) error {
	return r.ack(ctx, protocol.MethodRegister, req)
}

func (r *rpcReporter) Report(ctx context.Context, req *protocol.StatusRequest) error {
	return r.ack(ctx, protocol.MethodStatus, req)
}

func (r *rpcReporter) ack(ctx context.Context, method string, req any) error {
	var ack protocol.Ack
	if err := r.caller.Call(ctx, r.addr, method, req, &ack); err != nil {
		return err
	}
	if !ack.OK {
		return fmt.Errorf("%s not acknowledged", method)
	}
	return nil
}
