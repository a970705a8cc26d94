package main

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/client"
	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
)

// counterOps is the subset of *client.Client the loop drives.
type counterOps interface {
	DiscoverPrimary(ctx context.Context) (string, error)
	Get(ctx context.Context) (int64, error)
	Increase(ctx context.Context) (int64, error)
	Decrease(ctx context.Context) (int64, error)
}

var _ counterOps = (*client.Client)(nil)

// runAuto discovers the primary, then issues a random operation every
// interval until ctx ends or limit operations have been sent.
func runAuto(ctx context.Context, c counterOps, interval time.Duration, limit int, logger logging.Logger) int {
	if _, err := c.DiscoverPrimary(ctx); err != nil {
		logger.Warn("primary discovery stopped", logging.Error(err))
		return 0
	}

	ops := []string{protocol.MethodGet, protocol.MethodIncrease, protocol.MethodDecrease}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sent := 0
	for limit == 0 || sent < limit {
		op := ops[rand.IntN(len(ops))]
		value, err := do(ctx, c, op)
		sent++
		if err != nil {
			logger.Warn("operation failed", logging.Operation(op), logging.Error(err))
		} else {
			logger.Info("operation succeeded", logging.Operation(op), logging.Counter(value))
		}

		if limit != 0 && sent >= limit {
			break
		}
		select {
		case <-ctx.Done():
			return sent
		case <-ticker.C:
		}
	}
	return sent
}

func do(ctx context.Context, c counterOps, op string) (int64, error) {
	switch op {
	case protocol.MethodIncrease:
		return c.Increase(ctx)
	case protocol.MethodDecrease:
		return c.Decrease(ctx)
	default:
		return c.Get(ctx)
	}
}
