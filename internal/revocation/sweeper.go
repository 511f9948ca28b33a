package revocation

import (
	"context"
	"time"

	"github.com/Skotchmaster/auth_gateway/internal/logging"
	"github.com/Skotchmaster/auth_gateway/internal/metrics"
)

type Sweeper struct {
	Registry Registry
	Interval time.Duration
	Now      func() time.Time
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("component", "revocation_sweeper")
	now := s.Now
	if now == nil {
		now = time.Now
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Registry.Sweep(ctx, now())
			if err != nil {
				l.Error("sweep_failed", "error", err)
				continue
			}
			if removed > 0 {
				metrics.RevocationsSwept.Add(float64(removed))
				l.Debug("sweep_done", "removed", removed)
			}
		}
	}
}
