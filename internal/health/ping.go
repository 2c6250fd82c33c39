package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthPinger is implemented by components that expose a liveness probe.
// HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// PingChecker turns a HealthPinger into a periodically refreshed HealthChecker.
// It starts unhealthy until the first successful probe.
type PingChecker struct {
	name         string
	pinger       HealthPinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewPingChecker creates a checker named name that probes p.
func NewPingChecker(name string, p HealthPinger, log zerolog.Logger, probeTimeout time.Duration) *PingChecker {
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	return &PingChecker{name: name, pinger: p, log: log, probeTimeout: probeTimeout}
}

func (c *PingChecker) Name() string    { return c.name }
func (c *PingChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Probe runs one check and records the result.
func (c *PingChecker) Probe(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	if err := c.pinger.HealthPing(checkCtx); err != nil {
		c.healthy.Store(0)
		c.log.Error().Stack().Str("checker", c.name).Err(err).Msg("health check failed")
		return false
	}
	c.healthy.Store(1)
	return true
}

// Start probes immediately and then on every interval until ctx is done.
func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Probe(ctx)
		}
	}
}

// PingFunc adapts a function to HealthPinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) HealthPing(ctx context.Context) error { return f(ctx) }
