// Package health tracks component health for the readiness endpoint.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by component-level checkers (store, queue).
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// HealthPinger is implemented by components that can probe their backend.
// HealthPing must return nil when the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// PingChecker caches the result of periodic HealthPing probes.
type PingChecker struct {
	name         string
	target       HealthPinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

// NewPingChecker returns a checker that starts unhealthy until the first
// successful probe.
func NewPingChecker(name string, target HealthPinger, log zerolog.Logger, probeTimeout time.Duration) *PingChecker {
	return &PingChecker{name: name, target: target, log: log, probeTimeout: probeTimeout}
}

func (c *PingChecker) Name() string    { return c.name }
func (c *PingChecker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Start probes immediately and then on every interval until ctx is done.
func (c *PingChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check runs a single probe and records the result.
func (c *PingChecker) Check(ctx context.Context) {
	to := c.probeTimeout
	if to <= 0 {
		to = 2 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, to)
	defer cancel()

	if err := c.target.HealthPing(probeCtx); err != nil {
		c.log.Error().Stack().Str("checker", c.name).Err(err).Msg("health check failed")
		c.healthy.Store(0)
		return
	}
	c.healthy.Store(1)
}

// ServiceHealthChecker aggregates component checkers into a single service health flag.
type ServiceHealthChecker struct {
	healthy atomic.Int32
	deps    []HealthChecker
	log     zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, deps ...HealthChecker) *ServiceHealthChecker {
	return &ServiceHealthChecker{deps: deps, log: log}
}

// IsHealthy returns cached service health.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() == 1 }

// Evaluate recomputes the service flag from the dependencies and reports
// whether it changed.
func (h *ServiceHealthChecker) Evaluate() bool {
	var next int32 = 1
	for _, c := range h.deps {
		if !c.IsHealthy() {
			next = 0
		}
	}
	return h.healthy.Swap(next) != next
}

// Start periodically evaluates dependency health and updates the service flag.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	eval := func() {
		if !h.Evaluate() {
			return
		}
		if h.IsHealthy() {
			h.log.Info().Msg("service health: UP")
		} else {
			h.log.Error().Msg("service health: DOWN")
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
