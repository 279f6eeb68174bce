// Package health runs periodic reachability probes against the active ledger
// backend. The results feed logs and metrics only; the ledger facade never
// consults them.
package health

import (
	"context"
	"time"

	"github.com/rafsan3051/TraceRoot-sub000/internal/ledger"
	"go.uber.org/zap"
)

// Prober is the probe surface the checker needs.
// *ledger.Facade satisfies this interface.
type Prober interface {
	Probe(ctx context.Context) ledger.ProbeResult
}

// Checker probes the backend on a fixed interval and logs state transitions.
type Checker struct {
	prober    Prober
	interval  time.Duration
	reachable bool
	seeded    bool
	logger    *zap.Logger
}

// New creates a Checker. Interval defaults to 5 minutes.
func New(prober Prober, interval time.Duration, logger *zap.Logger) *Checker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Checker{prober: prober, interval: interval, logger: logger}
}

// Start runs the probe loop until done is closed.
func (c *Checker) Start(done <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.probeTimeout())
			c.Check(ctx)
			cancel()
		case <-done:
			return
		}
	}
}

// probeTimeout leaves a second of slack before the next tick, but never
// drops below a workable floor for short intervals.
func (c *Checker) probeTimeout() time.Duration {
	const floor = 5 * time.Second
	timeout := c.interval - time.Second
	if timeout < floor {
		return floor
	}
	return timeout
}

// Check runs one probe and logs reachability transitions.
func (c *Checker) Check(ctx context.Context) ledger.ProbeResult {
	res := c.prober.Probe(ctx)

	switch {
	case !c.seeded:
		c.logger.Info("ledger backend probe",
			zap.String("backend", res.Backend),
			zap.Bool("reachable", res.Reachable),
			zap.Duration("latency", res.Latency),
		)
	case res.Reachable && !c.reachable:
		c.logger.Info("ledger backend recovered",
			zap.String("backend", res.Backend),
			zap.Duration("latency", res.Latency),
		)
	case !res.Reachable && c.reachable:
		c.logger.Warn("ledger backend unreachable",
			zap.String("backend", res.Backend),
			zap.String("class", string(res.ErrorClass)),
			zap.Int("http_status", res.HTTPStatus),
		)
	}

	c.seeded = true
	c.reachable = res.Reachable
	return res
}
