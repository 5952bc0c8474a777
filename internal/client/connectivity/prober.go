package connectivity

import (
	"context"
	"time"
)

// Pinger checks that the remote service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober periodically pings the remote service and feeds the result into a
// Monitor.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	timeout  time.Duration
}

const (
	DefaultProbeInterval = 3 * time.Second
	DefaultProbeTimeout  = 3 * time.Second
)

// NewProber returns a Prober. Non-positive durations fall back to the defaults.
func NewProber(p Pinger, m *Monitor, interval, timeout time.Duration) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{pinger: p, monitor: m, interval: interval, timeout: timeout}
}

// ProbeOnce pings once and updates the monitor. It reports the observed state.
func (p *Prober) ProbeOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	online := p.pinger.Ping(ctx) == nil
	p.monitor.Set(online)
	return online
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	p.ProbeOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.ProbeOnce(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}
