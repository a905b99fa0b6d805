package session

import (
	"context"
	"log"
	"time"
)

// Default cadence for the idle sweep.
const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultIdleTimeout   = 60 * time.Minute
)

// Reaper periodically evicts sessions that have gone idle. This is
// cooperative cleanup, not a correctness mechanism: a missed sweep only
// wastes memory, it never corrupts session state.
type Reaper struct {
	registry *Registry
	interval time.Duration
	idleTTL  time.Duration
	onEvict  func(sessionID string)
}

// NewReaper wires a reaper to a registry. onEvict is invoked once per
// evicted session so the transport layer can close its resources; it may
// be nil. Non-positive durations fall back to the defaults.
func NewReaper(registry *Registry, interval, idleTTL time.Duration, onEvict func(sessionID string)) *Reaper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTimeout
	}
	return &Reaper{
		registry: registry,
		interval: interval,
		idleTTL:  idleTTL,
		onEvict:  onEvict,
	}
}

// Run sweeps at the configured interval until ctx is cancelled.
func (p *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}

// Sweep evicts every idle session once. Evictions are independent per
// session: the transport callback runs after the registry entry is already
// gone, so a misbehaving callback cannot block other evictions.
func (p *Reaper) Sweep() {
	evicted := p.registry.EvictIdle(p.idleTTL)
	for _, id := range evicted {
		log.Printf("[reaper] evicted idle session=%s", id)
		if p.onEvict != nil {
			p.onEvict(id)
		}
	}
}
