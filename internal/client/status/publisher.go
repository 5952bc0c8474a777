// Package status fans out the current sync state to the UI.
//
// A drain moves the status to syncing, then to success or error. Both end
// states fall back to idle after a fixed delay so banners dismiss
// themselves, except when terminal failures are waiting for the user: that
// error stays until Acknowledge is called.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/clockx"
	"github.com/dmitrijs2005/healthsync/internal/logging"
)

type Status string

const (
	Idle    Status = "idle"
	Syncing Status = "syncing"
	Success Status = "success"
	Error   Status = "error"
)

// DefaultResetDelay is how long success and transient error stay visible.
const DefaultResetDelay = 3 * time.Second

// Snapshot is what subscribers receive. NeedsAttention is set while
// terminal failures are unacknowledged.
type Snapshot struct {
	Status         Status     `json:"status"`
	PendingCount   int        `json:"pending_count"`
	FailedCount    int        `json:"failed_count"`
	NeedsAttention bool       `json:"needs_attention"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	Err            string     `json:"error,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Publisher keeps the latest Snapshot and notifies subscribers on change.
// Callbacks run synchronously and must not call Publisher methods other
// than Current.
type Publisher struct {
	// notifyMu serializes state changes with their notification so that
	// subscribers observe snapshots in order.
	notifyMu sync.Mutex

	mu         sync.Mutex
	clock      clockx.Clock
	resetDelay time.Duration
	current    Snapshot
	acked      int
	gen        uint64
	timer      clockx.Timer
	subs       map[int]func(Snapshot)
	nextID     int
	logger     logging.Logger
}

func New(clock clockx.Clock, resetDelay time.Duration, logger logging.Logger) *Publisher {
	if clock == nil {
		clock = clockx.Real{}
	}
	if resetDelay <= 0 {
		resetDelay = DefaultResetDelay
	}
	return &Publisher{
		clock:      clock,
		resetDelay: resetDelay,
		current:    Snapshot{Status: Idle, UpdatedAt: clock.Now()},
		subs:       make(map[int]func(Snapshot)),
		logger:     logger.With("module", "status"),
	}
}

func (p *Publisher) Current() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe registers fn and immediately delivers the current snapshot.
func (p *Publisher) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	snap := p.current
	p.mu.Unlock()

	fn(snap)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

// Syncing marks the start of a drain.
func (p *Publisher) Syncing(pending, failed int) {
	p.update(func(s *Snapshot) bool {
		s.Status = Syncing
		s.PendingCount = pending
		s.FailedCount = failed
		s.Err = ""
		return false
	})
}

// Finished records the end of a drain. failures counts entries that failed
// in this drain, retriable or not; lastErr describes one of them.
func (p *Publisher) Finished(pending, failed, failures int, lastErr string) {
	p.update(func(s *Snapshot) bool {
		now := p.clock.Now()
		s.LastSyncAt = &now
		s.PendingCount = pending
		s.FailedCount = failed
		if failures == 0 && !s.NeedsAttention {
			s.Status = Success
			s.Err = ""
		} else {
			s.Status = Error
			s.Err = lastErr
		}
		return true
	})
}

// UpdateCounts refreshes the counters outside a drain, e.g. after a local
// write or a manual retry.
func (p *Publisher) UpdateCounts(pending, failed int) {
	p.update(func(s *Snapshot) bool {
		s.PendingCount = pending
		s.FailedCount = failed
		return s.Status == Error
	})
}

// Acknowledge dismisses the terminal failures known so far. A sticky error
// reverts to idle at once.
func (p *Publisher) Acknowledge() {
	p.update(func(s *Snapshot) bool {
		p.acked = s.FailedCount
		s.NeedsAttention = false
		if s.Status == Error {
			s.Status = Idle
			s.Err = ""
		}
		return false
	})
}

// update applies fn under the lock, recomputes NeedsAttention, arranges the
// idle revert when fn asks for it and notifies subscribers.
func (p *Publisher) update(fn func(s *Snapshot) (scheduleReset bool)) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	next := p.current
	scheduleReset := fn(&next)

	if next.FailedCount < p.acked {
		p.acked = next.FailedCount
	}
	next.NeedsAttention = next.FailedCount > p.acked
	if next.NeedsAttention && next.Status != Syncing {
		next.Status = Error
	}
	next.UpdatedAt = p.clock.Now()

	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if scheduleReset && !next.NeedsAttention && (next.Status == Success || next.Status == Error) {
		gen := p.gen
		p.timer = p.clock.AfterFunc(p.resetDelay, func() { p.reset(gen) })
	}

	p.current = next
	subs := p.subscribers()
	p.mu.Unlock()

	p.logger.Debug(context.Background(), "sync status changed",
		"status", next.Status, "pending", next.PendingCount, "failed", next.FailedCount)

	for _, s := range subs {
		s(next)
	}
}

func (p *Publisher) reset(gen uint64) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if gen != p.gen || p.current.NeedsAttention {
		p.mu.Unlock()
		return
	}
	p.gen++
	p.timer = nil
	p.current.Status = Idle
	p.current.Err = ""
	p.current.UpdatedAt = p.clock.Now()
	next := p.current
	subs := p.subscribers()
	p.mu.Unlock()

	for _, s := range subs {
		s(next)
	}
}

// subscribers must be called with mu held.
func (p *Publisher) subscribers() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		out = append(out, fn)
	}
	return out
}
