// Package reconciler drains the sync queue into the remote service.
//
// A drain takes one snapshot of the pending entries, parents first, and
// walks it sequentially. Each create carries the record's local id as the
// idempotency key, so a call repeated after an ambiguous failure does not
// create a second server record. On success the server id is written into
// the record and the queue entry is deleted in the same local transaction.
// Failures are recorded on the entry and classified: retriable entries wait
// for the next trigger, terminal ones are parked until the user retries
// them.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/remote"
	"github.com/dmitrijs2005/healthsync/internal/client/store"
	"github.com/dmitrijs2005/healthsync/internal/clockx"
	"github.com/dmitrijs2005/healthsync/internal/logging"
)

var (
	ErrAlreadyDraining = errors.New("sync already in progress")
	ErrOffline         = errors.New("remote service is offline")
	ErrUnauthenticated = errors.New("no access token configured")
)

const DefaultRequestTimeout = 10 * time.Second

type State string

const (
	StateIdle            State = "idle"
	StateDraining        State = "draining"
	StateSucceeded       State = "succeeded"
	StatePartiallyFailed State = "partially_failed"
)

// Result summarizes one drain.
type Result struct {
	Attempted         int `json:"attempted"`
	Synced            int `json:"synced"`
	Skipped           int `json:"skipped"`
	RetriableFailures int `json:"retriable_failures"`
	TerminalFailures  int `json:"terminal_failures"`

	// Pending is the number of live entries left after the drain, parked
	// failures included.
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
	// LastError describes the last failure seen.
	LastError string `json:"last_error,omitempty"`
}

func (r Result) Failures() int {
	return r.RetriableFailures + r.TerminalFailures
}

// OnlineChecker reports the current connectivity state.
type OnlineChecker interface {
	Online() bool
}

// StatusSink receives drain progress. *status.Publisher implements it.
type StatusSink interface {
	Syncing(pending, failed int)
	Finished(pending, failed, failures int, lastErr string)
}

// Recorder receives drain metrics. *metrics.Metrics implements it.
type Recorder interface {
	ObserveDrain(result string, d time.Duration)
	IncSynced(entity string)
	IncFailure(entity, class string)
	IncSkipped()
	SetPending(n int)
}

type Config struct {
	RequestTimeout time.Duration
	// HasCredentials reports whether the remote service can be called at
	// all. Nil means always.
	HasCredentials func() bool
	Clock          clockx.Clock
	Status         StatusSink
	Recorder       Recorder
}

type Reconciler struct {
	store   *store.Store
	remote  remote.Service
	online  OnlineChecker
	cfg     Config
	logger  logging.Logger
	running atomic.Bool

	mu    sync.Mutex
	state State
	last  *Result
}

func New(st *store.Store, svc remote.Service, online OnlineChecker, cfg Config, logger logging.Logger) *Reconciler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clockx.Real{}
	}
	return &Reconciler{
		store:  st,
		remote: svc,
		online: online,
		cfg:    cfg,
		logger: logger.With("module", "reconciler"),
		state:  StateIdle,
	}
}

// State returns the current drain state. Succeeded and PartiallyFailed
// describe the last finished drain until the next one starts.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastResult returns the outcome of the last finished drain, or nil.
func (r *Reconciler) LastResult() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	res := *r.last
	return &res
}

func (r *Reconciler) setState(s State, res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	if res != nil {
		r.last = res
	}
}

// Trigger runs one drain unless one is already running or the remote
// service is unreachable. The drain is not cancelled when ctx is; an entry
// in flight is finished and recorded before Trigger returns.
//
// Per-entry failures never make Trigger fail. A non-nil error alongside a
// Result means the final pending count could not be read.
func (r *Reconciler) Trigger(ctx context.Context, reason string) (Result, error) {
	if !r.online.Online() {
		return Result{}, ErrOffline
	}
	if r.cfg.HasCredentials != nil && !r.cfg.HasCredentials() {
		return Result{}, ErrUnauthenticated
	}
	if !r.running.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyDraining
	}
	defer r.running.Store(false)

	ctx = context.WithoutCancel(ctx)
	log := r.logger.With("trigger", reason)

	r.setState(StateDraining, nil)
	start := r.cfg.Clock.Now()

	res, err := r.drain(ctx, log)

	outcome := StateSucceeded
	if res.Failures() > 0 {
		outcome = StatePartiallyFailed
	}
	r.setState(outcome, &res)

	if r.cfg.Recorder != nil {
		r.cfg.Recorder.ObserveDrain(string(outcome), r.cfg.Clock.Now().Sub(start))
		r.cfg.Recorder.SetPending(res.Pending)
	}
	if r.cfg.Status != nil {
		r.cfg.Status.Finished(res.Pending, res.Failed, res.Failures(), res.LastError)
	}

	log.Info(ctx, "drain finished",
		"state", outcome,
		"attempted", res.Attempted,
		"synced", res.Synced,
		"skipped", res.Skipped,
		"retriable", res.RetriableFailures,
		"terminal", res.TerminalFailures,
		"pending", res.Pending,
	)
	return res, err
}

func (r *Reconciler) drain(ctx context.Context, log logging.Logger) (Result, error) {
	var res Result

	entries, err := r.store.Queue.ListPending(ctx)
	if err != nil {
		res.RetriableFailures++
		res.LastError = err.Error()
		log.Error(ctx, "failed to list pending entries", "error", err)
		return r.recount(ctx, res)
	}

	// Parents pending at snapshot time: their dependents wait for the
	// next drain even if the parent syncs earlier in this one.
	pendingParents := make(map[string]struct{})
	for _, e := range entries {
		if e.EntityType == models.EntityParent {
			pendingParents[e.TargetLocalID] = struct{}{}
		}
	}

	if r.cfg.Status != nil {
		failed, err := r.store.Queue.CountFailed(ctx)
		if err != nil {
			log.Error(ctx, "failed to count failed entries", "error", err)
		}
		r.cfg.Status.Syncing(len(entries)+failed, failed)
	}
	log.Info(ctx, "drain started", "entries", len(entries))

	for _, e := range entries {
		o := r.process(ctx, log, e, pendingParents)
		switch o.kind {
		case outcomeSynced:
			res.Attempted++
			res.Synced++
			r.record(func(rec Recorder) { rec.IncSynced(string(e.EntityType)) })
		case outcomeSkipped:
			res.Skipped++
			r.record(func(rec Recorder) { rec.IncSkipped() })
		case outcomeRetriable:
			res.Attempted++
			res.RetriableFailures++
			res.LastError = o.err.Error()
			r.record(func(rec Recorder) { rec.IncFailure(string(e.EntityType), remote.Retriable.String()) })
		case outcomeTerminal:
			res.Attempted++
			res.TerminalFailures++
			res.LastError = o.err.Error()
			r.record(func(rec Recorder) { rec.IncFailure(string(e.EntityType), remote.Terminal.String()) })
		}
	}

	return r.recount(ctx, res)
}

func (r *Reconciler) recount(ctx context.Context, res Result) (Result, error) {
	pending, err := r.store.Queue.CountPending(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count pending entries: %w", err)
	}
	failed, err := r.store.Queue.CountFailed(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count failed entries: %w", err)
	}
	res.Pending = pending + failed
	res.Failed = failed
	return res, nil
}

func (r *Reconciler) record(fn func(Recorder)) {
	if r.cfg.Recorder != nil {
		fn(r.cfg.Recorder)
	}
}
