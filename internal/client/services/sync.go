// Package services contains the application services the UI talks to.
// This file defines the sync service: local writes that enqueue their own
// upload, sync triggers, status subscription and queue inspection.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmitrijs2005/healthsync/internal/client/localid"
	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/reconciler"
	"github.com/dmitrijs2005/healthsync/internal/client/status"
	"github.com/dmitrijs2005/healthsync/internal/client/store"
	"github.com/dmitrijs2005/healthsync/internal/clockx"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/google/uuid"
)

const (
	statsCacheKey   = "local_stats"
	DefaultStatsTTL = time.Minute
)

// SyncService is the interface the UI layer uses.
//
// Contract:
//   - Enqueue*: validate the payload, then write the record and its queue
//     entry in one local transaction. Nothing is written on error.
//   - TriggerSyncNow: run one drain and wait for it.
//   - SyncInBackground: run one drain without waiting.
//   - GetPendingCount: live queue entries, parked failures included.
//   - RetryFailed: move a parked entry back to the pending queue.
type SyncService interface {
	EnqueueParentCreate(ctx context.Context, p models.Patient) (string, error)
	EnqueueDependentCreate(ctx context.Context, parentLocalID string, s models.Screening) (string, error)
	TriggerSyncNow(ctx context.Context) (reconciler.Result, error)
	SyncInBackground(reason string)
	SubscribeStatus(fn func(status.Snapshot)) (unsubscribe func())
	CurrentStatus() status.Snapshot
	// LastResult is the outcome of the last finished drain, nil before the first.
	LastResult() *reconciler.Result
	GetPendingCount(ctx context.Context) (int, error)
	LocalStats(ctx context.Context) (LocalStats, error)
	ListPatients(ctx context.Context) ([]*models.Record, error)
	ListScreenings(ctx context.Context, parentLocalID string) ([]*models.DependentRecord, error)
	ListFailed(ctx context.Context) ([]*models.QueueEntry, error)
	RetryFailed(ctx context.Context, entryID string) error
	AcknowledgeFailures()
	// RefreshStatus publishes the current queue counters.
	RefreshStatus(ctx context.Context) error
	// Close stops scheduled retries and waits for background drains.
	Close()
}

// LocalStats summarizes what is kept on the device.
type LocalStats struct {
	Patients   int `json:"local_patients"`
	Screenings int `json:"local_screenings"`
	Pending    int `json:"pending_sync"`
	Failed     int `json:"failed_sync"`
}

// Syncer runs drains. *reconciler.Reconciler implements it.
type Syncer interface {
	Trigger(ctx context.Context, reason string) (reconciler.Result, error)
	LastResult() *reconciler.Result
}

type OnlineChecker interface {
	Online() bool
}

type SyncOptions struct {
	// AutoSync starts a background drain after local writes while online.
	AutoSync bool
	// RetryBackoffMin and RetryBackoffMax bound the delay before a drain
	// that left retriable failures is repeated. A zero max disables it.
	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration
	StatsTTL        time.Duration
	Clock           clockx.Clock
	IDs             localid.Allocator
}

type syncService struct {
	store     *store.Store
	syncer    Syncer
	publisher *status.Publisher
	online    OnlineChecker
	opts      SyncOptions
	logger    logging.Logger

	wg        sync.WaitGroup
	bgMu      sync.Mutex
	bgRunning bool
	// bgAgain asks the running drain loop for one more pass.
	bgAgain   bool
	closed    bool

	retryMu    sync.Mutex
	retryTimer clockx.Timer
	backoff    *backoff.ExponentialBackOff
}

// NewSyncService wires the service. publisher is also expected to be the
// reconciler's status sink.
func NewSyncService(st *store.Store, syncer Syncer, publisher *status.Publisher, online OnlineChecker, opts SyncOptions, logger logging.Logger) SyncService {
	if opts.Clock == nil {
		opts.Clock = clockx.Real{}
	}
	if opts.IDs == nil {
		opts.IDs = localid.UUIDAllocator{}
	}
	if opts.StatsTTL <= 0 {
		opts.StatsTTL = DefaultStatsTTL
	}

	s := &syncService{
		store:     st,
		syncer:    syncer,
		publisher: publisher,
		online:    online,
		opts:      opts,
		logger:    logger.With("module", "services"),
	}

	if opts.RetryBackoffMax > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = opts.RetryBackoffMin
		if b.InitialInterval <= 0 || b.InitialInterval > opts.RetryBackoffMax {
			b.InitialInterval = opts.RetryBackoffMax
		}
		b.MaxInterval = opts.RetryBackoffMax
		b.MaxElapsedTime = 0
		b.Reset()
		s.backoff = b
	}
	return s
}

func (s *syncService) EnqueueParentCreate(ctx context.Context, p models.Patient) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode patient: %w", err)
	}

	localID := s.opts.IDs.NewID()
	now := s.opts.Clock.Now()

	err = s.store.Transaction(ctx, func(ctx context.Context, tx *store.Tx) error {
		rec := &models.Record{LocalID: localID, Payload: payload, CreatedAt: now}
		if err := tx.Parents.Put(ctx, rec); err != nil {
			return fmt.Errorf("failed to save patient: %w", err)
		}
		return tx.Queue.Enqueue(ctx, newCreateEntry(models.EntityParent, localID, payload, now))
	})
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "patient saved locally", "local_id", localID)
	s.afterWrite(ctx)
	return localID, nil
}

func (s *syncService) EnqueueDependentCreate(ctx context.Context, parentLocalID string, sc models.Screening) (string, error) {
	if err := sc.Validate(); err != nil {
		return "", err
	}
	payload, err := json.Marshal(sc)
	if err != nil {
		return "", fmt.Errorf("failed to encode screening: %w", err)
	}

	localID := s.opts.IDs.NewID()
	now := s.opts.Clock.Now()

	err = s.store.Transaction(ctx, func(ctx context.Context, tx *store.Tx) error {
		parent, err := tx.Parents.Get(ctx, parentLocalID)
		if err != nil {
			return fmt.Errorf("failed to load patient %s: %w", parentLocalID, err)
		}
		rec := &models.DependentRecord{
			Record:        models.Record{LocalID: localID, Payload: payload, CreatedAt: now},
			ParentLocalID: parent.LocalID,
		}
		if err := tx.Dependents.Put(ctx, rec); err != nil {
			return fmt.Errorf("failed to save screening: %w", err)
		}
		return tx.Queue.Enqueue(ctx, newCreateEntry(models.EntityDependent, localID, payload, now))
	})
	if err != nil {
		return "", err
	}

	s.logger.Info(ctx, "screening saved locally", "local_id", localID, "patient_local_id", parentLocalID)
	s.afterWrite(ctx)
	return localID, nil
}

func newCreateEntry(typ models.EntityType, localID string, payload json.RawMessage, now time.Time) *models.QueueEntry {
	return &models.QueueEntry{
		ID:            uuid.NewString(),
		EntityType:    typ,
		Action:        models.ActionCreate,
		TargetLocalID: localID,
		Snapshot:      payload,
		State:         models.QueueStatePending,
		CreatedAt:     now,
	}
}

func (s *syncService) afterWrite(ctx context.Context) {
	s.invalidateStats(ctx)
	if err := s.RefreshStatus(ctx); err != nil {
		s.logger.Warn(ctx, "failed to refresh status", "error", err)
	}
	if s.opts.AutoSync && s.online.Online() {
		s.SyncInBackground("local write")
	}
}

func (s *syncService) TriggerSyncNow(ctx context.Context) (reconciler.Result, error) {
	res, err := s.syncer.Trigger(ctx, "manual")
	followUp := s.afterDrain(ctx, res, err)

	s.bgMu.Lock()
	if s.bgAgain && !s.bgRunning {
		s.bgAgain = false
		followUp = true
	}
	s.bgMu.Unlock()

	if followUp {
		s.SyncInBackground("follow-up")
	}
	return res, err
}

// SyncInBackground starts a drain loop unless one is running, in which case
// the running loop performs one more drain when the current one ends.
func (s *syncService) SyncInBackground(reason string) {
	s.bgMu.Lock()
	if s.closed {
		s.bgMu.Unlock()
		return
	}
	if s.bgRunning {
		s.bgAgain = true
		s.bgMu.Unlock()
		return
	}
	s.bgRunning = true
	s.wg.Add(1)
	s.bgMu.Unlock()

	go func() {
		defer s.wg.Done()
		ctx := context.Background()
		for {
			res, err := s.syncer.Trigger(ctx, reason)
			followUp := s.afterDrain(ctx, res, err)

			s.bgMu.Lock()
			if errors.Is(err, reconciler.ErrAlreadyDraining) {
				// a manual drain is running; it picks the request up
				s.bgAgain = true
				followUp = false
			} else if s.bgAgain {
				s.bgAgain = false
				followUp = true
			}
			if !followUp || s.closed {
				s.bgRunning = false
				s.bgMu.Unlock()
				return
			}
			s.bgMu.Unlock()
			reason = "follow-up"
		}
	}()
}

// afterDrain refreshes derived state and schedules a retry. It reports
// whether another drain should follow right away.
func (s *syncService) afterDrain(ctx context.Context, res reconciler.Result, err error) bool {
	switch {
	case errors.Is(err, reconciler.ErrAlreadyDraining):
		return false
	case errors.Is(err, reconciler.ErrOffline), errors.Is(err, reconciler.ErrUnauthenticated):
		s.logger.Debug(ctx, "sync not started", "reason", err)
		return false
	case err != nil:
		s.logger.Error(ctx, "sync finished with error", "error", err)
	}

	s.invalidateStats(ctx)
	s.scheduleRetry(ctx, res)

	// dependents deferred behind parents that synced in this drain
	return s.opts.AutoSync && res.Skipped > 0 && res.Synced > 0
}

func (s *syncService) scheduleRetry(ctx context.Context, res reconciler.Result) {
	if s.backoff == nil {
		return
	}

	s.retryMu.Lock()
	defer s.retryMu.Unlock()

	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if res.RetriableFailures == 0 {
		s.backoff.Reset()
		return
	}
	d := s.backoff.NextBackOff()
	if d == backoff.Stop {
		return
	}
	s.logger.Info(ctx, "retry scheduled", "in", d, "retriable", res.RetriableFailures)
	s.retryTimer = s.opts.Clock.AfterFunc(d, func() { s.SyncInBackground("retry") })
}

func (s *syncService) SubscribeStatus(fn func(status.Snapshot)) func() {
	return s.publisher.Subscribe(fn)
}

func (s *syncService) CurrentStatus() status.Snapshot {
	return s.publisher.Current()
}

func (s *syncService) LastResult() *reconciler.Result {
	return s.syncer.LastResult()
}

func (s *syncService) GetPendingCount(ctx context.Context) (int, error) {
	pending, failed, err := s.counts(ctx)
	if err != nil {
		return 0, err
	}
	return pending + failed, nil
}

func (s *syncService) counts(ctx context.Context) (pending, failed int, err error) {
	pending, err = s.store.Queue.CountPending(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	failed, err = s.store.Queue.CountFailed(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count failed entries: %w", err)
	}
	return pending, failed, nil
}

func (s *syncService) RefreshStatus(ctx context.Context) error {
	pending, failed, err := s.counts(ctx)
	if err != nil {
		return err
	}
	s.publisher.UpdateCounts(pending+failed, failed)
	return nil
}

func (s *syncService) LocalStats(ctx context.Context) (LocalStats, error) {
	var stats LocalStats

	cached, err := s.store.Cache.Get(ctx, statsCacheKey)
	if err != nil {
		s.logger.Warn(ctx, "failed to read stats cache", "error", err)
	}
	if cached != nil && json.Unmarshal(cached, &stats) == nil {
		return stats, nil
	}

	if stats.Patients, err = s.store.Parents.Count(ctx); err != nil {
		return LocalStats{}, fmt.Errorf("failed to count patients: %w", err)
	}
	if stats.Screenings, err = s.store.Dependents.Count(ctx); err != nil {
		return LocalStats{}, fmt.Errorf("failed to count screenings: %w", err)
	}
	pending, failed, err := s.counts(ctx)
	if err != nil {
		return LocalStats{}, err
	}
	stats.Pending = pending + failed
	stats.Failed = failed

	if b, err := json.Marshal(stats); err == nil {
		if err := s.store.Cache.Set(ctx, statsCacheKey, b, s.opts.StatsTTL); err != nil {
			s.logger.Warn(ctx, "failed to cache stats", "error", err)
		}
	}
	return stats, nil
}

func (s *syncService) invalidateStats(ctx context.Context) {
	if err := s.store.Cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.Warn(ctx, "failed to invalidate stats cache", "error", err)
	}
}

func (s *syncService) ListPatients(ctx context.Context) ([]*models.Record, error) {
	return s.store.Parents.GetAll(ctx)
}

func (s *syncService) ListScreenings(ctx context.Context, parentLocalID string) ([]*models.DependentRecord, error) {
	if _, err := s.store.Parents.Get(ctx, parentLocalID); err != nil {
		return nil, err
	}
	return s.store.Dependents.Query(ctx, models.Filter{Field: models.FieldParentLocalID, Value: parentLocalID})
}

func (s *syncService) ListFailed(ctx context.Context) ([]*models.QueueEntry, error) {
	return s.store.Queue.ListFailed(ctx)
}

func (s *syncService) RetryFailed(ctx context.Context, entryID string) error {
	if err := s.store.Queue.Requeue(ctx, entryID); err != nil {
		return fmt.Errorf("failed to requeue entry %s: %w", entryID, err)
	}
	s.logger.Info(ctx, "failed entry requeued", "entry", entryID)
	s.afterWrite(ctx)
	return nil
}

func (s *syncService) AcknowledgeFailures() {
	s.publisher.Acknowledge()
}

func (s *syncService) Close() {
	s.bgMu.Lock()
	s.closed = true
	s.bgMu.Unlock()

	s.retryMu.Lock()
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.retryMu.Unlock()

	s.wg.Wait()
}
