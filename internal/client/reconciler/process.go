package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/remote"
	"github.com/dmitrijs2005/healthsync/internal/client/store"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
)

type outcomeKind int

const (
	outcomeSynced outcomeKind = iota
	outcomeSkipped
	outcomeRetriable
	outcomeTerminal
)

type outcome struct {
	kind outcomeKind
	err  error
}

// process handles one queue entry.
func (r *Reconciler) process(ctx context.Context, log logging.Logger, e *models.QueueEntry, pendingParents map[string]struct{}) outcome {
	log = log.With("entry", e.ID, "entity", e.EntityType, "local_id", e.TargetLocalID)

	if e.Action != models.ActionCreate {
		return r.fail(ctx, log, e, fmt.Errorf("%w: %s", common.ErrUnsupportedAction, e.Action), remote.Terminal)
	}

	switch e.EntityType {
	case models.EntityParent:
		return r.processParent(ctx, log, e)
	case models.EntityDependent:
		return r.processDependent(ctx, log, e, pendingParents)
	default:
		return r.fail(ctx, log, e, fmt.Errorf("unknown entity type %q", e.EntityType), remote.Terminal)
	}
}

func (r *Reconciler) processParent(ctx context.Context, log logging.Logger, e *models.QueueEntry) outcome {
	rec, err := r.store.Parents.Get(ctx, e.TargetLocalID)
	if err != nil {
		return r.failLoad(ctx, log, e, err)
	}
	if rec.Synced {
		return r.clear(ctx, log, e)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	serverID, err := r.remote.CreateParent(callCtx, rec.LocalID, payloadOf(e, rec.Payload))
	cancel()
	if err != nil {
		return r.fail(ctx, log, e, err, remote.Classify(err))
	}

	err = r.store.Transaction(ctx, func(ctx context.Context, tx *store.Tx) error {
		if err := tx.Parents.SetServerID(ctx, rec.LocalID, serverID); err != nil {
			return err
		}
		return tx.Queue.Remove(ctx, e.ID)
	})
	if err != nil {
		return r.failBackfill(ctx, log, e, err)
	}

	log.Info(ctx, "record synced", "server_id", serverID)
	return outcome{kind: outcomeSynced}
}

func (r *Reconciler) processDependent(ctx context.Context, log logging.Logger, e *models.QueueEntry, pendingParents map[string]struct{}) outcome {
	rec, err := r.store.Dependents.Get(ctx, e.TargetLocalID)
	if err != nil {
		return r.failLoad(ctx, log, e, err)
	}
	if rec.Synced {
		return r.clear(ctx, log, e)
	}

	if _, ok := pendingParents[rec.ParentLocalID]; ok {
		log.Debug(ctx, "parent queued in this drain, deferring")
		return outcome{kind: outcomeSkipped}
	}

	parent, err := r.store.Parents.Get(ctx, rec.ParentLocalID)
	if errors.Is(err, common.ErrNotFound) {
		return r.fail(ctx, log, e, fmt.Errorf("%w: %s", common.ErrParentNotFound, rec.ParentLocalID), remote.Terminal)
	}
	if err != nil {
		return r.fail(ctx, log, e, fmt.Errorf("failed to load parent record: %w", err), remote.Retriable)
	}
	if !parent.Synced || parent.ServerID == nil {
		log.Debug(ctx, "parent not synced, deferring", "parent_local_id", rec.ParentLocalID)
		return outcome{kind: outcomeSkipped}
	}
	parentServerID := *parent.ServerID

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	serverID, err := r.remote.CreateDependent(callCtx, rec.LocalID, parentServerID, payloadOf(e, rec.Payload))
	cancel()
	if err != nil {
		return r.fail(ctx, log, e, err, remote.Classify(err))
	}

	err = r.store.Transaction(ctx, func(ctx context.Context, tx *store.Tx) error {
		if err := tx.Dependents.SetServerID(ctx, rec.LocalID, serverID, parentServerID); err != nil {
			return err
		}
		return tx.Queue.Remove(ctx, e.ID)
	})
	if err != nil {
		return r.failBackfill(ctx, log, e, err)
	}

	log.Info(ctx, "record synced", "server_id", serverID, "parent_server_id", parentServerID)
	return outcome{kind: outcomeSynced}
}

// clear drops an entry whose record is already synced.
func (r *Reconciler) clear(ctx context.Context, log logging.Logger, e *models.QueueEntry) outcome {
	if err := r.store.Queue.Remove(ctx, e.ID); err != nil {
		return r.fail(ctx, log, e, fmt.Errorf("failed to remove entry: %w", err), remote.Retriable)
	}
	log.Info(ctx, "record already synced, entry removed")
	return outcome{kind: outcomeSynced}
}

func (r *Reconciler) failLoad(ctx context.Context, log logging.Logger, e *models.QueueEntry, err error) outcome {
	if errors.Is(err, common.ErrNotFound) {
		return r.fail(ctx, log, e, fmt.Errorf("target record missing: %w", err), remote.Terminal)
	}
	return r.fail(ctx, log, e, fmt.Errorf("failed to load record: %w", err), remote.Retriable)
}

// failBackfill handles a local error after the server acknowledged. The
// entry stays queued; the retry carries the same key and gets the same id.
func (r *Reconciler) failBackfill(ctx context.Context, log logging.Logger, e *models.QueueEntry, err error) outcome {
	class := remote.Retriable
	if errors.Is(err, common.ErrServerIDConflict) {
		class = remote.Terminal
	}
	return r.fail(ctx, log, e, fmt.Errorf("failed to store server id: %w", err), class)
}

// fail records the attempt and parks terminal failures. Both writes share
// one transaction.
func (r *Reconciler) fail(ctx context.Context, log logging.Logger, e *models.QueueEntry, err error, class remote.Class) outcome {
	merr := r.store.Transaction(ctx, func(ctx context.Context, tx *store.Tx) error {
		if werr := tx.Queue.MarkAttempt(ctx, e.ID, err.Error(), r.cfg.Clock.Now()); werr != nil {
			return werr
		}
		if class == remote.Terminal {
			return tx.Queue.MarkFailed(ctx, e.ID)
		}
		return nil
	})
	if merr != nil {
		log.Error(ctx, "failed to record attempt", "error", merr)
	}

	if class == remote.Terminal {
		log.Error(ctx, "sync failed permanently", "error", err, "attempts", e.Attempts+1)
		return outcome{kind: outcomeTerminal, err: err}
	}

	log.Warn(ctx, "sync failed, will retry", "error", err, "attempts", e.Attempts+1)
	return outcome{kind: outcomeRetriable, err: err}
}

func payloadOf(e *models.QueueEntry, fallback json.RawMessage) json.RawMessage {
	if len(e.Snapshot) > 0 {
		return e.Snapshot
	}
	return fallback
}
