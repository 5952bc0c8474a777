package queue

import (
	"context"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
)

// Repository is the durable sync queue.
type Repository interface {
	// Enqueue appends e and assigns its Seq.
	Enqueue(ctx context.Context, e *models.QueueEntry) error

	// Get returns common.ErrNotFound when the entry is gone.
	Get(ctx context.Context, id string) (*models.QueueEntry, error)

	// ListPending returns entries in state pending, parents first, then by Seq.
	ListPending(ctx context.Context) ([]*models.QueueEntry, error)

	// ListFailed returns entries parked after a terminal failure, by Seq.
	ListFailed(ctx context.Context) ([]*models.QueueEntry, error)

	// MarkAttempt increments the attempt counter and records the error.
	MarkAttempt(ctx context.Context, id string, errMsg string, at time.Time) error

	// MarkFailed parks the entry until the user retries it.
	MarkFailed(ctx context.Context, id string) error

	// Requeue moves a failed entry back to pending, keeping its attempt history.
	Requeue(ctx context.Context, id string) error

	// Remove deletes the entry. Removing an unknown id is not an error.
	Remove(ctx context.Context, id string) error

	CountPending(ctx context.Context) (int, error)
	CountFailed(ctx context.Context) (int, error)
}
