package parents

import (
	"context"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
)

// Repository persists parent records.
type Repository interface {
	// Put inserts rec or replaces the stored record with the same LocalID.
	// CreatedAt of an existing record is preserved.
	Put(ctx context.Context, rec *models.Record) error

	// Get returns common.ErrNotFound when no record has localID.
	Get(ctx context.Context, localID string) (*models.Record, error)

	// GetAll returns every record in creation order.
	GetAll(ctx context.Context) ([]*models.Record, error)

	// Query filters on an indexed field (synced, server_id).
	Query(ctx context.Context, f models.Filter) ([]*models.Record, error)

	// SetServerID records the server-assigned id and marks the record synced.
	// Repeating the call with the same id is a no-op; a different id fails
	// with common.ErrServerIDConflict.
	SetServerID(ctx context.Context, localID string, serverID int64) error

	Count(ctx context.Context) (int, error)
}
