// Package dependents persists dependent records (screenings). Every row
// references its parent by local id; the parent's server id is copied in
// when the dependent itself is acknowledged by the remote service.
package dependents

import (
	"context"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
)

type Repository interface {
	Put(ctx context.Context, rec *models.DependentRecord) error
	// Get returns common.ErrNotFound when no record has localID.
	Get(ctx context.Context, localID string) (*models.DependentRecord, error)
	GetAll(ctx context.Context) ([]*models.DependentRecord, error)
	// Query filters on an indexed field (synced, parent_local_id, server_id).
	Query(ctx context.Context, f models.Filter) ([]*models.DependentRecord, error)
	// SetServerID marks the record synced with the ids the server assigned.
	SetServerID(ctx context.Context, localID string, serverID, parentServerID int64) error
	Count(ctx context.Context) (int, error)
}
