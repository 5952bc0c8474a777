// Package screenings stores screening records on the server.
package screenings

import (
	"context"

	"github.com/dmitrijs2005/healthsync/internal/server/models"
)

type Repository interface {
	// Create stores s unless a screening with the same idempotency key
	// exists, in which case the existing id is returned with created set
	// to false. A missing patient yields common.ErrParentNotFound.
	Create(ctx context.Context, s *models.Screening) (id int64, created bool, err error)
	ListByPatient(ctx context.Context, patientID int64) ([]*models.Screening, error)
}
