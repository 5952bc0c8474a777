// Package patients stores patient records on the server.
package patients

import (
	"context"

	"github.com/dmitrijs2005/healthsync/internal/server/models"
)

type Repository interface {
	// Create stores p unless a patient with the same idempotency key
	// exists. It returns the id of the stored row, or of the existing one
	// with created set to false.
	Create(ctx context.Context, p *models.Patient) (id int64, created bool, err error)
	Get(ctx context.Context, id int64) (*models.Patient, error)
}
