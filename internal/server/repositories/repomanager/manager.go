// Package repomanager vends the server repositories for the configured
// storage backend.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/healthsync/internal/server/repositories/patients"
	"github.com/dmitrijs2005/healthsync/internal/server/repositories/screenings"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Patients() patients.Repository
	Screenings() screenings.Repository
	Close() error
}
