package repomanager

import (
	"context"

	"github.com/dmitrijs2005/healthsync/internal/server/repositories/patients"
	"github.com/dmitrijs2005/healthsync/internal/server/repositories/screenings"
)

// InMemoryRepositoryManager keeps everything in process memory. Data is
// lost on restart.
type InMemoryRepositoryManager struct {
	patients   *patients.MemoryRepository
	screenings *screenings.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	p := patients.NewMemoryRepository()
	return &InMemoryRepositoryManager{patients: p, screenings: screenings.NewMemoryRepository(p)}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Patients() patients.Repository           { return m.patients }
func (m *InMemoryRepositoryManager) Screenings() screenings.Repository       { return m.screenings }
func (m *InMemoryRepositoryManager) Close() error                            { return nil }
