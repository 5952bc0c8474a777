package patients

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/server/models"
)

// MemoryRepository keeps patients in process memory. Ids start at 1.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Patient
	byKey  map[string]int64
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		byID:   make(map[int64]*models.Patient),
		byKey:  make(map[string]int64),
		now:    time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, p *models.Patient) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[p.IdempotencyKey]; ok {
		return id, false, nil
	}

	stored := *p
	stored.ID = r.nextID
	stored.CreatedAt = r.now()
	r.nextID++

	r.byID[stored.ID] = &stored
	r.byKey[stored.IdempotencyKey] = stored.ID
	return stored.ID, true, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id int64) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("patient %d: %w", id, common.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}
