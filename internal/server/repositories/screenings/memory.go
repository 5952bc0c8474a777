package screenings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/server/models"
)

// PatientLookup is the part of the patient repository the in-memory
// screenings repository needs to enforce the patient reference.
type PatientLookup interface {
	Get(ctx context.Context, id int64) (*models.Patient, error)
}

type MemoryRepository struct {
	patients PatientLookup

	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.Screening
	byKey  map[string]int64
	now    func() time.Time
}

func NewMemoryRepository(patients PatientLookup) *MemoryRepository {
	return &MemoryRepository{
		patients: patients,
		nextID:   1,
		byID:     make(map[int64]*models.Screening),
		byKey:    make(map[string]int64),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, s *models.Screening) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byKey[s.IdempotencyKey]; ok {
		return id, false, nil
	}

	if _, err := r.patients.Get(ctx, s.PatientID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, false, fmt.Errorf("patient %d: %w", s.PatientID, common.ErrParentNotFound)
		}
		return 0, false, err
	}

	stored := *s
	stored.ID = r.nextID
	stored.CreatedAt = r.now()
	r.nextID++

	r.byID[stored.ID] = &stored
	r.byKey[stored.IdempotencyKey] = stored.ID
	return stored.ID, true, nil
}

func (r *MemoryRepository) ListByPatient(ctx context.Context, patientID int64) ([]*models.Screening, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.Screening
	for _, s := range r.byID {
		if s.PatientID == patientID {
			cp := *s
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
