package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/dbx"
	"github.com/dmitrijs2005/healthsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Patient) (int64, bool, error) {
	query :=
		`INSERT INTO patients (idempotency_key, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (idempotency_key) DO NOTHING
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, p.IdempotencyKey, string(p.Payload)).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("db error: %w", err)
	}

	query =
		`SELECT id FROM patients
		 WHERE idempotency_key = $1
		 `

	if err := r.db.QueryRowContext(ctx, query, p.IdempotencyKey).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return id, false, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Patient, error) {
	query :=
		`SELECT id, idempotency_key, payload, created_at FROM patients
		 WHERE id = $1
		 `

	p := &models.Patient{}
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.IdempotencyKey, &payload, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patient %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Payload = payload
	return p, nil
}
