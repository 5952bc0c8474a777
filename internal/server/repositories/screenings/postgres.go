package screenings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/dbx"
	"github.com/dmitrijs2005/healthsync/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// foreignKeyViolation is the SQLSTATE of a broken patient reference.
const foreignKeyViolation = "23503"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Screening) (int64, bool, error) {
	query :=
		`INSERT INTO screenings (patient_id, idempotency_key, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (idempotency_key) DO NOTHING
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, s.PatientID, s.IdempotencyKey, string(s.Payload)).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return 0, false, fmt.Errorf("patient %d: %w", s.PatientID, common.ErrParentNotFound)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("db error: %w", err)
	}

	query =
		`SELECT id FROM screenings
		 WHERE idempotency_key = $1
		 `

	if err := r.db.QueryRowContext(ctx, query, s.IdempotencyKey).Scan(&id); err != nil {
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return id, false, nil
}

func (r *PostgresRepository) ListByPatient(ctx context.Context, patientID int64) ([]*models.Screening, error) {
	query :=
		`SELECT id, patient_id, idempotency_key, payload, created_at FROM screenings
		 WHERE patient_id = $1
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Screening
	for rows.Next() {
		s := &models.Screening{}
		var payload []byte
		if err := rows.Scan(&s.ID, &s.PatientID, &s.IdempotencyKey, &payload, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.Payload = payload
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
