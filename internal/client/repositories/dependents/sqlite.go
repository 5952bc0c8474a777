package dependents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/dbx"
)

const selectColumns = `SELECT local_id, parent_local_id, parent_server_id, server_id, synced, payload, created_at FROM dependents`

const orderBy = ` ORDER BY created_at, rowid`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.DependentRecord) error {
	if rec.LocalID == "" || rec.ParentLocalID == "" {
		return errors.New("failed to put dependent: empty local id")
	}
	if rec.Synced != (rec.ServerID != nil) {
		return fmt.Errorf("failed to put dependent %s: synced flag does not match server id", rec.LocalID)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dependents (local_id, parent_local_id, parent_server_id, server_id, synced, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			parent_server_id = COALESCE(dependents.parent_server_id, excluded.parent_server_id),
			server_id = COALESCE(dependents.server_id, excluded.server_id),
			synced = MAX(dependents.synced, excluded.synced),
			payload = excluded.payload
		WHERE dependents.server_id IS NULL OR excluded.server_id IS NULL OR dependents.server_id = excluded.server_id
	`, rec.LocalID, rec.ParentLocalID, nullInt64(rec.ParentServerID), nullInt64(rec.ServerID),
		rec.Synced, string(rec.Payload), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to put dependent %s: %w", rec.LocalID, err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if !ok {
		return fmt.Errorf("dependent %s: %w", rec.LocalID, common.ErrServerIDConflict)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, localID string) (*models.DependentRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, selectColumns+` WHERE local_id = ?`, localID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dependent %s: %w", localID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dependent %s: %w", localID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.DependentRecord, error) {
	return r.list(ctx, selectColumns+orderBy)
}

func (r *SQLiteRepository) Query(ctx context.Context, f models.Filter) ([]*models.DependentRecord, error) {
	switch f.Field {
	case models.FieldSynced:
		synced, ok := f.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("filter %s: want bool, got %T", f.Field, f.Value)
		}
		return r.list(ctx, selectColumns+` WHERE synced = ?`+orderBy, synced)
	case models.FieldParentLocalID:
		parent, ok := f.Value.(string)
		if !ok {
			return nil, fmt.Errorf("filter %s: want string, got %T", f.Field, f.Value)
		}
		return r.list(ctx, selectColumns+` WHERE parent_local_id = ?`+orderBy, parent)
	case models.FieldServerID:
		if f.Value == nil {
			return r.list(ctx, selectColumns+` WHERE server_id IS NULL`+orderBy)
		}
		id, ok := f.Value.(int64)
		if !ok {
			return nil, fmt.Errorf("filter %s: want int64, got %T", f.Field, f.Value)
		}
		return r.list(ctx, selectColumns+` WHERE server_id = ?`+orderBy, id)
	default:
		return nil, fmt.Errorf("dependents.%s: %w", f.Field, common.ErrUnknownIndex)
	}
}

func (r *SQLiteRepository) SetServerID(ctx context.Context, localID string, serverID, parentServerID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dependents SET server_id = ?, parent_server_id = ?, synced = 1
		WHERE local_id = ? AND (server_id IS NULL OR server_id = ?)
	`, serverID, parentServerID, localID, serverID)
	if err != nil {
		return fmt.Errorf("failed to set server id of dependent %s: %w", localID, err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ok {
		return nil
	}
	if _, err := r.Get(ctx, localID); err != nil {
		return err
	}
	return fmt.Errorf("dependent %s: %w", localID, common.ErrServerIDConflict)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dependents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dependents: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.DependentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select dependents: %w", err)
	}
	defer rows.Close()

	var result []*models.DependentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dependent row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependent rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.DependentRecord, error) {
	var (
		rec            models.DependentRecord
		parentServerID sql.NullInt64
		serverID       sql.NullInt64
		payload        string
		createdAt      int64
	)
	err := s.Scan(&rec.LocalID, &rec.ParentLocalID, &parentServerID, &serverID, &rec.Synced, &payload, &createdAt)
	if err != nil {
		return nil, err
	}
	if parentServerID.Valid {
		id := parentServerID.Int64
		rec.ParentServerID = &id
	}
	if serverID.Valid {
		id := serverID.Int64
		rec.ServerID = &id
	}
	rec.Payload = []byte(payload)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
