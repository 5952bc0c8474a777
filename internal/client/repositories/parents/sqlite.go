package parents

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

const selectColumns = `SELECT local_id, server_id, synced, payload, created_at FROM parents`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.Record) error {
	if rec.LocalID == "" {
		return errors.New("failed to put parent: empty local id")
	}
	if rec.Synced != (rec.ServerID != nil) {
		return fmt.Errorf("failed to put parent %s: synced flag does not match server id", rec.LocalID)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO parents (local_id, server_id, synced, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			server_id = COALESCE(parents.server_id, excluded.server_id),
			synced = MAX(parents.synced, excluded.synced),
			payload = excluded.payload
		WHERE parents.server_id IS NULL OR excluded.server_id IS NULL OR parents.server_id = excluded.server_id
	`, rec.LocalID, nullInt64(rec.ServerID), rec.Synced, string(rec.Payload), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to put parent %s: %w", rec.LocalID, err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if !ok {
		return fmt.Errorf("parent %s: %w", rec.LocalID, common.ErrServerIDConflict)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, localID string) (*models.Record, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE local_id = ?`, localID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("parent %s: %w", localID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent %s: %w", localID, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]*models.Record, error) {
	return r.list(ctx, selectColumns+` ORDER BY created_at, rowid`)
}

func (r *SQLiteRepository) Query(ctx context.Context, f models.Filter) ([]*models.Record, error) {
	switch f.Field {
	case models.FieldSynced:
		synced, ok := f.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("filter %s: want bool, got %T", f.Field, f.Value)
		}
		return r.list(ctx, selectColumns+` WHERE synced = ? ORDER BY created_at, rowid`, synced)
	case models.FieldServerID:
		if f.Value == nil {
			return r.list(ctx, selectColumns+` WHERE server_id IS NULL ORDER BY created_at, rowid`)
		}
		id, ok := f.Value.(int64)
		if !ok {
			return nil, fmt.Errorf("filter %s: want int64, got %T", f.Field, f.Value)
		}
		return r.list(ctx, selectColumns+` WHERE server_id = ? ORDER BY created_at, rowid`, id)
	default:
		return nil, fmt.Errorf("parents.%s: %w", f.Field, common.ErrUnknownIndex)
	}
}

func (r *SQLiteRepository) SetServerID(ctx context.Context, localID string, serverID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE parents SET server_id = ?, synced = 1
		WHERE local_id = ? AND (server_id IS NULL OR server_id = ?)
	`, serverID, localID, serverID)
	if err != nil {
		return fmt.Errorf("failed to set server id of parent %s: %w", localID, err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ok {
		return nil
	}

	// Nothing updated: either the record is gone or it already has another id.
	if _, err := r.Get(ctx, localID); err != nil {
		return err
	}
	return fmt.Errorf("parent %s: %w", localID, common.ErrServerIDConflict)
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM parents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count parents: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select parents: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parent row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate parent rows: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		rec       models.Record
		serverID  sql.NullInt64
		payload   string
		createdAt int64
	)
	if err := s.Scan(&rec.LocalID, &serverID, &rec.Synced, &payload, &createdAt); err != nil {
		return nil, err
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
