package queue

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

const selectColumns = `SELECT seq, id, entity_type, action, target_local_id, snapshot,
	attempts, last_attempt_at, last_error, state, created_at FROM queue_entries`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, e *models.QueueEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}
	if e.State == "" {
		e.State = models.QueueStatePending
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO queue_entries (id, entity_type, action, target_local_id, snapshot,
			attempts, last_attempt_at, last_error, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.EntityType), string(e.Action), e.TargetLocalID, string(e.Snapshot),
		e.Attempts, nullTime(e.LastAttemptAt), nullString(e.LastError), string(e.State), e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", e.ID, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read queue sequence: %w", err)
	}
	e.Seq = seq
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.QueueEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("queue entry %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry %s: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.QueueEntry, error) {
	return r.list(ctx, selectColumns+`
		WHERE state = 'pending'
		ORDER BY CASE entity_type WHEN 'parent' THEN 0 ELSE 1 END, seq`)
}

func (r *SQLiteRepository) ListFailed(ctx context.Context) ([]*models.QueueEntry, error) {
	return r.list(ctx, selectColumns+` WHERE state = 'failed' ORDER BY seq`)
}

func (r *SQLiteRepository) MarkAttempt(ctx context.Context, id string, errMsg string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE queue_entries
		SET attempts = attempts + 1, last_attempt_at = ?, last_error = ?
		WHERE id = ?
	`, at.UnixNano(), errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to mark attempt of %s: %w", id, err)
	}
	return expectRow(res, id)
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE queue_entries SET state = 'failed' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark %s failed: %w", id, err)
	}
	return expectRow(res, id)
}

func (r *SQLiteRepository) Requeue(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE queue_entries SET state = 'pending' WHERE id = ? AND state = 'failed'`, id)
	if err != nil {
		return fmt.Errorf("failed to requeue %s: %w", id, err)
	}
	return expectRow(res, id)
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove queue entry %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	return r.count(ctx, models.QueueStatePending)
}

func (r *SQLiteRepository) CountFailed(ctx context.Context) (int, error) {
	return r.count(ctx, models.QueueStateFailed)
}

func (r *SQLiteRepository) count(ctx context.Context, state models.QueueState) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_entries WHERE state = ?`, string(state)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s queue entries: %w", state, err)
	}
	return n, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string) ([]*models.QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue entries: %w", err)
	}
	defer rows.Close()

	var result []*models.QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return result, nil
}

func expectRow(res sql.Result, id string) error {
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if !ok {
		return fmt.Errorf("queue entry %s: %w", id, common.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.QueueEntry, error) {
	var (
		e             models.QueueEntry
		entityType    string
		action        string
		snapshot      string
		lastAttemptAt sql.NullInt64
		lastError     sql.NullString
		state         string
		createdAt     int64
	)
	err := s.Scan(&e.Seq, &e.ID, &entityType, &action, &e.TargetLocalID, &snapshot,
		&e.Attempts, &lastAttemptAt, &lastError, &state, &createdAt)
	if err != nil {
		return nil, err
	}
	e.EntityType = models.EntityType(entityType)
	e.Action = models.Action(action)
	e.Snapshot = []byte(snapshot)
	e.State = models.QueueState(state)
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	if lastAttemptAt.Valid {
		t := time.Unix(0, lastAttemptAt.Int64).UTC()
		e.LastAttemptAt = &t
	}
	if lastError.Valid {
		msg := lastError.String
		e.LastError = &msg
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
