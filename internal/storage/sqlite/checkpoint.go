package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

// SaveCheckpoint upserts the cursor state for a named backfill job. Called
// after each processed row so an interrupted run resumes exactly where it
// left off.
func (s *PostStore) SaveCheckpoint(ctx context.Context, cp *types.BackfillCheckpoint) error {
	if cp == nil || cp.JobName == "" {
		return fmt.Errorf("%w: job name is required", storage.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backfill_checkpoints (job_name, cursor_created_at, cursor_id, processed_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_name) DO UPDATE SET
			cursor_created_at = excluded.cursor_created_at,
			cursor_id = excluded.cursor_id,
			processed_count = excluded.processed_count,
			updated_at = excluded.updated_at`,
		cp.JobName,
		cp.CursorCreatedAt.UTC(),
		cp.CursorID,
		cp.ProcessedCount,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save checkpoint %s: %w", cp.JobName, err)
	}
	return nil
}

// GetCheckpoint reads the cursor for a named job. Returns ErrNotFound when
// the job has never checkpointed.
func (s *PostStore) GetCheckpoint(ctx context.Context, jobName string) (*types.BackfillCheckpoint, error) {
	if jobName == "" {
		return nil, fmt.Errorf("%w: job name is required", storage.ErrInvalidInput)
	}

	var cp types.BackfillCheckpoint
	err := s.db.QueryRowContext(ctx,
		"SELECT job_name, cursor_created_at, cursor_id, processed_count FROM backfill_checkpoints WHERE job_name = ?",
		jobName,
	).Scan(&cp.JobName, &cp.CursorCreatedAt, &cp.CursorID, &cp.ProcessedCount)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get checkpoint %s: %w", jobName, err)
	}
	return &cp, nil
}

// DeleteCheckpoint removes a job's cursor. Checkpoints are never deleted
// during normal operation; this is the manual reset.
func (s *PostStore) DeleteCheckpoint(ctx context.Context, jobName string) error {
	if jobName == "" {
		return fmt.Errorf("%w: job name is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM backfill_checkpoints WHERE job_name = ?", jobName)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete checkpoint %s: %w", jobName, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendSyncLog writes an audit record for a completed ingestion run.
func (s *PostStore) AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error {
	if entry == nil || entry.ID == "" || entry.SyncType == "" {
		return fmt.Errorf("%w: sync log entry requires id and sync_type", storage.ErrInvalidInput)
	}

	completedAt := entry.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sync_log (id, sync_type, cursor, posts_synced, completed_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID,
		entry.SyncType,
		nullableString(entry.Cursor),
		entry.PostsSynced,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to append sync log: %w", err)
	}
	return nil
}

// LastSync returns the most recent completed run for a sync type.
func (s *PostStore) LastSync(ctx context.Context, syncType string) (*types.SyncLogEntry, error) {
	if syncType == "" {
		return nil, fmt.Errorf("%w: sync type is required", storage.ErrInvalidInput)
	}

	var entry types.SyncLogEntry
	var cursor sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sync_type, cursor, posts_synced, completed_at
		FROM sync_log
		WHERE sync_type = ?
		ORDER BY completed_at DESC
		LIMIT 1`, syncType,
	).Scan(&entry.ID, &entry.SyncType, &cursor, &entry.PostsSynced, &entry.CompletedAt)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get last sync: %w", err)
	}

	if cursor.Valid {
		entry.Cursor = cursor.String
	}
	return &entry, nil
}
