package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

func TestCheckpointRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cursorAt := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.SaveCheckpoint(ctx, &types.BackfillCheckpoint{
		JobName:         "backfill",
		CursorCreatedAt: cursorAt,
		CursorID:        "p042",
		ProcessedCount:  42,
	}))

	cp, err := store.GetCheckpoint(ctx, "backfill")
	require.NoError(t, err)
	assert.Equal(t, "backfill", cp.JobName)
	assert.Equal(t, "p042", cp.CursorID)
	assert.Equal(t, 42, cp.ProcessedCount)
	assert.True(t, cp.CursorCreatedAt.Equal(cursorAt))
}

func TestCheckpointUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveCheckpoint(ctx, &types.BackfillCheckpoint{
		JobName: "job", CursorCreatedAt: base, CursorID: "a", ProcessedCount: 1,
	}))
	require.NoError(t, store.SaveCheckpoint(ctx, &types.BackfillCheckpoint{
		JobName: "job", CursorCreatedAt: base.Add(time.Hour), CursorID: "b", ProcessedCount: 2,
	}))

	cp, err := store.GetCheckpoint(ctx, "job")
	require.NoError(t, err)
	assert.Equal(t, "b", cp.CursorID)
	assert.Equal(t, 2, cp.ProcessedCount)
}

func TestCheckpointNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCheckpoint(context.Background(), "never-ran")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteCheckpoint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCheckpoint(ctx, &types.BackfillCheckpoint{
		JobName: "job", CursorCreatedAt: time.Now().UTC(), CursorID: "a", ProcessedCount: 1,
	}))

	require.NoError(t, store.DeleteCheckpoint(ctx, "job"))
	_, err := store.GetCheckpoint(ctx, "job")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.DeleteCheckpoint(ctx, "job"), storage.ErrNotFound)
}

func TestCheckpointValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveCheckpoint(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveCheckpoint(ctx, &types.BackfillCheckpoint{}), storage.ErrInvalidInput)
	_, err := store.GetCheckpoint(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSyncLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendSyncLog(ctx, &types.SyncLogEntry{
		ID: "run-1", SyncType: "bookmark", Cursor: "c1", PostsSynced: 10, CompletedAt: base,
	}))
	require.NoError(t, store.AppendSyncLog(ctx, &types.SyncLogEntry{
		ID: "run-2", SyncType: "bookmark", Cursor: "c2", PostsSynced: 5, CompletedAt: base.Add(time.Hour),
	}))
	require.NoError(t, store.AppendSyncLog(ctx, &types.SyncLogEntry{
		ID: "run-3", SyncType: "live", PostsSynced: 3, CompletedAt: base.Add(2 * time.Hour),
	}))

	last, err := store.LastSync(ctx, "bookmark")
	require.NoError(t, err)
	assert.Equal(t, "run-2", last.ID)
	assert.Equal(t, "c2", last.Cursor)
	assert.Equal(t, 5, last.PostsSynced)

	last, err = store.LastSync(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "run-3", last.ID)
	assert.Empty(t, last.Cursor)

	_, err = store.LastSync(ctx, "archive")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSyncLogValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.AppendSyncLog(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.AppendSyncLog(ctx, &types.SyncLogEntry{ID: "x"}), storage.ErrInvalidInput)
	_, err := store.LastSync(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
