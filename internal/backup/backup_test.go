package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/internal/storage/sqlite"
	"github.com/scrypster/postvault/pkg/types"
)

// newSeededDB creates a file-backed store with one post and closes it.
func newSeededDB(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "postvault.db")
	store, err := sqlite.NewPostStore(dbPath)
	require.NoError(t, err)

	_, err = store.Upsert(context.Background(), &types.RawPost{
		ID: "p1", Text: "snapshot fixture", CreatedAt: time.Now().UTC(),
	}, types.WriteSourceLive, storage.UpsertOptions{})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	return dbPath
}

func TestSnapshotAndRestore(t *testing.T) {
	dbPath := newSeededDB(t)
	dir := t.TempDir()

	result, err := Snapshot(Options{DBPath: dbPath, Dir: dir, Verify: true})
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Greater(t, result.Size, int64(0))

	// Restore into a fresh location and read the data back.
	restored := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, Restore(result.Path, restored))

	store, err := sqlite.NewPostStore(restored)
	require.NoError(t, err)
	defer store.Close()

	post, err := store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "snapshot fixture", post.ContentText)
}

func TestSnapshotWhileStoreOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "postvault.db")
	store, err := sqlite.NewPostStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Upsert(context.Background(), &types.RawPost{
		ID: "p1", Text: "live write", CreatedAt: time.Now().UTC(),
	}, types.WriteSourceLive, storage.UpsertOptions{})
	require.NoError(t, err)

	// WAL mode allows a consistent snapshot alongside the open writer.
	result, err := Snapshot(Options{DBPath: dbPath, Dir: t.TempDir(), Verify: true})
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

func TestSnapshotValidation(t *testing.T) {
	_, err := Snapshot(Options{})
	assert.Error(t, err)

	_, err = Snapshot(Options{DBPath: "/nonexistent/db.sqlite", Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	dbPath := newSeededDB(t)
	dir := t.TempDir()

	first, err := Snapshot(Options{DBPath: dbPath, Dir: dir})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond) // distinct second-granularity names
	second, err := Snapshot(Options{DBPath: dbPath, Dir: dir})
	require.NoError(t, err)

	paths, err := List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, second.Path, paths[0])
	assert.Equal(t, first.Path, paths[1])
}

func TestPruneKeepsNewest(t *testing.T) {
	dbPath := newSeededDB(t)
	dir := t.TempDir()

	var newest string
	for i := 0; i < 3; i++ {
		result, err := Snapshot(Options{DBPath: dbPath, Dir: dir})
		require.NoError(t, err)
		newest = result.Path
		time.Sleep(1100 * time.Millisecond)
	}

	result, err := Snapshot(Options{DBPath: dbPath, Dir: dir, Keep: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Pruned)

	paths, err := List(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, result.Path, paths[0])
	assert.Equal(t, newest, paths[1])
}
