package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/postvault/internal/storage/sqlite"
	"github.com/scrypster/postvault/pkg/types"
)

func newTestStore(t *testing.T) *sqlite.PostStore {
	t.Helper()

	store, err := sqlite.NewPostStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func batch(ids ...string) []*types.RawPost {
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]*types.RawPost, len(ids))
	for i, id := range ids {
		posts[i] = &types.RawPost{
			ID:        id,
			Text:      "content of post " + id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return posts
}

func TestIngestBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ingestor := NewIngestor(store, nil)

	result, err := ingestor.IngestBatch(ctx, batch("p1", "p2", "p3"), types.WriteSourceBookmark, "cursor-1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Received)
	assert.Equal(t, 3, result.Created)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Skipped)

	// The run landed in the sync log with its resume cursor.
	last, err := ingestor.LastSync(ctx, types.WriteSourceBookmark)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, last.ID)
	assert.Equal(t, "cursor-1", last.Cursor)
	assert.Equal(t, 3, last.PostsSynced)
}

func TestIngestBatchDeduplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ingestor := NewIngestor(store, nil)

	_, err := ingestor.IngestBatch(ctx, batch("p1", "p2"), types.WriteSourceBookmark, "")
	require.NoError(t, err)

	// Re-ingesting the same page is a no-op for unchanged content.
	result, err := ingestor.IngestBatch(ctx, batch("p1", "p2"), types.WriteSourceBookmark, "")
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Zero(t, result.Updated)
	assert.Equal(t, 2, result.Skipped)

	post, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, post.ContentVersion)
}

func TestIngestBatchSkipsBadPosts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ingestor := NewIngestor(store, nil)

	posts := batch("p1")
	posts = append(posts, nil, &types.RawPost{Text: "no id"})

	result, err := ingestor.IngestBatch(ctx, posts, types.WriteSourceManual, "")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Received)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Skipped)
}

// stubClassifier returns fixed tags, or an error.
type stubClassifier struct {
	tags map[string][]string
	err  error
}

func (c *stubClassifier) Classify(ctx context.Context, posts []*types.Post) (map[string][]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.tags, nil
}

func TestIngestBatchClassifiesAcceptedPosts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ingestor := NewIngestor(store, &stubClassifier{tags: map[string][]string{
		"p1": {"golang", "testing"},
		"p2": {},
	}})

	result, err := ingestor.IngestBatch(ctx, batch("p1", "p2"), types.WriteSourceLive, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tagged)

	tags, err := store.Tags(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "testing"}, tags)
}

func TestIngestBatchClassifierFailureIsBestEffort(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ingestor := NewIngestor(store, &stubClassifier{err: errors.New("model unavailable")})

	result, err := ingestor.IngestBatch(ctx, batch("p1"), types.WriteSourceLive, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Zero(t, result.Tagged)

	// The post itself was stored despite the classifier outage.
	_, err = store.Get(ctx, "p1")
	require.NoError(t, err)
}

func TestIngestBatchUpdatesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ingestor := NewIngestor(store, nil)

	// Placeholder first, then the real content arrives.
	placeholder := []*types.RawPost{{
		ID: "p1", Text: "https://example.com/p1",
		CreatedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}}
	_, err := ingestor.IngestBatch(ctx, placeholder, types.WriteSourceLive, "")
	require.NoError(t, err)

	result, err := ingestor.IngestBatch(ctx, batch("p1"), types.WriteSourceLive, "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Created)

	post, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "content of post p1", post.ContentText)
	assert.Equal(t, 2, post.ContentVersion)
}
