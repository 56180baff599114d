package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

// seedPosts inserts n plain posts with distinct ascending creation times.
func seedPosts(t *testing.T, store *PostStore, n int) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		raw := &types.RawPost{
			ID:        fmt.Sprintf("p%03d", i),
			Text:      fmt.Sprintf("post number %d about various topics", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		_, err := store.Upsert(ctx, raw, types.WriteSourceLive, storage.UpsertOptions{})
		require.NoError(t, err)
	}
}

func seedArticle(t *testing.T, store *PostStore, id string, createdAt time.Time) {
	t.Helper()
	raw := &types.RawPost{
		ID:        id,
		Text:      "https://example.com/" + id,
		CreatedAt: createdAt,
		Article:   &types.RawArticle{Title: "Title " + id},
	}
	_, err := store.Upsert(context.Background(), raw, types.WriteSourceLive, storage.UpsertOptions{})
	require.NoError(t, err)
}

func TestHydrationCandidatesOrdering(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	seedArticle(t, store, "c", base.Add(2*time.Hour))
	seedArticle(t, store, "a", base)
	seedArticle(t, store, "b", base.Add(time.Hour))

	candidates, err := store.HydrationCandidates(context.Background(), storage.CandidateOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Ascending (created_at, id) for deterministic checkpointing.
	assert.Equal(t, "a", candidates[0].ID)
	assert.Equal(t, "b", candidates[1].ID)
	assert.Equal(t, "c", candidates[2].ID)
}

func TestHydrationCandidatesHonorsRetrySchedule(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	seedArticle(t, store, "due", base)
	seedArticle(t, store, "later", base.Add(time.Minute))

	// Fail "later" with a retry scheduled in the future.
	ok, err := store.ClaimForHydration(ctx, "later", 1, false)
	require.NoError(t, err)
	require.True(t, ok)
	future := time.Now().UTC().Add(time.Hour)
	require.NoError(t, store.MarkHydrationFailure(ctx, "later", storage.HydrationFailure{
		ErrorCode:   types.ErrCodeTimeout,
		NextRetryAt: &future,
	}))

	candidates, err := store.HydrationCandidates(ctx, storage.CandidateOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "due", candidates[0].ID)

	// Force ignores the schedule.
	candidates, err = store.HydrationCandidates(ctx, storage.CandidateOptions{Limit: 10, Force: true})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)

	// An injected clock past the retry time makes the row eligible again.
	candidates, err = store.HydrationCandidates(ctx, storage.CandidateOptions{
		Limit: 10,
		Now:   future.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
}

func TestHydrationCandidatesExcludesTerminalStatuses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	seedArticle(t, store, "missing", base)
	seedArticle(t, store, "eligible", base.Add(time.Minute))

	ok, err := store.ClaimForHydration(ctx, "missing", 1, false)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.MarkHydrationFailure(ctx, "missing", storage.HydrationFailure{
		ErrorCode: types.ErrCodeNotFound,
		Terminal:  true,
	}))

	candidates, err := store.HydrationCandidates(ctx, storage.CandidateOptions{Limit: 10, Force: true})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "eligible", candidates[0].ID)
}

func TestHydrationCandidatesExplicitIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	seedArticle(t, store, "art", base)
	_, err := store.Upsert(ctx, &types.RawPost{
		ID: "plain", Text: "not an article", CreatedAt: base,
	}, types.WriteSourceLive, storage.UpsertOptions{})
	require.NoError(t, err)

	// Non-article IDs are filtered out; explicit selection ignores status.
	candidates, err := store.HydrationCandidates(ctx, storage.CandidateOptions{
		IDs: []string{"art", "plain", "ghost"},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "art", candidates[0].ID)
}

func TestHydrationCandidatesKeysetResume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedArticle(t, store, fmt.Sprintf("a%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	first, err := store.HydrationCandidates(ctx, storage.CandidateOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)

	last := first[len(first)-1]
	rest, err := store.HydrationCandidates(ctx, storage.CandidateOptions{
		Limit:          10,
		AfterCreatedAt: last.CreatedAt,
		AfterID:        last.ID,
	})
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, "a2", rest[0].ID)
}

func TestListPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPosts(t, store, 25)

	page1, err := store.List(ctx, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 10)
	assert.Equal(t, 25, page1.Total)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextCursor)

	// Newest first.
	assert.Equal(t, "p024", page1.Items[0].ID)

	page2, err := store.List(ctx, storage.ListOptions{Limit: 10, Cursor: page1.NextCursor})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 10)
	assert.Equal(t, "p014", page2.Items[0].ID)

	page3, err := store.List(ctx, storage.ListOptions{Limit: 10, Cursor: page2.NextCursor})
	require.NoError(t, err)
	assert.Len(t, page3.Items, 5)
	assert.False(t, page3.HasMore)

	// No overlap across pages.
	seen := make(map[string]bool)
	for _, p := range page1.Items {
		seen[p.ID] = true
	}
	for _, p := range page2.Items {
		assert.False(t, seen[p.ID], "post %s appeared twice", p.ID)
	}
}

func TestListMalformedCursor(t *testing.T) {
	store := newTestStore(t)

	_, err := store.List(context.Background(), storage.ListOptions{Cursor: "not-base64!!"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.Upsert(ctx, &types.RawPost{
		ID: "p1", Text: "from alice", AuthorHandle: "alice", CreatedAt: base,
	}, types.WriteSourceLive, storage.UpsertOptions{})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, &types.RawPost{
		ID: "p2", Text: "from bob", AuthorHandle: "bob", CreatedAt: base.Add(time.Minute),
	}, types.WriteSourceLive, storage.UpsertOptions{})
	require.NoError(t, err)
	seedArticle(t, store, "a1", base.Add(2*time.Minute))

	t.Run("by author", func(t *testing.T) {
		result, err := store.List(ctx, storage.ListOptions{AuthorHandle: "alice"})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "p1", result.Items[0].ID)
		assert.Equal(t, 1, result.Total)
	})

	t.Run("by type", func(t *testing.T) {
		result, err := store.List(ctx, storage.ListOptions{Type: types.TypeArticle})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "a1", result.Items[0].ID)
	})

	t.Run("by status", func(t *testing.T) {
		result, err := store.List(ctx, storage.ListOptions{Status: types.StatusPending})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "a1", result.Items[0].ID)
	})
}

func TestGetByTag(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedPosts(t, store, 3)

	require.NoError(t, store.AddTags(ctx, "p000", []string{"golang"}))
	require.NoError(t, store.AddTags(ctx, "p002", []string{"golang", "databases"}))

	result, err := store.GetByTag(ctx, "GoLang", storage.ListOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Total)

	_, err = store.GetByTag(ctx, "  ", storage.ListOptions{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
