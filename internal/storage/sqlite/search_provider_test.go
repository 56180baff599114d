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

func seedSearchFixture(t *testing.T, store *PostStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	fixtures := []*types.RawPost{
		{
			ID: "db1", Text: "Thoughts on database indexing strategies and query planners",
			AuthorHandle: "alice", CreatedAt: base,
		},
		{
			ID: "db2", Text: "https://example.com/db2", CreatedAt: base.Add(time.Minute),
			Article: &types.RawArticle{
				Title: "Database internals",
				Body:  "A deep dive into how storage engines organise pages on disk",
			},
		},
		{
			ID: "go1", Text: "Why goroutines make concurrent servers easier to reason about",
			AuthorHandle: "bob", CreatedAt: base.Add(2 * time.Minute),
		},
	}
	for _, raw := range fixtures {
		_, err := store.Upsert(ctx, raw, types.WriteSourceHydration, storage.UpsertOptions{})
		require.NoError(t, err)
	}
}

func TestSearchContent(t *testing.T) {
	store := newTestStore(t)
	seedSearchFixture(t, store)
	ctx := context.Background()

	t.Run("matches body text", func(t *testing.T) {
		result, err := store.SearchContent(ctx, storage.SearchOptions{Query: "database"})
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, 2, result.Total)
	})

	t.Run("matches article title", func(t *testing.T) {
		result, err := store.SearchContent(ctx, storage.SearchOptions{Query: "internals"})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "db2", result.Items[0].ID)
	})

	t.Run("matches author handle", func(t *testing.T) {
		result, err := store.SearchContent(ctx, storage.SearchOptions{Query: "alice"})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "db1", result.Items[0].ID)
	})

	t.Run("no matches", func(t *testing.T) {
		result, err := store.SearchContent(ctx, storage.SearchOptions{Query: "blockchain"})
		require.NoError(t, err)
		assert.Empty(t, result.Items)
		assert.Equal(t, 0, result.Total)
		assert.False(t, result.HasMore)
	})

	t.Run("prefix matching", func(t *testing.T) {
		result, err := store.SearchContent(ctx, storage.SearchOptions{Query: "goroutine"})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "go1", result.Items[0].ID)
	})

	t.Run("special characters do not break the query", func(t *testing.T) {
		_, err := store.SearchContent(ctx, storage.SearchOptions{Query: `"databases?" (indexing) -query`})
		require.NoError(t, err)
	})

	t.Run("empty query falls back to listing", func(t *testing.T) {
		result, err := store.SearchContent(ctx, storage.SearchOptions{Query: "   "})
		require.NoError(t, err)
		assert.Len(t, result.Items, 3)
	})
}

func TestSearchContentFilters(t *testing.T) {
	store := newTestStore(t)
	seedSearchFixture(t, store)
	ctx := context.Background()

	t.Run("status filter", func(t *testing.T) {
		result, err := store.SearchContent(ctx, storage.SearchOptions{
			Query:  "database",
			Status: types.StatusHydrated,
		})
		require.NoError(t, err)
		assert.Len(t, result.Items, 2)

		result, err = store.SearchContent(ctx, storage.SearchOptions{
			Query:  "database",
			Status: types.StatusMissing,
		})
		require.NoError(t, err)
		assert.Empty(t, result.Items)
	})

	t.Run("tag filter intersects with match", func(t *testing.T) {
		require.NoError(t, store.AddTags(ctx, "db1", []string{"indexing"}))

		result, err := store.SearchContent(ctx, storage.SearchOptions{
			Query: "database",
			Tag:   "indexing",
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "db1", result.Items[0].ID)
		assert.Equal(t, 1, result.Total)
	})
}

func TestSearchContentReflectsUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	raw := &types.RawPost{
		ID: "a1", Text: "https://example.com/a1",
		CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Article:   &types.RawArticle{Title: "Quiet title"},
	}
	_, err := store.Upsert(ctx, raw, types.WriteSourceLive, storage.UpsertOptions{})
	require.NoError(t, err)

	result, err := store.SearchContent(ctx, storage.SearchOptions{Query: "kubernetes"})
	require.NoError(t, err)
	require.Empty(t, result.Items)

	// Hydration replaces the body; the FTS triggers must pick it up.
	raw.Article.Body = "Everything you wanted to know about kubernetes networking"
	_, err = store.Upsert(ctx, raw, types.WriteSourceHydration, storage.UpsertOptions{})
	require.NoError(t, err)

	result, err = store.SearchContent(ctx, storage.SearchOptions{Query: "kubernetes"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "a1", result.Items[0].ID)
}

func TestSanitiseFTSQuery(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hydration", "hydration*"},
		{"What is hydration?", "hydration*"},
		{"database indexing", "database* OR indexing*"},
		{`"quoted phrase"`, "quoted* OR phrase*"},
		{"the a an", "the a an"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitiseFTSQuery(tt.input))
		})
	}
}
