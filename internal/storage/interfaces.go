package storage

import (
	"context"
	"time"

	"github.com/scrypster/postvault/pkg/types"
)

// PostStore is the primary storage interface for posts. The store exclusively
// owns all persisted state; the canonicalizer and hydration pipeline never
// touch storage directly.
type PostStore interface {
	// Upsert canonicalizes the raw payload and applies the deterministic
	// merge policy. Concurrency conflicts surface as UpsertResult skip
	// reasons, never as errors.
	Upsert(ctx context.Context, raw *types.RawPost, writeSource string, opts UpsertOptions) (*UpsertResult, error)

	// Get retrieves a post by platform ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*types.Post, error)

	// GetByIDs retrieves posts by ID, silently omitting IDs that do not
	// resolve (partial results allowed).
	GetByIDs(ctx context.Context, ids []string) ([]*types.Post, error)

	// List returns posts with keyset pagination, newest first.
	List(ctx context.Context, opts ListOptions) (*PaginatedResult[types.Post], error)

	// AddTags associates lowercase tags with a post. Idempotent.
	AddTags(ctx context.Context, postID string, tags []string) error

	// RemoveTag removes a single tag association.
	RemoveTag(ctx context.Context, postID, tag string) error

	// GetByTag returns posts carrying the given tag, keyset-paginated.
	GetByTag(ctx context.Context, tag string, opts ListOptions) (*PaginatedResult[types.Post], error)

	// HydrationCandidates selects rows eligible for hydration, ordered by
	// (created_at, id) ascending for determinism and checkpoint correctness.
	HydrationCandidates(ctx context.Context, opts CandidateOptions) ([]*types.Post, error)

	// ClaimForHydration attempts the -> fetching transition conditioned on
	// the row's current content_version, so two workers cannot both claim a
	// row they each saw as eligible. Returns false when the claim was lost.
	ClaimForHydration(ctx context.Context, id string, expectedVersion int, force bool) (bool, error)

	// MarkHydrationFailure records a failed fetch outcome for a claimed row:
	// fetching -> failed (retryable) or fetching -> missing (terminal).
	MarkHydrationFailure(ctx context.Context, id string, failure HydrationFailure) error

	// ResetHydration is the explicit manual re-hydrate call: clears terminal
	// state back to pending and zeroes attempt bookkeeping.
	ResetHydration(ctx context.Context, id string) error

	// MarkStale flags hydrated rows as outdated (external trigger).
	MarkStale(ctx context.Context, ids []string) (int, error)

	// Stats reports per-status counts plus rows stuck in fetching longer
	// than stuckBound.
	Stats(ctx context.Context, stuckBound time.Duration) (*HydrationStats, error)

	Close() error
}

// SearchProvider provides full-text search over canonical content.
type SearchProvider interface {
	// SearchContent runs FTS-backed search ranked by relevance (lower rank
	// value = more relevant). Status and tag filters are SQL predicates.
	SearchContent(ctx context.Context, opts SearchOptions) (*PaginatedResult[types.Post], error)
}

// CheckpointStore persists backfill cursor state for resumable runs.
type CheckpointStore interface {
	// SaveCheckpoint upserts the cursor for a named job.
	SaveCheckpoint(ctx context.Context, cp *types.BackfillCheckpoint) error

	// GetCheckpoint reads the cursor for a named job. Returns ErrNotFound
	// when the job has never checkpointed.
	GetCheckpoint(ctx context.Context, jobName string) (*types.BackfillCheckpoint, error)

	// DeleteCheckpoint removes a job's cursor (manual reset only).
	DeleteCheckpoint(ctx context.Context, jobName string) error
}

// SyncLogStore records completed ingestion runs. Append-only from the
// store's perspective.
type SyncLogStore interface {
	// AppendSyncLog writes an audit record for a completed run.
	AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error

	// LastSync returns the most recent entry for a sync type. Returns
	// ErrNotFound when that type has never completed a run.
	LastSync(ctx context.Context, syncType string) (*types.SyncLogEntry, error)
}
