// Package storage provides composable storage interfaces for the PostVault
// system and the shared option/result types exchanged with callers.
package storage

import (
	"errors"
	"time"

	"github.com/scrypster/postvault/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// Skip reasons reported by Upsert when no content write happened. These are
// ordinary outcomes, never errors: the hydration pipeline uses them to
// detect rows that raced with another writer.
const (
	SkipVersionMismatch  = "version_mismatch"
	SkipConcurrentUpdate = "concurrent_update"
)

// UpsertOptions controls the merge policy for a single upsert.
type UpsertOptions struct {
	// ForceContent accepts the incoming content unconditionally, bypassing
	// the hash/quality comparison. The version counter still increments.
	ForceContent bool

	// ExpectedContentVersion, when non-zero, makes the upsert an optimistic
	// concurrency check: if the stored content_version differs the upsert is
	// skipped with SkipVersionMismatch and nothing is written.
	ExpectedContentVersion int
}

// UpsertResult reports the merge decision for one upsert.
type UpsertResult struct {
	// ContentAccepted is true when the incoming content replaced the stored
	// canonical content (and the version counter advanced).
	ContentAccepted bool

	// ContentVersion is the row's version after the upsert.
	ContentVersion int

	// ContentStatus is the row's content status after the upsert.
	ContentStatus types.ContentStatus

	// SkippedReason is set to SkipVersionMismatch or SkipConcurrentUpdate
	// when the write was skipped due to a concurrency guard. Empty for
	// ordinary rejections (unchanged hash, lower quality).
	SkippedReason string
}

// PaginatedResult represents a paginated result set.
type PaginatedResult[T any] struct {
	// Items is the slice of results for the current page.
	Items []T

	// Total is the total number of items across all pages.
	Total int

	// NextCursor is the opaque keyset cursor for the next page; empty when
	// the result set is exhausted.
	NextCursor string

	// HasMore indicates whether there are more pages available.
	HasMore bool
}

// ListOptions provides pagination and filtering for list operations.
// Listing uses keyset pagination: created_at descending, tie-broken by id
// descending, resumed via the opaque cursor token.
type ListOptions struct {
	// Limit is the number of items per page (default: 20, max: 100).
	Limit int

	// Cursor is an opaque token from a previous page's NextCursor.
	Cursor string

	// Status filters by content status. Empty means no filter.
	Status types.ContentStatus

	// Type filters by post type. Empty means no filter.
	Type types.PostType

	// AuthorHandle filters by author handle. Empty means no filter.
	AuthorHandle string

	// Tag filters to posts carrying the given tag. Empty means no filter.
	Tag string
}

// Normalize applies defaults and clamps the ListOptions. Oversized requests
// are clamped, not rejected, to keep the interface forgiving.
func (o *ListOptions) Normalize() {
	if o.Limit < 1 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
}

// SearchOptions provides options for full-text search operations.
type SearchOptions struct {
	// Query is the search query string.
	Query string

	// Limit is the maximum number of results (default: 20, max: 100).
	Limit int

	// Offset is the number of results to skip.
	Offset int

	// Status filters by content status as an additional SQL predicate (not
	// post-filtering) so pagination stays correct.
	Status types.ContentStatus

	// Tag filters to posts carrying the given tag, same predicate rule.
	Tag string
}

// Normalize applies defaults and clamps the SearchOptions.
func (o *SearchOptions) Normalize() {
	if o.Limit < 1 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// CandidateOptions selects rows for a hydration run.
type CandidateOptions struct {
	// IDs, when non-empty, restricts selection to those rows (article type
	// only) and ignores retry-eligibility filters: an explicit request
	// overrides scheduling.
	IDs []string

	// Limit caps the number of candidates returned.
	Limit int

	// Force ignores next_retry_at scheduling for status-based selection.
	Force bool

	// After resumes keyset iteration strictly after (AfterCreatedAt, AfterID).
	// Zero AfterCreatedAt means start from the beginning.
	AfterCreatedAt time.Time
	AfterID        string

	// Now is the eligibility clock for next_retry_at comparison. Injected so
	// tests and backfills are deterministic; the zero value means time.Now.
	Now time.Time
}

// HydrationFailure records the outcome of a failed fetch for one row.
type HydrationFailure struct {
	// ErrorCode classifies the failure per the hydration taxonomy.
	ErrorCode types.ErrorCode

	// Message is the underlying error text, persisted for diagnosis.
	Message string

	// NextRetryAt schedules re-selection; nil for terminal outcomes.
	NextRetryAt *time.Time

	// Terminal marks the row missing (not retryable) instead of failed.
	Terminal bool
}

// HydrationStats summarizes hydration bookkeeping across the store.
type HydrationStats struct {
	// ByStatus maps each content status to its row count.
	ByStatus map[types.ContentStatus]int

	// StuckFetching counts rows that have sat in fetching longer than the
	// caller-supplied bound, the signal left behind by a
	// crashed worker. The store never auto-reverts them.
	StuckFetching int
}
