package types

// ContentStatus tracks whether a post's long-form content has been
// successfully retrieved.
type ContentStatus string

const (
	StatusNew      ContentStatus = "new"      // Row created, content never evaluated
	StatusPending  ContentStatus = "pending"  // Awaiting enrichment (fresh/bookmark ingestion)
	StatusFetching ContentStatus = "fetching" // Claimed by a hydration worker
	StatusHydrated ContentStatus = "hydrated" // Full non-placeholder content accepted
	StatusPartial  ContentStatus = "partial"  // Weak/metadata-only content accepted
	StatusFailed   ContentStatus = "failed"   // Retryable fetch failure, scheduled for retry
	StatusMissing  ContentStatus = "missing"  // Terminal: deleted/protected/attempts exhausted
	StatusStale    ContentStatus = "stale"    // Externally marked outdated
)

// ValidContentStatuses contains all valid content status values.
var ValidContentStatuses = []ContentStatus{
	StatusNew,
	StatusPending,
	StatusFetching,
	StatusHydrated,
	StatusPartial,
	StatusFailed,
	StatusMissing,
	StatusStale,
}

// RetryableStatuses is the set of statuses eligible for hydration candidate
// selection. StatusHydrated is excluded unless the caller forces re-hydration;
// StatusMissing requires an explicit manual reset.
var RetryableStatuses = []ContentStatus{
	StatusNew,
	StatusPending,
	StatusPartial,
	StatusFailed,
	StatusStale,
}

// IsValidContentStatus checks if the given status is a known value.
func IsValidContentStatus(status ContentStatus) bool {
	for _, s := range ValidContentStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// IsRetryable reports whether the status is eligible for hydration
// candidate selection.
func IsRetryable(status ContentStatus) bool {
	for _, s := range RetryableStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// IsValidContentTransition validates content status transitions.
//
// Valid transitions:
//
//	new|pending|partial|failed|stale -> fetching   (hydration worker claim)
//	fetching -> hydrated | partial | failed | missing
//	hydrated -> stale                              (external invalidation)
//	hydrated|partial -> hydrated|partial           (accepted merge outside a claim)
//	new|pending|partial|failed|stale -> pending    (manual reset)
//	missing -> pending                             (manual re-hydrate reset only)
//
// The fetching claim itself must additionally be guarded by the row's
// content_version so two workers cannot both win it; that check lives in the
// store, not here.
func IsValidContentTransition(current, next ContentStatus) bool {
	if next == "" {
		return false
	}

	switch current {
	case "", StatusNew, StatusPending, StatusPartial, StatusFailed, StatusStale:
		switch next {
		case StatusFetching, StatusPending, StatusHydrated, StatusPartial:
			return true
		}
		return false

	case StatusFetching:
		switch next {
		case StatusHydrated, StatusPartial, StatusFailed, StatusMissing:
			return true
		}
		return false

	case StatusHydrated:
		// A hydrated row only moves on external invalidation, a forced
		// re-claim, or a strictly-better accepted merge.
		switch next {
		case StatusStale, StatusFetching, StatusHydrated:
			return true
		}
		return false

	case StatusMissing:
		// Terminal. Reversible only by the explicit manual reset.
		return next == StatusPending

	default:
		return false
	}
}
