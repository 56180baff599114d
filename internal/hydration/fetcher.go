// Package hydration orchestrates fetching full content for posts whose
// canonical body is incomplete: candidate selection, crash-safe claims,
// fetch-with-fallback, failure classification, durable backoff scheduling,
// and resumable checkpointed backfill.
package hydration

import (
	"context"
	"errors"
	"fmt"

	"github.com/scrypster/postvault/pkg/types"
)

// PlatformClient is the external platform fetch collaborator. Implementations
// live outside this module; the pipeline only needs ID-level lookup.
type PlatformClient interface {
	// GetByID fetches a single post. Returns an error classifiable via
	// types.ClassifyFetchError; not-found must classify as NOT_FOUND.
	GetByID(ctx context.Context, id string) (*types.RawPost, error)

	// GetByIDs bulk-fetches posts. Partial results are allowed: unresolvable
	// IDs are silently omitted, not errors.
	GetByIDs(ctx context.Context, ids []string) ([]*types.RawPost, error)
}

// NotFoundError reports that the platform no longer serves a post.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("post %s not found", e.ID)
}

// HydrationErrorCode classifies the error without message sniffing.
func (e *NotFoundError) HydrationErrorCode() types.ErrorCode {
	return types.ErrCodeNotFound
}

// IsNotFound reports whether err is a platform not-found.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
