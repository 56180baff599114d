package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

// HydrationCandidates selects rows eligible for hydration in ascending
// (created_at, id) order for determinism and checkpoint correctness.
//
// With explicit IDs the selection is restricted to article-type rows and the
// retry-eligibility filters are ignored: an explicit request overrides
// scheduling. Otherwise rows in the retryable status set are selected,
// honouring next_retry_at unless forced, optionally resuming strictly after
// a keyset cursor.
func (s *PostStore) HydrationCandidates(ctx context.Context, opts storage.CandidateOptions) ([]*types.Post, error) {
	builder := sq.Select(postColumnList...).From("posts").OrderBy("created_at", "id")

	if len(opts.IDs) > 0 {
		builder = builder.Where(sq.Eq{"id": opts.IDs, "type": string(types.TypeArticle)})
	} else {
		statuses := make([]string, len(types.RetryableStatuses))
		for i, st := range types.RetryableStatuses {
			statuses[i] = string(st)
		}
		builder = builder.Where(sq.Eq{"content_status": statuses})

		if !opts.Force {
			now := opts.Now
			if now.IsZero() {
				now = time.Now().UTC()
			}
			builder = builder.Where(sq.Or{
				sq.Eq{"next_retry_at": nil},
				sq.LtOrEq{"next_retry_at": now},
			})
		}

		if !opts.AfterCreatedAt.IsZero() {
			builder = builder.Where(sq.Or{
				sq.Gt{"created_at": opts.AfterCreatedAt},
				sq.And{
					sq.Eq{"created_at": opts.AfterCreatedAt},
					sq.Gt{"id": opts.AfterID},
				},
			})
		}
	}

	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to build candidate query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to select candidates: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// List returns posts with keyset pagination, created_at descending,
// tie-broken by id descending. The returned NextCursor round-trips exactly.
func (s *PostStore) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[types.Post], error) {
	opts.Normalize()

	cursor, err := storage.DecodeCursor(opts.Cursor)
	if err != nil {
		return nil, err
	}

	filters := listFilters(opts)

	builder := sq.Select(postColumnList...).From("posts").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(opts.Limit))
	for _, f := range filters {
		builder = builder.Where(f)
	}

	if !cursor.CreatedAt.IsZero() {
		builder = builder.Where(sq.Or{
			sq.Lt{"created_at": cursor.CreatedAt},
			sq.And{
				sq.Eq{"created_at": cursor.CreatedAt},
				sq.Lt{"id": cursor.ID},
			},
		})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list posts: %w", err)
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list scan: %w", err)
	}

	// Total matching rows without cursor/limit, so callers can distinguish
	// "last page" from "empty result".
	countBuilder := sq.Select("COUNT(*)").From("posts")
	for _, f := range filters {
		countBuilder = countBuilder.Where(f)
	}
	countQuery, countArgs, err := countBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to build count query: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: failed to count posts: %w", err)
	}

	result := &storage.PaginatedResult[types.Post]{Total: total}
	for _, p := range posts {
		result.Items = append(result.Items, *p)
	}

	if len(posts) == opts.Limit {
		last := posts[len(posts)-1]
		result.NextCursor = storage.EncodeCursor(storage.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		result.HasMore = true
	}

	return result, nil
}

// GetByTag returns posts carrying the given tag, keyset-paginated.
func (s *PostStore) GetByTag(ctx context.Context, tag string, opts storage.ListOptions) (*storage.PaginatedResult[types.Post], error) {
	if strings.TrimSpace(tag) == "" {
		return nil, fmt.Errorf("%w: tag is required", storage.ErrInvalidInput)
	}
	opts.Tag = strings.ToLower(strings.TrimSpace(tag))
	return s.List(ctx, opts)
}

// listFilters converts ListOptions into squirrel predicates. Tag filtering
// is an EXISTS predicate, not post-filtering, so pagination stays correct.
func listFilters(opts storage.ListOptions) []sq.Sqlizer {
	var filters []sq.Sqlizer
	if opts.Status != "" {
		filters = append(filters, sq.Eq{"content_status": string(opts.Status)})
	}
	if opts.Type != "" {
		filters = append(filters, sq.Eq{"type": string(opts.Type)})
	}
	if opts.AuthorHandle != "" {
		filters = append(filters, sq.Eq{"author_handle": opts.AuthorHandle})
	}
	if opts.Tag != "" {
		filters = append(filters, sq.Expr(
			"EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = posts.id AND pt.tag = ?)",
			opts.Tag,
		))
	}
	return filters
}
