// Package query is the read surface: listing, tag lookup, and full-text
// search over canonical content, with token-safe output shaping so a page
// of long-form articles cannot blow up a consumer's context budget.
package query

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

const (
	// defaultSnippetChars bounds the snippet returned in the default
	// (non-full-content) mode.
	defaultSnippetChars = 300

	// defaultContentBudget is the aggregate character budget shared by all
	// items in a page when full content is requested.
	defaultContentBudget = 40000

	ellipsis = "..."
)

// RenderOptions controls how much canonical content a page carries.
type RenderOptions struct {
	// FullContent opts in to full bodies, subject to ContentBudget. The
	// default is snippet-only.
	FullContent bool

	// SnippetChars bounds snippets in default mode (default 300).
	SnippetChars int

	// ContentBudget is the aggregate character cap across all items in a
	// page when FullContent is set (default 40000). Items are filled in
	// result order; once the budget runs short, remaining items are cut to
	// whatever budget is left, down to empty, and marked truncated.
	ContentBudget int
}

func (o *RenderOptions) normalize() {
	if o.SnippetChars <= 0 {
		o.SnippetChars = defaultSnippetChars
	}
	if o.ContentBudget <= 0 {
		o.ContentBudget = defaultContentBudget
	}
}

// Item is one rendered result: the post's metadata plus shaped content.
type Item struct {
	Post types.Post `json:"post"`

	// Content is the shaped body: a snippet by default, the full body when
	// requested and the budget allows.
	Content string `json:"content"`

	// Truncated is true whenever Content is shorter than the stored
	// canonical body.
	Truncated bool `json:"truncated"`
}

// Page is a rendered page of results.
type Page struct {
	Items      []Item `json:"items"`
	Total      int    `json:"total"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`

	// Truncated is true when any item's content was cut, whether by the
	// snippet bound or the aggregate budget.
	Truncated bool `json:"truncated"`
}

// Service composes the store's read operations with output shaping.
type Service struct {
	store  storage.PostStore
	search storage.SearchProvider
}

// NewService creates a query service over the given store and search
// provider (typically the same *sqlite.PostStore).
func NewService(store storage.PostStore, search storage.SearchProvider) *Service {
	return &Service{store: store, search: search}
}

// ListContent returns posts newest first with keyset pagination.
func (s *Service) ListContent(ctx context.Context, opts storage.ListOptions, render RenderOptions) (*Page, error) {
	result, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("query: list failed: %w", err)
	}
	return s.render(result, render), nil
}

// GetByTag returns posts carrying the given tag, keyset-paginated.
func (s *Service) GetByTag(ctx context.Context, tag string, opts storage.ListOptions, render RenderOptions) (*Page, error) {
	result, err := s.store.GetByTag(ctx, tag, opts)
	if err != nil {
		return nil, fmt.Errorf("query: tag lookup failed: %w", err)
	}
	return s.render(result, render), nil
}

// SearchContent runs full-text search ranked by relevance. An empty query
// falls back to a plain recency listing at the store level.
func (s *Service) SearchContent(ctx context.Context, opts storage.SearchOptions, render RenderOptions) (*Page, error) {
	result, err := s.search.SearchContent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("query: search failed: %w", err)
	}
	return s.render(result, render), nil
}

// render shapes a store result page. In full-content mode items are filled
// in result order against the shared budget; after one render the sum of
// all Content lengths never exceeds ContentBudget.
func (s *Service) render(result *storage.PaginatedResult[types.Post], opts RenderOptions) *Page {
	opts.normalize()

	page := &Page{
		Items:      make([]Item, 0, len(result.Items)),
		Total:      result.Total,
		NextCursor: result.NextCursor,
		HasMore:    result.HasMore,
	}

	remaining := opts.ContentBudget
	for _, post := range result.Items {
		body := post.ContentText
		item := Item{Post: post}

		switch {
		case !opts.FullContent:
			item.Content, item.Truncated = truncate(body, opts.SnippetChars)
		case utf8.RuneCountInString(body) <= remaining:
			item.Content = body
			remaining -= utf8.RuneCountInString(body)
		default:
			// Budget runs short mid-page; the item keeps whatever is left,
			// down to nothing, rather than being dropped.
			item.Content, item.Truncated = truncate(body, remaining)
			remaining -= utf8.RuneCountInString(item.Content)
		}

		if item.Truncated {
			page.Truncated = true
		}
		page.Items = append(page.Items, item)
	}

	return page
}

// truncate bounds s to max runes, cutting at the last word boundary before
// the limit and appending an ellipsis. Returns whether truncation happened.
// The result never exceeds max runes, so a max too small for the ellipsis
// yields an empty string.
func truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	if max <= len(ellipsis) {
		return "", true
	}

	runes := []rune(s)
	cut := max - len(ellipsis)
	if cut < 1 {
		cut = 1
	}
	clipped := string(runes[:cut])

	if idx := strings.LastIndexAny(clipped, " \t\n"); idx > cut/2 {
		clipped = clipped[:idx]
	}
	return strings.TrimRight(clipped, " \t\n") + ellipsis, true
}
