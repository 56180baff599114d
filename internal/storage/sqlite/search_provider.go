package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

// SearchContent performs FTS5-backed full-text search across canonical
// content, article titles, and author fields.
//
// The FTS5 virtual table (posts_fts) is kept in sync with the posts table
// via INSERT/UPDATE/DELETE triggers defined in schema.go.
//
// FTS5 rank values are negative (more negative == better match), so ordering
// by rank ASC gives the best results first. Status and tag filters are
// applied as SQL predicates alongside MATCH, never as post-filtering, so
// offset pagination stays correct.
//
// When the query is empty the method falls back to a plain list ordered by
// creation time so the caller still receives a useful result set.
func (s *PostStore) SearchContent(ctx context.Context, opts storage.SearchOptions) (*storage.PaginatedResult[types.Post], error) {
	opts.Normalize()

	if strings.TrimSpace(opts.Query) == "" {
		return s.List(ctx, storage.ListOptions{
			Limit:  opts.Limit,
			Status: opts.Status,
			Tag:    opts.Tag,
		})
	}

	// Sanitise the raw query string so it is safe to pass to FTS5's MATCH
	// operator. FTS5 syntax is fragile: an unbalanced quote or stray
	// operator keyword makes SQLite return "fts5: syntax error".
	ftsQuery := sanitiseFTSQuery(opts.Query)

	where := "posts_fts MATCH ?"
	args := []interface{}{ftsQuery}
	if opts.Status != "" {
		where += " AND p.content_status = ?"
		args = append(args, string(opts.Status))
	}
	if opts.Tag != "" {
		where += " AND EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag = ?)"
		args = append(args, strings.ToLower(opts.Tag))
	}

	cols := make([]string, len(postColumnList))
	for i, c := range postColumnList {
		cols[i] = "p." + c
	}

	querySQL := fmt.Sprintf(`
		SELECT %s
		FROM posts_fts fts
		JOIN posts p ON p.rowid = fts.rowid
		WHERE %s
		ORDER BY rank
		LIMIT ? OFFSET ?`, strings.Join(cols, ", "), where)

	rows, err := s.db.QueryContext(ctx, querySQL, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		// FTS5 can still error on malformed input that slipped past
		// sanitisation; wrap with enough context to diagnose.
		return nil, fmt.Errorf("sqlite: SearchContent MATCH %q: %w", opts.Query, err)
	}
	defer rows.Close()

	posts, err := scanPosts(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: SearchContent scan: %w", err)
	}

	countSQL := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM posts_fts fts
		JOIN posts p ON p.rowid = fts.rowid
		WHERE %s`, where)

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: SearchContent count: %w", err)
	}

	result := &storage.PaginatedResult[types.Post]{
		Total:   total,
		HasMore: opts.Offset+len(posts) < total,
	}
	for _, p := range posts {
		result.Items = append(result.Items, *p)
	}

	return result, nil
}

// sanitiseFTSQuery converts a free-form user query into a safe FTS5 MATCH
// expression: strip FTS5-special characters, drop stop words, and use prefix
// matching (term*) with OR semantics for recall.
//
// Example: "What is hydration?" → "hydration*"
func sanitiseFTSQuery(query string) string {
	replacer := strings.NewReplacer(
		`"`, ` `,
		`'`, ` `,
		`(`, ` `,
		`)`, ` `,
		`*`, ` `,
		`-`, ` `,
		`^`, ` `,
		`?`, ` `,
		`:`, ` `,
	)
	cleaned := replacer.Replace(query)

	words := strings.Fields(strings.ToLower(cleaned))

	stopWords := map[string]bool{
		"a": true, "an": true, "the": true,
		"is": true, "are": true, "was": true, "were": true, "be": true,
		"to": true, "of": true, "in": true, "on": true, "at": true,
		"by": true, "for": true, "with": true, "from": true, "as": true,
		"what": true, "how": true, "when": true, "where": true, "why": true,
		"this": true, "that": true, "these": true, "those": true,
		"and": true, "or": true, "but": true, "if": true, "not": true,
		"s": true, "t": true, // post-apostrophe fragments
	}

	var terms []string
	for _, w := range words {
		if !stopWords[w] && len(w) >= 2 {
			terms = append(terms, w+"*")
		}
	}

	if len(terms) == 0 {
		// All words were stop words; lowercase the cleaned text so FTS5
		// does not interpret uppercase AND/OR/NOT as operators.
		return strings.ToLower(strings.TrimSpace(cleaned))
	}

	return strings.Join(terms, " OR ")
}
