// Package sqlite implements the PostVault storage interfaces on SQLite
// (modernc.org/sqlite, CGO-free) with an FTS5 full-text index.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/postvault/internal/canonical"
	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

// PostStore implements storage.PostStore, storage.SearchProvider,
// storage.CheckpointStore, and storage.SyncLogStore using SQLite.
type PostStore struct {
	db *sql.DB
}

var (
	_ storage.PostStore       = (*PostStore)(nil)
	_ storage.SearchProvider  = (*PostStore)(nil)
	_ storage.CheckpointStore = (*PostStore)(nil)
	_ storage.SyncLogStore    = (*PostStore)(nil)
)

// NewPostStore opens a SQLite database, configures WAL mode, and creates the
// schema. Store-unreachable conditions are the only fatal errors in the
// system, so they propagate.
func NewPostStore(dsn string) (*PostStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}

	// Callers wait instead of getting an immediate SQLITE_BUSY when the
	// connection is held by another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	// Foreign keys drive the post_tags cascade.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &PostStore{db: db}, nil
}

// Close flushes the WAL into the main database file and releases resources.
func (s *PostStore) Close() error {
	if s.db == nil {
		return nil
	}

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("sqlite: WAL checkpoint on close failed (non-fatal): %v", err)
	}

	return s.db.Close()
}

// DB returns the underlying database connection for wiring code that needs
// direct access (e.g. config persistence).
func (s *PostStore) DB() *sql.DB {
	return s.db
}

// Upsert canonicalizes the raw payload and applies the deterministic merge
// policy:
//
//   - no existing row: insert unconditionally at content_version 1
//   - expectedContentVersion set and stale: skip with version_mismatch
//   - accept when forceContent, or the hash differs and the incoming quality
//     score beats the stored one, or the hash differs and the stored status
//     is not hydrated (anything beats "we never really had it")
//   - a matching hash is never accepted as a new version; non-content
//     metadata (raw payload, author fields, timestamps) is still refreshed
//
// The content write is a conditional update keyed on (id, content_version).
// If another writer wins the race between read and decide, the read-decide-
// write cycle retries once; a second loss reports concurrent_update.
//
// Hydrated content can only be replaced by content that is provably at least
// as good. This is the invariant the whole system hangs on.
func (s *PostStore) Upsert(ctx context.Context, raw *types.RawPost, writeSource string, opts storage.UpsertOptions) (*storage.UpsertResult, error) {
	if raw == nil || raw.ID == "" {
		return nil, fmt.Errorf("%w: post ID is required", storage.ErrInvalidInput)
	}

	content := canonical.Canonicalize(raw, writeSource)

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to marshal raw payload: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		result, retry, err := s.upsertOnce(ctx, raw, content, string(rawJSON), writeSource, opts)
		if err != nil {
			return nil, err
		}
		if !retry {
			return result, nil
		}
	}

	// Both cycles lost the conditional write to another writer. Recovered
	// locally as a non-exceptional outcome.
	return &storage.UpsertResult{SkippedReason: storage.SkipConcurrentUpdate}, nil
}

// upsertOnce runs a single read-decide-write cycle. retry is true when the
// conditional write matched zero rows because a concurrent writer advanced
// the row first.
func (s *PostStore) upsertOnce(ctx context.Context, raw *types.RawPost, content canonical.Content, rawJSON, writeSource string, opts storage.UpsertOptions) (*storage.UpsertResult, bool, error) {
	now := time.Now().UTC()

	var (
		storedVersion int
		storedHash    sql.NullString
		storedStatus  types.ContentStatus
		storedScore   int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT content_version, content_hash, content_status, content_quality_score FROM posts WHERE id = ?",
		raw.ID,
	).Scan(&storedVersion, &storedHash, &storedStatus, &storedScore)

	if err == sql.ErrNoRows {
		return s.insertPost(ctx, raw, content, rawJSON, writeSource, now)
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: failed to read post %s: %w", raw.ID, err)
	}

	// Optimistic concurrency guard used by the hydration pipeline.
	if opts.ExpectedContentVersion != 0 && opts.ExpectedContentVersion != storedVersion {
		return &storage.UpsertResult{
			ContentVersion: storedVersion,
			ContentStatus:  storedStatus,
			SkippedReason:  storage.SkipVersionMismatch,
		}, false, nil
	}

	hashDiffers := content.ContentHash != storedHash.String
	accepted := content.ContentHash != "" && // an empty hash can never win
		(opts.ForceContent ||
			(hashDiffers && content.QualityScore > storedScore) ||
			(hashDiffers && storedStatus != types.StatusHydrated))

	if !accepted {
		return s.refreshMetadata(ctx, raw, content, rawJSON, writeSource, now, storedVersion, storedStatus)
	}

	var fetchedAt sql.NullTime
	if content.ContentStatus == types.StatusHydrated || content.ContentStatus == types.StatusPartial {
		fetchedAt = sql.NullTime{Time: now, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			author_handle = ?,
			author_name = ?,
			type = ?,
			raw_json = ?,
			article_title = ?,
			article_content = ?,
			content_text = ?,
			content_source = ?,
			content_status = ?,
			content_hash = ?,
			content_quality_score = ?,
			content_version = content_version + 1,
			content_fetched_at = COALESCE(?, content_fetched_at),
			next_retry_at = NULL,
			error_code = NULL,
			content_error = NULL,
			source = ?,
			ingested_at = ?,
			updated_at = ?
		WHERE id = ? AND content_version = ?`,
		nullableString(raw.AuthorHandle),
		nullableString(raw.AuthorName),
		content.Type,
		rawJSON,
		nullableString(content.ArticleTitle),
		nullableString(content.ArticleContent),
		content.ContentText,
		content.ContentSource,
		content.ContentStatus,
		nullableString(content.ContentHash),
		content.QualityScore,
		fetchedAt,
		nullableString(writeSource),
		now,
		now,
		raw.ID,
		storedVersion,
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: failed to update post %s: %w", raw.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		// Another writer advanced content_version between read and write.
		return nil, true, nil
	}

	return &storage.UpsertResult{
		ContentAccepted: true,
		ContentVersion:  storedVersion + 1,
		ContentStatus:   content.ContentStatus,
	}, false, nil
}

// insertPost creates a fresh row at content_version 1. Content is always
// accepted on first insert. A conflict means another writer inserted first;
// the caller retries the full cycle.
func (s *PostStore) insertPost(ctx context.Context, raw *types.RawPost, content canonical.Content, rawJSON, writeSource string, now time.Time) (*storage.UpsertResult, bool, error) {
	createdAt := raw.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	var fetchedAt sql.NullTime
	if content.ContentStatus == types.StatusHydrated || content.ContentStatus == types.StatusPartial {
		fetchedAt = sql.NullTime{Time: now, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (
			id, author_handle, author_name, type, raw_json,
			article_title, article_content, content_text, content_source,
			content_status, content_hash, content_quality_score, content_version,
			content_fetched_at, source, ingested_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		raw.ID,
		nullableString(raw.AuthorHandle),
		nullableString(raw.AuthorName),
		content.Type,
		rawJSON,
		nullableString(content.ArticleTitle),
		nullableString(content.ArticleContent),
		content.ContentText,
		content.ContentSource,
		content.ContentStatus,
		nullableString(content.ContentHash),
		content.QualityScore,
		fetchedAt,
		nullableString(writeSource),
		now,
		createdAt,
		now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: failed to insert post %s: %w", raw.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		// Lost the insert race; re-run the cycle against the winner's row.
		return nil, true, nil
	}

	return &storage.UpsertResult{
		ContentAccepted: true,
		ContentVersion:  1,
		ContentStatus:   content.ContentStatus,
	}, false, nil
}

// refreshMetadata handles the rejected branch: canonical content fields and
// version stay untouched, non-content metadata is refreshed. When the row is
// currently claimed (fetching) the rejected write still settles the status
// to the canonicalized outcome, since the fetch did complete. The claim
// must not be left dangling just because the content was a no-op.
func (s *PostStore) refreshMetadata(ctx context.Context, raw *types.RawPost, content canonical.Content, rawJSON, writeSource string, now time.Time, storedVersion int, storedStatus types.ContentStatus) (*storage.UpsertResult, bool, error) {
	finalStatus := storedStatus
	var settleStatus sql.NullString
	var fetchedAt sql.NullTime
	if storedStatus == types.StatusFetching {
		finalStatus = content.ContentStatus
		settleStatus = sql.NullString{String: string(content.ContentStatus), Valid: true}
		if content.ContentStatus == types.StatusHydrated || content.ContentStatus == types.StatusPartial {
			fetchedAt = sql.NullTime{Time: now, Valid: true}
		}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			author_handle = COALESCE(?, author_handle),
			author_name = COALESCE(?, author_name),
			raw_json = ?,
			content_status = COALESCE(?, content_status),
			content_fetched_at = COALESCE(?, content_fetched_at),
			source = ?,
			ingested_at = ?,
			updated_at = ?
		WHERE id = ?`,
		nullableString(raw.AuthorHandle),
		nullableString(raw.AuthorName),
		rawJSON,
		settleStatus,
		fetchedAt,
		nullableString(writeSource),
		now,
		now,
		raw.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: failed to refresh post %s: %w", raw.ID, err)
	}

	return &storage.UpsertResult{
		ContentAccepted: false,
		ContentVersion:  storedVersion,
		ContentStatus:   finalStatus,
	}, false, nil
}

// Get retrieves a post by platform ID.
func (s *PostStore) Get(ctx context.Context, id string) (*types.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: post ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get post %s: %w", id, err)
	}
	return post, nil
}

// GetByIDs retrieves posts by ID, silently omitting IDs that do not resolve.
func (s *PostStore) GetByIDs(ctx context.Context, ids []string) ([]*types.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id IN ("+placeholders+") ORDER BY created_at, id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get posts by IDs: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// AddTags associates lowercase tags with a post. Idempotent; the post must
// exist (foreign key).
func (s *PostStore) AddTags(ctx context.Context, postID string, tags []string) error {
	if postID == "" {
		return fmt.Errorf("%w: post ID is required", storage.ErrInvalidInput)
	}
	if len(tags) == 0 {
		return nil
	}

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO post_tags (post_id, tag) VALUES (?, ?)",
			postID, tag,
		); err != nil {
			return fmt.Errorf("sqlite: failed to tag post %s with %q: %w", postID, tag, err)
		}
	}
	return nil
}

// RemoveTag removes a single tag association.
func (s *PostStore) RemoveTag(ctx context.Context, postID, tag string) error {
	if postID == "" {
		return fmt.Errorf("%w: post ID is required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM post_tags WHERE post_id = ? AND tag = ?",
		postID, strings.ToLower(strings.TrimSpace(tag)),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to remove tag: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Tags returns the tags associated with a post, sorted ascending.
func (s *PostStore) Tags(ctx context.Context, postID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tag FROM post_tags WHERE post_id = ? ORDER BY tag", postID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: tag rows: %w", err)
	}
	return tags, nil
}

// ClaimForHydration attempts the -> fetching transition. The conditional
// update matches both the current content_version and a claimable status, so
// two workers that both saw the row as eligible cannot both win. The claim
// increments attempt_count, clears prior error fields, and records the
// attempt time. Force additionally allows re-claiming hydrated rows.
func (s *PostStore) ClaimForHydration(ctx context.Context, id string, expectedVersion int, force bool) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: post ID is required", storage.ErrInvalidInput)
	}

	claimable := []string{"'new'", "'pending'", "'partial'", "'failed'", "'stale'"}
	if force {
		claimable = append(claimable, "'hydrated'")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			content_status = 'fetching',
			attempt_count = attempt_count + 1,
			last_hydration_attempt_at = ?,
			error_code = NULL,
			content_error = NULL,
			updated_at = ?
		WHERE id = ? AND content_version = ?
		  AND content_status IN (`+strings.Join(claimable, ",")+`)`,
		time.Now().UTC(), time.Now().UTC(), id, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to claim post %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	return affected == 1, nil
}

// MarkHydrationFailure records a failed fetch outcome for a claimed row:
// fetching -> failed (retryable, next_retry_at scheduled) or fetching ->
// missing (terminal, next_retry_at cleared).
func (s *PostStore) MarkHydrationFailure(ctx context.Context, id string, failure storage.HydrationFailure) error {
	if id == "" {
		return fmt.Errorf("%w: post ID is required", storage.ErrInvalidInput)
	}

	status := types.StatusFailed
	if failure.Terminal {
		status = types.StatusMissing
		failure.NextRetryAt = nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			content_status = ?,
			error_code = ?,
			content_error = ?,
			next_retry_at = ?,
			updated_at = ?
		WHERE id = ? AND content_status = 'fetching'`,
		status,
		nullableString(string(failure.ErrorCode)),
		nullableString(failure.Message),
		nullableTime(failure.NextRetryAt),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to mark hydration failure for %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ResetHydration is the explicit manual re-hydrate call: it returns a row
// (including terminal missing rows) to pending and zeroes the attempt
// bookkeeping, making it eligible for candidate selection again. Rows that
// are mid-claim (fetching) or already hydrated are not resettable; the
// transition table rejects them.
func (s *PostStore) ResetHydration(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: post ID is required", storage.ErrInvalidInput)
	}

	var current types.ContentStatus
	err := s.db.QueryRowContext(ctx,
		"SELECT content_status FROM posts WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: failed to load post %s: %w", id, err)
	}
	if !types.IsValidContentTransition(current, types.StatusPending) {
		return fmt.Errorf("%w: cannot reset post %s from status %s", storage.ErrInvalidInput, id, current)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			content_status = 'pending',
			attempt_count = 0,
			next_retry_at = NULL,
			error_code = NULL,
			content_error = NULL,
			updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to reset hydration for %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkStale flags hydrated rows as outdated. Returns the number of rows
// transitioned; rows not currently hydrated are left alone.
func (s *PostStore) MarkStale(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE posts SET content_status = 'stale', updated_at = ? WHERE id IN ("+placeholders+") AND content_status = 'hydrated'",
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to mark posts stale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	return int(affected), nil
}

// Stats reports per-status row counts plus the number of rows stuck in
// fetching longer than stuckBound, the signature a crashed worker leaves
// behind. Detection only; the claim is never auto-reverted here.
func (s *PostStore) Stats(ctx context.Context, stuckBound time.Duration) (*storage.HydrationStats, error) {
	stats := &storage.HydrationStats{ByStatus: make(map[types.ContentStatus]int)}

	rows, err := s.db.QueryContext(ctx,
		"SELECT content_status, COUNT(*) FROM posts GROUP BY content_status")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to count statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status types.ContentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan status count: %w", err)
		}
		stats.ByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: status count rows: %w", err)
	}

	cutoff := time.Now().UTC().Add(-stuckBound)
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE content_status = 'fetching' AND last_hydration_attempt_at < ?",
		cutoff,
	).Scan(&stats.StuckFetching)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to count stuck rows: %w", err)
	}

	return stats, nil
}

// postColumnList is the canonical SELECT column order. scanPost and
// scanPosts depend on this exact order.
var postColumnList = []string{
	"id", "author_handle", "author_name", "type", "raw_json",
	"article_title", "article_content", "content_text", "content_source",
	"content_status", "content_hash", "content_quality_score", "content_version",
	"content_fetched_at", "last_hydration_attempt_at", "attempt_count",
	"next_retry_at", "error_code", "content_error",
	"source", "ingested_at", "created_at", "updated_at",
}

var postColumns = strings.Join(postColumnList, ", ")

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPost reads one row in postColumns order into a types.Post.
func scanPost(row rowScanner) (*types.Post, error) {
	var p types.Post
	var authorHandle, authorName, rawJSON sql.NullString
	var articleTitle, articleContent, contentHash sql.NullString
	var errorCode, contentError, source sql.NullString
	var fetchedAt, lastAttemptAt, nextRetryAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&authorHandle,
		&authorName,
		&p.Type,
		&rawJSON,
		&articleTitle,
		&articleContent,
		&p.ContentText,
		&p.ContentSource,
		&p.ContentStatus,
		&contentHash,
		&p.ContentQualityScore,
		&p.ContentVersion,
		&fetchedAt,
		&lastAttemptAt,
		&p.AttemptCount,
		&nextRetryAt,
		&errorCode,
		&contentError,
		&source,
		&p.IngestedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if authorHandle.Valid {
		p.AuthorHandle = authorHandle.String
	}
	if authorName.Valid {
		p.AuthorName = authorName.String
	}
	if articleTitle.Valid {
		p.ArticleTitle = articleTitle.String
	}
	if articleContent.Valid {
		p.ArticleContent = articleContent.String
	}
	if contentHash.Valid {
		p.ContentHash = contentHash.String
	}
	if errorCode.Valid {
		p.ErrorCode = types.ErrorCode(errorCode.String)
	}
	if contentError.Valid {
		p.ContentError = contentError.String
	}
	if source.Valid {
		p.Source = source.String
	}
	if fetchedAt.Valid {
		t := fetchedAt.Time
		p.ContentFetchedAt = &t
	}
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		p.LastHydrationAttemptAt = &t
	}
	if nextRetryAt.Valid {
		t := nextRetryAt.Time
		p.NextRetryAt = &t
	}
	if rawJSON.Valid && rawJSON.String != "" {
		var raw types.RawPost
		if err := json.Unmarshal([]byte(rawJSON.String), &raw); err != nil {
			return nil, fmt.Errorf("unmarshal raw payload: %w", err)
		}
		p.Raw = &raw
	}

	return &p, nil
}

// scanPosts reads all rows returned by a postColumns query.
func scanPosts(rows *sql.Rows) ([]*types.Post, error) {
	var posts []*types.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return posts, nil
}

// nullableTime converts a time pointer to sql.NullTime.
func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullableString converts a string to sql.NullString; empty means NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
