// Package types defines the domain types shared across the PostVault system:
// the Post entity, the raw platform payload shape, and the content status
// state machine that governs hydration.
package types

import "time"

// PostType classifies a post by its payload shape. The type is derived by the
// canonicalizer on every write and never hand-edited.
type PostType string

const (
	TypePost       PostType = "post"        // Plain standalone post
	TypeReply      PostType = "reply"       // Has an in-reply-to reference
	TypeQuote      PostType = "quote"       // Quotes another post
	TypeThreadRoot PostType = "thread_root" // First post of a self-thread
	TypeArticle    PostType = "article"     // Carries an article sub-object (long-form)
)

// ContentSource records which payload field supplied the canonical body.
type ContentSource string

const (
	SourceArticle   ContentSource = "article"    // Full article body
	SourceNoteTweet ContentSource = "note_tweet" // Long-form note text
	SourceTweet     ContentSource = "tweet"      // Base post text
	SourceUnknown   ContentSource = "unknown"    // Nothing usable in the payload
)

// Write-source labels for the ingestion paths that produce upserts. The
// canonicalizer ranks these when scoring competing content versions; a
// deliberate fetch-by-ID (hydration/backfill) is more likely to carry full
// content than a timeline or bookmark payload.
const (
	WriteSourceHydration = "hydration"
	WriteSourceBackfill  = "backfill"
	WriteSourceManual    = "manual"
	WriteSourceBookmark  = "bookmark"
	WriteSourceLive      = "live"
)

// RawPost is the platform post payload as fetched from the external API,
// reduced to a struct with explicit optional fields. Field-presence detection
// happens once here, at the boundary; the rest of the system never
// re-inspects raw shapes.
type RawPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`

	// Author information.
	AuthorHandle string `json:"author_handle,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`

	// Article is present (possibly empty) when the post is an article tweet.
	// Presence alone drives article-type detection, so the pointer matters
	// even when the struct holds no title or body.
	Article *RawArticle `json:"article,omitempty"`

	// NoteText holds expanded long-form note text when the post exceeds the
	// base text length limit.
	NoteText string `json:"note_text,omitempty"`

	// InReplyToID references the post this one replies to.
	InReplyToID string `json:"in_reply_to_id,omitempty"`

	// QuotedID references a quoted post.
	QuotedID string `json:"quoted_id,omitempty"`

	// ThreadRoot marks the first post of a self-thread.
	ThreadRoot bool `json:"thread_root,omitempty"`
}

// RawArticle is the article-shaped sub-object on long-form posts.
type RawArticle struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// Post is the central stored entity: one row per platform post ID. IDs are
// assigned by the source platform and never generated locally.
type Post struct {
	// Identity.
	ID           string `json:"id"`
	AuthorHandle string `json:"author_handle,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`

	// Classification (derived).
	Type PostType `json:"type"`

	// Raw payload, stored verbatim for audit/reparse. Never mutated.
	Raw *RawPost `json:"raw,omitempty"`

	// Canonical content. ContentText is the single field consumers read.
	ArticleTitle   string        `json:"article_title,omitempty"`
	ArticleContent string        `json:"article_content,omitempty"`
	ContentText    string        `json:"content_text"`
	ContentSource  ContentSource `json:"content_source"`

	// Hydration bookkeeping.
	ContentStatus       ContentStatus `json:"content_status"`
	ContentHash         string        `json:"content_hash,omitempty"` // empty when body is empty
	ContentQualityScore int           `json:"content_quality_score"`
	ContentVersion      int           `json:"content_version"` // starts at 1, bumps only on accepted content
	ContentFetchedAt    *time.Time    `json:"content_fetched_at,omitempty"`

	LastHydrationAttemptAt *time.Time `json:"last_hydration_attempt_at,omitempty"`
	AttemptCount           int        `json:"attempt_count"`
	NextRetryAt            *time.Time `json:"next_retry_at,omitempty"`
	ErrorCode              ErrorCode  `json:"error_code,omitempty"`
	ContentError           string     `json:"content_error,omitempty"`

	// Provenance.
	Source     string    `json:"source,omitempty"` // ingestion path that wrote this version
	IngestedAt time.Time `json:"ingested_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Tags associated with the post (loaded on demand).
	Tags []string `json:"tags,omitempty"`
}

// SyncLogEntry is an append-only audit record of a completed ingestion run.
type SyncLogEntry struct {
	ID          string    `json:"id"`
	SyncType    string    `json:"sync_type"`
	Cursor      string    `json:"cursor,omitempty"`
	PostsSynced int       `json:"posts_synced"`
	CompletedAt time.Time `json:"completed_at"`
}

// BackfillCheckpoint is the persisted cursor state for a named resumable job.
// Upserted after each processed row; read once at the start of a run.
type BackfillCheckpoint struct {
	JobName         string    `json:"job_name"`
	CursorCreatedAt time.Time `json:"cursor_created_at"`
	CursorID        string    `json:"cursor_id"`
	ProcessedCount  int       `json:"processed_count"`
}
