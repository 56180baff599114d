package sqlite

// Schema defines the complete database layout: the posts table, the tag
// association table, the sync log, the backfill checkpoint table, and the
// FTS5 full-text index kept in sync with posts via triggers.
//
// All statements are idempotent (IF NOT EXISTS) so the schema can be applied
// on every open.
const Schema = `
CREATE TABLE IF NOT EXISTS posts (
	id                        TEXT PRIMARY KEY,
	author_handle             TEXT,
	author_name               TEXT,
	type                      TEXT NOT NULL DEFAULT 'post',
	raw_json                  TEXT,

	article_title             TEXT,
	article_content           TEXT,
	content_text              TEXT NOT NULL DEFAULT '',
	content_source            TEXT NOT NULL DEFAULT 'unknown',

	content_status            TEXT NOT NULL DEFAULT 'new',
	content_hash              TEXT,
	content_quality_score     INTEGER NOT NULL DEFAULT 0,
	content_version           INTEGER NOT NULL DEFAULT 1,
	content_fetched_at        TIMESTAMP,
	last_hydration_attempt_at TIMESTAMP,
	attempt_count             INTEGER NOT NULL DEFAULT 0,
	next_retry_at             TIMESTAMP,
	error_code                TEXT,
	content_error             TEXT,

	source                    TEXT,
	ingested_at               TIMESTAMP NOT NULL,
	created_at                TIMESTAMP NOT NULL,
	updated_at                TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_status_retry ON posts(content_status, next_retry_at);
CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at, id);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_handle);

CREATE TABLE IF NOT EXISTS post_tags (
	post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	tag        TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (post_id, tag)
);

CREATE INDEX IF NOT EXISTS idx_post_tags_tag ON post_tags(tag);

CREATE TABLE IF NOT EXISTS sync_log (
	id           TEXT PRIMARY KEY,
	sync_type    TEXT NOT NULL,
	cursor       TEXT,
	posts_synced INTEGER NOT NULL DEFAULT 0,
	completed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_log_type ON sync_log(sync_type, completed_at);

CREATE TABLE IF NOT EXISTS backfill_checkpoints (
	job_name          TEXT PRIMARY KEY,
	cursor_created_at TIMESTAMP NOT NULL,
	cursor_id         TEXT NOT NULL,
	processed_count   INTEGER NOT NULL DEFAULT 0,
	updated_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
	content_text,
	article_title,
	author_handle,
	author_name,
	content='posts',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS posts_fts_insert AFTER INSERT ON posts BEGIN
	INSERT INTO posts_fts(rowid, content_text, article_title, author_handle, author_name)
	VALUES (new.rowid, new.content_text, new.article_title, new.author_handle, new.author_name);
END;

CREATE TRIGGER IF NOT EXISTS posts_fts_delete AFTER DELETE ON posts BEGIN
	INSERT INTO posts_fts(posts_fts, rowid, content_text, article_title, author_handle, author_name)
	VALUES ('delete', old.rowid, old.content_text, old.article_title, old.author_handle, old.author_name);
END;

CREATE TRIGGER IF NOT EXISTS posts_fts_update AFTER UPDATE ON posts BEGIN
	INSERT INTO posts_fts(posts_fts, rowid, content_text, article_title, author_handle, author_name)
	VALUES ('delete', old.rowid, old.content_text, old.article_title, old.author_handle, old.author_name);
	INSERT INTO posts_fts(rowid, content_text, article_title, author_handle, author_name)
	VALUES (new.rowid, new.content_text, new.article_title, new.author_handle, new.author_name);
END;
`
