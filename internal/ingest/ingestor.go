// Package ingest accepts batches of raw platform posts and writes them
// through the store's merge policy, recording each completed run in the
// sync log.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

// Store is the storage surface ingestion needs: post writes plus the
// sync-log audit trail.
type Store interface {
	storage.PostStore
	storage.SyncLogStore
}

// Classifier assigns tags to freshly ingested posts. Implementations may
// call out to an external service; ingestion treats classification as
// best-effort and never fails a batch over it.
type Classifier interface {
	// Classify returns tags per post ID. Posts absent from the map simply
	// received no tags.
	Classify(ctx context.Context, posts []*types.Post) (map[string][]string, error)
}

// Result summarizes one ingested batch.
type Result struct {
	RunID    string `json:"run_id"`
	Received int    `json:"received"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Tagged   int    `json:"tagged"`
}

// Ingestor writes batches of raw posts into the store. Duplicate IDs within
// or across batches are fine: the merge policy makes re-ingestion a no-op
// unless the new payload carries better content.
type Ingestor struct {
	store      Store
	classifier Classifier
}

// NewIngestor creates an ingestor. classifier may be nil to skip tagging.
func NewIngestor(store Store, classifier Classifier) *Ingestor {
	return &Ingestor{store: store, classifier: classifier}
}

// IngestBatch upserts one page of raw posts under the given write source
// (live, bookmark, manual). A single bad post is skipped with a log line;
// it does not abort the batch. The completed run is appended to the sync
// log with the caller's resume cursor.
func (i *Ingestor) IngestBatch(ctx context.Context, posts []*types.RawPost, writeSource, cursor string) (*Result, error) {
	result := &Result{RunID: uuid.NewString(), Received: len(posts)}

	var accepted []string
	for _, raw := range posts {
		if raw == nil || raw.ID == "" {
			result.Skipped++
			continue
		}

		res, err := i.store.Upsert(ctx, raw, writeSource, storage.UpsertOptions{})
		if err != nil {
			log.Printf("ingest: failed to upsert post %s: %v", raw.ID, err)
			result.Skipped++
			continue
		}

		switch {
		case res.ContentAccepted && res.ContentVersion == 1:
			result.Created++
			accepted = append(accepted, raw.ID)
		case res.ContentAccepted:
			result.Updated++
			accepted = append(accepted, raw.ID)
		default:
			result.Skipped++
		}
	}

	if i.classifier != nil && len(accepted) > 0 {
		result.Tagged = i.classifyAndTag(ctx, accepted)
	}

	entry := &types.SyncLogEntry{
		ID:          result.RunID,
		SyncType:    writeSource,
		Cursor:      cursor,
		PostsSynced: result.Created + result.Updated,
		CompletedAt: time.Now().UTC(),
	}
	if err := i.store.AppendSyncLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("ingest: failed to record sync: %w", err)
	}

	log.Printf("ingest: run %s source=%s received=%d created=%d updated=%d skipped=%d tagged=%d",
		result.RunID, writeSource, result.Received, result.Created, result.Updated,
		result.Skipped, result.Tagged)

	return result, nil
}

// classifyAndTag runs the classifier over the accepted posts and persists
// the resulting tags. Classification failures are logged, never propagated.
func (i *Ingestor) classifyAndTag(ctx context.Context, ids []string) int {
	posts, err := i.store.GetByIDs(ctx, ids)
	if err != nil {
		log.Printf("ingest: failed to load posts for classification: %v", err)
		return 0
	}

	tagsByID, err := i.classifier.Classify(ctx, posts)
	if err != nil {
		log.Printf("ingest: classification failed: %v", err)
		return 0
	}

	tagged := 0
	for id, tags := range tagsByID {
		if len(tags) == 0 {
			continue
		}
		if err := i.store.AddTags(ctx, id, tags); err != nil {
			log.Printf("ingest: failed to tag post %s: %v", id, err)
			continue
		}
		tagged++
	}
	return tagged
}

// LastSync returns the most recent completed run for a sync type, so
// callers can resume incremental syncs from the stored cursor. Returns
// storage.ErrNotFound when that type has never completed a run.
func (i *Ingestor) LastSync(ctx context.Context, syncType string) (*types.SyncLogEntry, error) {
	return i.store.LastSync(ctx, syncType)
}
