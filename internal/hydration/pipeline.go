package hydration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/pkg/types"
)

// DefaultBackfillJob is the checkpoint job name used when a backfill run
// does not name its own.
const DefaultBackfillJob = "hydration_backfill"

// Store is the storage surface the pipeline needs: post operations plus
// backfill checkpoints.
type Store interface {
	storage.PostStore
	storage.CheckpointStore
}

// Options controls a single hydration run.
type Options struct {
	// IDs restricts the run to explicit posts (article type only),
	// overriding retry-eligibility scheduling.
	IDs []string

	// Limit caps the number of candidates processed (default 50).
	Limit int

	// Force ignores next_retry_at scheduling and allows re-claiming
	// hydrated rows.
	Force bool

	// DryRun reports candidates and their current status without claiming
	// or mutating anything.
	DryRun bool

	// MaxAttempts is the attempt budget before a row is declared missing
	// (default 3).
	MaxAttempts int

	// Backfill makes the run resumable: the cursor of the last processed
	// candidate is persisted after each row under JobName.
	Backfill bool

	// JobName names the backfill checkpoint (default DefaultBackfillJob).
	JobName string
}

// RowResult records one candidate's transition for caller-side auditing.
type RowResult struct {
	ID             string              `json:"id"`
	OldStatus      types.ContentStatus `json:"old_status"`
	NewStatus      types.ContentStatus `json:"new_status"`
	ContentVersion int                 `json:"content_version"`
	ErrorCode      types.ErrorCode     `json:"error_code,omitempty"`
}

// Result aggregates a hydration run. No single post's failure aborts the
// batch; every failure is a row outcome.
type Result struct {
	RunID     string      `json:"run_id"`
	Processed int         `json:"processed"`
	Hydrated  int         `json:"hydrated"`
	Partial   int         `json:"partial"`
	Failed    int         `json:"failed"`
	Missing   int         `json:"missing"`
	Skipped   int         `json:"skipped"`
	Rows      []RowResult `json:"rows"`
}

// ErrNoCandidates is returned when explicitly requested IDs resolve to no
// eligible rows. Caller misuse, distinct from a scheduled run that simply
// has nothing to do.
var ErrNoCandidates = fmt.Errorf("hydration: no candidates matched the requested IDs")

// Pipeline drives hydration runs against one shared store. The only
// concurrency primitive is the store's version-checked conditional write;
// the fetching status itself is the claim, visible and crash-safe.
type Pipeline struct {
	store   Store
	client  PlatformClient
	limiter *rate.Limiter
}

// NewPipeline creates a hydration pipeline. limiter may be nil to disable
// client-side rate limiting.
func NewPipeline(store Store, client PlatformClient, limiter *rate.Limiter) *Pipeline {
	return &Pipeline{store: store, client: client, limiter: limiter}
}

// Run executes one hydration pass:
//
//  1. select candidates (explicit IDs or the retryable set, keyset-ordered)
//  2. dry run: report without mutating
//  3. claim each candidate via the version-checked -> fetching transition
//  4. bulk fetch claimed IDs, falling back to per-ID lookups
//  5. write outcomes through the store's merge policy with the claim-time
//     version pinned; classify failures and schedule retries
//  6. checkpoint after each row when backfilling
//
// Only store-unreachable errors propagate; everything else lands in Result.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.JobName == "" {
		opts.JobName = DefaultBackfillJob
	}

	result := &Result{RunID: uuid.NewString()}

	candOpts := storage.CandidateOptions{
		IDs:   opts.IDs,
		Limit: opts.Limit,
		Force: opts.Force,
	}

	// Resume from the persisted cursor when backfilling.
	var processedBefore int
	if opts.Backfill && len(opts.IDs) == 0 {
		cp, err := p.store.GetCheckpoint(ctx, opts.JobName)
		switch {
		case err == nil:
			candOpts.AfterCreatedAt = cp.CursorCreatedAt
			candOpts.AfterID = cp.CursorID
			processedBefore = cp.ProcessedCount
			log.Printf("hydration: resuming backfill %s after (%s, %s), %d processed so far",
				opts.JobName, cp.CursorCreatedAt.Format(time.RFC3339), cp.CursorID, cp.ProcessedCount)
		case err == storage.ErrNotFound:
			// First run of this job.
		default:
			return nil, fmt.Errorf("hydration: failed to read checkpoint: %w", err)
		}
	}

	candidates, err := p.store.HydrationCandidates(ctx, candOpts)
	if err != nil {
		return nil, fmt.Errorf("hydration: failed to select candidates: %w", err)
	}

	if len(candidates) == 0 {
		if len(opts.IDs) > 0 {
			return nil, ErrNoCandidates
		}
		return result, nil // nothing to do
	}

	if opts.DryRun {
		for _, c := range candidates {
			result.Rows = append(result.Rows, RowResult{
				ID:             c.ID,
				OldStatus:      c.ContentStatus,
				NewStatus:      c.ContentStatus,
				ContentVersion: c.ContentVersion,
			})
		}
		result.Processed = len(candidates)
		return result, nil
	}

	// Claim phase. Only claimed rows proceed; rows lost to a race are
	// reported as skipped, not errors.
	var claimed []*types.Post
	for _, c := range candidates {
		ok, err := p.store.ClaimForHydration(ctx, c.ID, c.ContentVersion, opts.Force)
		if err != nil {
			return nil, fmt.Errorf("hydration: failed to claim %s: %w", c.ID, err)
		}
		if !ok {
			result.Skipped++
			result.Rows = append(result.Rows, RowResult{
				ID:             c.ID,
				OldStatus:      c.ContentStatus,
				NewStatus:      c.ContentStatus,
				ContentVersion: c.ContentVersion,
				ErrorCode:      types.ErrCodeConcurrentUpdate,
			})
			continue
		}
		claimed = append(claimed, c)
	}

	fetched, fetchErrs := p.fetchAll(ctx, claimed)

	writeSource := types.WriteSourceHydration
	if opts.Backfill {
		writeSource = types.WriteSourceBackfill
	}

	for _, c := range claimed {
		row := p.resolveOutcome(ctx, c, fetched[c.ID], fetchErrs[c.ID], writeSource, opts.MaxAttempts)
		result.Rows = append(result.Rows, row)
		result.Processed++

		switch row.NewStatus {
		case types.StatusHydrated:
			result.Hydrated++
		case types.StatusPartial:
			result.Partial++
		case types.StatusFailed:
			result.Failed++
		case types.StatusMissing:
			result.Missing++
		default:
			if row.ErrorCode == types.ErrCodeConcurrentUpdate {
				result.Skipped++
			}
		}

		if opts.Backfill {
			cp := &types.BackfillCheckpoint{
				JobName:         opts.JobName,
				CursorCreatedAt: c.CreatedAt,
				CursorID:        c.ID,
				ProcessedCount:  processedBefore + result.Processed,
			}
			if err := p.store.SaveCheckpoint(ctx, cp); err != nil {
				return nil, fmt.Errorf("hydration: failed to save checkpoint: %w", err)
			}
		}
	}

	log.Printf("hydration: run %s processed=%d hydrated=%d partial=%d failed=%d missing=%d skipped=%d",
		result.RunID, result.Processed, result.Hydrated, result.Partial,
		result.Failed, result.Missing, result.Skipped)

	return result, nil
}

// fetchAll bulk-fetches the claimed IDs, then falls back to per-ID lookups
// for anything the bulk call did not resolve, whether it omitted the ID or
// failed outright. Returns resolved payloads and per-ID fetch errors; IDs
// absent from both maps simply did not resolve.
func (p *Pipeline) fetchAll(ctx context.Context, claimed []*types.Post) (map[string]*types.RawPost, map[string]error) {
	fetched := make(map[string]*types.RawPost, len(claimed))
	fetchErrs := make(map[string]error)

	if len(claimed) == 0 {
		return fetched, fetchErrs
	}

	ids := make([]string, len(claimed))
	for i, c := range claimed {
		ids[i] = c.ID
	}

	if err := p.wait(ctx); err != nil {
		for _, id := range ids {
			fetchErrs[id] = err
		}
		return fetched, fetchErrs
	}

	bulk, err := p.client.GetByIDs(ctx, ids)
	if err != nil {
		// A failed bulk call must not burn an attempt for every claimed
		// row; each ID gets its own lookup below instead.
		log.Printf("hydration: bulk fetch of %d posts failed, retrying per ID: %v", len(ids), err)
	}
	for _, raw := range bulk {
		if raw != nil {
			fetched[raw.ID] = raw
		}
	}

	// Per-ID fallback for IDs the bulk call did not resolve.
	for _, id := range ids {
		if _, ok := fetched[id]; ok {
			continue
		}
		if err := p.wait(ctx); err != nil {
			fetchErrs[id] = err
			continue
		}
		raw, err := p.client.GetByID(ctx, id)
		if err != nil {
			fetchErrs[id] = err
			continue
		}
		if raw != nil {
			fetched[id] = raw
		}
	}

	return fetched, fetchErrs
}

// resolveOutcome settles one claimed row: write the fetched payload through
// the merge policy, or record a classified failure with backoff.
func (p *Pipeline) resolveOutcome(ctx context.Context, c *types.Post, raw *types.RawPost, fetchErr error, writeSource string, maxAttempts int) RowResult {
	row := RowResult{
		ID:             c.ID,
		OldStatus:      c.ContentStatus,
		ContentVersion: c.ContentVersion,
	}

	// attempt_count was incremented by the claim.
	attempt := c.AttemptCount + 1

	if raw == nil {
		// Unresolved fetch: NOT_FOUND once the budget is exhausted,
		// otherwise RETRY_MISSING with a scheduled retry.
		code := types.ErrCodeRetryMissing
		message := "post not returned by platform fetch"
		if fetchErr != nil {
			code = types.ClassifyFetchError(fetchErr)
			message = fetchErr.Error()
		}
		return p.recordFailure(ctx, row, attempt, maxAttempts, code, message)
	}

	res, err := p.store.Upsert(ctx, raw, writeSource, storage.UpsertOptions{
		ExpectedContentVersion: c.ContentVersion,
	})
	if err != nil {
		return p.recordFailure(ctx, row, attempt, maxAttempts, types.ClassifyFetchError(err), err.Error())
	}

	if res.SkippedReason == storage.SkipVersionMismatch || res.SkippedReason == storage.SkipConcurrentUpdate {
		// A concurrent writer already advanced the row; not an error.
		row.NewStatus = res.ContentStatus
		row.ContentVersion = res.ContentVersion
		row.ErrorCode = types.ErrCodeConcurrentUpdate
		return row
	}

	row.NewStatus = res.ContentStatus
	row.ContentVersion = res.ContentVersion
	return row
}

// recordFailure classifies a failed outcome and writes it to the store:
// terminal codes and exhausted budgets become missing, everything else
// becomes failed with a backoff-scheduled retry.
func (p *Pipeline) recordFailure(ctx context.Context, row RowResult, attempt, maxAttempts int, code types.ErrorCode, message string) RowResult {
	terminal := !code.Retryable() || attempt >= maxAttempts
	if terminal && code == types.ErrCodeRetryMissing {
		code = types.ErrCodeNotFound
	}

	failure := storage.HydrationFailure{
		ErrorCode: code,
		Message:   message,
		Terminal:  terminal,
	}
	if !terminal {
		retryAt := time.Now().UTC().Add(RetryDelay(attempt))
		failure.NextRetryAt = &retryAt
	}

	if err := p.store.MarkHydrationFailure(ctx, row.ID, failure); err != nil {
		log.Printf("hydration: failed to record failure for %s: %v", row.ID, err)
	}

	if terminal {
		row.NewStatus = types.StatusMissing
	} else {
		row.NewStatus = types.StatusFailed
	}
	row.ErrorCode = code
	return row
}

// wait blocks on the client-side rate limiter when one is configured.
func (p *Pipeline) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
