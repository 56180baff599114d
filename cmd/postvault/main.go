// cmd/postvault is the command-line entry point for the PostVault store.
// It wires the SQLite storage backend through the ingestion, hydration, and
// query layers.
//
// Subcommands:
//
//	ingest   -file posts.json -source bookmark    write a batch of raw posts
//	hydrate  [-ids a,b] [-limit n] [-force] [-dry-run] [-backfill] [-job name]
//	search   -q "query" [-status hydrated] [-full]
//	list     [-status s] [-type t] [-author h] [-tag t] [-cursor c]
//	stats                                          hydration bookkeeping
//	reset    -id <post-id>                         manual re-hydrate reset
//	stale    -ids a,b                              mark hydrated rows stale
//	backup   -dir snapshots [-keep 7]              snapshot the database
//	restore  -snapshot path                        restore from a snapshot
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/scrypster/postvault/internal/backup"
	"github.com/scrypster/postvault/internal/config"
	"github.com/scrypster/postvault/internal/hydration"
	"github.com/scrypster/postvault/internal/ingest"
	"github.com/scrypster/postvault/internal/query"
	"github.com/scrypster/postvault/internal/storage"
	"github.com/scrypster/postvault/internal/storage/sqlite"
	"github.com/scrypster/postvault/pkg/types"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("postvault: ")
	log.SetFlags(log.LstdFlags)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Restore runs against a closed database, so it is dispatched before the
	// store is opened.
	if os.Args[1] == "restore" {
		if err := runRestore(cfg, os.Args[2:]); err != nil {
			log.Fatalf("restore failed: %v", err)
		}
		return
	}

	store, err := sqlite.NewPostStore(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database at %q: %v", cfg.Storage.DatabasePath, err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	var cmdErr error
	switch os.Args[1] {
	case "ingest":
		cmdErr = runIngest(ctx, store, os.Args[2:])
	case "hydrate":
		cmdErr = runHydrate(ctx, cfg, store, os.Args[2:])
	case "search":
		cmdErr = runSearch(ctx, cfg, store, os.Args[2:])
	case "list":
		cmdErr = runList(ctx, cfg, store, os.Args[2:])
	case "stats":
		cmdErr = runStats(ctx, cfg, store)
	case "reset":
		cmdErr = runReset(ctx, store, os.Args[2:])
	case "stale":
		cmdErr = runStale(ctx, store, os.Args[2:])
	case "backup":
		cmdErr = runBackup(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		log.Fatalf("%s failed: %v", os.Args[1], cmdErr)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: postvault <ingest|hydrate|search|list|stats|reset|stale|backup|restore> [flags]")
}

func runBackup(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	dir := fs.String("dir", "./snapshots", "snapshot directory")
	keep := fs.Int("keep", 7, "snapshots to retain (0 disables pruning)")
	verify := fs.Bool("verify", true, "run an integrity check on the snapshot")
	fs.Parse(args)

	result, err := backup.Snapshot(backup.Options{
		DBPath: cfg.Storage.DatabasePath,
		Dir:    *dir,
		Keep:   *keep,
		Verify: *verify,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runRestore(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	snapshot := fs.String("snapshot", "", "snapshot file to restore from")
	fs.Parse(args)

	if *snapshot == "" {
		return fmt.Errorf("-snapshot is required")
	}
	if err := backup.Restore(*snapshot, cfg.Storage.DatabasePath); err != nil {
		return err
	}
	fmt.Printf("restored %s from %s\n", cfg.Storage.DatabasePath, *snapshot)
	return nil
}

func runIngest(ctx context.Context, store *sqlite.PostStore, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := fs.String("file", "", "JSON file containing an array of raw posts")
	source := fs.String("source", types.WriteSourceManual, "write source label (live, bookmark, manual)")
	cursor := fs.String("cursor", "", "resume cursor recorded in the sync log")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}
	var posts []*types.RawPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}

	ingestor := ingest.NewIngestor(store, nil)
	result, err := ingestor.IngestBatch(ctx, posts, *source, *cursor)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// fileClient is a PlatformClient backed by a JSON file mapping post IDs to
// raw payloads, for offline hydration from an exported archive.
type fileClient struct {
	posts map[string]*types.RawPost
}

func newFileClient(path string) (*fileClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var posts []*types.RawPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	byID := make(map[string]*types.RawPost, len(posts))
	for _, p := range posts {
		if p != nil && p.ID != "" {
			byID[p.ID] = p
		}
	}
	return &fileClient{posts: byID}, nil
}

func (c *fileClient) GetByID(ctx context.Context, id string) (*types.RawPost, error) {
	if p, ok := c.posts[id]; ok {
		return p, nil
	}
	return nil, &hydration.NotFoundError{ID: id}
}

func (c *fileClient) GetByIDs(ctx context.Context, ids []string) ([]*types.RawPost, error) {
	var out []*types.RawPost
	for _, id := range ids {
		if p, ok := c.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func runHydrate(ctx context.Context, cfg *config.Config, store *sqlite.PostStore, args []string) error {
	fs := flag.NewFlagSet("hydrate", flag.ExitOnError)
	ids := fs.String("ids", "", "comma-separated post IDs (articles only)")
	limit := fs.Int("limit", cfg.Hydration.Limit, "candidate cap")
	force := fs.Bool("force", false, "ignore retry scheduling and re-claim hydrated rows")
	dryRun := fs.Bool("dry-run", false, "report candidates without mutating")
	backfill := fs.Bool("backfill", false, "resumable checkpointed run")
	job := fs.String("job", hydration.DefaultBackfillJob, "backfill checkpoint job name")
	archive := fs.String("archive", "", "JSON archive file serving as the fetch source")
	fs.Parse(args)

	if *archive == "" {
		return fmt.Errorf("-archive is required (JSON array of raw posts)")
	}
	client, err := newFileClient(*archive)
	if err != nil {
		return err
	}

	var limiter *rate.Limiter
	if cfg.Hydration.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Hydration.RatePerSecond), cfg.Hydration.RateBurst)
	}

	breaker := hydration.NewBreakerClientWithConfig(client, hydration.BreakerConfig{
		MaxFailures:         uint32(cfg.Hydration.BreakerMaxFailures),
		Timeout:             cfg.Hydration.BreakerTimeout,
		HalfOpenMaxRequests: 2,
	})

	pipeline := hydration.NewPipeline(store, breaker, limiter)
	opts := hydration.Options{
		Limit:       *limit,
		Force:       *force,
		DryRun:      *dryRun,
		MaxAttempts: cfg.Hydration.MaxAttempts,
		Backfill:    *backfill,
		JobName:     *job,
	}
	if *ids != "" {
		opts.IDs = strings.Split(*ids, ",")
	}

	result, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runSearch(ctx context.Context, cfg *config.Config, store *sqlite.PostStore, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	q := fs.String("q", "", "search query")
	limit := fs.Int("limit", 20, "max results")
	offset := fs.Int("offset", 0, "results to skip")
	status := fs.String("status", "", "content status filter")
	tag := fs.String("tag", "", "tag filter")
	full := fs.Bool("full", false, "return full content instead of snippets")
	fs.Parse(args)

	svc := query.NewService(store, store)
	page, err := svc.SearchContent(ctx, storage.SearchOptions{
		Query:  *q,
		Limit:  *limit,
		Offset: *offset,
		Status: types.ContentStatus(*status),
		Tag:    *tag,
	}, renderOptions(cfg, *full))
	if err != nil {
		return err
	}
	return printJSON(page)
}

func runList(ctx context.Context, cfg *config.Config, store *sqlite.PostStore, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 20, "max results")
	cursor := fs.String("cursor", "", "keyset cursor from a previous page")
	status := fs.String("status", "", "content status filter")
	postType := fs.String("type", "", "post type filter")
	author := fs.String("author", "", "author handle filter")
	tag := fs.String("tag", "", "tag filter")
	full := fs.Bool("full", false, "return full content instead of snippets")
	fs.Parse(args)

	svc := query.NewService(store, store)
	page, err := svc.ListContent(ctx, storage.ListOptions{
		Limit:        *limit,
		Cursor:       *cursor,
		Status:       types.ContentStatus(*status),
		Type:         types.PostType(*postType),
		AuthorHandle: *author,
		Tag:          *tag,
	}, renderOptions(cfg, *full))
	if err != nil {
		return err
	}
	return printJSON(page)
}

func runStats(ctx context.Context, cfg *config.Config, store *sqlite.PostStore) error {
	stats, err := store.Stats(ctx, cfg.Hydration.StuckFetchingBound)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runReset(ctx context.Context, store *sqlite.PostStore, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	id := fs.String("id", "", "post ID to reset for re-hydration")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}
	if err := store.ResetHydration(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("post %s reset to pending\n", *id)
	return nil
}

func runStale(ctx context.Context, store *sqlite.PostStore, args []string) error {
	fs := flag.NewFlagSet("stale", flag.ExitOnError)
	ids := fs.String("ids", "", "comma-separated post IDs to mark stale")
	fs.Parse(args)

	if *ids == "" {
		return fmt.Errorf("-ids is required")
	}
	count, err := store.MarkStale(ctx, strings.Split(*ids, ","))
	if err != nil {
		return err
	}
	fmt.Printf("%d posts marked stale\n", count)
	return nil
}

func renderOptions(cfg *config.Config, full bool) query.RenderOptions {
	return query.RenderOptions{
		FullContent:   full,
		SnippetChars:  cfg.Query.SnippetChars,
		ContentBudget: cfg.Query.ContentBudget,
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
