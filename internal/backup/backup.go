// Package backup provides point-in-time snapshots of the PostVault database
// with integrity verification and count-based pruning. Snapshots use
// SQLite's VACUUM INTO, which produces a consistent copy even under WAL
// mode while the store keeps serving writes.
package backup

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const snapshotPrefix = "postvault-"

// Options configures snapshot creation.
type Options struct {
	// DBPath is the live database file.
	DBPath string

	// Dir is the snapshot directory, created if absent.
	Dir string

	// Keep is the number of snapshots retained after pruning; 0 disables
	// pruning.
	Keep int

	// Verify runs an integrity check on the fresh snapshot.
	Verify bool
}

// Result describes one completed snapshot.
type Result struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"duration"`
	Verified bool          `json:"verified"`
	Pruned   int           `json:"pruned"`
}

// Snapshot writes a consistent copy of the database into opts.Dir, named
// with a sortable UTC timestamp, then prunes old snapshots past opts.Keep.
func Snapshot(opts Options) (*Result, error) {
	if opts.DBPath == "" || opts.Dir == "" {
		return nil, fmt.Errorf("backup: database path and snapshot directory are required")
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("backup: failed to create snapshot directory: %w", err)
	}

	start := time.Now()
	dest := filepath.Join(opts.Dir, snapshotPrefix+start.UTC().Format("20060102-150405")+".db")

	if err := vacuumInto(opts.DBPath, dest); err != nil {
		return nil, err
	}

	result := &Result{Path: dest, Duration: time.Since(start)}

	if info, err := os.Stat(dest); err == nil {
		result.Size = info.Size()
	}

	if opts.Verify {
		if err := verify(dest); err != nil {
			// A corrupt snapshot is worse than none.
			os.Remove(dest)
			return nil, err
		}
		result.Verified = true
	}

	if opts.Keep > 0 {
		pruned, err := prune(opts.Dir, opts.Keep)
		if err != nil {
			log.Printf("backup: pruning failed (snapshot kept): %v", err)
		}
		result.Pruned = pruned
	}

	return result, nil
}

// Restore copies a verified snapshot over the target database path. The
// target store must be closed first.
func Restore(snapshotPath, targetPath string) error {
	if err := verify(snapshotPath); err != nil {
		return err
	}

	src, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: failed to open snapshot: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("backup: failed to create target: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("backup: failed to copy snapshot: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("backup: failed to sync target: %w", err)
	}

	return verify(targetPath)
}

// List returns snapshot paths in the directory, newest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to read snapshot directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}

	// Timestamped names sort lexically; reverse for newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// vacuumInto creates the consistent copy. The source is opened read-only so
// a snapshot can never mutate the live database.
func vacuumInto(sourcePath, destPath string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", sourcePath))
	if err != nil {
		return fmt.Errorf("backup: failed to open source database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("backup: source database unreachable: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("backup: vacuum into failed: %w", err)
	}
	return nil
}

// verify opens a snapshot read-only and runs SQLite's integrity check.
func verify(path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: failed to open %s: %w", path, err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check failed to run: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check failed: %s", result)
	}
	return nil
}

// prune removes snapshots beyond the newest keep. Deletion failures do not
// stop the sweep.
func prune(dir string, keep int) (int, error) {
	paths, err := List(dir)
	if err != nil {
		return 0, err
	}
	if len(paths) <= keep {
		return 0, nil
	}

	pruned := 0
	var lastErr error
	for _, path := range paths[keep:] {
		if err := os.Remove(path); err != nil {
			lastErr = err
			continue
		}
		pruned++
	}
	return pruned, lastErr
}
