// Package syncer orchestrates synchronization between content files on
// disk and records in the content store.
//
// The syncer reads frontmatter files, runs the sync decision engine for
// each one, applies pulls through the store interface, and fires
// downstream notifications (link re-extraction, index refresh, revision
// snapshots) after every successful write.
//
// The syncer is resilient: individual file failures are counted and the
// batch continues with the next file. Only an unreadable root directory
// or a cancelled context aborts a batch.
package syncer

import (
	"context"

	"github.com/gabe-kai/Arcadium-sub000/internal/engine"
	"github.com/gabe-kai/Arcadium-sub000/internal/store"
)

// Syncer keeps the content store in sync with frontmatter files on disk.
type Syncer interface {
	// SyncAll enumerates every content file under the root directory and
	// syncs each one. Files are processed concurrently by a bounded
	// worker pool; files that could resolve to the same short identifier
	// are serialized and the second one is reported as an error.
	//
	// force bypasses the decision engine and always pulls.
	//
	// Cancellation aborts files not yet started; files in flight complete
	// normally. The partial BatchResult is returned alongside ctx.Err().
	SyncAll(ctx context.Context, force bool) (*BatchResult, error)

	// SyncDir behaves like SyncAll restricted to one subtree. dir may be
	// absolute or relative to the root directory.
	SyncDir(ctx context.Context, dir string, force bool) (*BatchResult, error)

	// SyncOne syncs a single file. Unlike batch errors, the error is
	// returned directly so callers (the CLI, the watcher handler) can
	// report it.
	SyncOne(ctx context.Context, path string, force bool) (*SingleResult, error)

	// PushRecord materializes a store record to its resolved path on
	// disk. Pushes are unconditional: store writes are authoritative.
	// If the record's resolved path changed (rename or reparent), the
	// old file is removed and now-empty directories are pruned. Custom
	// frontmatter keys already present in the target file are preserved.
	PushRecord(ctx context.Context, rec *store.Record) error

	// ExportAll pushes every store record out to disk. Per-record
	// failures (including cyclic hierarchies) are counted and the export
	// continues.
	ExportAll(ctx context.Context) (*BatchResult, error)
}

// FileError pairs a path with the error that stopped its sync.
type FileError struct {
	Path string
	Err  error
}

// BatchResult summarizes one batch sync.
type BatchResult struct {
	Created int
	Updated int
	Skipped int
	Errors  int
	// Failures carries the per-file detail behind the Errors count.
	Failures []FileError
}

// HasErrors reports whether any file in the batch failed.
func (r *BatchResult) HasErrors() bool {
	return r.Errors > 0
}

// SingleResult describes the outcome for one file.
type SingleResult struct {
	Path     string
	Slug     string
	Decision engine.Decision
	Reason   engine.Reason
	// Created is true when the pull created a new record rather than
	// updating one.
	Created bool
	// Conflicts is the number of unresolved regions when the opt-in
	// merge path ran.
	Conflicts int
}
