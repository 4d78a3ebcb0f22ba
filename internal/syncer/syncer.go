package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gabe-kai/Arcadium-sub000/internal/contenthash"
	"github.com/gabe-kai/Arcadium-sub000/internal/engine"
	"github.com/gabe-kai/Arcadium-sub000/internal/frontmatter"
	"github.com/gabe-kai/Arcadium-sub000/internal/merge"
	"github.com/gabe-kai/Arcadium-sub000/internal/notify"
	"github.com/gabe-kai/Arcadium-sub000/internal/pathres"
	"github.com/gabe-kai/Arcadium-sub000/internal/store"
)

// Backend is what the syncer needs from the content store: record
// persistence plus hierarchy lookups for path resolution.
type Backend interface {
	store.Store
	pathres.Hierarchy
}

// Config holds syncer configuration.
type Config struct {
	// GracePeriod protects recent store-side edits from file-driven
	// overwrites.
	GracePeriod time.Duration

	// CompareContent enables the digest short-circuit in the decision
	// engine.
	CompareContent bool

	// MergeOnConflict opts into merging when both sides changed, instead
	// of the default file-wins overwrite.
	MergeOnConflict bool

	// Workers bounds batch concurrency.
	Workers int

	// DefaultAuthor is used when file metadata omits creator/updater.
	DefaultAuthor string

	// Logger for sync activity.
	Logger *log.Logger

	// Now returns the current time. Tests inject a fake clock here.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GracePeriod:    10 * time.Minute,
		CompareContent: true,
		Workers:        4,
		DefaultAuthor:  "arcsync",
		Logger:         log.New(os.Stderr, "[sync] ", log.LstdFlags),
		Now:            time.Now,
	}
}

type syncer struct {
	backend  Backend
	notifier notify.Notifier
	root     string
	config   *Config
	locks    *keyMutex
}

// New creates a Syncer rooted at the content directory.
//
// If config is nil, DefaultConfig is used. If the config's Logger or Now
// are nil they fall back to the defaults.
func New(backend Backend, notifier notify.Notifier, root string, config *Config) Syncer {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &syncer{
		backend:  backend,
		notifier: notifier,
		root:     root,
		config:   config,
		locks:    newKeyMutex(),
	}
}

// SyncAll implements Syncer.SyncAll.
func (s *syncer) SyncAll(ctx context.Context, force bool) (*BatchResult, error) {
	return s.syncBatch(ctx, s.root, force)
}

// SyncDir implements Syncer.SyncDir.
func (s *syncer) SyncDir(ctx context.Context, dir string, force bool) (*BatchResult, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.root, dir)
	}
	return s.syncBatch(ctx, dir, force)
}

// SyncOne implements Syncer.SyncOne. The per-identifier lock is held
// across the read-decide-write sequence, so a near-simultaneous trigger
// for the same identifier waits instead of racing.
func (s *syncer) SyncOne(ctx context.Context, path string, force bool) (*SingleResult, error) {
	return s.syncPath(ctx, path, force, nil)
}

// syncBatch enumerates content files under dir and syncs them through a
// bounded worker pool.
func (s *syncer) syncBatch(ctx context.Context, dir string, force bool) (*BatchResult, error) {
	paths, err := enumerate(dir)
	if err != nil {
		return nil, err
	}

	s.config.Logger.Printf("Syncing %d file(s) under %s", len(paths), dir)

	var (
		result   = &BatchResult{}
		resultMu sync.Mutex
		claims   = newClaimSet()
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for _, path := range paths {
		g.Go(func() error {
			// Abort files not yet started once the context is cancelled.
			if err := gctx.Err(); err != nil {
				return err
			}

			// A file past the gate runs its store and file writes to
			// completion even if the batch is cancelled mid-sequence; a
			// partial write would leave the snapshot and the record (or
			// the record and the file) disagreeing.
			res, err := s.syncPath(context.WithoutCancel(gctx), path, force, claims)

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				result.Errors++
				result.Failures = append(result.Failures, FileError{Path: path, Err: err})
				s.config.Logger.Printf("WARNING: failed to sync %s: %v", path, err)
				return nil
			}
			result.tally(res)
			return nil
		})
	}

	err = g.Wait()

	s.config.Logger.Printf("Sync complete: created=%d updated=%d skipped=%d errors=%d",
		result.Created, result.Updated, result.Skipped, result.Errors)
	return result, err
}

func (r *BatchResult) tally(res *SingleResult) {
	switch {
	case res.Decision == engine.Skip:
		r.Skipped++
	case res.Created:
		r.Created++
	default:
		r.Updated++
	}
}

// enumerate collects content files under dir, skipping dot-directories.
func enumerate(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == pathres.Ext {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", dir, err)
	}
	return paths, nil
}

// syncPath runs the full decision-and-apply sequence for one file.
func (s *syncer) syncPath(ctx context.Context, path string, force bool, claims *claimSet) (*SingleResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	meta, body, err := frontmatter.Decode(raw)
	if err != nil {
		return nil, err
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("%w: missing required title", frontmatter.ErrMalformedMetadata)
	}

	slug := meta.Slug
	if slug == "" {
		slug = strings.TrimSuffix(filepath.Base(path), pathres.Ext)
		s.config.Logger.Printf("No slug in %s, derived %q from filename", path, slug)
	}

	unlock := s.locks.Lock(slug)
	defer unlock()

	if claims != nil {
		if owner, ok := claims.claim(slug, path); !ok {
			return nil, fmt.Errorf("duplicate short identifier %q: already claimed by %s", slug, owner)
		}
	}

	rec, err := s.backend.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup %q: %w", slug, err)
	}

	res := &SingleResult{Path: path, Slug: slug}

	if force {
		res.Decision = engine.PullFileToStore
		res.Reason = engine.ReasonFileNewer
		if err := s.applyPull(ctx, path, meta, body, rec, res); err != nil {
			return nil, err
		}
		return res, nil
	}

	state := engine.SyncState{
		FileModTime:  info.ModTime(),
		FileDigest:   contenthash.Digest(body),
		RecordExists: rec != nil,
		Now:          s.config.Now(),
	}
	if rec != nil {
		state.RecordUpdatedAt = rec.UpdatedAt
		state.RecordDigest = contenthash.Digest(rec.Body)
	}

	policy := engine.Policy{
		GracePeriod:     s.config.GracePeriod,
		CompareContent:  s.config.CompareContent,
		MergeOnConflict: s.config.MergeOnConflict,
	}

	res.Decision, res.Reason = engine.Decide(state, policy)

	switch res.Decision {
	case engine.Skip:
		if res.Reason == engine.ReasonGraceSuppressed {
			s.config.Logger.Printf("Warning: conflict suppressed for %s: record %q updated %v ago (grace %v)",
				path, slug, state.Now.Sub(rec.UpdatedAt).Round(time.Second), s.config.GracePeriod)
		}
		return res, nil

	case engine.PullFileToStore:
		if err := s.applyPull(ctx, path, meta, body, rec, res); err != nil {
			return nil, err
		}
		return res, nil

	case engine.ConflictRequiresMerge:
		if err := s.applyMerge(ctx, path, meta, body, rec, res); err != nil {
			return nil, err
		}
		return res, nil

	default:
		return nil, fmt.Errorf("unexpected decision %v for %s", res.Decision, path)
	}
}

// applyPull writes file content into the store, creating or updating
// the record, and fires downstream notifications.
func (s *syncer) applyPull(ctx context.Context, path string, meta *frontmatter.Metadata, body string, rec *store.Record, res *SingleResult) error {
	now := s.config.Now().UTC()

	parentID := s.resolveParent(ctx, path, meta.Parent)

	status := meta.Status
	if status == "" {
		status = "draft"
	}
	author := meta.Author
	if author == "" {
		author = s.config.DefaultAuthor
	}
	editor := meta.Editor
	if editor == "" {
		editor = author
	}

	rel := s.relPath(path)

	if rec == nil {
		rec = &store.Record{
			Title:     meta.Title,
			Slug:      res.Slug,
			Body:      body,
			ParentID:  parentID,
			Category:  meta.Category,
			SortOrder: meta.Order,
			Status:    status,
			Path:      rel,
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: author,
			UpdatedBy: editor,
		}
		if err := s.backend.Create(ctx, rec); err != nil {
			return err
		}
		res.Created = true
		s.config.Logger.Printf("Pulled %s -> created %q (rev %d)", path, rec.Slug, rec.Revision)
	} else {
		// Snapshot the prior body before the update lands.
		prior := *rec
		if err := s.notifier.RevisionCreated(ctx, &prior); err != nil {
			s.config.Logger.Printf("Warning: revision snapshot failed for %q: %v", rec.Slug, err)
		}

		rec.Title = meta.Title
		rec.Body = body
		rec.ParentID = parentID
		rec.Category = meta.Category
		rec.SortOrder = meta.Order
		rec.Status = status
		rec.Path = rel
		rec.UpdatedAt = now
		rec.UpdatedBy = editor
		if err := s.backend.Update(ctx, rec); err != nil {
			return err
		}
		s.config.Logger.Printf("Pulled %s -> updated %q (rev %d)", path, rec.Slug, rec.Revision)
	}

	if err := s.notifier.ContentChanged(ctx, rec); err != nil {
		s.config.Logger.Printf("Warning: change notification failed for %q: %v", rec.Slug, err)
	}
	return nil
}

// applyMerge combines both sides, stores the merged body, and rewrites
// the file so both representations converge on the merged text.
func (s *syncer) applyMerge(ctx context.Context, path string, meta *frontmatter.Metadata, body string, rec *store.Record, res *SingleResult) error {
	merged := merge.Merge(body, rec.Body)
	res.Conflicts = merged.Conflicts
	if merged.HasConflicts {
		s.config.Logger.Printf("Warning: %d unresolved conflict region(s) in %s, markers embedded", merged.Conflicts, path)
	}

	if err := s.applyPull(ctx, path, meta, merged.Body, rec, res); err != nil {
		return err
	}

	out, err := frontmatter.Encode(meta, merged.Body)
	if err != nil {
		return fmt.Errorf("re-encode merged %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write merged %s: %w", path, err)
	}
	return nil
}

// resolveParent soft-resolves a parent slug to a stable identifier. An
// unresolvable parent is a warning, not an error: the record proceeds
// with no parent.
func (s *syncer) resolveParent(ctx context.Context, path, parentSlug string) string {
	if parentSlug == "" {
		return ""
	}

	parent, err := s.backend.FindBySlug(ctx, parentSlug)
	if errors.Is(err, store.ErrNotFound) {
		s.config.Logger.Printf("Warning: unresolved parent %q for %s, leaving parent unset", parentSlug, path)
		return ""
	}
	if err != nil {
		s.config.Logger.Printf("Warning: parent lookup %q for %s failed (%v), leaving parent unset", parentSlug, path, err)
		return ""
	}
	return parent.ID
}

// relPath converts an absolute content path to the root-relative form
// recorded on the store record.
func (s *syncer) relPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(rootAbs, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// PushRecord implements Syncer.PushRecord.
func (s *syncer) PushRecord(ctx context.Context, rec *store.Record) error {
	chain, err := pathres.ChainFor(ctx, s.backend, rec.ParentID)
	if err != nil {
		return fmt.Errorf("resolve hierarchy for %q: %w", rec.Slug, err)
	}

	rel := pathres.Resolve(rec.Category, chain, rec.Slug)
	abs := filepath.Join(s.root, rel)

	meta := &frontmatter.Metadata{
		Title:    rec.Title,
		Slug:     rec.Slug,
		Category: rec.Category,
		Order:    rec.SortOrder,
		Status:   rec.Status,
		Author:   rec.CreatedBy,
		Editor:   rec.UpdatedBy,
	}
	if len(chain) > 0 {
		meta.Parent = chain[len(chain)-1]
	}

	// Custom keys in the existing file are opaque caller data; a push
	// must not destroy them. After a rename or reparent the keys live at
	// the record's previous path, which is about to be removed.
	sources := []string{abs}
	if rec.Path != "" && rec.Path != rel {
		sources = []string{filepath.Join(s.root, rec.Path), abs}
	}
	for _, src := range sources {
		raw, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		if old, _, derr := frontmatter.Decode(raw); derr == nil {
			meta.Extra = old.Extra
			break
		}
	}

	out, err := frontmatter.Encode(meta, rec.Body)
	if err != nil {
		return fmt.Errorf("encode %q: %w", rec.Slug, err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create directory for %q: %w", rec.Slug, err)
	}
	if err := os.WriteFile(abs, out, 0644); err != nil {
		return fmt.Errorf("write %s: %w", abs, err)
	}

	// A rename or reparent changed the resolved path: remove the stale
	// file and prune directories it leaves empty.
	if rec.Path != "" && rec.Path != rel {
		oldAbs := filepath.Join(s.root, rec.Path)
		if err := os.Remove(oldAbs); err != nil && !os.IsNotExist(err) {
			s.config.Logger.Printf("Warning: failed to remove stale file %s: %v", oldAbs, err)
		}
		s.pruneEmptyDirs(filepath.Dir(oldAbs))
	}

	if rec.Path != rel {
		if err := s.backend.UpdatePath(ctx, rec.ID, rel); err != nil {
			return err
		}
		rec.Path = rel
	}

	s.config.Logger.Printf("Pushed %q -> %s", rec.Slug, rel)
	return nil
}

// pruneEmptyDirs removes empty directories from dir up toward the root.
func (s *syncer) pruneEmptyDirs(dir string) {
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return
	}

	for {
		abs, err := filepath.Abs(dir)
		if err != nil || abs == rootAbs || !strings.HasPrefix(abs, rootAbs) {
			return
		}
		if err := os.Remove(abs); err != nil {
			return // non-empty or gone
		}
		dir = filepath.Dir(dir)
	}
}

// ExportAll implements Syncer.ExportAll.
func (s *syncer) ExportAll(ctx context.Context) (*BatchResult, error) {
	recs, err := s.backend.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		existed := false
		if rec.Path != "" {
			if _, err := os.Stat(filepath.Join(s.root, rec.Path)); err == nil {
				existed = true
			}
		}

		if err := s.PushRecord(ctx, rec); err != nil {
			result.Errors++
			result.Failures = append(result.Failures, FileError{Path: rec.Path, Err: err})
			s.config.Logger.Printf("WARNING: failed to export %q: %v", rec.Slug, err)
			continue
		}
		if existed {
			result.Updated++
		} else {
			result.Created++
		}
	}

	s.config.Logger.Printf("Export complete: created=%d updated=%d errors=%d",
		result.Created, result.Updated, result.Errors)
	return result, nil
}
