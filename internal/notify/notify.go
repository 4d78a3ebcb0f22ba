// Package notify defines the downstream notifications fired after every
// successful store write, and the default implementation that maintains
// the link table, the full-text index, and revision snapshots.
package notify

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gabe-kai/Arcadium-sub000/internal/store"
)

// Notifier receives change events from the sync orchestrator.
type Notifier interface {
	// ContentChanged fires after a record is created or updated. It
	// triggers link re-extraction and a search index refresh.
	ContentChanged(ctx context.Context, rec *store.Record) error

	// RevisionCreated fires before an update is applied, carrying the
	// record's prior state so it can be snapshotted. It never fires on
	// create.
	RevisionCreated(ctx context.Context, prior *store.Record) error
}

// Indexer is the SQLite-backed Notifier.
type Indexer struct {
	db     *store.DB
	logger *log.Logger
}

var _ Notifier = (*Indexer)(nil)

// NewIndexer creates an Indexer. If logger is nil, a default stderr
// logger is used.
func NewIndexer(db *store.DB, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	return &Indexer{db: db, logger: logger}
}

// ContentChanged implements Notifier.ContentChanged.
func (ix *Indexer) ContentChanged(ctx context.Context, rec *store.Record) error {
	links := ExtractLinks(rec.Body)
	if err := ix.db.ReplaceLinks(ctx, rec.ID, links); err != nil {
		return fmt.Errorf("failed to update links for %s: %w", rec.Slug, err)
	}

	if err := ix.db.RefreshSearchIndex(ctx, rec); err != nil {
		return fmt.Errorf("failed to refresh index for %s: %w", rec.Slug, err)
	}

	ix.logger.Printf("Indexed %s (%d outbound links)", rec.Slug, len(links))
	return nil
}

// RevisionCreated implements Notifier.RevisionCreated.
func (ix *Indexer) RevisionCreated(ctx context.Context, prior *store.Record) error {
	if err := ix.db.SnapshotRevision(ctx, prior); err != nil {
		return fmt.Errorf("failed to snapshot %s rev %d: %w", prior.Slug, prior.Revision, err)
	}

	ix.logger.Printf("Snapshotted %s revision %d", prior.Slug, prior.Revision)
	return nil
}
