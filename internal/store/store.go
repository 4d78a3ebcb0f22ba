// Package store persists content records and exposes the contract the
// sync engine writes through.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrWrite wraps any failure to persist a record. Per-file sync errors
// of this kind are counted and surfaced in batch results, never fatal
// to the batch.
var ErrWrite = errors.New("store write failed")

// Record is the store-side representation of one page.
type Record struct {
	// ID is the stable identifier, minted by the store on create.
	ID    string
	Title string
	// Slug is the short identifier: globally unique, URL-safe.
	Slug string
	Body string
	// ParentID references another record's ID, or is empty for roots.
	// Parent slugs from file metadata are soft-resolved at sync time and
	// stored as stable identifiers thereafter.
	ParentID string
	// Category groups pages independently of the parent hierarchy.
	Category  string
	SortOrder int
	// Status is the lifecycle state: draft or published.
	Status string
	// Path is the resolved on-disk path recorded at the last sync.
	Path      string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
	// Revision increases monotonically with every write.
	Revision int
}

// Store is the content-store contract the sync engine calls into.
type Store interface {
	// Create persists a new record, minting its ID and revision 1.
	Create(ctx context.Context, rec *Record) error
	// Update overwrites an existing record and bumps its revision.
	Update(ctx context.Context, rec *Record) error
	// FindByID looks up a record by stable identifier.
	FindByID(ctx context.Context, id string) (*Record, error)
	// FindBySlug looks up a record by short identifier.
	FindBySlug(ctx context.Context, slug string) (*Record, error)
	// FindByPath looks up a record by its last synced on-disk path.
	FindByPath(ctx context.Context, path string) (*Record, error)
	// ListAll returns every record, ordered by category then slug.
	ListAll(ctx context.Context) ([]*Record, error)
	// UpdatePath records a record's new on-disk path after a push moved
	// its file. Unlike Update it does not bump the revision.
	UpdatePath(ctx context.Context, id, path string) error

	Close() error
}
