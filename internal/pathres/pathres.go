// Package pathres computes the canonical on-disk location of a page from
// its hierarchical placement: category, ancestor chain, and slug.
package pathres

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// Ext is the recognized content file extension.
const Ext = ".md"

// ErrCyclicHierarchy indicates a page's ancestor chain loops back on
// itself. The resolution that hit the cycle fails; other pages are
// unaffected.
var ErrCyclicHierarchy = errors.New("cyclic page hierarchy")

// Resolve returns the relative path for a page:
//
//	{category}/{ancestor1}/.../{slug}.md
//
// The chain is ordered root first, immediate parent last. An empty
// category is omitted. Resolve is pure and idempotent: identical inputs
// always produce the identical path. Callers move files when a resolved
// path changes; Resolve itself never touches the filesystem.
func Resolve(category string, chain []string, slug string) string {
	parts := make([]string, 0, len(chain)+2)
	if category != "" {
		parts = append(parts, category)
	}
	parts = append(parts, chain...)
	parts = append(parts, slug+Ext)
	return filepath.Join(parts...)
}

// Hierarchy looks up a page's slug and parent reference by stable
// identifier. The content store satisfies this.
type Hierarchy interface {
	SlugAndParent(ctx context.Context, id string) (slug, parentID string, err error)
}

// ChainFor walks parent references from parentID up to the root and
// returns the ancestor slugs ordered root first. An empty parentID
// yields an empty chain. Returns ErrCyclicHierarchy (wrapped) if the
// walk revisits an identifier.
func ChainFor(ctx context.Context, h Hierarchy, parentID string) ([]string, error) {
	var chain []string
	seen := make(map[string]bool)

	for id := parentID; id != ""; {
		if seen[id] {
			return nil, fmt.Errorf("%w: revisited %s", ErrCyclicHierarchy, id)
		}
		seen[id] = true

		slug, next, err := h.SlugAndParent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve ancestor %s: %w", id, err)
		}

		// Prepend: we walk child to root, the chain reads root to child.
		chain = append([]string{slug}, chain...)
		id = next
	}

	return chain, nil
}
