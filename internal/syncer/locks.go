package syncer

import "sync"

// keyMutex serializes work per key. Two near-simultaneous syncs of
// files resolving to the same short identifier must not race to create
// duplicate records, so callers hold the identifier's lock across the
// read-decide-write sequence.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*lockEntry)}
}

// Lock acquires the lock for key and returns the matching unlock.
// Entries are reference counted and removed once unused.
func (k *keyMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// claimSet tracks which file first claimed each short identifier within
// one batch, so duplicates surface as errors instead of silent
// last-write-wins corruption.
type claimSet struct {
	mu     sync.Mutex
	bySlug map[string]string
}

func newClaimSet() *claimSet {
	return &claimSet{bySlug: make(map[string]string)}
}

// claim records path as the owner of slug. If the slug is already owned
// by a different path, the owner is returned and ok is false.
func (c *claimSet) claim(slug, path string) (owner string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, found := c.bySlug[slug]; found && existing != path {
		return existing, false
	}
	c.bySlug[slug] = path
	return path, true
}
