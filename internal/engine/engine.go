// Package engine decides, for one content file and one store record,
// whether to pull, push, skip, or escalate to a merge.
//
// Decide is a pure function over an explicit SyncState snapshot. It
// never reads clocks, configuration, or any other ambient state; the
// caller builds a fresh SyncState per decision and passes the current
// time in it. This keeps every decision path directly constructible in
// tests.
package engine

import "time"

// Decision is the action the orchestrator should take for a file.
type Decision int

const (
	// Skip means neither side needs to change.
	Skip Decision = iota
	// PullFileToStore means the file's content overwrites the store record.
	PullFileToStore
	// PushStoreToFile means the store's content overwrites the file.
	// Decide never returns this: pushes are unconditional and happen when
	// a store-side write completes.
	PushStoreToFile
	// ConflictRequiresMerge means both sides changed and the policy asks
	// for a merge instead of an overwrite.
	ConflictRequiresMerge
)

// String returns a human-readable representation of the decision.
func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case PullFileToStore:
		return "pull"
	case PushStoreToFile:
		return "push"
	case ConflictRequiresMerge:
		return "merge"
	default:
		return "unknown"
	}
}

// Reason explains why a decision was reached. The orchestrator uses it
// for logging; ReasonGraceSuppressed in particular is surfaced as a
// conflict-suppressed warning.
type Reason int

const (
	// ReasonContentIdentical: digests match, timestamps irrelevant.
	ReasonContentIdentical Reason = iota
	// ReasonNewFile: no store record exists for the file.
	ReasonNewFile
	// ReasonStoreFresh: the store record is at least as new as the file.
	ReasonStoreFresh
	// ReasonGraceSuppressed: the record was updated very recently; the
	// grace period protects the interactive edit from a stale file event.
	ReasonGraceSuppressed
	// ReasonFileNewer: the file is strictly newer and outside the grace
	// window.
	ReasonFileNewer
)

// String returns a human-readable representation of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonContentIdentical:
		return "content identical"
	case ReasonNewFile:
		return "no store record"
	case ReasonStoreFresh:
		return "store at least as fresh"
	case ReasonGraceSuppressed:
		return "grace period suppressed"
	case ReasonFileNewer:
		return "file newer"
	default:
		return "unknown"
	}
}

// Policy configures the decision algorithm.
type Policy struct {
	// GracePeriod is the window after a store-side update during which
	// file-driven sync is suppressed.
	GracePeriod time.Duration
	// CompareContent enables the digest short-circuit.
	CompareContent bool
	// MergeOnConflict escalates the overwrite case to
	// ConflictRequiresMerge instead of PullFileToStore. Off by default:
	// outside the grace window, the file wins.
	MergeOnConflict bool
}

// SyncState is a point-in-time comparison of one file against one store
// record. It is computed fresh per decision and never cached.
type SyncState struct {
	// FileModTime is the file's last-modified timestamp.
	FileModTime time.Time
	// FileDigest is the digest of the file's normalized body.
	FileDigest string

	// RecordExists is false when the store has no record for this file.
	RecordExists bool
	// RecordUpdatedAt is the record's last store-side update time.
	RecordUpdatedAt time.Time
	// RecordDigest is the digest of the record's normalized body.
	RecordDigest string

	// Now is the decision time, passed explicitly so the engine never
	// reads a wall clock.
	Now time.Time
}

// Decide runs the sync decision algorithm:
//
//  1. Content identical (when comparison is enabled): Skip.
//  2. No store record: PullFileToStore.
//  3. File not newer than the record: Skip.
//  4. Record updated inside the grace window: Skip, with
//     ReasonGraceSuppressed so the caller can log the suppression.
//  5. Otherwise: PullFileToStore (or ConflictRequiresMerge when the
//     policy opts into merging).
func Decide(state SyncState, policy Policy) (Decision, Reason) {
	if policy.CompareContent && state.RecordExists && state.FileDigest == state.RecordDigest {
		return Skip, ReasonContentIdentical
	}

	if !state.RecordExists {
		return PullFileToStore, ReasonNewFile
	}

	if !state.FileModTime.After(state.RecordUpdatedAt) {
		return Skip, ReasonStoreFresh
	}

	if state.Now.Sub(state.RecordUpdatedAt) < policy.GracePeriod {
		return Skip, ReasonGraceSuppressed
	}

	if policy.MergeOnConflict {
		return ConflictRequiresMerge, ReasonFileNewer
	}
	return PullFileToStore, ReasonFileNewer
}
