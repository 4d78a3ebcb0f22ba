// Package merge combines two divergent bodies of text line by line.
//
// The merge aligns both texts on their longest common subsequence of
// lines. Regions unique to one side are kept. Regions where both sides
// diverge between the same pair of common anchors cannot be resolved
// automatically: both versions are embedded between conflict markers and
// the conflict count is incremented.
//
// This is a utility for an explicit opt-in merge path; the default sync
// flow overwrites rather than merges.
package merge

import "strings"

// Conflict markers, git style. The left side is always the file's
// version, the right side the store's.
const (
	markerFile  = "<<<<<<< file"
	markerSep   = "======="
	markerStore = ">>>>>>> store"
)

// Result is the outcome of merging two bodies.
type Result struct {
	// Body is the merged text. Where conflicts occurred it contains both
	// versions delimited by conflict markers.
	Body string
	// Conflicts counts unresolved overlapping regions.
	Conflicts int
	// HasConflicts is true when Conflicts > 0.
	HasConflicts bool
}

// Merge combines fileBody and storeBody. Merge(x, x) returns x with zero
// conflicts. Lines present on only one side are kept; lines that differ
// on both sides at the same alignment point become a conflict region.
func Merge(fileBody, storeBody string) Result {
	if fileBody == storeBody {
		return Result{Body: fileBody}
	}

	a := strings.Split(fileBody, "\n")
	b := strings.Split(storeBody, "\n")

	dp := lcsTable(a, b)

	var (
		out       []string
		fileOnly  []string
		storeOnly []string
		conflicts int
	)

	flush := func() {
		switch {
		case len(fileOnly) > 0 && len(storeOnly) > 0:
			out = append(out, markerFile)
			out = append(out, fileOnly...)
			out = append(out, markerSep)
			out = append(out, storeOnly...)
			out = append(out, markerStore)
			conflicts++
		case len(fileOnly) > 0:
			out = append(out, fileOnly...)
		case len(storeOnly) > 0:
			out = append(out, storeOnly...)
		}
		fileOnly = nil
		storeOnly = nil
	}

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			flush()
			out = append(out, a[i])
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			fileOnly = append(fileOnly, a[i])
			i++
		default:
			storeOnly = append(storeOnly, b[j])
			j++
		}
	}
	fileOnly = append(fileOnly, a[i:]...)
	storeOnly = append(storeOnly, b[j:]...)
	flush()

	return Result{
		Body:         strings.Join(out, "\n"),
		Conflicts:    conflicts,
		HasConflicts: conflicts > 0,
	}
}

// lcsTable computes dp where dp[i][j] is the length of the longest
// common subsequence of a[i:] and b[j:].
func lcsTable(a, b []string) [][]int {
	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	return dp
}
