// Package contenthash produces stable digests of page body text.
//
// Digests are used by the sync engine to short-circuit decisions when the
// file body and the store body are equivalent, regardless of timestamps.
// Both sides are normalized identically before hashing, so cosmetic
// differences introduced by editors (CRLF line endings, trailing spaces,
// trailing blank lines) never force a sync.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize applies the canonical whitespace policy to body text:
//
//   - CRLF and bare CR line endings become LF
//   - trailing whitespace is stripped from every line
//   - trailing blank lines are stripped
//
// The same normalization must be applied to both sides of any digest
// comparison.
func Normalize(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	// Drop trailing blank lines.
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}

	return strings.Join(lines[:end], "\n")
}

// Digest returns the hex-encoded SHA-256 of the normalized body.
// It is deterministic: identical normalized bodies always produce
// identical digests.
func Digest(body string) string {
	sum := sha256.Sum256([]byte(Normalize(body)))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two bodies are equivalent under the
// normalization policy.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
