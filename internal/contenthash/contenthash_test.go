package contenthash

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "hello\nworld", "hello\nworld"},
		{"crlf", "hello\r\nworld\r\n", "hello\nworld"},
		{"bare cr", "hello\rworld", "hello\nworld"},
		{"trailing spaces", "hello   \nworld\t\n", "hello\nworld"},
		{"trailing blank lines", "hello\nworld\n\n\n", "hello\nworld"},
		{"interior blanks kept", "a\n\nb", "a\n\nb"},
		{"only whitespace", "   \n\t\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDigest_Deterministic(t *testing.T) {
	body := "# Combat\n\nSwing weapon at target."
	if Digest(body) != Digest(body) {
		t.Error("Digest is not deterministic for identical input")
	}
}

func TestDigest_NormalizedEquivalence(t *testing.T) {
	a := "# Combat\nSwing weapon.\n"
	b := "# Combat   \r\nSwing weapon.\r\n\r\n"

	if Digest(a) != Digest(b) {
		t.Errorf("digests differ for normalized-equivalent bodies:\n%q\n%q", a, b)
	}
}

func TestDigest_DifferentContent(t *testing.T) {
	if Digest("alpha") == Digest("beta") {
		t.Error("different bodies produced the same digest")
	}
}

func TestDigest_Length(t *testing.T) {
	// Hex-encoded SHA-256 is always 64 characters.
	if got := len(Digest("anything")); got != 64 {
		t.Errorf("digest length = %d, want 64", got)
	}
}

func TestEqual(t *testing.T) {
	if !Equal("a \n", "a") {
		t.Error("Equal should ignore trailing whitespace")
	}
	if Equal("a", "b") {
		t.Error("Equal reported distinct bodies as equivalent")
	}
}

func TestNormalize_LargeBody(t *testing.T) {
	body := strings.Repeat("line with content\n", 10000)
	want := strings.TrimRight(body, "\n")
	if got := Normalize(body); got != want {
		t.Error("Normalize corrupted a large body")
	}
}
