package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMatchGlob exercises the full pattern dialect: literal bytes, "?"
// for exactly one byte, and "*" for any run including the empty one.
func TestMatchGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		input   string
		want    bool
	}{
		{"star matches everything", "*", "anything", true},
		{"star matches empty", "*", "", true},
		{"empty pattern matches empty only", "", "", true},
		{"empty pattern rejects non-empty", "", "x", false},
		{"literal match", "alpha", "alpha", true},
		{"literal mismatch", "alpha", "alphb", false},
		{"anchored whole string", "alpha", "alpha2", false},
		{"prefix star", "a*", "alpha", true},
		{"prefix star other", "a*", "abeta", true},
		{"prefix star rejects", "a*", "gamma", false},
		{"suffix star", "*a", "alpha", true},
		{"inner star", "a*a", "alpha", true},
		{"inner star empty run", "a*b", "ab", true},
		{"question single byte", "?", "x", true},
		{"question rejects empty", "?", "", false},
		{"question rejects two", "?", "xy", false},
		{"mixed", "a?c*", "abcdef", true},
		{"mixed mismatch", "a?c*", "abdef", false},
		{"star backtracks", "*ab*ab", "aabab", true},
		{"colon literals", "_Event:*:id", "_Event:YWJj:id", true},
		{"double star", "**", "abc", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, MatchGlob(tc.pattern, tc.input),
				"MatchGlob(%q, %q)", tc.pattern, tc.input)
		})
	}
}
