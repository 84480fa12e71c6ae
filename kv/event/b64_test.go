package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEncodeName verifies the URL-safe alphabet with no padding and
// that encoded names never contain the key delimiter.
func TestEncodeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "YWJj", EncodeName("abc"))
	assert.Equal(t, "", EncodeName(""))

	for _, name := range []string{"set", "erase", "MQE:queue:pushed", "with:colons", "päivä"} {
		encoded := EncodeName(name)

		assert.NotContains(t, encoded, ":", "encoded %q must not contain the delimiter", name)
		assert.NotContains(t, encoded, "=", "encoding must be unpadded")
		assert.False(t, strings.ContainsAny(encoded, "+/"), "encoding must use the URL-safe alphabet")
	}
}

// TestDecodeName verifies the round-trip and rejection of invalid input.
func TestDecodeName(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "set", "queue name", "a:b:c"} {
		decoded, ok := DecodeName(EncodeName(name))

		assert.True(t, ok)
		assert.Equal(t, name, decoded)
	}

	_, ok := DecodeName("!!!")
	assert.False(t, ok, "invalid base64url must be rejected")
}
