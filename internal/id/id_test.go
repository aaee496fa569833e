package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool, 500)
	for range 500 {
		got, err := Generate("req")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(got, "req-"))

		random := strings.TrimPrefix(got, "req-")
		assert.Len(t, random, Size)
		for _, r := range random {
			assert.True(t, strings.ContainsRune(Alphabet, r), "unexpected %q in %s", r, got)
		}

		assert.False(t, seen[got], "duplicate id %s", got)
		seen[got] = true
	}
}

func TestGenerate_NoPrefix(t *testing.T) {
	got, err := Generate("")
	require.NoError(t, err)
	assert.Len(t, got, Size)
	assert.NotContains(t, got, "-")
}

func TestMustGenerate(t *testing.T) {
	assert.True(t, strings.HasPrefix(MustGenerate("cli"), "cli-"))
}
