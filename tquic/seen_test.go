package tquic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeenCache(t *testing.T) {
	t.Parallel()

	c := newSeenCache(2)

	require.True(t, c.Add("a", "1"))
	require.False(t, c.Add("a", "1"))

	// Same ID from a different origin is a different message.
	require.True(t, c.Add("b", "1"))

	// Evicts a/1.
	require.True(t, c.Add("c", "1"))
	require.True(t, c.Add("a", "1"))
	require.False(t, c.Add("c", "1"))
}

func TestMessageKey_separator(t *testing.T) {
	t.Parallel()

	require.NotEqual(t, messageKey("ab", "c"), messageKey("a", "bc"))
}
