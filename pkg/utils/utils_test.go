package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()

	id, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	assert.Len(t, id, 26)
}

func TestSeedFromStable(t *testing.T) {
	u := New()

	a := u.SeedFrom("session-1", "hello")
	b := u.SeedFrom("session-1", "hello")
	assert.Equal(t, a, b)
}

func TestSeedFromSeparatesParts(t *testing.T) {
	u := New()

	// "ab"+"c" must not collide with "a"+"bc".
	assert.NotEqual(t, u.SeedFrom("ab", "c"), u.SeedFrom("a", "bc"))
}

func TestTruncateRunes(t *testing.T) {
	u := New()

	assert.Equal(t, "short", u.TruncateRunes("short", 10))
	assert.Equal(t, "hell…", u.TruncateRunes("hello world", 4))
	assert.Equal(t, "héll…", u.TruncateRunes("héllo wörld", 4))
}
