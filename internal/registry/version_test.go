package registry

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var versionPattern = regexp.MustCompile(`^\d{8}_\d{6}_\d{6}_[0-9a-z]{6}$`)

func TestVersionGenerator_Format(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 4, 123456789, time.FixedZone("x", 3600))
	g := NewVersionGenerator(func() time.Time { return at })
	v, err := g.Next()
	require.NoError(t, err)
	assert.Regexp(t, versionPattern, v)
	assert.Equal(t, "20240309_060504_123456_", v[:23])
}

func TestVersionGenerator_MonotonicWhenClockStalls(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewVersionGenerator(func() time.Time { return at })
	prev := ""
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		v, err := g.Next()
		require.NoError(t, err)
		require.False(t, seen[v], "duplicate version %s", v)
		seen[v] = true
		// timestamps alone must increase, independent of the random suffix
		assert.Greater(t, v[:22], prev)
		prev = v[:22]
	}
}

func TestVersionGenerator_ClockGoesBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC),
	}
	i := 0
	g := NewVersionGenerator(func() time.Time { v := times[i]; i++; return v })
	a, err := g.Next()
	require.NoError(t, err)
	b, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "20240101_000010_000001", b[:22])
	assert.Less(t, a, b)
}

func TestVersionGenerator_SuffixError(t *testing.T) {
	g := NewVersionGenerator(nil)
	g.rand = func() (string, error) { return "", errors.New("entropy exhausted") }
	_, err := g.Next()
	assert.Error(t, err)
}
