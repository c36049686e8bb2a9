package leveling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreshold(t *testing.T) {
	assert.Equal(t, int64(0), Threshold(1))
	assert.Equal(t, int64(100), Threshold(2))
	assert.Equal(t, int64(300), Threshold(3))
	assert.Equal(t, int64(600), Threshold(4))
	assert.Equal(t, int64(1000), Threshold(5))
}

func TestLevelOf(t *testing.T) {
	cases := []struct {
		xp    int64
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{600, 4},
		{1000, 5},
		{10_000_000, MaxLevel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelOf(tc.xp), "xp=%d", tc.xp)
	}
}

func TestLevelOfMonotonic(t *testing.T) {
	prev := LevelOf(0)
	for xp := int64(1); xp <= 5000; xp++ {
		level := LevelOf(xp)
		require.GreaterOrEqual(t, level, prev, "xp=%d", xp)
		prev = level
	}
}

func TestLevelOfNegativePanics(t *testing.T) {
	assert.Panics(t, func() { LevelOf(-1) })
}
