package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
	}{
		{"LONG", DirectionLong},
		{"long", DirectionLong},
		{"BUY", DirectionLong},
		{" buy ", DirectionLong},
		{"SHORT", DirectionShort},
		{"SELL", DirectionShort},
		{"sell", DirectionShort},
	}
	for _, tc := range cases {
		got, err := ParseDirection(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, in := range []string{"", "SIDEWAYS", "HOLD"} {
		_, err := ParseDirection(in)
		assert.ErrorIs(t, err, ErrInvalidInput, in)
	}
}
