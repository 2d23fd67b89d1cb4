package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCToF(t *testing.T) {
	tests := []struct {
		c    float64
		want float64
	}{
		{21.11, 70},
		{0, 32},
		{100, 212},
		{-40, -40},
		{22.5, 72},
		{23.5, 74},
		{-17.5, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CToF(tt.c), "CToF(%v)", tt.c)
	}
}

func TestFToC(t *testing.T) {
	assert.Equal(t, 22.22, FToC(72))
	assert.Equal(t, 0.0, FToC(32))
	assert.Equal(t, 21.11, FToC(70))
}

func TestRoundTripWithinOneDegree(t *testing.T) {
	for c := -10.0; c <= 40; c += 0.37 {
		back := FToC(CToF(c))
		assert.InDelta(t, c, back, 1.0, "round trip of %v", c)
	}
}

func TestLux(t *testing.T) {
	raw := 150.0
	got := Lux(&raw)
	require.NotNil(t, got)
	assert.Equal(t, 300.0, *got)

	assert.Nil(t, Lux(nil))

	zero := 0.0
	got = Lux(&zero)
	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 101.33, Round(101.3251, 2))
	assert.Equal(t, 2.0, Round(2.5, 0))
	assert.Equal(t, 4.0, Round(3.5, 0))
	assert.Equal(t, 0.12, Round(0.125, 2))
}

func TestScaleHelpers(t *testing.T) {
	assert.Equal(t, 70.0, ToScale(21.11, "F"))
	assert.Equal(t, 21.11, ToScale(21.11, "C"))
	assert.Equal(t, 22.22, FromScale(72, "F"))
	assert.Equal(t, 22.0, FromScale(22, "C"))
}
