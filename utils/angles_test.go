package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAngle(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
		{5 * math.Pi, math.Pi},
		{0.25, 0.25},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, WrapAngle(c.in), 1e-12, "WrapAngle(%v)", c.in)
	}
}

func TestPosMod(t *testing.T) {
	assert.Equal(t, 0, PosMod(0, 4))
	assert.Equal(t, 3, PosMod(-1, 4))
	assert.Equal(t, 1, PosMod(9, 4))
	assert.Equal(t, 2, PosMod(-10, 4))
}

func TestRotationAngle(t *testing.T) {
	assert.InDelta(t, math.Pi/2, RotationAngle(1, 1i), 1e-12)
	assert.InDelta(t, -math.Pi/4, RotationAngle(UnitPolar(math.Pi/2), UnitPolar(math.Pi/4)), 1e-12)
	assert.Equal(t, 0.0, RotationAngle(0, 1))
}
