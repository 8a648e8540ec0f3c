package utils

import (
	"math"
	"math/cmplx"
)

// WrapAngle maps an angle into (-pi, pi]
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// PosMod returns a mod n in [0, n) for any sign of a
func PosMod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

// RotationAngle returns the signed angle taking a onto b, in (-pi, pi].
// Zero vectors have no direction and yield 0.
func RotationAngle(a, b complex128) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	return cmplx.Phase(b / a)
}

// UnitPolar returns exp(i*theta)
func UnitPolar(theta float64) complex128 {
	return cmplx.Rect(1, theta)
}
