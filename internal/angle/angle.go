// Package angle provides degree-based trigonometry and angle normalization
// used by the ephemeris series. Periodic tables are expressed in degrees, so
// every helper here takes and returns degrees.
package angle

import (
	"math"

	"github.com/soniakeys/unit"
)

// ArcsecPerDegree is the number of arcseconds in one degree.
const ArcsecPerDegree = 3600.0

// Rad converts degrees to radians.
func Rad(deg float64) float64 { return unit.AngleFromDeg(deg).Rad() }

// Deg converts radians to degrees.
func Deg(rad float64) float64 { return unit.Angle(rad).Deg() }

// FromArcsec converts arcseconds to degrees.
func FromArcsec(sec float64) float64 { return sec / ArcsecPerDegree }

func Sin(deg float64) float64 { return unit.AngleFromDeg(deg).Sin() }
func Cos(deg float64) float64 { return unit.AngleFromDeg(deg).Cos() }
func Tan(deg float64) float64 { return unit.AngleFromDeg(deg).Tan() }

// Asin returns the arcsine of x in degrees.
func Asin(x float64) float64 { return Deg(math.Asin(x)) }

// Acos returns the arccosine of x in degrees.
func Acos(x float64) float64 { return Deg(math.Acos(x)) }

// Atan2 returns atan2(y, x) in degrees, in (-180, 180].
func Atan2(y, x float64) float64 { return Deg(math.Atan2(y, x)) }

// Normalize reduces an angle in degrees to [0, 360).
func Normalize(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// A tiny negative remainder plus 360 rounds up to exactly 360.
	if r >= 360 {
		r = 0
	}
	return r
}

// Signed reduces an angle in degrees to (-180, 180].
func Signed(deg float64) float64 {
	r := Normalize(deg)
	if r > 180 {
		r -= 360
	}
	return r
}

// Clamp limits x to [-1, 1] so rounding noise cannot push an argument
// outside the domain of Asin or Acos.
func Clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
