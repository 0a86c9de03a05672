package ephemeris

import (
	"github.com/star/skyglass/internal/angle"
	"github.com/star/skyglass/internal/transform"
)

// NutationResult holds the obliquity of the ecliptic and the nutation
// components at one instant, all in degrees.
type NutationResult struct {
	MeanObliquity       float64 `json:"mean_obliquity"`
	TrueObliquity       float64 `json:"true_obliquity"`
	NutationInLongitude float64 `json:"nutation_in_longitude"`
	NutationInObliquity float64 `json:"nutation_in_obliquity"`
}

// Nutation evaluates the IAU 1980 nutation series (Meeus ch. 22) and the
// Laskar mean obliquity at Julian date jd.
func Nutation(jd float64) NutationResult {
	t := transform.JulianCenturies(jd)
	t2 := t * t
	t3 := t2 * t

	d := 297.85036 + 445267.11148*t - 0.0019142*t2 + t3/189474
	m := 357.52772 + 35999.05034*t - 0.0001603*t2 - t3/300000
	mp := 134.96298 + 477198.867398*t + 0.0086972*t2 + t3/56250
	f := 93.27191 + 483202.017538*t - 0.0036825*t2 + t3/327270
	om := 125.04452 - 1934.136261*t + 0.0020708*t2 + t3/450000

	arg := func(d0, m0, mp0, f0, om0 int8) float64 {
		return float64(d0)*d + float64(m0)*m + float64(mp0)*mp + float64(f0)*f + float64(om0)*om
	}

	var dpsi, deps float64 // 0.0001"
	for _, n := range nutationLongitudeTerms {
		dpsi += (n.s + n.c*t) * angle.Sin(arg(n.d, n.m, n.mp, n.f, n.om))
	}
	for _, n := range nutationObliquityTerms {
		deps += (n.s + n.c*t) * angle.Cos(arg(n.d, n.m, n.mp, n.f, n.om))
	}

	mean := MeanObliquity(jd)
	depsDeg := angle.FromArcsec(deps / 10000)

	return NutationResult{
		MeanObliquity:       mean,
		TrueObliquity:       mean + depsDeg,
		NutationInLongitude: angle.FromArcsec(dpsi / 10000),
		NutationInObliquity: depsDeg,
	}
}

// laskar holds the coefficients (arcseconds) of U^1..U^10 in the mean
// obliquity polynomial, U being Julian centuries / 100.
var laskar = [...]float64{-4680.93, -1.55, 1999.25, -51.38, -249.67, -39.05, 7.12, 27.87, 5.79, 2.45}

// MeanObliquity returns the mean obliquity of the ecliptic in degrees
// (Laskar, valid over ±10000 years from J2000.0).
func MeanObliquity(jd float64) float64 {
	u := transform.JulianCenturies(jd) / 100
	var sec float64
	p := 1.0
	for _, c := range laskar {
		p *= u
		sec += c * p
	}
	return 23.43929111 + angle.FromArcsec(sec)
}
