package ephemeris

import (
	"math"
	"time"

	"github.com/star/skyglass/internal/angle"
	"github.com/star/skyglass/internal/transform"
)

const (
	moonMeanDistanceKm = 385000.56
	earthEquatorKm     = 6378.14
)

// MoonPosition is the apparent geocentric position of the Moon at one instant.
type MoonPosition struct {
	Time       time.Time  `json:"time"`
	JD         float64    `json:"jd"`
	Ecliptic   Ecliptic   `json:"ecliptic"` // apparent, of date
	Equatorial Equatorial `json:"equatorial"`
	Subpoint   GeoPoint   `json:"subpoint"`
	DistanceKm float64    `json:"distance_km"`
	// HorizontalParallax is the equatorial horizontal parallax in degrees.
	HorizontalParallax float64 `json:"horizontal_parallax"`
}

// MoonAt returns the apparent position of the Moon at t.
func MoonAt(t time.Time) (MoonPosition, error) {
	jd, err := julianDate(t)
	if err != nil {
		return MoonPosition{}, err
	}
	p := moonAtJD(jd, Nutation(jd))
	p.Time = t.UTC()
	return p, nil
}

// MoonAtJD is MoonAt for a Julian date. Time is derived from jd.
func MoonAtJD(jd float64) (MoonPosition, error) {
	if err := checkJD(jd); err != nil {
		return MoonPosition{}, err
	}
	p := moonAtJD(jd, Nutation(jd))
	p.Time = transform.TimeFromJulianDate(jd)
	return p, nil
}

// moonArgs are the fundamental lunar arguments of Meeus ch. 47, in degrees.
type moonArgs struct {
	lp, d, m, mp, f float64
	a1, a2, a3      float64
	e               float64
}

func newMoonArgs(t float64) moonArgs {
	t2 := t * t
	t3 := t2 * t
	t4 := t3 * t
	return moonArgs{
		lp: angle.Normalize(218.3164477 + 481267.88123421*t - 0.0015786*t2 + t3/538841 - t4/65194000),
		d:  angle.Normalize(297.8501921 + 445267.1114034*t - 0.0018819*t2 + t3/545868 - t4/113065000),
		m:  angle.Normalize(357.5291092 + 35999.0502909*t - 0.0001536*t2 + t3/24490000),
		mp: angle.Normalize(134.9633964 + 477198.8675055*t + 0.0087414*t2 + t3/69699 - t4/14712000),
		f:  angle.Normalize(93.272095 + 483202.0175233*t - 0.0036539*t2 - t3/3526000 + t4/863310000),
		a1: angle.Normalize(119.75 + 131.849*t),
		a2: angle.Normalize(53.09 + 479264.29*t),
		a3: angle.Normalize(313.45 + 481266.484*t),
		e:  1 - 0.002516*t - 0.0000074*t2,
	}
}

func (a moonArgs) of(term lunarTerm) float64 {
	return float64(term.d)*a.d + float64(term.m)*a.m + float64(term.mp)*a.mp + float64(term.f)*a.f
}

// eccentricity returns the E^|M| weight for a term.
func (a moonArgs) eccentricity(term lunarTerm) float64 {
	switch term.m {
	case 1, -1:
		return a.e
	case 2, -2:
		return a.e * a.e
	}
	return 1
}

func moonAtJD(jd float64, nut NutationResult) MoonPosition {
	a := newMoonArgs(transform.JulianCenturies(jd))

	var sl, sb, sr float64
	for _, term := range moonLongitudeTerms {
		sl += term.coef * a.eccentricity(term) * angle.Sin(a.of(term))
	}
	for _, term := range moonLatitudeTerms {
		sb += term.coef * a.eccentricity(term) * angle.Sin(a.of(term))
	}
	for _, term := range moonDistanceTerms {
		sr += term.coef * a.eccentricity(term) * angle.Cos(a.of(term))
	}

	// Venus, Jupiter and the flattening of the Earth.
	sl += 3958*angle.Sin(a.a1) + 1962*angle.Sin(a.lp-a.f) + 318*angle.Sin(a.a2)
	sb += -2235*angle.Sin(a.lp) + 382*angle.Sin(a.a3) +
		175*angle.Sin(a.a1-a.f) + 175*angle.Sin(a.a1+a.f) +
		127*angle.Sin(a.lp-a.mp) - 115*angle.Sin(a.lp+a.mp)

	ecl := Ecliptic{
		Longitude: angle.Normalize(a.lp + sl/1e6 + nut.NutationInLongitude),
		Latitude:  sb / 1e6,
	}
	dist := moonMeanDistanceKm + sr/1e3
	eq := eclipticToEquatorial(ecl, nut.TrueObliquity)

	return MoonPosition{
		JD:                 jd,
		Ecliptic:           ecl,
		Equatorial:         eq,
		Subpoint:           subpoint(eq, jd),
		DistanceKm:         dist,
		HorizontalParallax: angle.Deg(math.Asin(earthEquatorKm / dist)),
	}
}
