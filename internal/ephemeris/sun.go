package ephemeris

import (
	"math"
	"time"

	"github.com/star/skyglass/internal/angle"
	"github.com/star/skyglass/internal/transform"
)

// aberrationConstant is the constant of annual aberration in arcseconds.
const aberrationConstant = 20.4898

// SunPosition is the apparent geocentric position of the Sun at one instant.
type SunPosition struct {
	Time       time.Time      `json:"time"`
	JD         float64        `json:"jd"`
	Ecliptic   Ecliptic       `json:"ecliptic"` // apparent, of date
	Equatorial Equatorial     `json:"equatorial"`
	Subpoint   GeoPoint       `json:"subpoint"`
	DistanceAU float64        `json:"distance_au"`
	Nutation   NutationResult `json:"nutation"`
}

// DistanceKm returns the Earth-Sun distance in kilometers.
func (s SunPosition) DistanceKm() float64 { return s.DistanceAU * KmPerAU }

// Inertial returns the geocentric Sun vector in km in the equatorial frame of
// date, the frame SGP4 positions are expressed in to within the precision the
// shadow test needs.
func (s SunPosition) Inertial() transform.Vector {
	return transform.EquatorialToVector(s.Equatorial.RightAscension, s.Equatorial.Declination, s.DistanceKm())
}

// SunAt returns the apparent position of the Sun at t.
func SunAt(t time.Time) (SunPosition, error) {
	jd, err := julianDate(t)
	if err != nil {
		return SunPosition{}, err
	}
	p := sunAtJD(jd)
	p.Time = t.UTC()
	return p, nil
}

// SunAtJD is SunAt for a Julian date. Time is derived from jd.
func SunAtJD(jd float64) (SunPosition, error) {
	if err := checkJD(jd); err != nil {
		return SunPosition{}, err
	}
	p := sunAtJD(jd)
	p.Time = transform.TimeFromJulianDate(jd)
	return p, nil
}

// SunLookAngles returns the Sun's azimuth and elevation for obs at t.
func SunLookAngles(obs transform.ObserverPosition, t time.Time) (transform.LookAngles, error) {
	sun, err := SunAt(t)
	if err != nil {
		return transform.LookAngles{}, err
	}
	return transform.LookAnglesInertial(obs, sun.Inertial(), t), nil
}

func sunAtJD(jd float64) SunPosition {
	tm := transform.JulianMillennia(jd)
	tc := transform.JulianCenturies(jd)

	l := angle.Deg(vsop(earthL[:], tm))
	b := angle.Deg(vsop(earthB[:], tm))
	r := vsop(earthR[:], tm)

	// heliocentric Earth -> geocentric Sun
	lon := l + 180
	lat := -b

	// FK5 frame correction
	lp := lon - 1.397*tc - 0.00031*tc*tc
	lon += angle.FromArcsec(-0.09033)
	lat += angle.FromArcsec(0.03916) * (angle.Cos(lp) - angle.Sin(lp))

	nut := Nutation(jd)
	aberration := -angle.FromArcsec(aberrationConstant) / r

	ecl := Ecliptic{
		Longitude: angle.Normalize(lon + nut.NutationInLongitude + aberration),
		Latitude:  lat,
	}
	eq := eclipticToEquatorial(ecl, nut.TrueObliquity)

	return SunPosition{
		JD:         jd,
		Ecliptic:   ecl,
		Equatorial: eq,
		Subpoint:   subpoint(eq, jd),
		DistanceAU: r,
		Nutation:   nut,
	}
}

// vsop sums a VSOP87 series: Σ_i t^i · Σ A·cos(B + C·t), scaled by 1e-8.
func vsop(series [][]vsopTerm, t float64) float64 {
	var sum float64
	for i, terms := range series {
		var s float64
		for _, term := range terms {
			s += term.a * math.Cos(term.b+term.c*t)
		}
		sum += s * math.Pow(t, float64(i))
	}
	return sum / 1e8
}
