// Package ephemeris computes apparent geocentric positions of the Sun and the
// Moon from truncated periodic series (VSOP87 for the Sun, Meeus ch. 47 for
// the Moon), the nutation and obliquity they depend on, and the Moon's phase.
//
// Every function here is pure: the same instant always yields bit-identical
// results, and nothing is cached between calls. Time arguments are treated as
// both UT and dynamical time; the ΔT difference (about a minute) is below the
// precision of the truncated series.
package ephemeris

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/star/skyglass/internal/angle"
	"github.com/star/skyglass/internal/transform"
)

var (
	// ErrInvalidInput is returned for a zero time or a non-finite Julian date.
	ErrInvalidInput = errors.New("ephemeris: invalid input")

	// ErrMismatchedEpoch is returned when positions computed for different
	// instants are combined.
	ErrMismatchedEpoch = errors.New("ephemeris: positions are for different instants")
)

// KmPerAU is the astronomical unit in kilometers.
const KmPerAU = 149597870.7

// Ecliptic is a position in ecliptic coordinates of date, in degrees.
// Longitude is in [0, 360) and latitude in [-90, 90].
type Ecliptic struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Equatorial is a position in equatorial coordinates of date, in degrees.
// Right ascension is in [0, 360) and declination in [-90, 90].
type Equatorial struct {
	RightAscension float64 `json:"right_ascension"`
	Declination    float64 `json:"declination"`
}

// GeoPoint is the point on the Earth's surface where a body is at the zenith.
// Longitude is east-positive in [0, 360).
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SignedLongitude returns the longitude in (-180, 180].
func (g GeoPoint) SignedLongitude() float64 { return angle.Signed(g.Longitude) }

func julianDate(t time.Time) (float64, error) {
	if t.IsZero() {
		return 0, fmt.Errorf("%w: zero time", ErrInvalidInput)
	}
	return transform.JulianDate(t), nil
}

func checkJD(jd float64) error {
	if math.IsNaN(jd) || math.IsInf(jd, 0) {
		return fmt.Errorf("%w: julian date %v", ErrInvalidInput, jd)
	}
	return nil
}

// eclipticToEquatorial converts apparent ecliptic coordinates to equatorial
// using the true obliquity eps (all degrees).
func eclipticToEquatorial(ecl Ecliptic, eps float64) Equatorial {
	sinEps, cosEps := angle.Sin(eps), angle.Cos(eps)
	sinLon := angle.Sin(ecl.Longitude)

	ra := angle.Atan2(sinLon*cosEps-angle.Tan(ecl.Latitude)*sinEps, angle.Cos(ecl.Longitude))
	dec := angle.Asin(angle.Clamp(angle.Sin(ecl.Latitude)*cosEps + angle.Cos(ecl.Latitude)*sinEps*sinLon))

	return Equatorial{RightAscension: angle.Normalize(ra), Declination: dec}
}

// subpoint maps an equatorial position to the geographic point below it at
// Julian date jd, using mean sidereal time in degrees.
func subpoint(eq Equatorial, jd float64) GeoPoint {
	return GeoPoint{
		Latitude:  eq.Declination,
		Longitude: angle.Normalize(eq.RightAscension - transform.GMSTDeg(jd)),
	}
}
