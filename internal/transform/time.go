package transform

import (
	"math"
	"time"
)

// J2000 is the Julian Date of the J2000.0 epoch (2000-01-01 12:00 TT).
const J2000 = 2451545.0

const (
	daysPerCentury   = 36525.0
	daysPerMillenium = 365250.0
)

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a UTC instant to a Julian Date using the Gregorian
// calendar algorithm (Meeus ch. 7). Sub-second precision is kept.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	dayFrac := (float64(t.Hour()) +
		float64(t.Minute())/60 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600) / 24

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) +
		float64(t.Day()) + b - 1524.5 + dayFrac
}

// JulianCenturies returns Julian centuries elapsed since J2000.0.
func JulianCenturies(jd float64) float64 {
	return (jd - J2000) / daysPerCentury
}

// JulianMillennia returns Julian millennia elapsed since J2000.0, the time
// argument of the VSOP87 series.
func JulianMillennia(jd float64) float64 {
	return (jd - J2000) / daysPerMillenium
}

// TimeFromJulianDate is the inverse of JulianDate, rounded to the millisecond.
func TimeFromJulianDate(jd float64) time.Time {
	ms := math.Round((jd - 2440587.5) * 86400000)
	return time.UnixMilli(int64(ms)).UTC()
}

// GMST returns Greenwich Mean Sidereal Time in radians, in [0, 2π).
//
// IAU-82 model (Vallado eq. 3-47), evaluated in seconds of time:
//
//	θ = 67310.54841 + (876600h + 8640184.812866)·T + 0.093104·T² − 6.2e-6·T³
func GMST(t time.Time) float64 {
	return gmstSeconds(JulianDate(t)) / 86400 * 2 * math.Pi
}

// GMSTDeg returns Greenwich Mean Sidereal Time in degrees, in [0, 360).
func GMSTDeg(jd float64) float64 {
	return gmstSeconds(jd) / 240
}

func gmstSeconds(jd float64) float64 {
	tu := JulianCenturies(jd)
	s := 67310.54841 +
		(876600*3600+8640184.812866)*tu +
		0.093104*tu*tu -
		6.2e-6*tu*tu*tu
	s = math.Mod(s, 86400)
	if s < 0 {
		s += 86400
	}
	return s
}
