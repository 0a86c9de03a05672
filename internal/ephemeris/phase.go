package ephemeris

import (
	"fmt"
	"time"

	"github.com/star/skyglass/internal/angle"
)

// Direction tells whether the illuminated fraction is growing or shrinking.
type Direction string

const (
	Waxing Direction = "waxing"
	Waning Direction = "waning"
)

// MoonPhase describes the Moon's illumination as seen from the geocenter.
type MoonPhase struct {
	Time time.Time `json:"time"`
	// CycleAngle is the Moon-Sun difference in apparent longitude, in
	// [0, 360): 0 new, 90 first quarter, 180 full, 270 last quarter.
	CycleAngle float64 `json:"cycle_angle"`
	// PhaseAngle is the Sun-Moon-Earth angle in [0, 180].
	PhaseAngle float64 `json:"phase_angle"`
	// IlluminatedFraction is in [0, 1].
	IlluminatedFraction float64 `json:"illuminated_fraction"`
	// PositionAngle is the position angle of the bright limb, east of
	// north, in [0, 360).
	PositionAngle float64   `json:"position_angle"`
	Direction     Direction `json:"direction"`
	// Elongation is the geocentric Sun-Moon angular separation in [0, 180].
	Elongation float64 `json:"elongation"`
}

// Phase derives the Moon's phase from Sun and Moon positions computed for the
// same instant.
func Phase(sun SunPosition, moon MoonPosition) (MoonPhase, error) {
	if sun.JD != moon.JD {
		return MoonPhase{}, fmt.Errorf("%w: sun jd %.8f, moon jd %.8f", ErrMismatchedEpoch, sun.JD, moon.JD)
	}

	dLon := moon.Ecliptic.Longitude - sun.Ecliptic.Longitude
	elong := angle.Acos(angle.Clamp(angle.Cos(moon.Ecliptic.Latitude) * angle.Cos(dLon)))

	r := sun.DistanceKm()
	i := angle.Atan2(r*angle.Sin(elong), moon.DistanceKm-r*angle.Cos(elong))

	dRA := sun.Equatorial.RightAscension - moon.Equatorial.RightAscension
	sunDec, moonDec := sun.Equatorial.Declination, moon.Equatorial.Declination
	chi := angle.Atan2(
		angle.Cos(sunDec)*angle.Sin(dRA),
		angle.Sin(sunDec)*angle.Cos(moonDec)-angle.Cos(sunDec)*angle.Sin(moonDec)*angle.Cos(dRA),
	)

	cycle := angle.Normalize(dLon)
	dir := Waxing
	if cycle >= 180 {
		dir = Waning
	}

	return MoonPhase{
		Time:                moon.Time,
		CycleAngle:          cycle,
		PhaseAngle:          i,
		IlluminatedFraction: (1 + angle.Cos(i)) / 2,
		PositionAngle:       angle.Normalize(chi),
		Direction:           dir,
		Elongation:          elong,
	}, nil
}

// PhaseAt computes the Sun and Moon for t and returns the Moon's phase.
func PhaseAt(t time.Time) (MoonPhase, error) {
	jd, err := julianDate(t)
	if err != nil {
		return MoonPhase{}, err
	}
	nut := Nutation(jd)
	sun := sunAtJD(jd)
	moon := moonAtJD(jd, nut)
	sun.Time, moon.Time = t.UTC(), t.UTC()
	return Phase(sun, moon)
}

// Regime is the conventional name of a lunar phase, used to choose how the
// Moon is drawn.
type Regime string

const (
	NewMoon        Regime = "new"
	WaxingCrescent Regime = "waxing_crescent"
	FirstQuarter   Regime = "first_quarter"
	WaxingGibbous  Regime = "waxing_gibbous"
	FullMoon       Regime = "full"
	WaningGibbous  Regime = "waning_gibbous"
	LastQuarter    Regime = "last_quarter"
	WaningCrescent Regime = "waning_crescent"
)

var regimes = [...]Regime{
	NewMoon, WaxingCrescent, FirstQuarter, WaxingGibbous,
	FullMoon, WaningGibbous, LastQuarter, WaningCrescent,
}

// Regime buckets the cycle angle into eight 45° sectors centred on the
// principal phases.
func (p MoonPhase) Regime() Regime {
	idx := int(angle.Normalize(p.CycleAngle+22.5) / 45)
	return regimes[idx%len(regimes)]
}
