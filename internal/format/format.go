// Package format renders angles for people: sexagesimal right ascension and
// declination, and compass points for azimuths.
package format

import (
	"fmt"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/star/skyglass/internal/angle"
)

// RA formats a right ascension in degrees as hours, minutes and seconds to
// a tenth of a second.
func RA(deg float64) string {
	return fmt.Sprintf("%2.1s", sexa.FmtRA(unit.RAFromDeg(angle.Normalize(deg))))
}

// Dec formats a signed angle in degrees as degrees, arcminutes and
// arcseconds to a tenth of an arcsecond.
func Dec(deg float64) string {
	return fmt.Sprintf("%2.1s", sexa.FmtAngle(unit.AngleFromDeg(deg)))
}

// Angle formats a non-negative angle such as an elongation.
func Angle(deg float64) string {
	return fmt.Sprintf("%3.0s", sexa.FmtAngle(unit.AngleFromDeg(deg)))
}

var compass = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Compass returns the 16-point compass direction nearest to an azimuth.
func Compass(az float64) string {
	return compass[int(angle.Normalize(az+11.25)/22.5)%len(compass)]
}
