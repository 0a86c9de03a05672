package passes

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/transform"
)

// Sun elevation thresholds, in degrees, below which the observer's sky is
// dark enough to see a sunlit object.
const (
	TwilightCivil        = -6.0
	TwilightNautical     = -12.0
	TwilightAstronomical = -18.0
)

// VisibilityOptions configures FilterVisible.
type VisibilityOptions struct {
	// Twilight is the Sun elevation the observer's sky must be below.
	Twilight float64
}

// DefaultVisibilityOptions uses civil twilight.
func DefaultVisibilityOptions() VisibilityOptions {
	return VisibilityOptions{Twilight: TwilightCivil}
}

// ParseTwilight accepts "civil", "nautical", "astronomical" or a number of
// degrees between -90 and 0.
func ParseTwilight(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "civil":
		return TwilightCivil, nil
	case "nautical":
		return TwilightNautical, nil
	case "astronomical":
		return TwilightAstronomical, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < -90 || v > 0 {
		return 0, fmt.Errorf("%w: twilight %q", ephemeris.ErrInvalidInput, s)
	}
	return v, nil
}

// FilterVisible returns the passes in which the object can be seen: at
// least one sample where it is sunlit while the Sun, seen from obs, is below
// the twilight threshold. Returned passes have Visible and FirstVisible set.
// The input is not modified.
func FilterVisible(passes []Pass, obs transform.ObserverPosition, opts VisibilityOptions) []Pass {
	var out []Pass
	for _, p := range passes {
		for _, s := range p.Samples {
			if s.InShadow {
				continue
			}
			la, err := ephemeris.SunLookAngles(obs, s.Time)
			if err != nil || la.ElevationDeg >= opts.Twilight {
				continue
			}
			p.Visible = true
			first := s.Time
			p.FirstVisible = &first
			out = append(out, p)
			break
		}
	}
	return out
}

// SunEvents returns sunrise and sunset at the observer on the UTC calendar
// day containing day. Both are zero during polar day or night.
func SunEvents(obs transform.ObserverPosition, day time.Time) (rise, set time.Time) {
	d := day.UTC()
	return sunrise.SunriseSunset(obs.LatDeg(), obs.LonDeg(), d.Year(), d.Month(), d.Day())
}
