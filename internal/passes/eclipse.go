package passes

import (
	"fmt"
	"math"
	"strings"

	"github.com/star/skyglass/internal/transform"
)

const (
	// EarthRadiusKm is the WGS84 mean radius used by the shadow models.
	EarthRadiusKm = 6371.0084
	// SunRadiusKm is the Sun's mean radius.
	SunRadiusKm = 696340.0
)

// ShadowModel selects the Earth-shadow geometry. The two models disagree
// for objects near the shadow boundary, so pass edges relative to eclipse
// entry and exit depend on the choice.
type ShadowModel string

const (
	// ShadowPenumbra is a cone with its apex at the geocenter, widening away
	// from the Sun with half-angle atan((R_sun+R_earth)/d_sun), about 0.27°.
	// Near the Earth it is far narrower than the Earth itself: at LEO
	// distances its radius is a few tens of km, so low orbiters are almost
	// never flagged as shadowed. It only approaches the cylinder's width
	// about 1.36 million km out.
	ShadowPenumbra ShadowModel = "penumbra"
	// ShadowCylindrical treats the shadow as a cylinder of Earth radius.
	ShadowCylindrical ShadowModel = "cylindrical"
)

// ParseShadowModel accepts a model name, case-insensitively. Empty selects
// ShadowPenumbra.
func ParseShadowModel(s string) (ShadowModel, error) {
	switch m := ShadowModel(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ShadowPenumbra, nil
	case ShadowPenumbra, ShadowCylindrical:
		return m, nil
	}
	return "", fmt.Errorf("unknown shadow model %q (want %s or %s)", s, ShadowPenumbra, ShadowCylindrical)
}

// InShadow reports whether an object at sat is in the Earth's shadow, given
// the Sun at sun. Both are geocentric inertial vectors in km.
func InShadow(model ShadowModel, sat, sun transform.Vector) bool {
	sunDist := sun.Norm()
	if sunDist == 0 {
		return false
	}
	unit := sun.Scale(1 / sunDist)

	proj := sat.Dot(unit)
	if proj >= 0 {
		return false
	}

	perp := math.Sqrt(math.Max(sat.Dot(sat)-proj*proj, 0))
	if model == ShadowCylindrical {
		return perp < EarthRadiusKm
	}

	halfAngle := math.Atan((SunRadiusKm + EarthRadiusKm) / sunDist)
	return perp < math.Abs(proj)*math.Tan(halfAngle)
}
