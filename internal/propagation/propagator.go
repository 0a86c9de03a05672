// Package propagation turns element sets into inertial state vectors. Two SGP4
// backends are available; both report TEME positions in km.
package propagation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

// ErrUnavailable is returned when no state vector can be produced for a
// given instant: the element set cannot be initialized, the model diverged,
// or the object has decayed.
var ErrUnavailable = errors.New("propagation: state unavailable")

// Propagator produces state vectors for one element set.
type Propagator interface {
	Propagate(t time.Time) (transform.PositionTEME, error)
}

// Backend names an SGP4 implementation.
type Backend string

const (
	// BackendGoSatellite is github.com/joshuaferrara/go-satellite, a port of
	// Vallado's reference SGP4/SDP4.
	BackendGoSatellite Backend = "go-satellite"
	// BackendLibSGP4 is github.com/akhenakh/sgp4, a libsgp4 port.
	BackendLibSGP4 Backend = "libsgp4"
)

// ParseBackend accepts a backend name, case-insensitively. Empty selects
// BackendGoSatellite.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendGoSatellite, nil
	case BackendGoSatellite, BackendLibSGP4:
		return b, nil
	}
	return "", fmt.Errorf("unknown propagator backend %q (want %s or %s)", s, BackendGoSatellite, BackendLibSGP4)
}

// New builds a propagator for entry with the given backend.
func New(backend Backend, entry tle.TLEEntry) (Propagator, error) {
	switch backend {
	case BackendLibSGP4:
		return NewLibSGP4Propagator(entry)
	case BackendGoSatellite, "":
		return NewSGP4Propagator(entry.Line1, entry.Line2, entry.NORADID)
	}
	return nil, fmt.Errorf("unknown propagator backend %q", backend)
}

// checkState rejects non-finite output and radii inside the Earth. There is
// no upper bound: deep-space objects well past geostationary are valid.
func checkState(noradID int, s transform.PositionTEME) error {
	p := s.Position()
	if !p.Finite() {
		return fmt.Errorf("%w: NORAD %d: output is NaN/Inf", ErrUnavailable, noradID)
	}
	const minRadiusKm = 6200.0
	if r := p.Norm(); r < minRadiusKm {
		return fmt.Errorf("%w: NORAD %d: decayed (radius %.1f km)", ErrUnavailable, noradID, r)
	}
	return nil
}
