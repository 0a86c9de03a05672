package propagation

import (
	"fmt"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

// LibSGP4Propagator wraps github.com/akhenakh/sgp4. Time since epoch is
// measured from the epoch parsed by the tle package so both backends agree
// on the reference instant.
type LibSGP4Propagator struct {
	elements *sgp4.TLE
	epoch    time.Time
	noradID  int
}

// NewLibSGP4Propagator parses entry with the libsgp4 backend.
func NewLibSGP4Propagator(entry tle.TLEEntry) (*LibSGP4Propagator, error) {
	if err := validateTLELines(entry.Line1, entry.Line2); err != nil {
		return nil, fmt.Errorf("%w: invalid TLE for NORAD %d: %v", ErrUnavailable, entry.NORADID, err)
	}
	el, err := sgp4.ParseTLE(entry.Name + "\n" + entry.Line1 + "\n" + entry.Line2)
	if err != nil {
		return nil, fmt.Errorf("%w: libsgp4 parse failed for NORAD %d: %v", ErrUnavailable, entry.NORADID, err)
	}
	return &LibSGP4Propagator{elements: el, epoch: entry.Epoch, noradID: entry.NORADID}, nil
}

// Propagate returns the TEME state at t.
func (p *LibSGP4Propagator) Propagate(t time.Time) (transform.PositionTEME, error) {
	eci, err := p.elements.FindPosition(t.Sub(p.epoch).Minutes())
	if err != nil {
		return transform.PositionTEME{}, fmt.Errorf("%w: NORAD %d: %v", ErrUnavailable, p.noradID, err)
	}

	s := transform.PositionTEME{
		X: eci.Position.X, Y: eci.Position.Y, Z: eci.Position.Z,
		VX: eci.Velocity.X, VY: eci.Velocity.Y, VZ: eci.Velocity.Z,
	}
	if err := checkState(p.noradID, s); err != nil {
		return transform.PositionTEME{}, err
	}
	return s, nil
}
