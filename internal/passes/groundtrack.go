package passes

import (
	"fmt"
	"time"

	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/transform"
)

// DefaultTrackStep is the ground-track spacing when none is given.
const DefaultTrackStep = 5 * time.Second

// GroundPoint is the sub-satellite point at one instant.
type GroundPoint struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude_km"`
}

// GroundTrack returns up to n sub-satellite points starting at start, step
// apart. Instants the source cannot serve are left out. It is an error for
// every instant to fail.
func GroundTrack(src StateSource, start time.Time, step time.Duration, n int) ([]GroundPoint, error) {
	if start.IsZero() || n <= 0 {
		return nil, fmt.Errorf("%w: ground track needs a start time and at least one point", ephemeris.ErrInvalidInput)
	}
	if step <= 0 {
		step = DefaultTrackStep
	}

	points := make([]GroundPoint, 0, n)
	var lastErr error
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * step)
		teme, err := src.StateAt(t)
		if err != nil {
			lastErr = err
			continue
		}
		ecef := transform.TEMEToECEF(teme, t)
		geo := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)
		points = append(points, GroundPoint{
			Time:      t,
			Latitude:  geo.LatDeg,
			Longitude: geo.LonDeg,
			Altitude:  geo.AltM / 1000,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("ground track: no position available: %w", lastErr)
	}
	return points, nil
}
