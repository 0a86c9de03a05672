// Package passes finds the intervals during which an orbiting object is above
// an observer's horizon and decides which of them are visible to the eye.
package passes

import (
	"time"

	"github.com/star/skyglass/internal/transform"
)

// StateSource yields the object's inertial state at a sample time.
// Implementations are called with non-decreasing times within one run.
type StateSource interface {
	StateAt(t time.Time) (transform.PositionTEME, error)
}

// Sample is one above-horizon observation within a pass.
type Sample struct {
	Time      time.Time `json:"time"`
	Elevation float64   `json:"elevation"`
	Azimuth   float64   `json:"azimuth"`
	RangeKm   float64   `json:"range_km"`
	InShadow  bool      `json:"in_shadow"`
}

// Pass is a maximal run of consecutive samples at or above the horizon.
type Pass struct {
	NORADID       int        `json:"norad_id,omitempty"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	StartAzimuth  float64    `json:"start_azimuth"`
	EndAzimuth    float64    `json:"end_azimuth"`
	PeakElevation float64    `json:"peak_elevation"`
	PeakTime      time.Time  `json:"peak_time"`
	PeakAzimuth   float64    `json:"peak_azimuth"`
	Visible       bool       `json:"visible"`
	FirstVisible  *time.Time `json:"first_visible,omitempty"`
	Samples       []Sample   `json:"samples"`
}

// Duration is the time between the first and last sample.
func (p Pass) Duration() time.Duration { return p.End.Sub(p.Start) }

// SunlitSamples counts the samples in which the object is not eclipsed.
func (p Pass) SunlitSamples() int {
	n := 0
	for _, s := range p.Samples {
		if !s.InShadow {
			n++
		}
	}
	return n
}

// Stats counts what happened to the samples of one run.
type Stats struct {
	Samples int `json:"samples"`
	Above   int `json:"above"`
	Below   int `json:"below"`
	Skipped int `json:"skipped"`
}
