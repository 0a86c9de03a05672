package propagation

import (
	"time"

	"github.com/star/skyglass/internal/transform"
)

// SatellitePosition is one object's state at a snapshot time.
type SatellitePosition struct {
	NORADID  int                     `json:"norad_id"`
	Name     string                  `json:"name"`
	Time     time.Time               `json:"time"`
	AgeDays  float64                 `json:"tle_age_days"`
	ECEF     transform.PositionECEF  `json:"ecef_m"`
	Geodetic transform.GeodeticPoint `json:"geodetic"`
}

// PropConfig sizes a worker pool and picks the SGP4 backend.
type PropConfig struct {
	Workers int
	Backend Backend
}
