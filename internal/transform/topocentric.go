package transform

import (
	"math"
	"time"
)

// WGS-84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// ObserverPosition is a ground observer. The Earth-fixed position is computed
// once at construction and reused for every look-angle evaluation.
type ObserverPosition struct {
	LatRad, LonRad, AltM float64
	ECEFx, ECEFy, ECEFz  float64 // meters
}

// LookAngles is the direction and distance from an observer to a target.
type LookAngles struct {
	AzimuthDeg   float64 // clockwise from north
	ElevationDeg float64 // above the horizon
	RangeKm      float64
}

// NewObserverPosition builds an observer from geodetic degrees and meters
// above the ellipsoid.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	return NewObserverFromRadians(latDeg*math.Pi/180, lonDeg*math.Pi/180, altM/1000)
}

// NewObserverFromRadians builds an observer from geodetic radians and a height
// in kilometers, the units the pass engine receives from callers.
func NewObserverFromRadians(latRad, lonRad, heightKm float64) ObserverPosition {
	altM := heightKm * 1000
	sinLat, cosLat := math.Sincos(latRad)
	sinLon, cosLon := math.Sincos(lonRad)

	// prime-vertical radius of curvature
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		LatRad: latRad,
		LonRad: lonRad,
		AltM:   altM,
		ECEFx:  (n + altM) * cosLat * cosLon,
		ECEFy:  (n + altM) * cosLat * sinLon,
		ECEFz:  (n*(1-wgs84E2) + altM) * sinLat,
	}
}

// LatDeg and LonDeg return the observer's geodetic coordinates in degrees.
func (o ObserverPosition) LatDeg() float64 { return o.LatRad * 180 / math.Pi }
func (o ObserverPosition) LonDeg() float64 { return o.LonRad * 180 / math.Pi }

// GeodeticPoint is a geodetic position in degrees and meters.
type GeodeticPoint struct {
	LatDeg, LonDeg, AltM float64
}

// ECEFToGeodetic converts Earth-fixed meters to geodetic coordinates by fixed
// point iteration on latitude (Bowring start). Five rounds is far more than
// orbital altitudes need.
func ECEFToGeodetic(x, y, z float64) GeodeticPoint {
	p := math.Hypot(x, y)
	lat := math.Atan2(z, p*(1-wgs84E2))
	var n float64
	for i := 0; i < 5; i++ {
		s := math.Sin(lat)
		n = wgs84A / math.Sqrt(1-wgs84E2*s*s)
		lat = math.Atan2(z+wgs84E2*n*s, p)
	}

	sinLat, cosLat := math.Sincos(lat)
	n = wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	alt := p/cosLat - n
	if math.Abs(cosLat) <= 1e-10 {
		alt = math.Abs(z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * 180 / math.Pi,
		LonDeg: math.Atan2(y, x) * 180 / math.Pi,
		AltM:   alt,
	}
}

// ECEFToLookAngles returns azimuth, elevation and range from obs to a target
// at Earth-fixed meters, using the South-East-Zenith frame (Vallado 4.4).
func ECEFToLookAngles(obs ObserverPosition, x, y, z float64) LookAngles {
	dx := x - obs.ECEFx
	dy := y - obs.ECEFy
	dz := z - obs.ECEFz

	sinLat, cosLat := math.Sincos(obs.LatRad)
	sinLon, cosLon := math.Sincos(obs.LonRad)

	s := sinLat*cosLon*dx + sinLat*sinLon*dy - cosLat*dz
	e := -sinLon*dx + cosLon*dy
	up := cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz

	rng := math.Sqrt(s*s + e*e + up*up)

	az := math.Atan2(e, -s)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		AzimuthDeg:   az * 180 / math.Pi,
		ElevationDeg: math.Asin(up/rng) * 180 / math.Pi,
		RangeKm:      rng / 1000,
	}
}

// LookAnglesTEME rotates a TEME position (km) into the Earth-fixed frame at t
// and returns the observer's look angles to it.
func LookAnglesTEME(obs ObserverPosition, teme PositionTEME, t time.Time) LookAngles {
	ecef := TEMEToECEF(teme, t)
	return ECEFToLookAngles(obs, ecef.X, ecef.Y, ecef.Z)
}

// LookAnglesInertial is LookAnglesTEME for a bare inertial position vector in
// km, used for bodies such as the Sun whose velocity is irrelevant.
func LookAnglesInertial(obs ObserverPosition, v Vector, t time.Time) LookAngles {
	return LookAnglesTEME(obs, PositionTEME{X: v.X, Y: v.Y, Z: v.Z}, t)
}
