// Package transform holds the time scales and coordinate frames shared by the
// ephemeris and pass-prediction code.
//
// SGP4 reports positions in TEME (True Equator Mean Equinox). Rotating TEME by
// GMST about the Z axis gives a pseudo Earth-fixed frame that is used as ECEF
// here; polar motion and the equation of the equinoxes are ignored, which is
// well under a kilometre for low Earth orbit.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", ch. 3.
package transform

import (
	"math"
	"time"
)

// Vector is a Cartesian vector. Units depend on context and are stated by
// the producer (kilometres for every producer in this module).
type Vector struct {
	X, Y, Z float64
}

func (v Vector) Dot(w Vector) float64 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }
func (v Vector) Norm() float64        { return math.Sqrt(v.Dot(v)) }
func (v Vector) Scale(k float64) Vector {
	return Vector{v.X * k, v.Y * k, v.Z * k}
}
func (v Vector) Sub(w Vector) Vector { return Vector{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Finite reports whether every component is a finite number.
func (v Vector) Finite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// PositionTEME is an inertial state vector in the TEME frame.
type PositionTEME struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// Position returns the position part of the state in km.
func (p PositionTEME) Position() Vector { return Vector{p.X, p.Y, p.Z} }

// PositionECEF is a state vector in the Earth-fixed frame.
type PositionECEF struct {
	X, Y, Z    float64 // meters
	VX, VY, VZ float64 // m/s
}

// EquatorialToVector converts right ascension and declination (degrees) and a
// distance into an inertial Cartesian vector in the same distance unit.
func EquatorialToVector(raDeg, decDeg, dist float64) Vector {
	ra := raDeg * math.Pi / 180
	dec := decDeg * math.Pi / 180
	cd := math.Cos(dec)
	return Vector{
		X: dist * cd * math.Cos(ra),
		Y: dist * cd * math.Sin(ra),
		Z: dist * math.Sin(dec),
	}
}

// TEMEToECEF rotates a TEME state (km, km/s) at t into ECEF (m, m/s).
func TEMEToECEF(teme PositionTEME, t time.Time) PositionECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST rotates with a precomputed GMST (radians), so a batch of
// objects at one instant shares a single sidereal time evaluation.
//
//	r_ecef = R3(θ)·r_teme
//	v_ecef = R3(θ)·v_teme − ω × r_ecef
func TEMEToECEFWithGMST(teme PositionTEME, gmst float64) PositionECEF {
	s, c := math.Sincos(gmst)

	x := teme.X*c + teme.Y*s
	y := -teme.X*s + teme.Y*c

	vx := teme.VX*c + teme.VY*s + OmegaEarth*y
	vy := -teme.VX*s + teme.VY*c - OmegaEarth*x

	return PositionECEF{
		X:  x * 1000,
		Y:  y * 1000,
		Z:  teme.Z * 1000,
		VX: vx * 1000,
		VY: vy * 1000,
		VZ: teme.VZ * 1000,
	}
}
