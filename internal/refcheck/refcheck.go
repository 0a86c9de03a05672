// Package refcheck measures how far the truncated Sun and Moon series drift
// from a JPL development ephemeris. It is a diagnostic, not part of any
// prediction path.
package refcheck

import (
	"fmt"
	"math"
	"time"

	"github.com/mshafiee/jpleph"
	meeusangle "github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/unit"

	"github.com/star/skyglass/internal/angle"
	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/transform"
)

// Source is the part of *jpleph.Ephemeris the checker needs.
type Source interface {
	CalculatePV(et float64, target jpleph.Planet, center jpleph.CenterBody, calcVelocity bool) (jpleph.Position, jpleph.Velocity, error)
}

// Body names a checked body.
type Body string

const (
	Sun  Body = "sun"
	Moon Body = "moon"
)

// Residual is the model-minus-reference difference for one body and instant.
// The reference direction is geometric J2000 precessed to the equinox of
// date, so nutation, aberration and light time show up in the separation.
type Residual struct {
	Body             Body      `json:"body"`
	Time             time.Time `json:"time"`
	SeparationArcsec float64   `json:"separation_arcsec"`
	DistanceKm       float64   `json:"distance_km"`
	ModelRA          float64   `json:"model_ra"`
	ModelDec         float64   `json:"model_dec"`
	RefRA            float64   `json:"ref_ra"`
	RefDec           float64   `json:"ref_dec"`
}

// Checker compares model positions with a Source.
type Checker struct {
	src  Source
	auKm float64
}

// New returns a checker over src. A non-positive auKm uses the IAU value.
func New(src Source, auKm float64) *Checker {
	if auKm <= 0 {
		auKm = ephemeris.KmPerAU
	}
	return &Checker{src: src, auKm: auKm}
}

// Open loads a JPL binary ephemeris file. The caller closes the returned
// ephemeris.
func Open(path string) (*Checker, *jpleph.Ephemeris, error) {
	eph, err := jpleph.NewEphemeris(path, true)
	if err != nil {
		return nil, nil, fmt.Errorf("open ephemeris %s: %w", path, err)
	}
	return New(eph, eph.GetEphemerisDouble(jpleph.AUinKM)), eph, nil
}

// Check computes the residual for body at t. Times are treated as TDB, the
// same way the series models treat them.
func (c *Checker) Check(body Body, t time.Time) (Residual, error) {
	if t.IsZero() {
		return Residual{}, fmt.Errorf("%w: zero time", ephemeris.ErrInvalidInput)
	}
	// Model and reference are evaluated at the same Julian date.
	jd := transform.JulianDate(t)

	var (
		target jpleph.Planet
		model  ephemeris.Equatorial
		distKm float64
	)
	switch body {
	case Sun:
		s, err := ephemeris.SunAtJD(jd)
		if err != nil {
			return Residual{}, err
		}
		target, model, distKm = jpleph.Sun, s.Equatorial, s.DistanceKm()
	case Moon:
		m, err := ephemeris.MoonAtJD(jd)
		if err != nil {
			return Residual{}, err
		}
		target, model, distKm = jpleph.Moon, m.Equatorial, m.DistanceKm
	default:
		return Residual{}, fmt.Errorf("%w: unknown body %q", ephemeris.ErrInvalidInput, body)
	}

	pos, _, err := c.src.CalculatePV(jd, target, jpleph.CenterEarth, false)
	if err != nil {
		return Residual{}, fmt.Errorf("reference %s at %s: %w", body, t.Format(time.RFC3339), err)
	}

	r := math.Sqrt(pos.X*pos.X+pos.Y*pos.Y+pos.Z*pos.Z) * c.auKm
	j2000 := &coord.Equatorial{
		RA:  unit.RAFromRad(math.Atan2(pos.Y, pos.X)),
		Dec: unit.Angle(math.Atan2(pos.Z, math.Hypot(pos.X, pos.Y))),
	}
	ofDate := new(coord.Equatorial)
	precess.NewPrecessor(2000, base.JDEToJulianYear(jd)).Precess(j2000, ofDate)

	sep := meeusangle.Sep(
		unit.AngleFromDeg(model.RightAscension), unit.AngleFromDeg(model.Declination),
		unit.Angle(ofDate.RA.Rad()), ofDate.Dec,
	)
	return Residual{
		Body:             body,
		Time:             t.UTC(),
		SeparationArcsec: sep.Deg() * angle.ArcsecPerDegree,
		DistanceKm:       distKm - r,
		ModelRA:          model.RightAscension,
		ModelDec:         model.Declination,
		RefRA:            angle.Normalize(ofDate.RA.Deg()),
		RefDec:           ofDate.Dec.Deg(),
	}, nil
}

// Summary aggregates residuals for one body.
type Summary struct {
	Body          Body    `json:"body"`
	Count         int     `json:"count"`
	MaxArcsec     float64 `json:"max_arcsec"`
	RMSArcsec     float64 `json:"rms_arcsec"`
	MaxDistanceKm float64 `json:"max_distance_km"`
}

// Run checks both bodies every step over [start, end] and returns the
// residuals plus one summary per body.
func (c *Checker) Run(start, end time.Time, step time.Duration) ([]Residual, []Summary, error) {
	if step <= 0 || end.Before(start) {
		return nil, nil, fmt.Errorf("%w: bad check window", ephemeris.ErrInvalidInput)
	}
	var out []Residual
	sums := map[Body]*Summary{Sun: {Body: Sun}, Moon: {Body: Moon}}
	sq := map[Body]float64{}

	for t := start; !t.After(end); t = t.Add(step) {
		for _, b := range []Body{Sun, Moon} {
			res, err := c.Check(b, t)
			if err != nil {
				return out, nil, err
			}
			out = append(out, res)
			s := sums[b]
			s.Count++
			s.MaxArcsec = math.Max(s.MaxArcsec, res.SeparationArcsec)
			s.MaxDistanceKm = math.Max(s.MaxDistanceKm, math.Abs(res.DistanceKm))
			sq[b] += res.SeparationArcsec * res.SeparationArcsec
		}
	}
	summaries := make([]Summary, 0, 2)
	for _, b := range []Body{Sun, Moon} {
		s := sums[b]
		if s.Count > 0 {
			s.RMSArcsec = math.Sqrt(sq[b] / float64(s.Count))
		}
		summaries = append(summaries, *s)
	}
	return out, summaries, nil
}
