package ephemeris

import (
	"math"
	"testing"

	"github.com/soniakeys/meeus/v3/nutation"
)

const arcsec = 1.0 / 3600

// Meeus example 22.a, 1987-04-10 0h TD.
func TestNutationMeeusExample(t *testing.T) {
	n := Nutation(2446895.5)

	tests := []struct {
		name string
		got  float64
		want float64
		tol  float64
	}{
		{"nutation in longitude", n.NutationInLongitude, -3.788 * arcsec, 0.002 * arcsec},
		{"nutation in obliquity", n.NutationInObliquity, 9.443 * arcsec, 0.002 * arcsec},
		{"mean obliquity", n.MeanObliquity, 23 + 26.0/60 + 27.407*arcsec, 0.002 * arcsec},
		{"true obliquity", n.TrueObliquity, 23 + 26.0/60 + 36.850*arcsec, 0.003 * arcsec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > tt.tol {
				t.Errorf("got %.8f°, want %.8f° (diff %.4f\")", tt.got, tt.want, (tt.got-tt.want)*3600)
			}
		})
	}
}

// The meeus/v3 nutation package evaluates the same IAU 1980 series.
func TestNutationMatchesMeeusPackage(t *testing.T) {
	for _, jd := range []float64{2415020.5, 2446895.5, 2451545.0, 2460320.0, 2470000.25} {
		n := Nutation(jd)
		dpsi, deps := nutation.Nutation(jd)
		if d := math.Abs(n.NutationInLongitude - dpsi.Deg()); d > 0.001*arcsec {
			t.Errorf("jd %.2f: Δψ = %.9f, meeus %.9f", jd, n.NutationInLongitude, dpsi.Deg())
		}
		if d := math.Abs(n.NutationInObliquity - deps.Deg()); d > 0.001*arcsec {
			t.Errorf("jd %.2f: Δε = %.9f, meeus %.9f", jd, n.NutationInObliquity, deps.Deg())
		}
		if d := math.Abs(n.MeanObliquity - nutation.MeanObliquityLaskar(jd).Deg()); d > 1e-8 {
			t.Errorf("jd %.2f: ε0 = %.10f, meeus %.10f", jd, n.MeanObliquity, nutation.MeanObliquityLaskar(jd).Deg())
		}
	}
}

// Each Δε row, evaluated alone, must match the IAU 1980 coefficients.
func TestNutationObliquityRows(t *testing.T) {
	tests := []struct {
		d, m, mp, f, om int8
		s, c            float64
	}{
		{0, 0, 0, 0, 1, 92025, 8.9},
		{-2, 0, 0, 2, 2, 5736, -3.1},
		{0, 0, 0, 2, 2, 977, -0.5},
		{0, 0, 0, 0, 2, -895, 0.5},
		{0, 1, 0, 0, 0, 54, -0.1},
		{0, 0, 1, 0, 0, -7, 0},
		{-2, 1, 0, 2, 2, 224, -0.6},
	}
	for i, want := range tests {
		got := nutationObliquityTerms[i]
		if got.d != want.d || got.m != want.m || got.mp != want.mp || got.f != want.f || got.om != want.om ||
			got.s != want.s || got.c != want.c {
			t.Errorf("row %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestMeanObliquityAtJ2000(t *testing.T) {
	if got := MeanObliquity(2451545.0); got != 23.43929111 {
		t.Errorf("MeanObliquity(J2000) = %.10f, want 23.43929111", got)
	}
}

func TestNutationTableSizes(t *testing.T) {
	if n := len(nutationLongitudeTerms); n != 63 {
		t.Errorf("longitude terms = %d, want 63", n)
	}
	if n := len(nutationObliquityTerms); n != 38 {
		t.Errorf("obliquity terms = %d, want 38", n)
	}
}
