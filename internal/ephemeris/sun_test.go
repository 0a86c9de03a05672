package ephemeris

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/star/skyglass/internal/angle"
	"github.com/star/skyglass/internal/transform"
)

func angDiff(a, b float64) float64 { return math.Abs(angle.Signed(a - b)) }

// Meeus example 25.b, 1992-10-13 0h TD, full VSOP87. The truncated series
// stays within a few arcseconds.
func TestSunMeeusExample(t *testing.T) {
	s, err := SunAt(time.Date(1992, 10, 13, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SunAt: %v", err)
	}

	tests := []struct {
		name      string
		got, want float64
		tol       float64
	}{
		{"apparent longitude", s.Ecliptic.Longitude, 199.906060, 0.001},
		{"latitude", s.Ecliptic.Latitude, 0.000172, 0.0001},
		{"right ascension", s.Equatorial.RightAscension, 198.378121, 0.001},
		{"declination", s.Equatorial.Declination, -7.783817, 0.001},
		{"distance AU", s.DistanceAU, 0.99760775, 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if angDiff(tt.got, tt.want) > tt.tol {
				t.Errorf("got %.6f, want %.6f ± %g", tt.got, tt.want, tt.tol)
			}
		})
	}
}

// The meeus/v3 low-accuracy solar theory is good to about 0.01°.
func TestSunMatchesMeeusPackage(t *testing.T) {
	times := []time.Time{
		time.Date(1992, 10, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC),
		time.Date(2024, 6, 20, 20, 51, 0, 0, time.UTC),
		time.Date(2031, 11, 2, 17, 30, 0, 0, time.UTC),
	}
	for _, tm := range times {
		t.Run(tm.Format(time.DateOnly), func(t *testing.T) {
			s, err := SunAt(tm)
			if err != nil {
				t.Fatalf("SunAt: %v", err)
			}
			ra, dec := solar.ApparentEquatorial(transform.JulianDate(tm))
			if d := angDiff(s.Equatorial.RightAscension, unit.Angle(ra).Deg()); d > 0.01 {
				t.Errorf("RA = %.5f, meeus %.5f", s.Equatorial.RightAscension, unit.Angle(ra).Deg())
			}
			if d := math.Abs(s.Equatorial.Declination - dec.Deg()); d > 0.01 {
				t.Errorf("Dec = %.5f, meeus %.5f", s.Equatorial.Declination, dec.Deg())
			}
		})
	}
}

func TestSunSeasons(t *testing.T) {
	tests := []struct {
		name    string
		time    time.Time
		wantLon float64
		wantDec float64
	}{
		{"March equinox 2024", time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC), 0, 0},
		{"June solstice 2024", time.Date(2024, 6, 20, 20, 51, 0, 0, time.UTC), 90, 23.438},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := SunAt(tt.time)
			if err != nil {
				t.Fatalf("SunAt: %v", err)
			}
			if d := angDiff(s.Ecliptic.Longitude, tt.wantLon); d > 0.01 {
				t.Errorf("longitude = %.5f, want %.0f", s.Ecliptic.Longitude, tt.wantLon)
			}
			if d := math.Abs(s.Equatorial.Declination - tt.wantDec); d > 0.01 {
				t.Errorf("declination = %.5f, want %.3f", s.Equatorial.Declination, tt.wantDec)
			}
		})
	}
}

func TestSunSubpoint(t *testing.T) {
	tm := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	s, err := SunAt(tm)
	if err != nil {
		t.Fatalf("SunAt: %v", err)
	}
	if s.Subpoint.Latitude != s.Equatorial.Declination {
		t.Errorf("subpoint latitude %.6f != declination %.6f", s.Subpoint.Latitude, s.Equatorial.Declination)
	}
	want := angle.Normalize(s.Equatorial.RightAscension - transform.GMSTDeg(s.JD))
	if s.Subpoint.Longitude != want {
		t.Errorf("subpoint longitude = %.6f, want %.6f", s.Subpoint.Longitude, want)
	}
	// Near local noon on the prime meridian the Sun stands over roughly 0°.
	if d := math.Abs(s.Subpoint.SignedLongitude()); d > 1 {
		t.Errorf("signed subpoint longitude = %.3f, want within 1° of 0", s.Subpoint.SignedLongitude())
	}
}

func TestSunRanges(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*400; h += 37 {
		s, err := SunAt(start.Add(time.Duration(h) * time.Hour))
		if err != nil {
			t.Fatalf("SunAt: %v", err)
		}
		if s.Ecliptic.Longitude < 0 || s.Ecliptic.Longitude >= 360 ||
			s.Equatorial.RightAscension < 0 || s.Equatorial.RightAscension >= 360 ||
			s.Subpoint.Longitude < 0 || s.Subpoint.Longitude >= 360 {
			t.Fatalf("angle out of [0,360) at %v: %+v", s.Time, s)
		}
		if math.Abs(s.Equatorial.Declination) > 23.5 {
			t.Fatalf("declination %.3f out of range at %v", s.Equatorial.Declination, s.Time)
		}
		if s.DistanceAU < 0.983 || s.DistanceAU > 1.017 {
			t.Fatalf("distance %.5f AU out of range at %v", s.DistanceAU, s.Time)
		}
	}
}

func TestSunDeterministic(t *testing.T) {
	tm := time.Date(2025, 7, 4, 18, 30, 15, 0, time.UTC)
	a, _ := SunAt(tm)
	b, _ := SunAt(tm)
	if a != b {
		t.Errorf("SunAt not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestSunInvalidInput(t *testing.T) {
	if _, err := SunAt(time.Time{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SunAt(zero) err = %v, want ErrInvalidInput", err)
	}
	for _, jd := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := SunAtJD(jd); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("SunAtJD(%v) err = %v, want ErrInvalidInput", jd, err)
		}
	}
}

func TestSunInertialAndLookAngles(t *testing.T) {
	tm := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	s, _ := SunAt(tm)
	v := s.Inertial()
	if d := math.Abs(v.Norm() - s.DistanceKm()); d > 1e-3 {
		t.Errorf("|sun| = %.3f km, want %.3f", v.Norm(), s.DistanceKm())
	}

	// Observer under the subsolar point sees the Sun near the zenith.
	obs := transform.NewObserverPosition(s.Subpoint.Latitude, s.Subpoint.SignedLongitude(), 0)
	la, err := SunLookAngles(obs, tm)
	if err != nil {
		t.Fatalf("SunLookAngles: %v", err)
	}
	if la.ElevationDeg < 89 {
		t.Errorf("elevation under subsolar point = %.3f, want ~90", la.ElevationDeg)
	}

	// And the antipode sees it far below the horizon.
	anti := transform.NewObserverPosition(-s.Subpoint.Latitude, angle.Signed(s.Subpoint.Longitude+180), 0)
	la, _ = SunLookAngles(anti, tm)
	if la.ElevationDeg > -89 {
		t.Errorf("elevation at antipode = %.3f, want ~-90", la.ElevationDeg)
	}
}

func BenchmarkSunAt(b *testing.B) {
	tm := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < b.N; i++ {
		_, _ = SunAt(tm.Add(time.Duration(i) * time.Minute))
	}
}
