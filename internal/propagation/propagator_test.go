package propagation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

const (
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057"
	hstLine1 = "1 20580U 90037B   25044.93611265  .00004530  00000+0  22290-3 0  9991"
	hstLine2 = "2 20580  28.4698 104.2446 0002465 131.5474 228.5524 15.15389587734382"

	// Circular, two-day period: semi-major axis about 67000 km.
	highLine1 = "1 99999U 24001A   25045.00000000  .00000000  00000-0  00000-0 0    90"
	highLine2 = "2 99999  10.0000  50.0000 0001000  90.0000 270.0000  0.50000000    18"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustEntry(t *testing.T, name, l1, l2 string) tle.TLEEntry {
	t.Helper()
	e, err := tle.ParseLines(name, l1, l2)
	if err != nil {
		t.Fatalf("ParseLines(%s): %v", name, err)
	}
	return e
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendGoSatellite, false},
		{"go-satellite", BackendGoSatellite, false},
		{" LibSGP4 ", BackendLibSGP4, false},
		{"sdp8", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestPropagateISSRadius(t *testing.T) {
	iss := mustEntry(t, "ISS (ZARYA)", issLine1, issLine2)
	start := iss.Epoch.Truncate(time.Second).Add(time.Second)

	for _, backend := range []Backend{BackendGoSatellite, BackendLibSGP4} {
		t.Run(string(backend), func(t *testing.T) {
			p, err := New(backend, iss)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			for m := 0; m <= 24*60; m += 37 {
				s, err := p.Propagate(start.Add(time.Duration(m) * time.Minute))
				if err != nil {
					t.Fatalf("+%dmin: %v", m, err)
				}
				r := s.Position().Norm()
				if r < 6600 || r > 6900 {
					t.Errorf("+%dmin: radius %.1f km outside LEO band", m, r)
				}
				v := math.Sqrt(s.VX*s.VX + s.VY*s.VY + s.VZ*s.VZ)
				if v < 7.4 || v > 7.9 {
					t.Errorf("+%dmin: speed %.3f km/s", m, v)
				}
			}
		})
	}
}

func TestPropagateBeyondGeostationary(t *testing.T) {
	high := mustEntry(t, "HIGH", highLine1, highLine2)
	p, err := New(BackendGoSatellite, high)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for h := 0; h <= 48; h += 6 {
		s, err := p.Propagate(high.Epoch.Add(time.Duration(h) * time.Hour))
		if err != nil {
			t.Fatalf("+%dh: %v", h, err)
		}
		if r := s.Position().Norm(); r < 60000 || r > 75000 {
			t.Errorf("+%dh: radius %.1f km", h, r)
		}
	}

	pool := NewWorkerPool(PropConfig{Workers: 1, Backend: BackendGoSatellite}, testLogger())
	_, ok, failed := pool.PropagateBatch(context.Background(), []*tle.Catalog{tle.NewCatalog([]tle.TLEEntry{high})}, high.Epoch.Add(time.Hour))
	if ok != 1 || failed != 0 {
		t.Errorf("batch ok=%d failed=%d, want 1/0", ok, failed)
	}
}

func TestCheckState(t *testing.T) {
	tests := []struct {
		name    string
		state   transform.PositionTEME
		wantErr bool
	}{
		{"leo", transform.PositionTEME{X: 6778}, false},
		{"beyond geostationary", transform.PositionTEME{X: 67000, Y: 12000}, false},
		{"decayed", transform.PositionTEME{X: 6000}, true},
		{"nan", transform.PositionTEME{X: math.NaN()}, true},
		{"inf", transform.PositionTEME{Z: math.Inf(1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkState(1, tt.state)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkState = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnavailable) {
				t.Errorf("err = %v, want ErrUnavailable", err)
			}
		})
	}
}

// Both backends implement the same model; they differ only in gravity
// constants, which moves a LEO position by well under the tolerance within
// a day of epoch.
func TestBackendsAgree(t *testing.T) {
	iss := mustEntry(t, "ISS (ZARYA)", issLine1, issLine2)
	a, err := New(BackendGoSatellite, iss)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(BackendLibSGP4, iss)
	if err != nil {
		t.Fatal(err)
	}

	start := iss.Epoch.Truncate(time.Second).Add(time.Second)
	for h := 0; h <= 24; h += 3 {
		at := start.Add(time.Duration(h) * time.Hour)
		sa, errA := a.Propagate(at)
		sb, errB := b.Propagate(at)
		if errA != nil || errB != nil {
			t.Fatalf("+%dh: %v / %v", h, errA, errB)
		}
		if d := sa.Position().Sub(sb.Position()).Norm(); d > 25 {
			t.Errorf("+%dh: backends differ by %.2f km", h, d)
		}
	}
}

func TestNewRejectsMalformedLines(t *testing.T) {
	bad := []tle.TLEEntry{
		{NORADID: 1, Line1: "1 00001U", Line2: issLine2},
		{NORADID: 2, Line1: issLine2, Line2: issLine1},
	}
	for _, backend := range []Backend{BackendGoSatellite, BackendLibSGP4} {
		for _, e := range bad {
			if _, err := New(backend, e); !errors.Is(err, ErrUnavailable) {
				t.Errorf("%s NORAD %d: err = %v, want ErrUnavailable", backend, e.NORADID, err)
			}
		}
	}
	if _, err := New("sdp8", tle.TLEEntry{Line1: issLine1, Line2: issLine2}); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestCatalogSourceSwitchesElementSets(t *testing.T) {
	iss := mustEntry(t, "ISS (ZARYA)", issLine1, issLine2)
	later := iss
	later.Epoch = iss.Epoch.Add(12 * time.Hour)
	// An element set the backend cannot initialize, applicable from +24h.
	broken := tle.TLEEntry{NORADID: 25544, Epoch: iss.Epoch.Add(24 * time.Hour), Line1: "1", Line2: "2"}

	src := NewCatalogSource(tle.NewCatalog([]tle.TLEEntry{broken, later, iss}), BackendGoSatellite)

	if _, err := src.StateAt(iss.Epoch.Add(-time.Minute)); !errors.Is(err, tle.ErrNotFound) {
		t.Errorf("before first epoch err = %v, want tle.ErrNotFound", err)
	}

	for _, h := range []int{0, 6, 13, 20} {
		if _, err := src.StateAt(iss.Epoch.Add(time.Duration(h) * time.Hour)); err != nil {
			t.Errorf("+%dh: %v", h, err)
		}
	}
	if src.cursor.Index() != 1 {
		t.Errorf("cursor index = %d, want 1", src.cursor.Index())
	}

	if _, err := src.StateAt(iss.Epoch.Add(25 * time.Hour)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("broken element set err = %v, want ErrUnavailable", err)
	}
	// Stepping back re-selects a working set.
	if _, err := src.StateAt(iss.Epoch.Add(2 * time.Hour)); err != nil {
		t.Errorf("after rewind: %v", err)
	}
}

func TestFixedSource(t *testing.T) {
	iss := mustEntry(t, "ISS (ZARYA)", issLine1, issLine2)
	src, err := NewFixedSource(BackendLibSGP4, iss)
	if err != nil {
		t.Fatal(err)
	}
	// A fixed source extrapolates either side of epoch.
	if _, err := src.StateAt(iss.Epoch.Add(-3 * time.Hour)); err != nil {
		t.Errorf("before epoch: %v", err)
	}
	if _, err := NewFixedSource(BackendLibSGP4, tle.TLEEntry{}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("empty entry err = %v", err)
	}
}

func TestPropagateBatch(t *testing.T) {
	iss := mustEntry(t, "ISS (ZARYA)", issLine1, issLine2)
	hst := mustEntry(t, "HST", hstLine1, hstLine2)
	bad := tle.TLEEntry{NORADID: 99999, Epoch: iss.Epoch, Line1: "1 bad", Line2: "2 bad"}

	catalogs := []*tle.Catalog{
		tle.NewCatalog([]tle.TLEEntry{iss}),
		tle.NewCatalog([]tle.TLEEntry{hst}),
		tle.NewCatalog([]tle.TLEEntry{bad}),
	}
	pool := NewWorkerPool(PropConfig{Workers: 2, Backend: BackendGoSatellite}, testLogger())
	target := iss.Epoch.Add(time.Hour)

	positions, ok, failed := pool.PropagateBatch(context.Background(), catalogs, target)
	if ok != 2 || failed != 1 || len(positions) != 2 {
		t.Fatalf("ok=%d failed=%d positions=%d, want 2/1/2", ok, failed, len(positions))
	}
	for _, p := range positions {
		if p.AgeDays <= 0 || p.AgeDays > 1 {
			t.Errorf("NORAD %d: age %v days", p.NORADID, p.AgeDays)
		}
		alt := p.Geodetic.AltM / 1000
		if alt < 300 || alt > 700 {
			t.Errorf("NORAD %d: altitude %.1f km", p.NORADID, alt)
		}
		if math.Abs(p.Geodetic.LatDeg) > 52 {
			t.Errorf("NORAD %d: latitude %.2f beyond inclination", p.NORADID, p.Geodetic.LatDeg)
		}
	}
}

func TestPropagateBatchEmptyAndCancelled(t *testing.T) {
	pool := NewWorkerPool(PropConfig{}, testLogger())
	if pos, ok, failed := pool.PropagateBatch(context.Background(), nil, time.Now()); pos != nil || ok != 0 || failed != 0 {
		t.Errorf("empty batch = %v %d %d", pos, ok, failed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	iss := mustEntry(t, "ISS (ZARYA)", issLine1, issLine2)
	cats := make([]*tle.Catalog, 50)
	for i := range cats {
		cats[i] = tle.NewCatalog([]tle.TLEEntry{iss})
	}
	_, ok, _ := pool.PropagateBatch(ctx, cats, iss.Epoch)
	if ok == len(cats) {
		t.Log("all jobs completed before cancellation was observed")
	}
}
