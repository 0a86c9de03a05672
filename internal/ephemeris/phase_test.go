package ephemeris

import (
	"errors"
	"math"
	"testing"
	"time"
)

// Meeus example 48.a, 1992-04-12 0h TD.
func TestPhaseMeeusExample(t *testing.T) {
	p, err := PhaseAt(time.Date(1992, 4, 12, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PhaseAt: %v", err)
	}
	if math.Abs(p.PhaseAngle-69.0756) > 0.01 {
		t.Errorf("phase angle = %.4f, want 69.0756", p.PhaseAngle)
	}
	if math.Abs(p.IlluminatedFraction-0.6786) > 0.001 {
		t.Errorf("illuminated fraction = %.4f, want 0.6786", p.IlluminatedFraction)
	}
	if math.Abs(p.PositionAngle-285.0) > 0.1 {
		t.Errorf("bright limb position angle = %.2f, want 285.0", p.PositionAngle)
	}
	if p.Direction != Waxing {
		t.Errorf("direction = %s, want waxing", p.Direction)
	}
}

func TestPhaseKnownLunations(t *testing.T) {
	tests := []struct {
		name      string
		time      time.Time
		wantK     float64
		wantCycle float64
		regime    Regime
	}{
		{"new moon", time.Date(2024, 1, 11, 11, 57, 0, 0, time.UTC), 0, 0, NewMoon},
		{"first quarter", time.Date(2024, 1, 18, 3, 53, 0, 0, time.UTC), 0.5, 90, FirstQuarter},
		{"full moon", time.Date(2024, 1, 25, 17, 54, 0, 0, time.UTC), 1, 180, FullMoon},
		{"last quarter", time.Date(2024, 2, 2, 23, 18, 0, 0, time.UTC), 0.5, 270, LastQuarter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PhaseAt(tt.time)
			if err != nil {
				t.Fatalf("PhaseAt: %v", err)
			}
			if math.Abs(p.IlluminatedFraction-tt.wantK) > 0.02 {
				t.Errorf("k = %.4f, want %.2f", p.IlluminatedFraction, tt.wantK)
			}
			if angDiff(p.CycleAngle, tt.wantCycle) > 0.5 {
				t.Errorf("cycle angle = %.3f, want %.0f", p.CycleAngle, tt.wantCycle)
			}
			if got := p.Regime(); got != tt.regime {
				t.Errorf("regime = %s, want %s", got, tt.regime)
			}
		})
	}
}

// Over one synodic month the cycle angle advances monotonically (modulo 360)
// and the direction flips exactly when it crosses 180.
func TestPhaseCycleProgression(t *testing.T) {
	start := time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC)
	prev, err := PhaseAt(start)
	if err != nil {
		t.Fatalf("PhaseAt: %v", err)
	}
	var total float64
	for h := 6; h <= 29*24; h += 6 {
		p, err := PhaseAt(start.Add(time.Duration(h) * time.Hour))
		if err != nil {
			t.Fatalf("PhaseAt: %v", err)
		}
		step := math.Mod(p.CycleAngle-prev.CycleAngle+360, 360)
		if step <= 0 || step > 10 {
			t.Fatalf("cycle angle step %.3f at +%dh (%.3f -> %.3f)", step, h, prev.CycleAngle, p.CycleAngle)
		}
		total += step
		wantDir := Waxing
		if p.CycleAngle >= 180 {
			wantDir = Waning
		}
		if p.Direction != wantDir {
			t.Fatalf("direction %s at cycle angle %.3f", p.Direction, p.CycleAngle)
		}
		if p.IlluminatedFraction < 0 || p.IlluminatedFraction > 1 ||
			p.PositionAngle < 0 || p.PositionAngle >= 360 ||
			p.Elongation < 0 || p.Elongation > 180 {
			t.Fatalf("phase out of range at +%dh: %+v", h, p)
		}
		prev = p
	}
	if total < 340 || total > 360 {
		t.Errorf("cycle angle advanced %.1f° in 29 days, want about 354", total)
	}
}

func TestPhaseMismatchedEpoch(t *testing.T) {
	sun, _ := SunAt(time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC))
	moon, _ := MoonAt(time.Date(2024, 1, 11, 12, 0, 1, 0, time.UTC))
	if _, err := Phase(sun, moon); !errors.Is(err, ErrMismatchedEpoch) {
		t.Errorf("Phase err = %v, want ErrMismatchedEpoch", err)
	}

	moon, _ = MoonAt(sun.Time)
	a, err := Phase(sun, moon)
	if err != nil {
		t.Fatalf("Phase: %v", err)
	}
	b, _ := PhaseAt(sun.Time)
	if a != b {
		t.Errorf("Phase = %+v, PhaseAt = %+v", a, b)
	}
}

func TestPhaseInvalidInput(t *testing.T) {
	if _, err := PhaseAt(time.Time{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("PhaseAt(zero) err = %v, want ErrInvalidInput", err)
	}
}

func TestRegimeBoundaries(t *testing.T) {
	tests := []struct {
		cycle float64
		want  Regime
	}{
		{0, NewMoon},
		{22.4, NewMoon},
		{22.6, WaxingCrescent},
		{135, WaxingGibbous},
		{180, FullMoon},
		{247.5, LastQuarter},
		{337.6, NewMoon},
		{359.9, NewMoon},
	}
	for _, tt := range tests {
		if got := (MoonPhase{CycleAngle: tt.cycle}).Regime(); got != tt.want {
			t.Errorf("Regime(%v) = %s, want %s", tt.cycle, got, tt.want)
		}
	}
}
