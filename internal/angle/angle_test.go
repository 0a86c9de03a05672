package angle

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{720.25, 0.25},
		{-0.5, 359.5},
		{-360, 0},
		{-725, 355},
		{-1e-15, 0},
	}
	for _, tt := range tests {
		got := Normalize(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got < 0 || got >= 360 {
			t.Errorf("Normalize(%v) = %v, outside [0,360)", tt.in, got)
		}
	}
}

func TestSigned(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{181, -179},
		{359, -1},
		{-190, 170},
	}
	for _, tt := range tests {
		if got := Signed(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Signed(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDegreeTrig(t *testing.T) {
	if got := Sin(30); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Sin(30) = %v, want 0.5", got)
	}
	if got := Cos(60); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Cos(60) = %v, want 0.5", got)
	}
	if got := Tan(45); math.Abs(got-1) > 1e-12 {
		t.Errorf("Tan(45) = %v, want 1", got)
	}
	if got := Atan2(1, -1); math.Abs(got-135) > 1e-12 {
		t.Errorf("Atan2(1,-1) = %v, want 135", got)
	}
	if got := Asin(Clamp(1 + 1e-15)); math.Abs(got-90) > 1e-12 {
		t.Errorf("Asin(Clamp(1+eps)) = %v, want 90", got)
	}
	if got := FromArcsec(3600); got != 1 {
		t.Errorf("FromArcsec(3600) = %v, want 1", got)
	}
}
