package passes

import (
	"testing"

	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/transform"
)

func TestInShadow(t *testing.T) {
	sun := transform.Vector{X: ephemeris.KmPerAU}

	tests := []struct {
		name            string
		sat             transform.Vector
		penumbra, cylin bool
	}{
		{"sunward side", transform.Vector{X: 7000}, false, false},
		{"terminator", transform.Vector{Y: 7000}, false, false},
		{"on the anti-sun line", transform.Vector{X: -7000}, true, true},
		{"near the anti-sun line", transform.Vector{X: -7000, Y: 20}, true, true},
		// The cone widens from the geocentre, so only the cylinder covers
		// this point.
		{"inside cylinder only", transform.Vector{X: -7000, Y: 100}, false, true},
		// Cone radius at 7000 km is about 33 km.
		{"low orbit 40 km off axis", transform.Vector{X: -7000, Y: 40}, false, true},
		{"beyond cone-cylinder crossover", transform.Vector{X: -1.5e6, Y: 6000}, true, true},
		{"outside both", transform.Vector{X: -7000, Z: 6500}, false, false},
		{"geostationary behind Earth", transform.Vector{X: -42164, Y: 150}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InShadow(ShadowPenumbra, tt.sat, sun); got != tt.penumbra {
				t.Errorf("penumbra = %v, want %v", got, tt.penumbra)
			}
			if got := InShadow(ShadowCylindrical, tt.sat, sun); got != tt.cylin {
				t.Errorf("cylindrical = %v, want %v", got, tt.cylin)
			}
		})
	}

	if InShadow(ShadowPenumbra, transform.Vector{X: -7000}, transform.Vector{}) {
		t.Error("zero Sun vector reported shadow")
	}
}

func TestParseShadowModel(t *testing.T) {
	tests := []struct {
		in      string
		want    ShadowModel
		wantErr bool
	}{
		{"", ShadowPenumbra, false},
		{"Penumbra", ShadowPenumbra, false},
		{" cylindrical", ShadowCylindrical, false},
		{"umbra", "", true},
	}
	for _, tt := range tests {
		got, err := ParseShadowModel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseShadowModel(%q) = %q, %v", tt.in, got, err)
		}
	}
}
