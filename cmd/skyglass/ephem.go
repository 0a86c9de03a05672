package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/star/skyglass/internal/angle"
	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/format"
)

var sunCmd = &cobra.Command{
	Use:   "sun",
	Short: "Apparent geocentric position of the Sun",
	Args:  cobra.NoArgs,
	RunE:  runSun,
}

var moonCmd = &cobra.Command{
	Use:   "moon",
	Short: "Apparent geocentric position of the Moon",
	Args:  cobra.NoArgs,
	RunE:  runMoon,
}

var phaseCmd = &cobra.Command{
	Use:   "phase",
	Short: "Lunar phase: illuminated fraction, cycle angle and bright-limb angle",
	Args:  cobra.NoArgs,
	RunE:  runPhase,
}

func init() {
	rootCmd.AddCommand(sunCmd, moonCmd, phaseCmd)
}

func runSun(cmd *cobra.Command, args []string) error {
	t, err := instant()
	if err != nil {
		return err
	}
	sun, err := ephemeris.SunAt(t)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(sun)
	}

	fmt.Printf("Sun at %s\n", t.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  RA / Dec     %s  %s\n", format.RA(sun.Equatorial.RightAscension), format.Dec(sun.Equatorial.Declination))
	fmt.Printf("  Ecliptic     λ %s  β %s\n", format.Angle(sun.Ecliptic.Longitude), format.Angle(sun.Ecliptic.Latitude))
	fmt.Printf("  Distance     %.6f AU (%.0f km)\n", sun.DistanceAU, sun.DistanceKm())
	fmt.Printf("  Subpoint     %.4f°, %.4f°\n", sun.Subpoint.Latitude, sun.Subpoint.SignedLongitude())
	fmt.Printf("  Nutation     Δψ %.2f\"  Δε %.2f\"  ε %s\n",
		sun.Nutation.NutationInLongitude*angle.ArcsecPerDegree,
		sun.Nutation.NutationInObliquity*angle.ArcsecPerDegree,
		format.Angle(sun.Nutation.TrueObliquity))
	return nil
}

func runMoon(cmd *cobra.Command, args []string) error {
	t, err := instant()
	if err != nil {
		return err
	}
	moon, err := ephemeris.MoonAt(t)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(moon)
	}

	fmt.Printf("Moon at %s\n", t.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  RA / Dec     %s  %s\n", format.RA(moon.Equatorial.RightAscension), format.Dec(moon.Equatorial.Declination))
	fmt.Printf("  Ecliptic     λ %s  β %s\n", format.Angle(moon.Ecliptic.Longitude), format.Angle(moon.Ecliptic.Latitude))
	fmt.Printf("  Distance     %.0f km\n", moon.DistanceKm)
	fmt.Printf("  Parallax     %s\n", format.Angle(moon.HorizontalParallax))
	fmt.Printf("  Subpoint     %.4f°, %.4f°\n", moon.Subpoint.Latitude, moon.Subpoint.SignedLongitude())
	return nil
}

func runPhase(cmd *cobra.Command, args []string) error {
	t, err := instant()
	if err != nil {
		return err
	}
	ph, err := ephemeris.PhaseAt(t)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(struct {
			ephemeris.MoonPhase
			Regime ephemeris.Regime `json:"regime"`
		}{ph, ph.Regime()})
	}

	fmt.Printf("Moon phase at %s: %s\n", t.Format("2006-01-02 15:04:05 MST"), ph.Regime())
	fmt.Printf("  Illuminated  %.1f%% (%s)\n", ph.IlluminatedFraction*100, ph.Direction)
	fmt.Printf("  Cycle angle  %.2f°\n", ph.CycleAngle)
	fmt.Printf("  Phase angle  %.2f°\n", ph.PhaseAngle)
	fmt.Printf("  Elongation   %.2f°\n", ph.Elongation)
	fmt.Printf("  Bright limb  %.1f°\n", ph.PositionAngle)
	return nil
}
