// Command diag runs offline sanity checks: Sun and Moon residuals against a
// JPL DE ephemeris file, and a pass-prediction smoke run over a TLE file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/skyglass/internal/format"
	"github.com/star/skyglass/internal/passes"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/refcheck"
	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

var rootCmd = &cobra.Command{
	Use:   "diag",
	Short: "Offline checks of the ephemeris models and pass prediction",
	Long: `
diag compares the Sun and Moon series against a JPL DE binary ephemeris
(--eph) and smoke-runs pass prediction over the first objects of a TLE
file (--tle). Either or both may be given.

Examples:
  diag --eph de440.bin --start 2024-01-01T00:00:00Z --days 365 --step 72h
  diag --tle stations.txt --lat 51.48 --lon 0 --hours 24 -n 3
`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runDiag,
}

var (
	ephPath  string
	tlePath  string
	startArg string
	days     float64
	step     time.Duration
	obsLat   float64
	obsLon   float64
	obsAlt   float64
	hours    float64
	limit    int
	asJSON   bool
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&ephPath, "eph", os.Getenv("SKYGLASS_JPL_EPH"), "JPL DE binary ephemeris for Sun/Moon residuals")
	f.StringVar(&tlePath, "tle", "", "TLE file for a pass-prediction smoke run")
	f.StringVar(&startArg, "start", "", "start time, RFC 3339 (default now)")
	f.Float64Var(&days, "days", 30, "residual window in days")
	f.DurationVar(&step, "step", 24*time.Hour, "residual sampling step")
	f.Float64Var(&obsLat, "lat", 39.7392, "observer latitude for the pass run")
	f.Float64Var(&obsLon, "lon", -104.9903, "observer longitude for the pass run")
	f.Float64Var(&obsAlt, "alt", 1609, "observer altitude in meters")
	f.Float64Var(&hours, "hours", 72, "pass window in hours")
	f.IntVarP(&limit, "objects", "n", 5, "number of objects in the pass run")
	f.BoolVar(&asJSON, "json", false, "print residuals as JSON")
}

func runDiag(cmd *cobra.Command, args []string) error {
	if ephPath == "" && tlePath == "" {
		return errors.New("give --eph, --tle or both")
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	start := time.Now().UTC().Truncate(time.Second)
	if startArg != "" {
		t, err := time.Parse(time.RFC3339, startArg)
		if err != nil {
			return fmt.Errorf("invalid --start %q: %w", startArg, err)
		}
		start = t.UTC()
	}

	var errs []error
	if ephPath != "" {
		end := start.Add(time.Duration(days * float64(24*time.Hour)))
		if err := residuals(ephPath, start, end, step, asJSON); err != nil {
			errs = append(errs, fmt.Errorf("residuals: %w", err))
		}
	}
	if tlePath != "" {
		obs := transform.NewObserverPosition(obsLat, obsLon, obsAlt)
		end := start.Add(time.Duration(hours * float64(time.Hour)))
		if err := passRun(logger, tlePath, obs, start, end, limit); err != nil {
			errs = append(errs, fmt.Errorf("pass run: %w", err))
		}
	}
	return errors.Join(errs...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func residuals(path string, start, end time.Time, step time.Duration, asJSON bool) error {
	checker, eph, err := refcheck.Open(path)
	if err != nil {
		return err
	}
	defer eph.Close()

	res, sums, err := checker.Run(start, end, step)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"residuals": res, "summary": sums})
	}

	fmt.Printf("Residuals against %s, %s to %s\n", path, start.Format(time.RFC3339), end.Format(time.RFC3339))
	for _, r := range res {
		fmt.Printf("  %-4s %s  model %s %s  ref %s %s  sep %7.2f\"  dist %+9.1f km\n",
			r.Body, r.Time.Format(time.DateOnly),
			format.RA(r.ModelRA), format.Dec(r.ModelDec),
			format.RA(r.RefRA), format.Dec(r.RefDec),
			r.SeparationArcsec, r.DistanceKm)
	}
	for _, s := range sums {
		fmt.Printf("%s: %d samples, max %.2f\", rms %.2f\", max distance error %.1f km\n",
			s.Body, s.Count, s.MaxArcsec, s.RMSArcsec, s.MaxDistanceKm)
	}
	return nil
}

func passRun(logger *slog.Logger, path string, obs transform.ObserverPosition, start, end time.Time, limit int) error {
	entries, err := tle.ParseFile(path, logger)
	if err != nil {
		return fmt.Errorf("reading TLE file: %w", err)
	}
	ds := tle.NewDataset("file:"+path, time.Now().UTC(), entries)
	fmt.Printf("Loaded %d TLE entries for %d objects, epochs %s to %s\n",
		len(entries), ds.ObjectCount(),
		ds.EpochRange.Min.Format(time.RFC3339), ds.EpochRange.Max.Format(time.RFC3339))

	catalogs := ds.Catalogs()
	if limit > 0 && len(catalogs) > limit {
		catalogs = catalogs[:limit]
	}
	fmt.Printf("Prediction window: %s to %s\n", start.Format(time.RFC3339), end.Format(time.RFC3339))

	results := passes.PredictAll(context.Background(), passes.Request{
		Observer: obs,
		Catalogs: catalogs,
		Backend:  propagation.BackendGoSatellite,
		Start:    start,
		End:      end,
		Options:  passes.Options{MinElevation: 1, Logger: logger},
	})

	total := 0
	for _, sat := range results {
		if sat.Error != "" {
			fmt.Printf("  NORAD %d: ERROR %s\n", sat.NORADID, sat.Error)
			continue
		}
		fmt.Printf("  NORAD %d %s: %d passes (%d samples skipped)\n", sat.NORADID, sat.Name, len(sat.Passes), sat.Stats.Skipped)
		total += len(sat.Passes)
		for j, p := range sat.Passes {
			fmt.Printf("    pass %d: start=%s %s maxEl=%.1f° dur=%.0fs shadow=%d/%d\n",
				j, p.Start.Format(time.RFC3339), format.Compass(p.StartAzimuth),
				p.PeakElevation, p.Duration().Seconds(),
				len(p.Samples)-p.SunlitSamples(), len(p.Samples))
		}
	}
	fmt.Printf("\nTotal passes found: %d\n", total)
	return nil
}
