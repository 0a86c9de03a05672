package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/skyglass/internal/format"
	"github.com/star/skyglass/internal/passes"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Show the element set in force for an object at --time",
	Long: `
Picks the element set with the latest epoch not after --time. Element sets
are never extrapolated backwards: asking for a time before the first epoch
is an error.
`,
	Args: cobra.NoArgs,
	RunE: runSelect,
}

var passesCmd = &cobra.Command{
	Use:   "passes",
	Short: "Predict passes of an object over an observer",
	Long: `
Samples the object every --step from --time for --hours and reports each
interval it spends above the horizon, with its peak and whether it is in
the Earth's shadow. --visible keeps only passes in which the object is
sunlit while the observer's sky is darker than the twilight threshold.
`,
	Args: cobra.NoArgs,
	RunE: runPasses,
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Sub-satellite points of an object",
	Args:  cobra.NoArgs,
	RunE:  runTrack,
}

// Satellite flags
var (
	tleFiles []string
	noradID  int
	backend  string

	siteName string
	obsLat   float64
	obsLon   float64
	obsAlt   float64

	passHours   float64
	passStep    time.Duration
	minElev     float64
	shadowModel string
	visibleOnly bool
	twilight    string

	trackMinutes int
	trackStep    time.Duration
)

func init() {
	for _, c := range []*cobra.Command{selectCmd, passesCmd, trackCmd} {
		c.Flags().StringSliceVar(&tleFiles, "tle", nil, "TLE files (default: configured files, then the newest cache file)")
		c.Flags().IntVar(&noradID, "norad", 25544, "NORAD catalog number")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{passesCmd, trackCmd} {
		c.Flags().StringVar(&backend, "backend", "", "SGP4 backend: go-satellite or libsgp4 (default from config)")
	}

	pf := passesCmd.Flags()
	pf.StringVar(&siteName, "site", "", "configured observer site")
	pf.Float64Var(&obsLat, "lat", 0, "observer latitude, degrees north")
	pf.Float64Var(&obsLon, "lon", 0, "observer longitude, degrees east")
	pf.Float64Var(&obsAlt, "alt", 0, "observer altitude, meters")
	pf.Float64Var(&passHours, "hours", 24, "prediction window in hours")
	pf.DurationVar(&passStep, "step", 0, "sampling step (default from config)")
	pf.Float64Var(&minElev, "min-el", -1, "minimum peak elevation, degrees (default from config)")
	pf.StringVar(&shadowModel, "shadow", "", "shadow model: penumbra or cylindrical (default from config)")
	pf.BoolVar(&visibleOnly, "visible", false, "only passes visible to the eye")
	pf.StringVar(&twilight, "twilight", "", "civil, nautical, astronomical or degrees (default from config)")

	tf := trackCmd.Flags()
	tf.IntVar(&trackMinutes, "minutes", 90, "track length in minutes")
	tf.DurationVar(&trackStep, "step", passes.DefaultTrackStep, "spacing between points")
}

// catalog loads the element sets and returns the history for --norad.
func catalog() (*tle.Catalog, error) {
	files := tleFiles
	if len(files) == 0 {
		files = cfg.TLE.Files
	}
	ds, err := tle.LoadDataset(files, tle.NewCache(cfg.TLE.CacheDir, cfg.TLE.MaxFiles), logger)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, errors.New("no TLE data: pass --tle or configure tle.files")
	}
	cat := ds.Catalog(noradID)
	if cat == nil {
		return nil, fmt.Errorf("NORAD %d: %w", noradID, tle.ErrNotFound)
	}
	return cat, nil
}

func propagatorBackend() (propagation.Backend, error) {
	if backend == "" {
		return cfg.PropConfig().Backend, nil
	}
	return propagation.ParseBackend(backend)
}

func runSelect(cmd *cobra.Command, args []string) error {
	t, err := instant()
	if err != nil {
		return err
	}
	cat, err := catalog()
	if err != nil {
		return err
	}
	sel, err := cat.Select(t)
	if err != nil {
		rng := cat.Range()
		return fmt.Errorf("%w (element sets cover %s to %s)", err,
			rng.Min.Format(time.RFC3339), rng.Max.Format(time.RFC3339))
	}
	if asJSON {
		return printJSON(sel)
	}

	fmt.Printf("%s (NORAD %d)\n", sel.Entry.Name, sel.Entry.NORADID)
	fmt.Printf("  epoch  %s (%s)\n", tle.FormatEpoch(sel.Epoch()), sel.Epoch().Format(time.RFC3339Nano))
	fmt.Printf("  age    %.3f days at %s\n", sel.AgeDays, t.Format(time.RFC3339))
	if rng := cat.Range(); cat.Len() > 1 {
		fmt.Printf("  %d element sets, %s to %s\n", cat.Len(), rng.Min.Format(time.RFC3339), rng.Max.Format(time.RFC3339))
	}
	fmt.Printf("  %s\n  %s\n", sel.Entry.Line1, sel.Entry.Line2)
	return nil
}

// observer resolves --site or --lat/--lon/--alt.
func observer(cmd *cobra.Command) (transform.ObserverPosition, string, error) {
	if siteName != "" {
		site, err := cfg.Site(siteName)
		if err != nil {
			return transform.ObserverPosition{}, "", err
		}
		return site.Observer(), site.Name, nil
	}
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
		return transform.ObserverPosition{}, "", errors.New("give --site or both --lat and --lon")
	}
	if obsLat < -90 || obsLat > 90 {
		return transform.ObserverPosition{}, "", fmt.Errorf("--lat %v out of range", obsLat)
	}
	return transform.NewObserverPosition(obsLat, obsLon, obsAlt), "", nil
}

func runPasses(cmd *cobra.Command, args []string) error {
	start, err := instant()
	if err != nil {
		return err
	}
	obs, label, err := observer(cmd)
	if err != nil {
		return err
	}
	if passHours <= 0 || time.Duration(passHours*float64(time.Hour)) > cfg.MaxWindow() {
		return fmt.Errorf("--hours must be within (0, %v]", cfg.MaxWindow().Hours())
	}

	opts := cfg.PredictOptions(logger)
	if passStep > 0 {
		opts.Step = passStep
	}
	if minElev >= 0 {
		opts.MinElevation = minElev
	}
	if shadowModel != "" {
		if opts.Shadow, err = passes.ParseShadowModel(shadowModel); err != nil {
			return err
		}
	}
	var vis *passes.VisibilityOptions
	if visibleOnly {
		v := cfg.VisibilityOptions()
		if twilight != "" {
			if v.Twilight, err = passes.ParseTwilight(twilight); err != nil {
				return err
			}
		}
		vis = &v
	}
	b, err := propagatorBackend()
	if err != nil {
		return err
	}
	cat, err := catalog()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	end := start.Add(time.Duration(passHours * float64(time.Hour)))
	res := passes.PredictAll(ctx, passes.Request{
		Observer:   obs,
		Catalogs:   []*tle.Catalog{cat},
		Backend:    b,
		Start:      start,
		End:        end,
		Options:    opts,
		Visibility: vis,
	})[0]
	if res.Error != "" {
		return errors.New(res.Error)
	}
	if asJSON {
		return printJSON(res)
	}

	if label == "" {
		label = fmt.Sprintf("%.4f°, %.4f°, %.0f m", obs.LatDeg(), obs.LonDeg(), obs.AltM)
	}
	fmt.Printf("%s (NORAD %d) over %s\n", res.Name, res.NORADID, label)
	fmt.Printf("%s to %s, step %v, shadow model %s\n\n", start.Format(time.RFC3339), end.Format(time.RFC3339), opts.Step, res.Shadow)

	for day := start.Truncate(24 * time.Hour); !day.After(end); day = day.AddDate(0, 0, 1) {
		rise, set := passes.SunEvents(obs, day)
		fmt.Printf("%s  sunrise %s  sunset %s\n", day.Format(time.DateOnly), clock(rise), clock(set))
	}
	fmt.Println()

	if len(res.Passes) == 0 {
		fmt.Println("No passes.")
	}
	for _, p := range res.Passes {
		lit := fmt.Sprintf("sunlit %d/%d", p.SunlitSamples(), len(p.Samples))
		if p.Visible && p.FirstVisible != nil {
			lit += ", visible from " + clock(*p.FirstVisible)
		}
		fmt.Printf("%s  %-3s -> peak %5.1f° %-3s at %s -> %-3s %s  %4.0fs  %s\n",
			p.Start.Format("2006-01-02 15:04:05"),
			format.Compass(p.StartAzimuth),
			p.PeakElevation, format.Compass(p.PeakAzimuth), clock(p.PeakTime),
			format.Compass(p.EndAzimuth), clock(p.End),
			p.Duration().Seconds(), lit)
	}
	fmt.Printf("\n%d samples: %d above, %d below, %d skipped\n",
		res.Stats.Samples, res.Stats.Above, res.Stats.Below, res.Stats.Skipped)
	return nil
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Format("15:04:05")
}

func runTrack(cmd *cobra.Command, args []string) error {
	start, err := instant()
	if err != nil {
		return err
	}
	if trackMinutes <= 0 || trackStep <= 0 {
		return errors.New("--minutes and --step must be positive")
	}
	b, err := propagatorBackend()
	if err != nil {
		return err
	}
	cat, err := catalog()
	if err != nil {
		return err
	}

	n := int(time.Duration(trackMinutes)*time.Minute/trackStep) + 1
	points, err := passes.GroundTrack(propagation.NewCatalogSource(cat, b), start, trackStep, n)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(points)
	}
	for _, p := range points {
		fmt.Printf("%s  %9.4f  %9.4f  %7.1f km\n", p.Time.Format(time.RFC3339), p.Latitude, p.Longitude, p.Altitude)
	}
	return nil
}
