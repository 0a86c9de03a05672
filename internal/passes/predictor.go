package passes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/metrics"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

// DefaultStep is the sampling interval when Options.Step is unset.
const DefaultStep = 30 * time.Second

// Options configures one prediction run.
type Options struct {
	Step         time.Duration // sampling interval; DefaultStep when <= 0
	MinElevation float64       // passes peaking below this (degrees) are dropped
	Shadow       ShadowModel   // ShadowPenumbra when empty
	Logger       *slog.Logger  // nil discards
}

func (o Options) withDefaults() Options {
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.Shadow == "" {
		o.Shadow = ShadowPenumbra
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Predict samples src every opts.Step over [start, end) and returns the
// passes above obs's horizon, oldest first.
//
// Samples whose state cannot be produced are skipped and the run carries on.
// Passes cut by either window edge are returned as observed. If ctx is
// cancelled, Predict returns the passes closed so far together with
// ctx.Err().
func Predict(ctx context.Context, src StateSource, obs transform.ObserverPosition, start, end time.Time, opts Options) ([]Pass, error) {
	passes, _, err := predict(ctx, src, obs, start, end, opts)
	return passes, err
}

func predict(ctx context.Context, src StateSource, obs transform.ObserverPosition, start, end time.Time, opts Options) ([]Pass, Stats, error) {
	var stats Stats
	if err := validateWindow(obs, start, end); err != nil {
		return nil, stats, err
	}
	opts = opts.withDefaults()
	began := time.Now()

	var (
		passes []Pass
		open   *Pass
	)
	closePass := func() {
		if open == nil {
			return
		}
		if open.PeakElevation >= opts.MinElevation {
			passes = append(passes, *open)
		}
		open = nil
	}

	var err error
	for i := 0; ; i++ {
		t := start.Add(time.Duration(i) * opts.Step)
		if !t.Before(end) {
			break
		}
		if err = ctx.Err(); err != nil {
			break
		}
		stats.Samples++

		teme, perr := src.StateAt(t)
		if perr != nil {
			stats.Skipped++
			opts.Logger.Debug("sample skipped", "time", t, "error", perr)
			continue
		}

		la := transform.LookAnglesTEME(obs, teme, t)
		if la.ElevationDeg < 0 {
			stats.Below++
			closePass()
			continue
		}

		sun, serr := ephemeris.SunAt(t)
		if serr != nil {
			stats.Skipped++
			opts.Logger.Debug("sample skipped", "time", t, "error", serr)
			continue
		}
		stats.Above++

		s := Sample{
			Time:      t,
			Elevation: la.ElevationDeg,
			Azimuth:   la.AzimuthDeg,
			RangeKm:   la.RangeKm,
			InShadow:  InShadow(opts.Shadow, teme.Position(), sun.Inertial()),
		}
		if open == nil {
			open = &Pass{Start: t, StartAzimuth: s.Azimuth, PeakElevation: math.Inf(-1)}
		}
		open.Samples = append(open.Samples, s)
		open.End = t
		open.EndAzimuth = s.Azimuth
		if s.Elevation > open.PeakElevation {
			open.PeakElevation = s.Elevation
			open.PeakTime = t
			open.PeakAzimuth = s.Azimuth
		}
	}
	if err != nil {
		open = nil
	}
	closePass()

	metrics.RecordPrediction(string(opts.Shadow), time.Since(began), stats.Above, stats.Below, stats.Skipped)
	opts.Logger.Debug("prediction finished",
		"shadow", opts.Shadow,
		"passes", len(passes),
		"samples", stats.Samples,
		"samples_skipped", stats.Skipped,
		"duration_ms", time.Since(began).Milliseconds(),
	)
	return passes, stats, err
}

func validateWindow(obs transform.ObserverPosition, start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: zero time in window", ephemeris.ErrInvalidInput)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: window ends before it starts", ephemeris.ErrInvalidInput)
	}
	for _, v := range []float64{obs.LatRad, obs.LonRad, obs.AltM} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite observer coordinate", ephemeris.ErrInvalidInput)
		}
	}
	if math.Abs(obs.LatRad) > math.Pi/2 {
		return fmt.Errorf("%w: observer latitude out of range", ephemeris.ErrInvalidInput)
	}
	return nil
}

// Prediction holds the predicted passes for one object.
type Prediction struct {
	NORADID int         `json:"norad_id"`
	Name    string      `json:"name,omitempty"`
	Shadow  ShadowModel `json:"shadow_model"`
	Passes  []Pass      `json:"passes"`
	Stats   Stats       `json:"stats"`
	Error   string      `json:"error,omitempty"`
}

// Request holds the parameters for a multi-object prediction.
type Request struct {
	Observer   transform.ObserverPosition
	Catalogs   []*tle.Catalog
	Backend    propagation.Backend
	Start      time.Time
	End        time.Time
	Options    Options
	Visibility *VisibilityOptions // when set, only visible passes are kept
}

// PredictAll runs Predict for every catalog in req. Each object is processed
// in its own goroutine, bounded by a semaphore. Per-object failures are
// reported in Prediction.Error.
func PredictAll(ctx context.Context, req Request) []Prediction {
	opts := req.Options.withDefaults()
	results := make([]Prediction, len(req.Catalogs))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, cat := range req.Catalogs {
		wg.Add(1)
		go func(idx int, cat *tle.Catalog) {
			defer wg.Done()

			res := Prediction{Shadow: opts.Shadow}
			if entries := cat.Entries(); len(entries) > 0 {
				last := entries[len(entries)-1]
				res.NORADID, res.Name = last.NORADID, last.Name
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				res.Error = "cancelled"
				results[idx] = res
				return
			}

			src := propagation.NewCatalogSource(cat, req.Backend)
			passes, stats, err := predict(ctx, src, req.Observer, req.Start, req.End, opts)
			for j := range passes {
				passes[j].NORADID = res.NORADID
			}
			if req.Visibility != nil {
				passes = FilterVisible(passes, req.Observer, *req.Visibility)
			}
			res.Passes, res.Stats = passes, stats
			if err != nil {
				res.Error = err.Error()
			}
			results[idx] = res
		}(i, cat)
	}

	wg.Wait()
	return results
}
