package propagation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/star/skyglass/internal/metrics"
	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	catalog    *tle.Catalog
	targetTime time.Time
	gmst       float64 // precomputed GMST for targetTime
}

// propagateResult is the output of a single satellite propagation.
type propagateResult struct {
	position SatellitePosition
	err      error
	noradID  int
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4 propagation.
type WorkerPool struct {
	workers int
	backend Backend
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool from cfg. Fewer than one worker is
// treated as one.
func NewWorkerPool(cfg PropConfig, logger *slog.Logger) *WorkerPool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &WorkerPool{
		workers: cfg.Workers,
		backend: cfg.Backend,
		logger:  logger,
	}
}

// PropagateBatch propagates every object to the target time, each from the
// element set applicable at that time. It returns the positions that
// succeeded plus success and failure counts; failures are logged and skipped.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, catalogs []*tle.Catalog, targetTime time.Time) ([]SatellitePosition, int, int) {
	if len(catalogs) == 0 {
		return nil, 0, 0
	}
	start := time.Now()

	// GMST is the same for every object at one instant.
	gmst := transform.GMST(targetTime)

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := wp.propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, cat := range catalogs {
			job := propagateJob{
				catalog:    cat,
				targetTime: targetTime,
				gmst:       gmst,
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	positions := make([]SatellitePosition, 0, len(catalogs))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		positions = append(positions, result.position)
	}

	metrics.RecordPropagation(string(wp.backend), time.Since(start), successCount, errorCount)
	return positions, successCount, errorCount
}

// propagateSingle selects the element set, runs SGP4 and rotates the result
// into the Earth-fixed frame.
func (wp *WorkerPool) propagateSingle(job propagateJob) propagateResult {
	entries := job.catalog.Entries()
	var noradID int
	if len(entries) > 0 {
		noradID = entries[0].NORADID
	}

	sel, err := job.catalog.Select(job.targetTime)
	if err != nil {
		return propagateResult{noradID: noradID, err: err}
	}
	prop, err := New(wp.backend, sel.Entry)
	if err != nil {
		return propagateResult{noradID: noradID, err: err}
	}
	teme, err := prop.Propagate(job.targetTime)
	if err != nil {
		return propagateResult{noradID: noradID, err: err}
	}

	ecef := transform.TEMEToECEFWithGMST(teme, job.gmst)
	return propagateResult{
		noradID: noradID,
		position: SatellitePosition{
			NORADID:  noradID,
			Name:     sel.Entry.Name,
			Time:     job.targetTime.UTC(),
			AgeDays:  sel.AgeDays,
			ECEF:     ecef,
			Geodetic: transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z),
		},
	}
}
