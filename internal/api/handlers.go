package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/star/skyglass/internal/config"
	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/format"
	"github.com/star/skyglass/internal/httputil"
	"github.com/star/skyglass/internal/metrics"
	"github.com/star/skyglass/internal/passes"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/tle"
	"github.com/star/skyglass/internal/transform"
)

const (
	// maxPassSamples bounds the CPU a single pass request may consume.
	maxPassSamples = 200_000
	// maxTrackPoints bounds the length of a ground track response.
	maxTrackPoints = 20_000
)

// writeErr maps err onto an HTTP status and writes a JSON error body.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var pe *httputil.ParamError
	switch {
	case errors.As(err, &pe),
		errors.Is(err, ephemeris.ErrInvalidInput),
		errors.Is(err, config.ErrUnknownSite):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tle.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "component", "api", "path", r.URL.Path, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// queryInstant reads ?t=, defaulting to the current time.
func queryInstant(q url.Values) (time.Time, error) {
	return httputil.QueryTime(q, "t", time.Now().UTC())
}

type sunResponse struct {
	ephemeris.SunPosition
	RAText     string  `json:"ra_text"`
	DecText    string  `json:"dec_text"`
	DistanceKM float64 `json:"distance_km"`
}

func (s *Server) handleSun(w http.ResponseWriter, r *http.Request) {
	t, err := queryInstant(r.URL.Query())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	sun, err := ephemeris.SunAt(t)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sunResponse{
		SunPosition: sun,
		RAText:      format.RA(sun.Equatorial.RightAscension),
		DecText:     format.Dec(sun.Equatorial.Declination),
		DistanceKM:  sun.DistanceKm(),
	})
}

type moonResponse struct {
	ephemeris.MoonPosition
	RAText  string `json:"ra_text"`
	DecText string `json:"dec_text"`
}

func (s *Server) handleMoon(w http.ResponseWriter, r *http.Request) {
	t, err := queryInstant(r.URL.Query())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	moon, err := ephemeris.MoonAt(t)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, moonResponse{
		MoonPosition: moon,
		RAText:       format.RA(moon.Equatorial.RightAscension),
		DecText:      format.Dec(moon.Equatorial.Declination),
	})
}

type phaseResponse struct {
	ephemeris.MoonPhase
	Regime ephemeris.Regime `json:"regime"`
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	t, err := queryInstant(r.URL.Query())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	ph, err := ephemeris.PhaseAt(t)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, phaseResponse{MoonPhase: ph, Regime: ph.Regime()})
}

type tleMetadata struct {
	Source     string         `json:"source"`
	FetchedAt  time.Time      `json:"fetched_at"`
	EpochRange tle.EpochRange `json:"epoch_range"`
	Count      int            `json:"count"`
	Objects    int            `json:"objects"`
	AgeSeconds float64        `json:"age_seconds"`
}

func metadataOf(ds *tle.TLEDataset) tleMetadata {
	return tleMetadata{
		Source:     ds.Source,
		FetchedAt:  ds.FetchedAt,
		EpochRange: ds.EpochRange,
		Count:      len(ds.Satellites),
		Objects:    ds.ObjectCount(),
		AgeSeconds: time.Since(ds.FetchedAt).Seconds(),
	}
}

func (s *Server) handleTLEMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.deps.Store.Get()
	if ds == nil {
		httputil.WriteError(w, http.StatusNotFound, "no TLE data loaded")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, metadataOf(ds))
}

// catalogParam resolves the norad_id query or path value to a catalog.
func (s *Server) catalogParam(raw string) (*tle.Catalog, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil, &httputil.ParamError{Name: "norad_id", Value: raw, Err: errors.New("must be a positive integer")}
	}
	return s.deps.Store.Catalog(id)
}

type selectResponse struct {
	tle.TLEEntry
	EpochString  string         `json:"epoch_string"`
	AgeDays      float64        `json:"age_days"`
	Target       string         `json:"target"`
	ElementSets  int            `json:"element_sets"`
	CatalogRange tle.EpochRange `json:"catalog_range"`
}

func (s *Server) handleTLESelect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat, err := s.catalogParam(q.Get("norad_id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	t, err := queryInstant(q)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	sel, err := cat.Select(t)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	metrics.ObserveSelectionAge(sel.AgeDays)
	httputil.WriteJSON(w, http.StatusOK, selectResponse{
		TLEEntry:     sel.Entry,
		EpochString:  tle.FormatEpoch(sel.Epoch()),
		AgeDays:      sel.AgeDays,
		Target:       t.Format(time.RFC3339),
		ElementSets:  cat.Len(),
		CatalogRange: cat.Range(),
	})
}

type fetchResponse struct {
	tleMetadata
	Skipped bool `json:"skipped"`
}

// handleTLEFetch downloads a fresh dataset. A dataset younger than the
// configured maximum age is kept unless ?force=true.
func (s *Server) handleTLEFetch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Fetcher == nil {
		httputil.WriteError(w, http.StatusForbidden, "TLE fetch is disabled")
		return
	}
	force, err := httputil.QueryBool(r.URL.Query(), "force", false)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	maxAge := float64(s.cfg.TLE.MaxAgeSeconds)
	if ds := s.deps.Store.Get(); ds != nil && !force && maxAge > 0 && s.deps.Store.AgeSeconds() < maxAge {
		httputil.WriteJSON(w, http.StatusOK, fetchResponse{tleMetadata: metadataOf(ds), Skipped: true})
		return
	}

	ds, err := tle.Refresh(r.Context(), s.deps.Fetcher, s.deps.Cache, s.deps.Store, s.logger)
	if err != nil {
		s.logger.Error("TLE fetch failed", "component", "api", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, fmt.Sprintf("TLE fetch failed: %v", err))
		return
	}
	metrics.SetTLEDataset(len(ds.Satellites), ds.ObjectCount())
	metrics.SetTLEDatasetAge(0)
	httputil.WriteJSON(w, http.StatusOK, fetchResponse{tleMetadata: metadataOf(ds)})
}

// observerParam reads ?site= or ?lat=&lon=&alt= (meters).
func (s *Server) observerParam(q url.Values) (transform.ObserverPosition, string, error) {
	if name := q.Get("site"); name != "" {
		site, err := s.cfg.Site(name)
		if err != nil {
			return transform.ObserverPosition{}, "", err
		}
		return site.Observer(), site.Name, nil
	}
	if q.Get("lat") == "" || q.Get("lon") == "" {
		return transform.ObserverPosition{}, "", &httputil.ParamError{Name: "lat/lon", Err: errors.New("required unless site is given")}
	}
	lat, err := httputil.QueryFloat(q, "lat", 0, -90, 90)
	if err != nil {
		return transform.ObserverPosition{}, "", err
	}
	lon, err := httputil.QueryFloat(q, "lon", 0, -180, 360)
	if err != nil {
		return transform.ObserverPosition{}, "", err
	}
	alt, err := httputil.QueryFloat(q, "alt", 0, -500, 10_000)
	if err != nil {
		return transform.ObserverPosition{}, "", err
	}
	return transform.NewObserverPosition(lat, lon, alt), "", nil
}

type observerView struct {
	Site      string  `json:"site,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude_m"`
}

type passView struct {
	passes.Pass
	DurationSeconds float64 `json:"duration_seconds"`
	StartDirection  string  `json:"start_direction"`
	PeakDirection   string  `json:"peak_direction"`
	EndDirection    string  `json:"end_direction"`
}

type sunEvent struct {
	Date    string     `json:"date"`
	Sunrise *time.Time `json:"sunrise,omitempty"`
	Sunset  *time.Time `json:"sunset,omitempty"`
}

type passesResponse struct {
	NORADID     int                `json:"norad_id"`
	Name        string             `json:"name,omitempty"`
	Observer    observerView       `json:"observer"`
	Start       time.Time          `json:"start"`
	End         time.Time          `json:"end"`
	StepSeconds float64            `json:"step_seconds"`
	Shadow      passes.ShadowModel `json:"shadow_model"`
	VisibleOnly bool               `json:"visible_only"`
	Twilight    *float64           `json:"twilight,omitempty"`
	Passes      []passView         `json:"passes"`
	Stats       passes.Stats       `json:"stats"`
	SunEvents   []sunEvent         `json:"sun_events"`
	Error       string             `json:"error,omitempty"`
}

func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat, err := s.catalogParam(q.Get("norad_id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	obs, siteName, err := s.observerParam(q)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	opts := s.cfg.PredictOptions(s.logger)
	start, err := httputil.QueryTime(q, "start", time.Now().UTC().Truncate(time.Second))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	maxHours := s.cfg.MaxWindow().Hours()
	hours, err := httputil.QueryFloat(q, "hours", min(24, maxHours), 0.01, maxHours)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	stepSec, err := httputil.QueryInt(q, "step", int(opts.Step/time.Second), 1, 600)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if n := hours * 3600 / float64(stepSec); n > maxPassSamples {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":       fmt.Sprintf("window of %.0f samples exceeds the limit", n),
			"max_samples": maxPassSamples,
		})
		return
	}
	opts.Step = time.Duration(stepSec) * time.Second
	if opts.MinElevation, err = httputil.QueryFloat(q, "min_el", opts.MinElevation, 0, 90); err != nil {
		s.writeErr(w, r, err)
		return
	}
	if v := q.Get("shadow"); v != "" {
		if opts.Shadow, err = passes.ParseShadowModel(v); err != nil {
			s.writeErr(w, r, &httputil.ParamError{Name: "shadow", Value: v, Err: err})
			return
		}
	}
	visibleOnly, err := httputil.QueryBool(q, "visible", false)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	var vis *passes.VisibilityOptions
	if visibleOnly {
		v := s.cfg.VisibilityOptions()
		if raw := q.Get("twilight"); raw != "" {
			if v.Twilight, err = passes.ParseTwilight(raw); err != nil {
				s.writeErr(w, r, err)
				return
			}
		}
		vis = &v
	}
	backend, err := propagation.ParseBackend(q.Get("backend"))
	if err != nil {
		s.writeErr(w, r, &httputil.ParamError{Name: "backend", Value: q.Get("backend"), Err: err})
		return
	}
	if q.Get("backend") == "" {
		backend = s.cfg.PropConfig().Backend
	}

	end := start.Add(time.Duration(hours * float64(time.Hour)))
	res := passes.PredictAll(r.Context(), passes.Request{
		Observer:   obs,
		Catalogs:   []*tle.Catalog{cat},
		Backend:    backend,
		Start:      start,
		End:        end,
		Options:    opts,
		Visibility: vis,
	})[0]

	resp := passesResponse{
		NORADID: res.NORADID,
		Name:    res.Name,
		Observer: observerView{
			Site:      siteName,
			Latitude:  obs.LatDeg(),
			Longitude: obs.LonDeg(),
			AltitudeM: obs.AltM,
		},
		Start:       start,
		End:         end,
		StepSeconds: opts.Step.Seconds(),
		Shadow:      res.Shadow,
		VisibleOnly: visibleOnly,
		Passes:      make([]passView, 0, len(res.Passes)),
		Stats:       res.Stats,
		SunEvents:   sunEvents(obs, start, end),
		Error:       res.Error,
	}
	if vis != nil {
		resp.Twilight = &vis.Twilight
	}
	for _, p := range res.Passes {
		resp.Passes = append(resp.Passes, passView{
			Pass:            p,
			DurationSeconds: p.Duration().Seconds(),
			StartDirection:  format.Compass(p.StartAzimuth),
			PeakDirection:   format.Compass(p.PeakAzimuth),
			EndDirection:    format.Compass(p.EndAzimuth),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// sunEvents lists sunrise and sunset for each UTC day the window touches.
func sunEvents(obs transform.ObserverPosition, start, end time.Time) []sunEvent {
	var out []sunEvent
	for day := start.Truncate(24 * time.Hour); !day.After(end); day = day.AddDate(0, 0, 1) {
		ev := sunEvent{Date: day.Format(time.DateOnly)}
		rise, set := passes.SunEvents(obs, day)
		if !rise.IsZero() {
			ev.Sunrise = &rise
		}
		if !set.IsZero() {
			ev.Sunset = &set
		}
		out = append(out, ev)
	}
	return out
}

type trackResponse struct {
	NORADID     int                  `json:"norad_id"`
	Start       time.Time            `json:"start"`
	StepSeconds float64              `json:"step_seconds"`
	Points      []passes.GroundPoint `json:"points"`
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cat, err := s.catalogParam(r.PathValue("norad_id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	t, err := queryInstant(q)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	minutes, err := httputil.QueryInt(q, "minutes", 90, 1, 1440)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	stepSec, err := httputil.QueryInt(q, "step", int(passes.DefaultTrackStep/time.Second), 1, 600)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	n := minutes*60/stepSec + 1
	if n > maxTrackPoints {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":      fmt.Sprintf("track of %d points exceeds the limit", n),
			"max_points": maxTrackPoints,
		})
		return
	}

	step := time.Duration(stepSec) * time.Second
	src := propagation.NewCatalogSource(cat, s.cfg.PropConfig().Backend)
	points, err := passes.GroundTrack(src, t, step, n)
	if err != nil {
		if errors.Is(err, propagation.ErrUnavailable) {
			httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.writeErr(w, r, err)
		return
	}

	id, _ := strconv.Atoi(r.PathValue("norad_id"))
	httputil.WriteJSON(w, http.StatusOK, trackResponse{
		NORADID:     id,
		Start:       t,
		StepSeconds: step.Seconds(),
		Points:      points,
	})
}

type positionsResponse struct {
	Time      time.Time                       `json:"time"`
	Count     int                             `json:"count"`
	Failed    int                             `json:"failed"`
	Positions []propagation.SatellitePosition `json:"positions"`
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	t, err := queryInstant(r.URL.Query())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	ds := s.deps.Store.Get()
	if ds == nil {
		httputil.WriteError(w, http.StatusNotFound, "no TLE data loaded")
		return
	}

	positions, ok, failed := s.deps.Pool.PropagateBatch(r.Context(), ds.Catalogs(), t)
	if positions == nil {
		positions = []propagation.SatellitePosition{}
	}
	httputil.WriteJSON(w, http.StatusOK, positionsResponse{
		Time:      t,
		Count:     ok,
		Failed:    failed,
		Positions: positions,
	})
}
