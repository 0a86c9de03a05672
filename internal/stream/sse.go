// Package stream implements a Server-Sent Events (SSE) feed of the sky.
// Clients connect via GET /api/v1/stream/sky and receive one frame per
// interval with the sub-satellite points of the requested objects and the
// Sun and Moon subpoints.
//
// SSE message format:
//
//	id: 2
//	data: {"type":"sky","t":"2025-02-14T12:00:00Z","sun":{...},"moon":{...},"sat":[...]}
//
// First message is always metadata:
//
//	id: 1
//	data: {"type":"metadata","dataset_source":"...","tle_age_seconds":1800,"objects":2}
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval without a
// frame. Frame times start at ?t= (default now) and advance by the interval
// per frame, so a past start replays the sky at the stream's cadence.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/star/skyglass/internal/ephemeris"
	"github.com/star/skyglass/internal/httputil"
	"github.com/star/skyglass/internal/metrics"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/tle"
)

// Config holds streaming limits.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxTotal           int           // Max concurrent streams overall (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	MaxObjects         int           // Max objects per frame (default: 500).
	TrustProxy         bool          // Take the client IP from X-Forwarded-For.
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentPerIP < 1 {
		c.MaxConcurrentPerIP = 10
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = 30 * time.Second
	}
	if c.MaxObjects < 1 {
		c.MaxObjects = 500
	}
	return c
}

// Handler manages SSE streaming connections.
type Handler struct {
	store   *tle.Store
	pool    *propagation.WorkerPool
	config  Config
	limiter *connLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(store *tle.Store, pool *propagation.WorkerPool, config Config, logger *slog.Logger) *Handler {
	config = config.withDefaults()
	return &Handler{
		store:   store,
		pool:    pool,
		config:  config,
		limiter: newConnLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
	}
}

// streamParams are the parsed query parameters of one stream.
type streamParams struct {
	catalogs []*tle.Catalog
	start    time.Time
	interval time.Duration
	count    int // 0 streams until the client disconnects
}

// parseParams reads ?norad_id=&t=&interval=&count=. An empty norad_id
// selects every object in the dataset.
func (h *Handler) parseParams(r *http.Request) (streamParams, int, error) {
	q := r.URL.Query()
	var p streamParams

	start, err := httputil.QueryTime(q, "t", time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return p, http.StatusBadRequest, err
	}
	interval, err := httputil.QueryInt(q, "interval", 5, 1, 60)
	if err != nil {
		return p, http.StatusBadRequest, err
	}
	count, err := httputil.QueryInt(q, "count", 0, 0, 86400)
	if err != nil {
		return p, http.StatusBadRequest, err
	}
	p.start, p.interval, p.count = start, time.Duration(interval)*time.Second, count

	ds := h.store.Get()
	raw := strings.TrimSpace(q.Get("norad_id"))
	switch {
	case raw == "" && ds == nil:
		// Sun and Moon only.
	case raw == "":
		p.catalogs = ds.Catalogs()
	case ds == nil:
		return p, http.StatusNotFound, fmt.Errorf("no TLE data loaded")
	default:
		for _, field := range strings.Split(raw, ",") {
			id, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil || id <= 0 {
				return p, http.StatusBadRequest, fmt.Errorf("invalid norad_id %q", field)
			}
			cat := ds.Catalog(id)
			if cat == nil {
				return p, http.StatusNotFound, fmt.Errorf("NORAD %d: %w", id, tle.ErrNotFound)
			}
			p.catalogs = append(p.catalogs, cat)
		}
	}
	if len(p.catalogs) > h.config.MaxObjects {
		return p, http.StatusBadRequest, fmt.Errorf("%d objects requested, limit is %d; narrow with norad_id", len(p.catalogs), h.config.MaxObjects)
	}
	return p, http.StatusOK, nil
}

// HandleSky serves the SSE sky stream.
// GET /api/v1/stream/sky?norad_id=25544,20580&interval=5&t=&count=
func (h *Handler) HandleSky(w http.ResponseWriter, r *http.Request) {
	params, status, err := h.parseParams(r)
	if err != nil {
		httputil.WriteError(w, status, err.Error())
		return
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	release, ok := h.limiter.acquire(ip)
	if !ok {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}
	defer release()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	disconnected := metrics.StreamConnected()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"objects", len(params.catalogs),
		"interval_seconds", params.interval.Seconds(),
	)
	defer func() {
		disconnected()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}
	c := &client{w: w, flusher: flusher, rc: rc, logger: h.logger}

	// Jittered retry interval (3-7s) so restarts do not cause reconnection storms.
	if err := c.sendRetry(time.Duration(3000+rand.Intn(4000)) * time.Millisecond); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}
	if err := c.send(h.metadata(len(params.catalogs))); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	ctx := r.Context()
	ticker := time.NewTicker(params.interval)
	defer ticker.Stop()
	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	for n := 0; params.count == 0 || n < params.count; n++ {
		if n > 0 {
			if !h.wait(ctx, c, ticker, keepalive, ip) {
				return
			}
		}
		t := params.start.Add(time.Duration(n) * params.interval)
		frame, err := h.buildFrame(ctx, params.catalogs, t)
		if err != nil {
			metrics.IncStreamErrors("frame_error")
			h.logger.Warn("stream frame error", "remote_ip", ip, "time", t.Format(time.RFC3339), "error", err)
			return
		}
		if err := c.send(frame); err != nil {
			metrics.IncStreamErrors("send_error")
			h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
			return
		}
		keepalive.Reset(h.config.KeepaliveInterval)
	}
}

// wait blocks until the next frame is due, sending keep-alives meanwhile.
// It returns false when the stream should end.
func (h *Handler) wait(ctx context.Context, c *client, ticker, keepalive *time.Ticker, ip string) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			return true
		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return false
			}
		}
	}
}

func (h *Handler) metadata(objects int) metadataMessage {
	m := metadataMessage{Type: "metadata", Objects: objects, TLEAge: -1}
	if ds := h.store.Get(); ds != nil {
		m.DatasetSource = ds.Source
		m.DatasetFetchedAt = ds.FetchedAt.UTC().Format(time.RFC3339)
		m.TLEAge = int(time.Since(ds.FetchedAt).Seconds())
	}
	return m
}

// buildFrame computes the sky at t.
func (h *Handler) buildFrame(ctx context.Context, catalogs []*tle.Catalog, t time.Time) (skyFrame, error) {
	sun, err := ephemeris.SunAt(t)
	if err != nil {
		return skyFrame{}, err
	}
	moon, err := ephemeris.MoonAt(t)
	if err != nil {
		return skyFrame{}, err
	}
	phase, err := ephemeris.Phase(sun, moon)
	if err != nil {
		return skyFrame{}, err
	}

	positions, _, failed := h.pool.PropagateBatch(ctx, catalogs, t)
	sort.Slice(positions, func(i, j int) bool { return positions[i].NORADID < positions[j].NORADID })

	sats := make([]satPayload, len(positions))
	for i, p := range positions {
		sats[i] = satPayload{
			ID:  p.NORADID,
			Lat: p.Geodetic.LatDeg,
			Lon: p.Geodetic.LonDeg,
			Alt: p.Geodetic.AltM / 1000,
			Age: p.AgeDays,
		}
	}
	return skyFrame{
		Type: "sky",
		T:    t.UTC().Format(time.RFC3339),
		Sun: bodyPayload{
			Lat: sun.Subpoint.Latitude,
			Lon: sun.Subpoint.SignedLongitude(),
			RA:  sun.Equatorial.RightAscension,
			Dec: sun.Equatorial.Declination,
		},
		Moon: moonPayload{
			bodyPayload: bodyPayload{
				Lat: moon.Subpoint.Latitude,
				Lon: moon.Subpoint.SignedLongitude(),
				RA:  moon.Equatorial.RightAscension,
				Dec: moon.Equatorial.Declination,
			},
			K:      phase.IlluminatedFraction,
			Regime: phase.Regime(),
		},
		Sat:    sats,
		Failed: failed,
	}, nil
}

// SSE message payload types.

type metadataMessage struct {
	Type             string `json:"type"`
	DatasetSource    string `json:"dataset_source,omitempty"`
	DatasetFetchedAt string `json:"dataset_fetched_at,omitempty"`
	TLEAge           int    `json:"tle_age_seconds"`
	Objects          int    `json:"objects"`
}

type skyFrame struct {
	Type   string       `json:"type"`
	T      string       `json:"t"`
	Sun    bodyPayload  `json:"sun"`
	Moon   moonPayload  `json:"moon"`
	Sat    []satPayload `json:"sat"`
	Failed int          `json:"failed,omitempty"`
}

type bodyPayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

type moonPayload struct {
	bodyPayload
	K      float64          `json:"k"`
	Regime ephemeris.Regime `json:"regime"`
}

type satPayload struct {
	ID  int     `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt_km"`
	Age float64 `json:"tle_age_days"`
}
