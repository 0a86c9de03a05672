package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057"
	hstLine1 = "1 20580U 90037B   25044.93611265  .00004530  00000+0  22290-3 0  9991"
	hstLine2 = "2 20580  28.4698 104.2446 0002465 131.5474 228.5524 15.15389587734382"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func testStore(t *testing.T) *tle.Store {
	t.Helper()
	var entries []tle.TLEEntry
	for _, rec := range [][3]string{{"ISS (ZARYA)", issLine1, issLine2}, {"HST", hstLine1, hstLine2}} {
		e, err := tle.ParseLines(rec[0], rec[1], rec[2])
		if err != nil {
			t.Fatalf("ParseLines: %v", err)
		}
		entries = append(entries, e)
	}
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Date(2025, 2, 14, 6, 0, 0, 0, time.UTC), entries))
	return store
}

func testHandler(t *testing.T, store *tle.Store, cfg Config) *Handler {
	pool := propagation.NewWorkerPool(propagation.PropConfig{Workers: 2}, testLogger())
	return NewHandler(store, pool, cfg, testLogger())
}

// readEvents parses an SSE body into its data payloads.
func readEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			var msg map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
				t.Errorf("invalid JSON in SSE data line: %v", err)
				continue
			}
			out = append(out, msg)
		case line == "", line == ":", strings.HasPrefix(line, "id: "), strings.HasPrefix(line, "retry: "):
		default:
			t.Errorf("unexpected SSE line: %q", line)
		}
	}
	return out
}

func TestSkyStreamFrames(t *testing.T) {
	h := testHandler(t, testStore(t), Config{})

	req := httptest.NewRequest("GET", "/api/v1/stream/sky?norad_id=25544,20580&t=2025-02-14T12:00:00Z&interval=1&count=2", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	h.HandleSky(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, w.Body.String())
	}
	if resp.Header.Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", resp.Header.Get("Cache-Control"))
	}

	events := readEvents(t, w.Body.String())
	if len(events) != 3 {
		t.Fatalf("%d events, want metadata + 2 frames", len(events))
	}
	meta := events[0]
	if meta["type"] != "metadata" || meta["objects"].(float64) != 2 || meta["dataset_source"] != "test" {
		t.Errorf("metadata = %v", meta)
	}

	for i, want := range []string{"2025-02-14T12:00:00Z", "2025-02-14T12:00:01Z"} {
		frame := events[i+1]
		if frame["type"] != "sky" || frame["t"] != want {
			t.Errorf("frame %d: type %v t %v, want sky %s", i, frame["type"], frame["t"], want)
		}
		sats := frame["sat"].([]any)
		if len(sats) != 2 {
			t.Fatalf("frame %d: %d satellites", i, len(sats))
		}
		if id := sats[0].(map[string]any)["id"].(float64); id != 20580 {
			t.Errorf("frame %d: first id %v, want 20580 (sorted)", i, id)
		}
		for _, raw := range sats {
			s := raw.(map[string]any)
			if alt := s["alt_km"].(float64); alt < 300 || alt > 700 {
				t.Errorf("NORAD %v altitude %v km", s["id"], alt)
			}
		}
		sun := frame["sun"].(map[string]any)
		if lat := sun["lat"].(float64); lat < -23.5 || lat > 23.5 {
			t.Errorf("sun subpoint latitude %v", lat)
		}
		moon := frame["moon"].(map[string]any)
		if k := moon["k"].(float64); k < 0 || k > 1 {
			t.Errorf("moon illuminated fraction %v", k)
		}
	}
}

func TestSkyStreamWithoutDataset(t *testing.T) {
	h := testHandler(t, tle.NewStore(), Config{})

	req := httptest.NewRequest("GET", "/api/v1/stream/sky?count=1", nil)
	w := httptest.NewRecorder()
	h.HandleSky(w, req)

	events := readEvents(t, w.Body.String())
	if len(events) != 2 {
		t.Fatalf("%d events, want 2", len(events))
	}
	if events[0]["tle_age_seconds"].(float64) != -1 {
		t.Errorf("metadata without dataset = %v", events[0])
	}
	if sats := events[1]["sat"].([]any); len(sats) != 0 {
		t.Errorf("%d satellites without a dataset", len(sats))
	}
}

// TestSkyStreamCancel verifies an unbounded stream ends when the client goes away.
func TestSkyStreamCancel(t *testing.T) {
	h := testHandler(t, testStore(t), Config{KeepaliveInterval: 50 * time.Millisecond})

	req := httptest.NewRequest("GET", "/api/v1/stream/sky?norad_id=25544&interval=60", nil)
	ctx, cancel := context.WithTimeout(req.Context(), 300*time.Millisecond)
	defer cancel()
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.HandleSky(w, req.WithContext(ctx))
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after cancel")
	}

	if !strings.Contains(w.Body.String(), ":\n\n") {
		t.Error("no keep-alive sent while waiting for the next frame")
	}
	if c := h.limiter.count("192.0.2.1"); c != 0 {
		t.Errorf("limiter count after disconnect = %d", c)
	}
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newConnLimiter(3, 0)

	var releases []func()
	for i := 0; i < 3; i++ {
		release, ok := limiter.acquire("10.0.0.1")
		if !ok {
			t.Fatalf("acquire %d should succeed", i+1)
		}
		releases = append(releases, release)
	}
	if _, ok := limiter.acquire("10.0.0.1"); ok {
		t.Error("acquire beyond limit should fail")
	}
	if _, ok := limiter.acquire("10.0.0.2"); !ok {
		t.Error("different IP should not be rate limited")
	}

	// Releasing twice must not free two slots.
	releases[0]()
	releases[0]()
	if c := limiter.count("10.0.0.1"); c != 2 {
		t.Errorf("count = %d, want 2", c)
	}
	if _, ok := limiter.acquire("10.0.0.1"); !ok {
		t.Error("acquire after release should succeed")
	}
}

func TestRateLimitingGlobalCap(t *testing.T) {
	limiter := newConnLimiter(10, 2)
	limiter.acquire("10.0.0.1")
	limiter.acquire("10.0.0.2")
	if _, ok := limiter.acquire("10.0.0.3"); ok {
		t.Error("acquire beyond global cap should fail")
	}
}

// TestRateLimitingConcurrent verifies rate limiter thread safety.
func TestRateLimitingConcurrent(t *testing.T) {
	limiter := newConnLimiter(100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, ok := limiter.acquire("10.0.0.1"); ok {
				defer release()
				time.Sleep(10 * time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if c := limiter.count("10.0.0.1"); c != 0 {
		t.Errorf("count after all released = %d, want 0", c)
	}
}

// TestRateLimitHTTPResponse verifies 429 response when limit exceeded.
func TestRateLimitHTTPResponse(t *testing.T) {
	h := testHandler(t, testStore(t), Config{MaxConcurrentPerIP: 1})

	release, ok := h.limiter.acquire("10.0.0.1")
	if !ok {
		t.Fatal("could not hold the only slot")
	}
	defer release()

	req := httptest.NewRequest("GET", "/api/v1/stream/sky?count=1", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	w := httptest.NewRecorder()
	h.HandleSky(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

// TestInvalidQueryParams verifies error responses for bad parameters.
func TestInvalidQueryParams(t *testing.T) {
	h := testHandler(t, testStore(t), Config{MaxObjects: 1})

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"interval zero", "?interval=0", http.StatusBadRequest},
		{"interval too large", "?interval=100", http.StatusBadRequest},
		{"interval non-numeric", "?interval=abc", http.StatusBadRequest},
		{"negative count", "?count=-1", http.StatusBadRequest},
		{"bad time", "?t=noon", http.StatusBadRequest},
		{"bad norad id", "?norad_id=25544,iss", http.StatusBadRequest},
		{"unknown norad id", "?norad_id=1", http.StatusNotFound},
		{"too many objects", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/stream/sky"+tt.query, nil)
			w := httptest.NewRecorder()
			h.HandleSky(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
