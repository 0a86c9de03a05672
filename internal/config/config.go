// Package config loads service and CLI settings: an optional TOML file, then
// SKYGLASS_* environment overrides. Invalid override values are logged and
// the previous value is kept.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/naoina/toml"

	"github.com/star/skyglass/internal/auth"
	"github.com/star/skyglass/internal/passes"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/stream"
	"github.com/star/skyglass/internal/transform"
)

// ErrUnknownSite is returned when a site name is not configured.
var ErrUnknownSite = errors.New("config: unknown site")

// Config is the full settings tree.
type Config struct {
	HTTP        HTTPConfig        `toml:"http"`
	Log         LogConfig         `toml:"log"`
	Auth        AuthConfig        `toml:"auth"`
	TLE         TLEConfig         `toml:"tle"`
	Prediction  PredictionConfig  `toml:"prediction"`
	Propagation PropagationConfig `toml:"propagation"`
	Stream      StreamConfig      `toml:"stream"`
	Sites       []Site            `toml:"site"`
}

type HTTPConfig struct {
	Addr       string `toml:"addr"`
	TrustProxy bool   `toml:"trust_proxy"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type AuthConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
}

// TLEConfig says where element sets come from.
type TLEConfig struct {
	Files           []string `toml:"files"`
	EnableFetch     bool     `toml:"enable_fetch"`
	SourceURL       string   `toml:"source_url"`
	ExtraSourceURLs []string `toml:"extra_source_urls"`
	CacheDir        string   `toml:"cache_dir"`
	MaxFiles        int      `toml:"max_files"`
	MaxAgeSeconds   int      `toml:"max_age_seconds"`
}

// PredictionConfig holds pass-prediction defaults.
type PredictionConfig struct {
	StepSeconds    int     `toml:"step_seconds"`
	MinElevation   float64 `toml:"min_elevation"`
	Twilight       string  `toml:"twilight"`
	ShadowModel    string  `toml:"shadow_model"`
	MaxWindowHours int     `toml:"max_window_hours"`
}

type PropagationConfig struct {
	Backend string `toml:"backend"`
	Workers int    `toml:"workers"`
}

// StreamConfig limits the live sky stream.
type StreamConfig struct {
	MaxConcurrentPerIP int `toml:"max_concurrent_per_ip"`
	KeepaliveSeconds   int `toml:"keepalive_seconds"`
	MaxObjects         int `toml:"max_objects"`
}

// Site is a named observer location.
type Site struct {
	Name      string  `toml:"name"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	AltitudeM float64 `toml:"altitude_m"`
}

// Observer returns the site as an observer position.
func (s Site) Observer() transform.ObserverPosition {
	return transform.NewObserverPosition(s.Latitude, s.Longitude, s.AltitudeM)
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8080"},
		Log:  LogConfig{Level: "info"},
		TLE: TLEConfig{
			EnableFetch: false,
			CacheDir:    "/tmp/skyglass/tle",
			MaxFiles:    5,
			// ISS (NORAD 25544), the reference object for pass checks.
			ExtraSourceURLs: []string{"https://celestrak.org/NORAD/elements/gp.php?CATNR=25544&FORMAT=tle"},
			MaxAgeSeconds:   86400,
		},
		Prediction: PredictionConfig{
			StepSeconds:    30,
			MinElevation:   0,
			Twilight:       "civil",
			ShadowModel:    string(passes.ShadowPenumbra),
			MaxWindowHours: 240,
		},
		Propagation: PropagationConfig{
			Backend: string(propagation.BackendGoSatellite),
			Workers: runtime.NumCPU(),
		},
		Stream: StreamConfig{
			MaxConcurrentPerIP: 10,
			KeepaliveSeconds:   30,
			MaxObjects:         500,
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("SKYGLASS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		logger.Info("loaded config file", "path", path, "sites", len(cfg.Sites))
	}

	applyEnv(&cfg, logger)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	if c.Auth.Enabled && c.Auth.Token == "" {
		return errors.New("auth token is required when auth is enabled")
	}
	if _, err := propagation.ParseBackend(c.Propagation.Backend); err != nil {
		return err
	}
	if _, err := passes.ParseShadowModel(c.Prediction.ShadowModel); err != nil {
		return err
	}
	if _, err := passes.ParseTwilight(c.Prediction.Twilight); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, s := range c.Sites {
		key := strings.ToLower(s.Name)
		switch {
		case s.Name == "":
			return errors.New("site without a name")
		case seen[key]:
			return fmt.Errorf("duplicate site %q", s.Name)
		case s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 360:
			return fmt.Errorf("site %q: coordinates out of range", s.Name)
		}
		seen[key] = true
	}
	return nil
}

// Site looks up a configured site by name, case-insensitively.
func (c Config) Site(name string) (Site, error) {
	for _, s := range c.Sites {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Site{}, fmt.Errorf("%w: %q", ErrUnknownSite, name)
}

// AuthMiddlewareConfig returns the settings for auth.Middleware.
func (c Config) AuthMiddlewareConfig() auth.Config {
	return auth.Config{Enabled: c.Auth.Enabled, Token: c.Auth.Token}
}

// PropConfig returns the worker-pool settings.
func (c Config) PropConfig() propagation.PropConfig {
	b, _ := propagation.ParseBackend(c.Propagation.Backend)
	return propagation.PropConfig{Workers: c.Propagation.Workers, Backend: b}
}

// PredictOptions returns the default pass-prediction options.
func (c Config) PredictOptions(logger *slog.Logger) passes.Options {
	shadow, _ := passes.ParseShadowModel(c.Prediction.ShadowModel)
	return passes.Options{
		Step:         time.Duration(c.Prediction.StepSeconds) * time.Second,
		MinElevation: c.Prediction.MinElevation,
		Shadow:       shadow,
		Logger:       logger,
	}
}

// VisibilityOptions returns the default visibility filter settings.
func (c Config) VisibilityOptions() passes.VisibilityOptions {
	tw, _ := passes.ParseTwilight(c.Prediction.Twilight)
	return passes.VisibilityOptions{Twilight: tw}
}

// StreamHandlerConfig returns the sky stream limits.
func (c Config) StreamHandlerConfig() stream.Config {
	return stream.Config{
		MaxConcurrentPerIP: c.Stream.MaxConcurrentPerIP,
		KeepaliveInterval:  time.Duration(c.Stream.KeepaliveSeconds) * time.Second,
		MaxObjects:         c.Stream.MaxObjects,
		TrustProxy:         c.HTTP.TrustProxy,
	}
}

// MaxWindow bounds the prediction window a request may ask for.
func (c Config) MaxWindow() time.Duration {
	return time.Duration(c.Prediction.MaxWindowHours) * time.Hour
}

// LogLevel maps Log.Level to a slog level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
