package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

func applyEnv(cfg *Config, logger *slog.Logger) {
	if v := os.Getenv("SKYGLASS_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	envBool(logger, "SKYGLASS_TRUST_PROXY", &cfg.HTTP.TrustProxy)
	if v := os.Getenv("SKYGLASS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	envBool(logger, "SKYGLASS_AUTH_ENABLED", &cfg.Auth.Enabled)
	if v := os.Getenv("SKYGLASS_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	if v := os.Getenv("SKYGLASS_TLE_FILES"); v != "" {
		cfg.TLE.Files = splitList(v)
	}
	envBool(logger, "SKYGLASS_ENABLE_TLE_FETCH", &cfg.TLE.EnableFetch)
	if v := os.Getenv("SKYGLASS_TLE_SOURCE_URL"); v != "" {
		cfg.TLE.SourceURL = v
	}
	if v := os.Getenv("SKYGLASS_TLE_EXTRA_URLS"); v != "" {
		cfg.TLE.ExtraSourceURLs = splitList(v)
	}
	if v := os.Getenv("SKYGLASS_TLE_CACHE_DIR"); v != "" {
		cfg.TLE.CacheDir = v
	}
	envPositiveInt(logger, "SKYGLASS_TLE_MAX_AGE", &cfg.TLE.MaxAgeSeconds)

	envPositiveInt(logger, "SKYGLASS_STEP_SECONDS", &cfg.Prediction.StepSeconds)
	envFloat(logger, "SKYGLASS_MIN_ELEVATION", &cfg.Prediction.MinElevation, -90, 90)
	if v := os.Getenv("SKYGLASS_TWILIGHT_DEG"); v != "" {
		cfg.Prediction.Twilight = v
	}
	if v := os.Getenv("SKYGLASS_SHADOW_MODEL"); v != "" {
		cfg.Prediction.ShadowModel = v
	}
	envPositiveInt(logger, "SKYGLASS_MAX_WINDOW_HOURS", &cfg.Prediction.MaxWindowHours)

	if v := os.Getenv("SKYGLASS_PROPAGATOR"); v != "" {
		cfg.Propagation.Backend = v
	}
	envPositiveInt(logger, "SKYGLASS_PROP_WORKERS", &cfg.Propagation.Workers)

	envPositiveInt(logger, "SKYGLASS_STREAM_MAX_CONCURRENT", &cfg.Stream.MaxConcurrentPerIP)
	envPositiveInt(logger, "SKYGLASS_STREAM_KEEPALIVE_INTERVAL", &cfg.Stream.KeepaliveSeconds)
	envPositiveInt(logger, "SKYGLASS_STREAM_MAX_OBJECTS", &cfg.Stream.MaxObjects)
}

func envBool(logger *slog.Logger, key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid boolean env value, keeping current", "key", key, "value", v, "current", *dst)
		return
	}
	*dst = b
}

func envPositiveInt(logger *slog.Logger, key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid env value, keeping current", "key", key, "value", v, "current", *dst)
		return
	}
	*dst = n
}

func envFloat(logger *slog.Logger, key string, dst *float64, lo, hi float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < lo || f > hi {
		logger.Warn("invalid env value, keeping current", "key", key, "value", v, "current", *dst)
		return
	}
	*dst = f
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
