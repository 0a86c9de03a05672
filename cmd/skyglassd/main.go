// Command skyglassd serves the ephemeris, element-set and pass-prediction
// HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/skyglass/internal/api"
	"github.com/star/skyglass/internal/config"
	"github.com/star/skyglass/internal/metrics"
	"github.com/star/skyglass/internal/propagation"
	"github.com/star/skyglass/internal/tle"
)

var rootCmd = &cobra.Command{
	Use:   "skyglassd",
	Short: "Sun, Moon and satellite pass API server",
	Long: `
skyglassd serves the skyglass HTTP API. Settings come from an optional TOML
file (--config or $SKYGLASS_CONFIG) overridden by SKYGLASS_* environment
variables.
`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         serve,
}

var configPath string

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file (default $SKYGLASS_CONFIG)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	// Bootstrap logger for config loading; replaced once the level is known.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return err
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))

	store := tle.NewStore()
	tleCache := tle.NewCache(cfg.TLE.CacheDir, cfg.TLE.MaxFiles)

	ds, err := tle.LoadDataset(cfg.TLE.Files, tleCache, logger)
	if err != nil {
		logger.Error("failed to load TLE data", "error", err)
		return err
	}
	if ds != nil {
		store.Set(ds)
		metrics.SetTLEDataset(len(ds.Satellites), ds.ObjectCount())
		logger.Info("TLE dataset ready", "source", ds.Source, "count", len(ds.Satellites), "objects", ds.ObjectCount())
	}

	var fetcher *tle.Fetcher
	if cfg.TLE.EnableFetch {
		fetcher = tle.NewFetcher(cfg.TLE.SourceURL, logger, cfg.TLE.ExtraSourceURLs...)
	}

	propCfg := cfg.PropConfig()
	pool := propagation.NewWorkerPool(propCfg, logger)
	metrics.SetPropagationWorkers(propCfg.Workers)
	logger.Info("propagation config", "workers", propCfg.Workers, "backend", propCfg.Backend)

	srv := api.NewServer(cfg, logger, api.Deps{
		Store:   store,
		Fetcher: fetcher,
		Cache:   tleCache,
		Pool:    pool,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fetch at startup when there is nothing usable yet.
	if fetcher != nil && ds == nil {
		go func() {
			fetched, err := tle.Refresh(ctx, fetcher, tleCache, store, logger)
			if err != nil {
				logger.Warn("startup TLE fetch failed", "error", err)
				return
			}
			metrics.SetTLEDataset(len(fetched.Satellites), fetched.ObjectCount())
		}()
	}

	// Background goroutine to update TLE dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetTLEDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTP.Addr,
			"auth_enabled", cfg.Auth.Enabled,
			"tle_fetch_enabled", cfg.TLE.EnableFetch,
			"sites", len(cfg.Sites),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		logger.Error("server listen error", "error", err)
		return fmt.Errorf("listen on %s: %w", cfg.HTTP.Addr, err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
