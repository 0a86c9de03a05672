// Command skyglass answers ephemeris and pass-prediction questions from the
// command line.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/skyglass/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "skyglass",
	Short: "Sun, Moon and satellite visibility calculator",
	Long: `
skyglass computes apparent Sun and Moon positions, the lunar phase, and
satellite passes over an observer.

Times are RFC 3339 and default to now. Observers are given either as a
configured site (--site) or as --lat/--lon/--alt.

Examples:
  skyglass sun --time 2024-03-20T03:06:00Z
  skyglass phase
  skyglass passes --tle stations.txt --norad 25544 --site home --visible
  skyglass track --tle stations.txt --norad 25544 --minutes 90
`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

// Global flags
var (
	configPath string
	timeArg    string
	asJSON     bool
	verbose    bool
)

var (
	cfg    config.Config
	logger *slog.Logger
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "TOML config file (default $SKYGLASS_CONFIG)")
	pf.StringVarP(&timeArg, "time", "t", "", "instant or window start, RFC 3339 (default now)")
	pf.BoolVar(&asJSON, "json", false, "print JSON instead of text")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func loadSettings(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var err error
	cfg, err = config.Load(configPath, logger)
	return err
}

// instant parses --time, defaulting to the current second.
func instant() (time.Time, error) {
	if timeArg == "" {
		return time.Now().UTC().Truncate(time.Second), nil
	}
	t, err := time.Parse(time.RFC3339, timeArg)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --time %q: %w", timeArg, err)
	}
	return t.UTC(), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
