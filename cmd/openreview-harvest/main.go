// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the openreview-harvest CLI.
//
// The CLI fetches every submission of an OpenReview venue into JSON and
// CSV datasets, merges reviewer ratings into them, and builds a SQLite
// index for querying the result.
package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/pdiddy/openreview-harvest/internal/config"
	"github.com/pdiddy/openreview-harvest/internal/output"
	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Loaded once per invocation by the root command.
var (
	pipelineCfg types.PipelineConfig
	logger      *slog.Logger
	printer     *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "openreview-harvest",
	Short: "Harvest OpenReview submissions and merge reviewer ratings",
	Long: `openreview-harvest walks the paginated OpenReview notes API for one venue
and writes every submission to a JSON file and a CSV file. The merge command
joins a separately produced ratings dataset into those files, and the index
commands load the merged result into SQLite for filtering and per-area
statistics.

Settings come from openreview-harvest.yaml (or --config), then
OPENREVIEW_HARVEST_* environment variables, then flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./openreview-harvest.yaml or ~/.config/openreview-harvest/openreview-harvest.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error (default info)")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.BoolP("quiet", "q", false, "only print errors")
	pf.Bool("no-color", false, "disable colored output")
}

// setup loads configuration and builds the logger and printer for the
// command about to run.
func setup(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	pipelineCfg = cfg

	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")

	useColors := output.ResolveColors(noColor)
	logger = newLogger(cmd.ErrOrStderr(), cfg.Logging.Level, verbose, !useColors)
	slog.SetDefault(logger)
	printer = output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), useColors, quiet)
	return nil
}

func newLogger(w io.Writer, level string, verbose, noColor bool) *slog.Logger {
	lvl := parseLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
