// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the pipeline configuration with Viper.
//
// Sources, lowest precedence first: built-in defaults, a YAML file
// (openreview-harvest.yaml in the working directory or
// ~/.config/openreview-harvest/, or --config), OPENREVIEW_HARVEST_*
// environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

const (
	configName = "openreview-harvest"
	envPrefix  = "OPENREVIEW_HARVEST"

	DefaultBaseURL    = "https://api2.openreview.net/notes"
	DefaultVenue      = "ICLR 2026"
	DefaultDetails    = "replyCount,presentation,writable"
	DefaultDomain     = "ICLR.cc/2026/Conference"
	DefaultInvitation = "ICLR.cc/2026/Conference/-/Submission"
	DefaultLimit      = 25
	DefaultTimeout    = 30 * time.Second

	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
	DefaultAccept    = "application/json,text/*;q=0.99"
	DefaultReferer   = "https://openreview.net/"
	DefaultOrigin    = "https://openreview.net"
)

// FlagKeys maps command-line flag names to configuration keys. Load binds
// every name found in the flag set it is given.
var FlagKeys = map[string]string{
	"base-url":           "acquisition.source.base_url",
	"venue":              "acquisition.source.venue",
	"domain":             "acquisition.source.domain",
	"invitation":         "acquisition.source.invitation",
	"limit":              "acquisition.source.limit",
	"timeout":            "acquisition.http.timeout",
	"rate-limit-retries": "acquisition.http.rate_limit_retries",
	"base-delay":         "acquisition.pacing.base_delay",
	"max-delay":          "acquisition.pacing.max_delay",
	"output-json":        "acquisition.output_json",
	"output-csv":         "acquisition.output_csv",
	"manifest":           "acquisition.manifest",
	"accepted-json":      "merge.accepted_json",
	"accepted-csv":       "merge.accepted_csv",
	"ratings":            "merge.ratings",
	"db":                 "index.db_path",
	"max-results":        "index.max_results",
	"log-level":          "logging.level",
}

// Load reads the configuration. cfgFile overrides the search path; flags
// may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (types.PipelineConfig, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return types.PipelineConfig{}, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.PipelineConfig{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.PipelineConfig{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() types.PipelineConfig {
	return types.PipelineConfig{
		Acquisition: types.AcquisitionConfig{
			HTTP: types.HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
				Accept:    DefaultAccept,
				Referer:   DefaultReferer,
				Origin:    DefaultOrigin,
				RetryWait: 2 * time.Second,
			},
			Source: types.SourceConfig{
				BaseURL:    DefaultBaseURL,
				Venue:      DefaultVenue,
				Details:    DefaultDetails,
				Domain:     DefaultDomain,
				Invitation: DefaultInvitation,
				Limit:      DefaultLimit,
			},
			Pacing: types.PacingConfig{
				PerOffset: 100 * time.Microsecond,
				MaxDelay:  2 * time.Second,
			},
			OutputJSON: "iclr26_all_papers.json",
			OutputCSV:  "iclr26_all_papers.csv",
			Manifest:   "iclr26_all_papers.manifest.yaml",
		},
		Merge: types.MergeConfig{
			AcceptedJSON: "iclr26_all_papers.json",
			AcceptedCSV:  "iclr26_all_papers.csv",
			Ratings:      "iclr26_all_papers_with_ratings.json",
		},
		Index: types.IndexConfig{
			DBPath:     "iclr26.db",
			MaxResults: 20,
		},
		Logging: types.LoggingConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	a := d.Acquisition

	v.SetDefault("acquisition.http.timeout", a.HTTP.Timeout)
	v.SetDefault("acquisition.http.user_agent", a.HTTP.UserAgent)
	v.SetDefault("acquisition.http.accept", a.HTTP.Accept)
	v.SetDefault("acquisition.http.referer", a.HTTP.Referer)
	v.SetDefault("acquisition.http.origin", a.HTTP.Origin)
	v.SetDefault("acquisition.http.rate_limit_retries", a.HTTP.RateLimitRetries)
	v.SetDefault("acquisition.http.retry_wait", a.HTTP.RetryWait)

	v.SetDefault("acquisition.source.base_url", a.Source.BaseURL)
	v.SetDefault("acquisition.source.venue", a.Source.Venue)
	v.SetDefault("acquisition.source.details", a.Source.Details)
	v.SetDefault("acquisition.source.domain", a.Source.Domain)
	v.SetDefault("acquisition.source.invitation", a.Source.Invitation)
	v.SetDefault("acquisition.source.limit", a.Source.Limit)

	v.SetDefault("acquisition.pacing.base_delay", a.Pacing.BaseDelay)
	v.SetDefault("acquisition.pacing.per_offset", a.Pacing.PerOffset)
	v.SetDefault("acquisition.pacing.max_delay", a.Pacing.MaxDelay)

	v.SetDefault("acquisition.output_json", a.OutputJSON)
	v.SetDefault("acquisition.output_csv", a.OutputCSV)
	v.SetDefault("acquisition.manifest", a.Manifest)

	v.SetDefault("merge.accepted_json", d.Merge.AcceptedJSON)
	v.SetDefault("merge.accepted_csv", d.Merge.AcceptedCSV)
	v.SetDefault("merge.ratings", d.Merge.Ratings)

	v.SetDefault("index.db_path", d.Index.DBPath)
	v.SetDefault("index.max_results", d.Index.MaxResults)

	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg types.PipelineConfig) error {
	a := cfg.Acquisition
	var errs []error
	if a.Source.BaseURL == "" {
		errs = append(errs, errors.New("acquisition.source.base_url is required"))
	}
	if a.Source.Limit <= 0 {
		errs = append(errs, fmt.Errorf("acquisition.source.limit must be positive, got %d", a.Source.Limit))
	}
	if a.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("acquisition.http.timeout must be positive, got %s", a.HTTP.Timeout))
	}
	if a.HTTP.RateLimitRetries < 0 {
		errs = append(errs, fmt.Errorf("acquisition.http.rate_limit_retries must not be negative, got %d", a.HTTP.RateLimitRetries))
	}
	if a.Pacing.BaseDelay < 0 || a.Pacing.PerOffset < 0 || a.Pacing.MaxDelay < 0 {
		errs = append(errs, errors.New("acquisition.pacing durations must not be negative"))
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}
	return errors.Join(errs...)
}
