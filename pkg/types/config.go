// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds the transport settings shared by every request to the
// notes API.
type HTTPConfig struct {
	// Timeout bounds a single page request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent, Accept, Referer and Origin form the fixed header set.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
	Accept    string `json:"accept" yaml:"accept" mapstructure:"accept"`
	Referer   string `json:"referer" yaml:"referer" mapstructure:"referer"`
	Origin    string `json:"origin" yaml:"origin" mapstructure:"origin"`

	// RateLimitRetries is how many times one request is re-sent after an
	// HTTP 429. Zero disables it; a failed page is never re-fetched later.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`

	// RetryWait is the initial wait before a 429 retry.
	RetryWait time.Duration `json:"retry_wait" yaml:"retry_wait" mapstructure:"retry_wait"`
}

// SourceConfig holds the fixed query parameters of the notes endpoint.
// The offset parameter is added per request.
type SourceConfig struct {
	BaseURL    string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Venue      string `json:"venue" yaml:"venue" mapstructure:"venue"`
	Details    string `json:"details" yaml:"details" mapstructure:"details"`
	Domain     string `json:"domain" yaml:"domain" mapstructure:"domain"`
	Invitation string `json:"invitation" yaml:"invitation" mapstructure:"invitation"`

	// Limit is the page size.
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// PacingConfig controls the sleep between page requests:
// min(BaseDelay + offset*PerOffset, MaxDelay).
type PacingConfig struct {
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
	PerOffset time.Duration `json:"per_offset" yaml:"per_offset" mapstructure:"per_offset"`
	MaxDelay  time.Duration `json:"max_delay" yaml:"max_delay" mapstructure:"max_delay"`
}

// AcquisitionConfig holds settings for a fetch run.
type AcquisitionConfig struct {
	HTTP   HTTPConfig   `json:"http" yaml:"http" mapstructure:"http"`
	Source SourceConfig `json:"source" yaml:"source" mapstructure:"source"`
	Pacing PacingConfig `json:"pacing" yaml:"pacing" mapstructure:"pacing"`

	// OutputJSON and OutputCSV are the structured and row-oriented dataset files.
	OutputJSON string `json:"output_json" yaml:"output_json" mapstructure:"output_json"`
	OutputCSV  string `json:"output_csv" yaml:"output_csv" mapstructure:"output_csv"`

	// Manifest is the YAML run summary written after a successful run.
	// Empty disables it.
	Manifest string `json:"manifest" yaml:"manifest" mapstructure:"manifest"`
}

// MergeConfig names the three files the ratings merge reads and rewrites.
type MergeConfig struct {
	AcceptedJSON string `json:"accepted_json" yaml:"accepted_json" mapstructure:"accepted_json"`
	AcceptedCSV  string `json:"accepted_csv" yaml:"accepted_csv" mapstructure:"accepted_csv"`
	Ratings      string `json:"ratings" yaml:"ratings" mapstructure:"ratings"`
}

// IndexConfig holds settings for the SQLite query index.
type IndexConfig struct {
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// MaxResults is the default query result cap (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LoggingConfig selects the log level ("debug", "info", "warn", "error").
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Merge       MergeConfig       `json:"merge" yaml:"merge" mapstructure:"merge"`
	Index       IndexConfig       `json:"index" yaml:"index" mapstructure:"index"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
}
