// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// Manifest summarizes one completed acquisition run.
type Manifest struct {
	RunID      string    `yaml:"run_id"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	Source types.SourceConfig `yaml:"source"`

	Declared        int   `yaml:"declared"`
	Obtained        int   `yaml:"obtained"`
	Pages           int   `yaml:"pages"`
	SuccessfulPages int   `yaml:"successful_pages"`
	FailedPages     int   `yaml:"failed_pages"`
	SkippedOffsets  []int `yaml:"skipped_offsets,omitempty"`
	MissingIDs      int   `yaml:"missing_ids"`

	Files []string `yaml:"files"`
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// WriteManifest writes m as YAML. An empty RunID is filled in.
func WriteManifest(path string, m *Manifest) error {
	if m.RunID == "" {
		m.RunID = NewRunID()
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}
