// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

func TestWriteManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.manifest.yaml")
	started := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	m := &Manifest{
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
		Source: types.SourceConfig{
			BaseURL: "https://api2.openreview.net/notes",
			Venue:   "ICLR 2026",
			Limit:   25,
		},
		Declared:        60,
		Obtained:        35,
		Pages:           3,
		SuccessfulPages: 2,
		FailedPages:     1,
		SkippedOffsets:  []int{25},
		Files:           []string{"papers.json", "papers.csv"},
	}
	require.NoError(t, WriteManifest(path, m))

	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err, "run id should be a uuid")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "venue: ICLR 2026")
	assert.Contains(t, string(raw), "skipped_offsets:")

	back, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, back.RunID)
	assert.True(t, started.Equal(back.StartedAt))
	assert.Equal(t, m.Source, back.Source)
	assert.Equal(t, []int{25}, back.SkippedOffsets)
	assert.Equal(t, 35, back.Obtained)
}

func TestWriteManifest_KeepsGivenRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	m := &Manifest{RunID: "fixed"}
	require.NoError(t, WriteManifest(path, m))

	back, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "fixed", back.RunID)
	assert.Empty(t, back.SkippedOffsets)
}
