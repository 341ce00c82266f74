// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(n int) *int           { return &n }

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.IndexConfig{DBPath: filepath.Join(t.TempDir(), "db", "index.db"), MaxResults: 20})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stats(avg float64, ratings ...float64) types.ReviewStats {
	lo, hi := ratings[0], ratings[0]
	for _, r := range ratings {
		lo = min(lo, r)
		hi = max(hi, r)
	}
	return types.ReviewStats{
		Ratings:       ratings,
		MinRating:     floatPtr(lo),
		MaxRating:     floatPtr(hi),
		AvgRating:     floatPtr(avg),
		ReviewerCount: intPtr(len(ratings)),
	}
}

// fixture has two accepted papers (one rated) and two rated-only papers.
func fixture() ([]types.Submission, []types.RatingRecord) {
	st1 := stats(7, 6, 8)
	accepted := []types.Submission{
		{
			ID: "p1", Number: intPtr(10), Title: "Sparse Attention at Scale",
			Abstract: "We study 100% sparse attention.", Keywords: "attention sparsity",
			PrimaryArea: "foundation models", ReplyCount: 12, Review: &st1,
		},
		{
			ID: "p2", Number: intPtr(3), Title: "Graph Rewiring",
			Keywords: "graphs", PrimaryArea: "learning on graphs", ReplyCount: 4,
		},
	}
	ratings := []types.RatingRecord{
		{PaperID: "p1", ReviewStats: st1},
		{PaperID: "p2", ReviewStats: stats(5.5, 5, 6)},
		{PaperID: "p3", ReviewStats: stats(3, 3), Extra: map[string]json.RawMessage{
			"title":        json.RawMessage(`"Rejected Attention Idea"`),
			"primary_area": json.RawMessage(`"foundation models"`),
		}},
		{PaperID: "p4", ReviewStats: stats(8, 8)},
		{PaperID: ""},
	}
	return accepted, ratings
}

func ingestFixture(t *testing.T, s *Store) IngestSummary {
	t.Helper()
	accepted, ratings := fixture()
	var buf bytes.Buffer
	sum, err := s.Ingest(context.Background(), accepted, ratings, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "indexed: 2 accepted, 2 rated only, 1 skipped")
	return sum
}

func TestIngest_Summary(t *testing.T) {
	s := testStore(t)
	sum := ingestFixture(t, s)
	assert.Equal(t, IngestSummary{Accepted: 2, RatedOnly: 2, Skipped: 1}, sum)
	assert.Equal(t, 4, sum.Total())

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestIngest_ReplacesPreviousContents(t *testing.T) {
	s := testStore(t)
	ingestFixture(t, s)

	var buf bytes.Buffer
	_, err := s.Ingest(context.Background(), []types.Submission{{ID: "only"}}, nil, &buf)
	require.NoError(t, err)

	papers, err := s.Retrieve(context.Background(), QueryOptions{})
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "only", papers[0].ID)
	assert.True(t, papers[0].Accepted)
	assert.Empty(t, papers[0].Ratings)
	assert.Nil(t, papers[0].AvgRating)
}

func TestRetrieve_OrderAndFields(t *testing.T) {
	s := testStore(t)
	ingestFixture(t, s)

	papers, err := s.Retrieve(context.Background(), QueryOptions{})
	require.NoError(t, err)
	require.Len(t, papers, 4)

	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"p4", "p1", "p2", "p3"}, ids)

	p1 := papers[1]
	assert.Equal(t, "Sparse Attention at Scale", p1.Title)
	assert.Equal(t, []float64{6, 8}, p1.Ratings)
	assert.Equal(t, intPtr(10), p1.Number)
	assert.Equal(t, intPtr(2), p1.ReviewerCount)
	assert.Equal(t, 12, p1.ReplyCount)
	assert.True(t, p1.Accepted)

	// p2 has no review on the submission, so the ratings dataset fills in.
	require.NotNil(t, papers[2].AvgRating)
	assert.Equal(t, 5.5, *papers[2].AvgRating)

	assert.False(t, papers[3].Accepted)
	assert.Equal(t, "Rejected Attention Idea", papers[3].Title)
	assert.Nil(t, papers[3].Number)
}

func TestRetrieve_Filters(t *testing.T) {
	s := testStore(t)
	ingestFixture(t, s)

	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"text is case-insensitive", QueryOptions{Query: "ATTENTION"}, []string{"p1", "p3"}},
		{"text matches keywords", QueryOptions{Query: "graphs"}, []string{"p2"}},
		{"percent is literal", QueryOptions{Query: "100%"}, []string{"p1"}},
		{"underscore is literal", QueryOptions{Query: "a_t"}, nil},
		{"area", QueryOptions{Area: "foundation models"}, []string{"p1", "p3"}},
		{"min rating", QueryOptions{MinRating: 6}, []string{"p4", "p1"}},
		{"accepted only", QueryOptions{AcceptedOnly: true}, []string{"p1", "p2"}},
		{"combined", QueryOptions{Query: "attention", AcceptedOnly: true}, []string{"p1"}},
		{"max results", QueryOptions{MaxResults: 1}, []string{"p4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			papers, err := s.Retrieve(context.Background(), tt.opts)
			require.NoError(t, err)
			var ids []string
			for _, p := range papers {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestAreaStats(t *testing.T) {
	s := testStore(t)
	ingestFixture(t, s)

	all, err := s.AreaStats(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, "foundation models", all[0].Area)
	assert.Equal(t, 2, all[0].Papers)
	assert.Equal(t, 2, all[0].Rated)
	require.NotNil(t, all[0].MeanRating)
	assert.InDelta(t, 5.0, *all[0].MeanRating, 1e-9)
	assert.InDelta(t, 6.0, all[0].MeanReplyCount, 1e-9)

	// p4 has no area and sorts before "learning on graphs" at equal size.
	assert.Equal(t, "", all[1].Area)
	assert.Equal(t, "learning on graphs", all[2].Area)

	accepted, err := s.AreaStats(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, accepted, 2)
	assert.InDelta(t, 7.0, *accepted[0].MeanRating, 1e-9)
}

func TestAreaStats_Empty(t *testing.T) {
	s := testStore(t)
	stats, err := s.AreaStats(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestOpen_DefaultMaxResults(t *testing.T) {
	s, err := Open(types.IndexConfig{DBPath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, defaultMaxResults, s.maxResults)
}

func TestIngest_CancelledContext(t *testing.T) {
	s := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	accepted, ratings := fixture()
	_, err := s.Ingest(ctx, accepted, ratings, &bytes.Buffer{})
	assert.Error(t, err)
}
