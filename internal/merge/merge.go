// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge joins reviewer ratings into the accepted-paper datasets
// and marks every rated paper with whether it was accepted.
package merge

import (
	"fmt"
	"log/slog"

	"github.com/pdiddy/openreview-harvest/internal/dataset"
	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// Summary reports what a merge changed.
type Summary struct {
	// UpdatedStructured counts accepted records that received ratings.
	UpdatedStructured int `json:"updated_structured" yaml:"updated_structured"`
	// UpdatedRows counts rows that received ratings; the rest got placeholders.
	UpdatedRows int `json:"updated_rows" yaml:"updated_rows"`

	Total    int `json:"total" yaml:"total"`
	Accepted int `json:"accepted" yaml:"accepted"`
	Rejected int `json:"rejected" yaml:"rejected"`
}

// Result holds the merged copies of the three datasets.
type Result struct {
	Accepted []types.Submission
	Rows     *dataset.Table
	Ratings  []types.RatingRecord
	Summary  Summary
}

// Merge copies ratings onto accepted records and rows by id, and recomputes
// accepted_flag on every ratings record. The inputs are not modified.
//
// Accepted records without a match keep whatever they had. Rows without a
// match get "[]" for ratings and empty cells for the other four columns.
// Empty ids never match. An error means a matched rating could not be
// encoded for a row.
func Merge(accepted []types.Submission, rows *dataset.Table, ratings []types.RatingRecord) (Result, error) {
	byID := ratingsByID(ratings)
	var res Result

	res.Accepted = make([]types.Submission, len(accepted))
	for i, s := range accepted {
		if stats, ok := lookup(byID, s.ID); ok {
			cp := stats.Clone()
			s.Review = &cp
			res.Summary.UpdatedStructured++
		} else if s.Review != nil {
			cp := s.Review.Clone()
			s.Review = &cp
		}
		res.Accepted[i] = s
	}

	if rows == nil {
		rows = dataset.NewTable(dataset.BaseColumns)
	}
	res.Rows = rows.Clone()
	res.Rows.EnsureColumns(dataset.RatingColumns...)
	for _, row := range res.Rows.Rows {
		cells := dataset.EmptyReviewCells()
		if stats, ok := lookup(byID, row["id"]); ok {
			var err error
			if cells, err = dataset.ReviewCells(stats); err != nil {
				return Result{}, fmt.Errorf("row %q: %w", row["id"], err)
			}
			res.Summary.UpdatedRows++
		}
		for k, v := range cells {
			row[k] = v
		}
	}

	acceptedIDs := AcceptedSet(accepted)
	res.Ratings = make([]types.RatingRecord, len(ratings))
	for i, r := range ratings {
		r.ReviewStats = r.ReviewStats.Clone()
		r.AcceptedFlag = acceptedIDs[r.PaperID]
		if r.AcceptedFlag {
			res.Summary.Accepted++
		} else {
			res.Summary.Rejected++
		}
		res.Ratings[i] = r
	}
	res.Summary.Total = len(res.Ratings)
	return res, nil
}

// AcceptedSet returns the non-empty ids of accepted.
func AcceptedSet(accepted []types.Submission) map[string]bool {
	set := make(map[string]bool, len(accepted))
	for _, s := range accepted {
		if s.ID != "" {
			set[s.ID] = true
		}
	}
	return set
}

// ratingsByID indexes ratings by paper id. A later duplicate wins.
func ratingsByID(ratings []types.RatingRecord) map[string]types.ReviewStats {
	m := make(map[string]types.ReviewStats, len(ratings))
	for _, r := range ratings {
		if r.PaperID == "" {
			continue
		}
		m[r.PaperID] = r.ReviewStats
	}
	return m
}

func lookup(m map[string]types.ReviewStats, id string) (types.ReviewStats, bool) {
	if id == "" {
		return types.ReviewStats{}, false
	}
	s, ok := m[id]
	return s, ok
}

// Files reads the three datasets named by cfg, merges them, and rewrites
// all three in place. Nothing is written unless every read succeeds.
func Files(cfg types.MergeConfig, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	accepted, err := dataset.ReadSubmissions(cfg.AcceptedJSON)
	if err != nil {
		return Summary{}, fmt.Errorf("loading accepted papers: %w", err)
	}
	rows, err := dataset.ReadTable(cfg.AcceptedCSV)
	if err != nil {
		return Summary{}, fmt.Errorf("loading accepted rows: %w", err)
	}
	ratings, err := dataset.ReadRatings(cfg.Ratings)
	if err != nil {
		return Summary{}, fmt.Errorf("loading ratings: %w", err)
	}
	logger.Info("merge inputs loaded",
		"accepted", len(accepted),
		"rows", len(rows.Rows),
		"ratings", len(ratings),
	)

	res, err := Merge(accepted, rows, ratings)
	if err != nil {
		return Summary{}, err
	}

	if err := dataset.WriteSubmissions(cfg.AcceptedJSON, res.Accepted); err != nil {
		return res.Summary, err
	}
	if err := dataset.WriteCSV(cfg.AcceptedCSV, res.Rows); err != nil {
		return res.Summary, err
	}
	if err := dataset.WriteRatings(cfg.Ratings, res.Ratings); err != nil {
		return res.Summary, err
	}

	logger.Info("merge finished",
		"updated_structured", res.Summary.UpdatedStructured,
		"updated_rows", res.Summary.UpdatedRows,
		"total", res.Summary.Total,
		"accepted", res.Summary.Accepted,
		"rejected", res.Summary.Rejected,
	)
	return res.Summary, nil
}
