// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset persists submission datasets as an indented JSON array
// and as CSV rows, and reads them back.
//
// The CSV form is a Table: an ordered column list plus string cells.
// Columns are only ever appended, so files written before and after a
// ratings merge share their leading columns.
package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// BaseColumns is the fixed column order of a freshly fetched dataset.
var BaseColumns = []string{
	"id", "number", "title", "abstract", "keywords",
	"primary_area", "pdf_url", "openreview_url", "replyCount",
}

// RatingColumns are appended by the ratings merge.
var RatingColumns = []string{
	"ratings", "min_rating", "max_rating", "avg_rating", "reviewer_count",
}

// Row maps column name to cell text. A missing key is an empty cell.
type Row map[string]string

// Table is a row-oriented dataset with a deterministic column order.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table with a copy of columns.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// EnsureColumns appends each name not already present, keeping the
// existing order.
func (t *Table) EnsureColumns(names ...string) {
	for _, n := range names {
		if !t.HasColumn(n) {
			t.Columns = append(t.Columns, n)
		}
	}
}

// Record returns the cells of row i in column order; absent cells are "".
func (t *Table) Record(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = t.Rows[i][c]
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := NewTable(t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// SubmissionTable builds a table with BaseColumns, adding RatingColumns
// when any submission carries review stats.
func SubmissionTable(subs []types.Submission) (*Table, error) {
	t := NewTable(BaseColumns)
	for _, s := range subs {
		if s.Review != nil {
			t.EnsureColumns(RatingColumns...)
			break
		}
	}
	t.Rows = make([]Row, len(subs))
	for i, s := range subs {
		row, err := SubmissionRow(s)
		if err != nil {
			return nil, err
		}
		t.Rows[i] = row
	}
	return t, nil
}

// SubmissionRow renders one submission as cells. A nil Number is "".
func SubmissionRow(s types.Submission) (Row, error) {
	r := Row{
		"id":             s.ID,
		"number":         "",
		"title":          s.Title,
		"abstract":       s.Abstract,
		"keywords":       s.Keywords,
		"primary_area":   s.PrimaryArea,
		"pdf_url":        s.PDFURL,
		"openreview_url": s.OpenReviewURL,
		"replyCount":     strconv.Itoa(s.ReplyCount),
	}
	if s.Number != nil {
		r["number"] = strconv.Itoa(*s.Number)
	}
	if s.Review != nil {
		cells, err := ReviewCells(*s.Review)
		if err != nil {
			return nil, fmt.Errorf("submission %q: %w", s.ID, err)
		}
		for k, v := range cells {
			r[k] = v
		}
	}
	return r, nil
}

// ReviewCells renders review stats as cells. Nil values become "".
func ReviewCells(r types.ReviewStats) (Row, error) {
	ratings, err := EncodeRatings(r.Ratings)
	if err != nil {
		return nil, err
	}
	return Row{
		"ratings":        ratings,
		"min_rating":     formatFloat(r.MinRating),
		"max_rating":     formatFloat(r.MaxRating),
		"avg_rating":     formatFloat(r.AvgRating),
		"reviewer_count": formatInt(r.ReviewerCount),
	}, nil
}

// EmptyReviewCells is written for rows the merge found no ratings for.
func EmptyReviewCells() Row {
	return Row{
		"ratings":        "[]",
		"min_rating":     "",
		"max_rating":     "",
		"avg_rating":     "",
		"reviewer_count": "",
	}
}

// EncodeRatings renders a ratings list as JSON text. Nil encodes as "[]".
// NaN and infinities have no JSON form and are rejected.
func EncodeRatings(ratings []float64) (string, error) {
	if len(ratings) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(ratings)
	if err != nil {
		return "", fmt.Errorf("encoding ratings %v: %w", ratings, err)
	}
	return string(b), nil
}

// DecodeRatings parses text produced by EncodeRatings. An empty cell
// decodes to an empty list.
func DecodeRatings(text string) ([]float64, error) {
	if text == "" {
		return []float64{}, nil
	}
	var out []float64
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("decoding ratings %q: %w", text, err)
	}
	if out == nil {
		out = []float64{}
	}
	return out, nil
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
