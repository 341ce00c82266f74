// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ReviewStats holds the reviewer-score aggregates for one paper.
// MinRating, MaxRating and AvgRating are nil when Ratings is empty.
type ReviewStats struct {
	Ratings       []float64 `json:"ratings" yaml:"ratings"`
	MinRating     *float64  `json:"min_rating" yaml:"min_rating"`
	MaxRating     *float64  `json:"max_rating" yaml:"max_rating"`
	AvgRating     *float64  `json:"avg_rating" yaml:"avg_rating"`
	ReviewerCount *int      `json:"reviewer_count" yaml:"reviewer_count"`
}

// Clone returns a deep copy so merged records never share slices or
// pointers with the ratings dataset they were copied from.
func (r ReviewStats) Clone() ReviewStats {
	out := ReviewStats{Ratings: make([]float64, len(r.Ratings))}
	copy(out.Ratings, r.Ratings)
	out.MinRating = cloneFloat(r.MinRating)
	out.MaxRating = cloneFloat(r.MaxRating)
	out.AvgRating = cloneFloat(r.AvgRating)
	if r.ReviewerCount != nil {
		n := *r.ReviewerCount
		out.ReviewerCount = &n
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// reviewKeys are the JSON keys owned by ReviewStats, in output order.
var reviewKeys = []string{"ratings", "min_rating", "max_rating", "avg_rating", "reviewer_count"}

// Submission is the flat, fixed-schema record for one paper. Review is set
// only after a ratings merge matched the paper; a Submission without Review
// serializes without any of the rating keys. Extra carries keys of a
// dataset file this package does not model, so an in-place rewrite
// loses nothing.
type Submission struct {
	// ID is the OpenReview note id and the primary key across datasets.
	ID string `json:"id"`

	// Number is the submission sequence index; nil when the API omits it.
	Number *int `json:"number"`

	Title    string `json:"title"`
	Abstract string `json:"abstract"`

	// Keywords is the keyword list joined with single spaces.
	Keywords string `json:"keywords"`

	// PrimaryArea is a free-text label and may contain commas.
	PrimaryArea string `json:"primary_area"`

	PDFURL        string `json:"pdf_url"`
	OpenReviewURL string `json:"openreview_url"`
	ReplyCount    int    `json:"replyCount"`

	Review *ReviewStats `json:"-"`

	Extra map[string]json.RawMessage `json:"-"`
}

var submissionKeys = map[string]bool{
	"id":             true,
	"number":         true,
	"title":          true,
	"abstract":       true,
	"keywords":       true,
	"primary_area":   true,
	"pdf_url":        true,
	"openreview_url": true,
	"replyCount":     true,
	"ratings":        true,
	"min_rating":     true,
	"max_rating":     true,
	"avg_rating":     true,
	"reviewer_count": true,
}

// submissionFields mirrors Submission without its JSON methods.
type submissionFields Submission

type reviewedSubmission struct {
	submissionFields
	ReviewStats
}

// MarshalJSON writes the base fields, then the review fields when Review
// is set, then Extra in key order.
func (s Submission) MarshalJSON() ([]byte, error) {
	var known []byte
	var err error
	if s.Review == nil {
		known, err = marshalLiteral(submissionFields(s))
	} else {
		stats := *s.Review
		if stats.Ratings == nil {
			stats.Ratings = []float64{}
		}
		known, err = marshalLiteral(reviewedSubmission{submissionFields(s), stats})
	}
	if err != nil {
		return nil, err
	}
	return appendExtra(known, s.Extra, submissionKeys)
}

// marshalLiteral is json.Marshal without HTML escaping, so titles and
// abstracts keep their <, > and & characters in written files.
func marshalLiteral(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON restores Review when any of the rating keys is present, so
// a previously merged file reads back with its stats intact. Unknown keys
// go to Extra.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var base submissionFields
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	*s = Submission(base)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	for _, k := range reviewKeys {
		if _, ok := keys[k]; ok {
			var stats ReviewStats
			if err := json.Unmarshal(data, &stats); err != nil {
				return fmt.Errorf("decoding review fields of %q: %w", s.ID, err)
			}
			s.Review = &stats
			break
		}
	}
	s.Extra = extraKeys(keys, submissionKeys)
	return nil
}

// RatingRecord is one entry of the all-submissions ratings dataset.
// AcceptedFlag is derived by the merger and never trusted from input.
// Extra carries keys this package does not model so an in-place rewrite
// loses nothing.
type RatingRecord struct {
	PaperID string `json:"paper_id"`
	ReviewStats
	AcceptedFlag bool `json:"accepted_flag"`

	Extra map[string]json.RawMessage `json:"-"`
}

var ratingKeys = map[string]bool{
	"paper_id":       true,
	"ratings":        true,
	"min_rating":     true,
	"max_rating":     true,
	"avg_rating":     true,
	"reviewer_count": true,
	"accepted_flag":  true,
}

type ratingFields RatingRecord

// MarshalJSON writes the modelled keys first, then Extra in key order.
func (r RatingRecord) MarshalJSON() ([]byte, error) {
	fields := ratingFields(r)
	if fields.Ratings == nil {
		fields.Ratings = []float64{}
	}
	known, err := marshalLiteral(fields)
	if err != nil {
		return nil, err
	}
	return appendExtra(known, r.Extra, ratingKeys)
}

// UnmarshalJSON decodes the modelled keys and keeps the rest in Extra.
func (r *RatingRecord) UnmarshalJSON(data []byte) error {
	var fields ratingFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = RatingRecord(fields)

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	r.Extra = extraKeys(all, ratingKeys)
	return nil
}

// extraKeys returns the entries of all not named in known, or nil.
func extraKeys(all map[string]json.RawMessage, known map[string]bool) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	for k, v := range all {
		if known[k] {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[k] = v
	}
	return out
}

// appendExtra splices the entries of extra not named in known into the
// JSON object obj, sorted by key.
func appendExtra(obj []byte, extra map[string]json.RawMessage, known map[string]bool) ([]byte, error) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return obj, nil
	}
	sort.Strings(keys)

	buf := append([]byte(nil), obj[:len(obj)-1]...)
	sep := len(bytes.TrimSpace(buf)) > 1
	for _, k := range keys {
		name, err := marshalLiteral(k)
		if err != nil {
			return nil, err
		}
		if sep {
			buf = append(buf, ',')
		}
		sep = true
		buf = append(buf, name...)
		buf = append(buf, ':')
		buf = append(buf, extra[k]...)
	}
	return append(buf, '}'), nil
}
