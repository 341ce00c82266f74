// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pdiddy/openreview-harvest/internal/dataset"
)

// QueryOptions holds retrieval filters. Zero values disable a filter.
type QueryOptions struct {
	// Query matches case-insensitively against title, abstract and keywords.
	Query string

	// Area filters by exact primary area.
	Area string

	// MinRating keeps papers whose average rating is at least this value.
	// Papers without ratings never pass a non-zero MinRating.
	MinRating float64

	// AcceptedOnly keeps accepted papers.
	AcceptedOnly bool

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Paper is one indexed row.
type Paper struct {
	ID            string    `json:"id" yaml:"id"`
	Number        *int      `json:"number,omitempty" yaml:"number,omitempty"`
	Title         string    `json:"title" yaml:"title"`
	PrimaryArea   string    `json:"primary_area" yaml:"primary_area"`
	Keywords      string    `json:"keywords" yaml:"keywords"`
	OpenReviewURL string    `json:"openreview_url" yaml:"openreview_url"`
	ReplyCount    int       `json:"replyCount" yaml:"replyCount"`
	Ratings       []float64 `json:"ratings" yaml:"ratings"`
	AvgRating     *float64  `json:"avg_rating" yaml:"avg_rating"`
	ReviewerCount *int      `json:"reviewer_count" yaml:"reviewer_count"`
	Accepted      bool      `json:"accepted" yaml:"accepted"`
}

// Retrieve returns papers matching opts, highest average rating first.
// Unrated papers sort last, ties by submission number.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]Paper, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, number, title, primary_area, keywords, openreview_url,
			reply_count, ratings, avg_rating, reviewer_count, accepted
		FROM papers
		WHERE 1=1`)

	if opts.Query != "" {
		pattern := "%" + escapeLike(opts.Query) + "%"
		qb.WriteString(` AND (title LIKE ? ESCAPE '\' OR abstract LIKE ? ESCAPE '\' OR keywords LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if opts.Area != "" {
		qb.WriteString(` AND primary_area = ?`)
		args = append(args, opts.Area)
	}
	if opts.MinRating != 0 {
		qb.WriteString(` AND avg_rating >= ?`)
		args = append(args, opts.MinRating)
	}
	if opts.AcceptedOnly {
		qb.WriteString(` AND accepted = 1`)
	}

	qb.WriteString(` ORDER BY avg_rating IS NULL, avg_rating DESC, number IS NULL, number, id LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var results []Paper
	for rows.Next() {
		var (
			p         Paper
			number    sql.NullInt64
			ratings   string
			avg       sql.NullFloat64
			reviewers sql.NullInt64
		)
		if err := rows.Scan(
			&p.ID, &number, &p.Title, &p.PrimaryArea, &p.Keywords, &p.OpenReviewURL,
			&p.ReplyCount, &ratings, &avg, &reviewers, &p.Accepted,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if number.Valid {
			n := int(number.Int64)
			p.Number = &n
		}
		if avg.Valid {
			p.AvgRating = &avg.Float64
		}
		if reviewers.Valid {
			n := int(reviewers.Int64)
			p.ReviewerCount = &n
		}
		p.Ratings, err = dataset.DecodeRatings(ratings)
		if err != nil {
			return nil, fmt.Errorf("paper %s: %w", p.ID, err)
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// AreaStat aggregates the papers of one primary area.
type AreaStat struct {
	Area           string   `json:"area" yaml:"area"`
	Papers         int      `json:"papers" yaml:"papers"`
	Rated          int      `json:"rated" yaml:"rated"`
	MeanRating     *float64 `json:"mean_rating" yaml:"mean_rating"`
	MeanReplyCount float64  `json:"mean_reply_count" yaml:"mean_reply_count"`
}

// AreaStats groups papers by primary area, largest area first. Papers
// without an area are grouped under "".
func (s *Store) AreaStats(ctx context.Context, acceptedOnly bool) ([]AreaStat, error) {
	query := `SELECT primary_area, count(*), count(avg_rating), avg(avg_rating), avg(reply_count)
		FROM papers`
	if acceptedOnly {
		query += ` WHERE accepted = 1`
	}
	query += ` GROUP BY primary_area ORDER BY count(*) DESC, primary_area`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("aggregating areas: %w", err)
	}
	defer rows.Close()

	var stats []AreaStat
	for rows.Next() {
		var (
			st   AreaStat
			mean sql.NullFloat64
		)
		if err := rows.Scan(&st.Area, &st.Papers, &st.Rated, &mean, &st.MeanReplyCount); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if mean.Valid {
			st.MeanRating = &mean.Float64
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
