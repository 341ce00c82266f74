// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store keeps a SQLite index of the merged datasets for filtered
// lookups and per-area aggregates.
//
// The index holds one row per paper id: every rated paper plus every
// accepted paper, with accepted set by membership in the accepted dataset.
// Each build replaces the previous contents.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/openreview-harvest/internal/dataset"
	"github.com/pdiddy/openreview-harvest/pkg/types"
)

const defaultMaxResults = 20

// Store manages the index database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// Open opens or creates the index at cfg.DBPath and ensures the schema.
func Open(cfg types.IndexConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			number INTEGER,
			title TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL DEFAULT '',
			primary_area TEXT NOT NULL DEFAULT '',
			pdf_url TEXT NOT NULL DEFAULT '',
			openreview_url TEXT NOT NULL DEFAULT '',
			reply_count INTEGER NOT NULL DEFAULT 0,
			ratings TEXT NOT NULL DEFAULT '[]',
			min_rating REAL,
			max_rating REAL,
			avg_rating REAL,
			reviewer_count INTEGER,
			accepted INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_area ON papers(primary_area)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_avg_rating ON papers(avg_rating)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from an index build.
type IngestSummary struct {
	Accepted  int
	RatedOnly int
	Skipped   int
}

// Total returns the number of rows written.
func (s IngestSummary) Total() int {
	return s.Accepted + s.RatedOnly
}

// Ingest replaces the index contents with accepted and ratings in one
// transaction. Records without an id are skipped and counted. Progress
// lines go to w.
func (s *Store) Ingest(ctx context.Context, accepted []types.Submission, ratings []types.RatingRecord, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM papers`); err != nil {
		return summary, fmt.Errorf("clearing index: %w", err)
	}

	rated, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (id, title, primary_area, ratings, min_rating, max_rating, avg_rating, reviewer_count, accepted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(id) DO UPDATE SET
			ratings=excluded.ratings, min_rating=excluded.min_rating,
			max_rating=excluded.max_rating, avg_rating=excluded.avg_rating,
			reviewer_count=excluded.reviewer_count`)
	if err != nil {
		return summary, fmt.Errorf("preparing ratings insert: %w", err)
	}
	defer rated.Close()

	for _, r := range ratings {
		if r.PaperID == "" {
			summary.Skipped++
			continue
		}
		encoded, err := dataset.EncodeRatings(r.Ratings)
		if err != nil {
			return summary, fmt.Errorf("ratings of %s: %w", r.PaperID, err)
		}
		_, err = rated.ExecContext(ctx,
			r.PaperID, extraString(r.Extra, "title"), extraString(r.Extra, "primary_area"),
			encoded,
			nullFloat(r.MinRating), nullFloat(r.MaxRating), nullFloat(r.AvgRating),
			nullInt(r.ReviewerCount),
		)
		if err != nil {
			return summary, fmt.Errorf("inserting ratings for %s: %w", r.PaperID, err)
		}
	}

	// Accepted metadata overwrites the rated-only stub. Rating columns keep
	// the ratings dataset values unless the submission carries its own.
	paper, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (id, number, title, abstract, keywords, primary_area, pdf_url, openreview_url,
			reply_count, ratings, min_rating, max_rating, avg_rating, reviewer_count, accepted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT(id) DO UPDATE SET
			number=excluded.number, title=excluded.title, abstract=excluded.abstract,
			keywords=excluded.keywords, primary_area=excluded.primary_area,
			pdf_url=excluded.pdf_url, openreview_url=excluded.openreview_url,
			reply_count=excluded.reply_count,
			ratings=CASE WHEN ? THEN excluded.ratings ELSE papers.ratings END,
			min_rating=CASE WHEN ? THEN excluded.min_rating ELSE papers.min_rating END,
			max_rating=CASE WHEN ? THEN excluded.max_rating ELSE papers.max_rating END,
			avg_rating=CASE WHEN ? THEN excluded.avg_rating ELSE papers.avg_rating END,
			reviewer_count=CASE WHEN ? THEN excluded.reviewer_count ELSE papers.reviewer_count END,
			accepted=1`)
	if err != nil {
		return summary, fmt.Errorf("preparing paper insert: %w", err)
	}
	defer paper.Close()

	acceptedIDs := make(map[string]bool, len(accepted))
	for _, sub := range accepted {
		if sub.ID == "" {
			summary.Skipped++
			continue
		}
		acceptedIDs[sub.ID] = true

		stats := types.ReviewStats{}
		hasReview := sub.Review != nil
		if hasReview {
			stats = *sub.Review
		}
		encoded, err := dataset.EncodeRatings(stats.Ratings)
		if err != nil {
			return summary, fmt.Errorf("ratings of %s: %w", sub.ID, err)
		}
		_, err = paper.ExecContext(ctx,
			sub.ID, nullInt(sub.Number), sub.Title, sub.Abstract, sub.Keywords, sub.PrimaryArea,
			sub.PDFURL, sub.OpenReviewURL, sub.ReplyCount,
			encoded,
			nullFloat(stats.MinRating), nullFloat(stats.MaxRating), nullFloat(stats.AvgRating),
			nullInt(stats.ReviewerCount),
			hasReview, hasReview, hasReview, hasReview, hasReview,
		)
		if err != nil {
			return summary, fmt.Errorf("inserting paper %s: %w", sub.ID, err)
		}
	}

	summary.Accepted = len(acceptedIDs)
	seen := make(map[string]bool, len(ratings))
	for _, r := range ratings {
		if r.PaperID != "" && !acceptedIDs[r.PaperID] && !seen[r.PaperID] {
			seen[r.PaperID] = true
			summary.RatedOnly++
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing index: %w", err)
	}

	fmt.Fprintf(w, "indexed: %d accepted, %d rated only, %d skipped\n",
		summary.Accepted, summary.RatedOnly, summary.Skipped)
	return summary, nil
}

// Count returns the number of indexed papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

func extraString(extra map[string]json.RawMessage, key string) string {
	raw, ok := extra[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
