// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire walks the paginated OpenReview notes API and flattens
// each note into a Submission.
//
// A run fetches offset 0 to learn the declared total, then every remaining
// page in order, one request at a time. Failed pages after the first are
// counted and skipped; the run never re-fetches them.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/openreview-harvest/internal/httputil"
	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// ErrAborted reports that the first page failed, so the total is unknown
// and the run produced nothing.
var ErrAborted = errors.New("acquisition aborted: first page unavailable")

// State is a step of the pagination state machine.
type State int

const (
	StateInit State = iota
	StateFetchingFirst
	StateTotalKnown
	StateFetchingRest
	StateDone
	StateAborted
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetchingFirst:
		return "fetching_first"
	case StateTotalKnown:
		return "total_known"
	case StateFetchingRest:
		return "fetching_rest"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	case StateInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PageEvent describes the outcome of one page request.
type PageEvent struct {
	Offset   int
	Records  int
	Obtained int
	Total    int
	Err      error
}

// Observer receives progress callbacks from a run.
type Observer interface {
	// Started is called once the total is known and non-zero.
	Started(total, pages int)
	// PageDone is called after every page request, including failed ones.
	PageDone(ev PageEvent)
}

// Result is the outcome of a run. Total is the count the API declared;
// Obtained may be smaller when pages were skipped.
type Result struct {
	Submissions     []types.Submission
	Total           int
	Pages           int
	SuccessfulPages int
	FailedPages     int
	SkippedOffsets  []int
	MissingIDs      int
	State           State
}

// Obtained returns the number of records collected.
func (r Result) Obtained() int { return len(r.Submissions) }

// Shortfall returns how many declared records were not obtained.
func (r Result) Shortfall() int {
	if d := r.Total - r.Obtained(); d > 0 {
		return d
	}
	return 0
}

// Aborted reports whether the run ended without a known total.
func (r Result) Aborted() bool { return r.State == StateAborted }

// Complete reports whether every page was fetched.
func (r Result) Complete() bool { return r.State == StateDone && r.FailedPages == 0 }

// Driver runs the pagination loop. It is not safe for concurrent use.
type Driver struct {
	Fetcher  Fetcher
	Limit    int
	Pacer    httputil.Pacer
	Observer Observer
	Logger   *slog.Logger
}

// NewDriver wires a Driver for cfg around fetcher.
func NewDriver(fetcher Fetcher, cfg types.AcquisitionConfig, observer Observer, logger *slog.Logger) *Driver {
	return &Driver{
		Fetcher:  fetcher,
		Limit:    cfg.Source.Limit,
		Pacer:    httputil.NewPacer(cfg.Pacing),
		Observer: observer,
		Logger:   logger,
	}
}

// Run fetches every page. A first-page failure returns ErrAborted with an
// empty result; a zero total returns an empty result and no error. When
// ctx is cancelled the partial result is returned with ctx's error.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res := Result{State: StateInit}
	if d.Limit <= 0 {
		res.State = StateAborted
		return res, fmt.Errorf("%w: page limit must be positive, got %d", ErrAborted, d.Limit)
	}

	res.State = StateFetchingFirst
	first, err := d.Fetcher.FetchPage(ctx, 0)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.State = StateInterrupted
			return res, ctxErr
		}
		res.State = StateAborted
		return res, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	if first.Count != nil {
		res.Total = *first.Count
	}
	if res.Total <= 0 {
		res.Total = 0
		res.State = StateDone
		logger.Info("no records declared", "total", 0)
		return res, nil
	}

	res.State = StateTotalKnown
	res.Pages = (res.Total + d.Limit - 1) / d.Limit
	logger.Info("total known", "total", res.Total, "pages", res.Pages, "limit", d.Limit)
	if d.Observer != nil {
		d.Observer.Started(res.Total, res.Pages)
	}
	d.accept(&res, 0, first, logger)

	for offset := d.Limit; offset < res.Total; offset += d.Limit {
		res.State = StateFetchingRest

		page, err := d.Fetcher.FetchPage(ctx, offset)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.State = StateInterrupted
				return res, ctxErr
			}
			res.FailedPages++
			res.SkippedOffsets = append(res.SkippedOffsets, offset)
			logger.Warn("skipping page", "offset", offset, "error", err)
			d.notify(PageEvent{Offset: offset, Obtained: res.Obtained(), Total: res.Total, Err: err})
		} else {
			d.accept(&res, offset, page, logger)
		}

		next := offset + d.Limit
		if next >= res.Total {
			break
		}
		if err := d.Pacer.Wait(ctx, next); err != nil {
			res.State = StateInterrupted
			return res, err
		}
	}

	res.State = StateDone
	logger.Info("acquisition finished",
		"successful_pages", res.SuccessfulPages,
		"failed_pages", res.FailedPages,
		"obtained", res.Obtained(),
		"declared", res.Total,
	)
	return res, nil
}

// accept normalizes and appends the notes of a fetched page.
func (d *Driver) accept(res *Result, offset int, page *Page, logger *slog.Logger) {
	for _, note := range page.Notes {
		s, err := Normalize(note)
		if errors.Is(err, ErrMissingID) {
			res.MissingIDs++
			logger.Warn("note without id", "offset", offset, "title", s.Title)
		}
		res.Submissions = append(res.Submissions, s)
	}
	res.SuccessfulPages++
	d.notify(PageEvent{
		Offset:   offset,
		Records:  len(page.Notes),
		Obtained: res.Obtained(),
		Total:    res.Total,
	})
}

func (d *Driver) notify(ev PageEvent) {
	if d.Observer != nil {
		d.Observer.PageDone(ev)
	}
}
