// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/openreview-harvest/internal/httputil"
	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// RawNote is one note as decoded from the API. Content fields may be plain
// values or objects wrapping a "value" key, so the note stays untyped until
// Normalize flattens it.
type RawNote map[string]any

// Page is one decoded page of notes. Count is the authoritative total and
// is only relied on for the first page; nil means the payload had none.
type Page struct {
	Notes []RawNote
	Count *int
}

// Fetcher retrieves one page of notes starting at offset.
type Fetcher interface {
	FetchPage(ctx context.Context, offset int) (*Page, error)
}

// FailureKind classifies why a page could not be fetched.
type FailureKind int

const (
	// KindTransport covers connection errors, timeouts and non-2xx statuses.
	KindTransport FailureKind = iota
	// KindDecode covers payloads that are not a valid page.
	KindDecode
)

func (k FailureKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// FetchError reports a page that yielded no data.
type FetchError struct {
	Offset int
	Kind   FailureKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error at offset %d: HTTP %d", e.Kind, e.Offset, e.Status)
	}
	return fmt.Sprintf("%s error at offset %d: %v", e.Kind, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches pages from the OpenReview notes endpoint.
type Client struct {
	http   *resty.Client
	source types.SourceConfig
	logger *slog.Logger
}

// NewClient builds a Client from cfg. A nil logger uses slog.Default().
func NewClient(cfg types.AcquisitionConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   httputil.NewClient(cfg.HTTP),
		source: cfg.Source,
		logger: logger,
	}
}

// QueryParams returns the request parameters for the page at offset.
func (c *Client) QueryParams(offset int) map[string]string {
	params := map[string]string{
		"limit":  strconv.Itoa(c.source.Limit),
		"offset": strconv.Itoa(offset),
	}
	optional := map[string]string{
		"content.venue": c.source.Venue,
		"details":       c.source.Details,
		"domain":        c.source.Domain,
		"invitation":    c.source.Invitation,
	}
	for k, v := range optional {
		if v != "" {
			params[k] = v
		}
	}
	return params
}

type pagePayload struct {
	Notes []RawNote `json:"notes"`
	Count *int      `json:"count"`
}

// FetchPage requests one page. Transport and decode failures come back as
// *FetchError and are logged; context cancellation is returned as-is.
func (c *Client) FetchPage(ctx context.Context, offset int) (*Page, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(c.QueryParams(offset)).
		Get(c.source.BaseURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, c.fail(&FetchError{Offset: offset, Kind: KindTransport, Err: err})
	}
	if !res.IsSuccess() {
		return nil, c.fail(&FetchError{
			Offset: offset,
			Kind:   KindTransport,
			Status: res.StatusCode(),
			Err:    fmt.Errorf("HTTP %d", res.StatusCode()),
		})
	}

	page, err := decodePage(res.Body())
	if err != nil {
		return nil, c.fail(&FetchError{Offset: offset, Kind: KindDecode, Err: err})
	}
	c.logger.Debug("page fetched", "offset", offset, "notes", len(page.Notes))
	return page, nil
}

func (c *Client) fail(fe *FetchError) error {
	c.logger.Warn("page request failed",
		"offset", fe.Offset,
		"class", fe.Kind.String(),
		"error", fe.Err,
	)
	return fe
}

// decodePage parses a page payload. Numbers inside notes are kept as
// json.Number so integer fields survive exactly.
func decodePage(body []byte) (*Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var p pagePayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing notes response: %w", err)
	}
	if p.Notes == nil && p.Count == nil {
		return nil, errors.New("parsing notes response: no notes or count field")
	}
	return &Page{Notes: p.Notes, Count: p.Count}, nil
}
