// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the HTTP client and request pacing shared by
// acquisition runs.
package httputil

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/openreview-harvest/pkg/types"
)

// maxRetryWait caps the wait between 429 retries.
const maxRetryWait = 30 * time.Second

// NewClient returns a resty client with the configured timeout and fixed
// header set. When cfg.RateLimitRetries > 0 the client re-sends a request
// that came back HTTP 429, waiting RetryWait and doubling up to maxRetryWait.
// No other status is retried.
func NewClient(cfg types.HTTPConfig) *resty.Client {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)

	headers := map[string]string{
		"Accept":     cfg.Accept,
		"User-Agent": cfg.UserAgent,
		"Referer":    cfg.Referer,
		"Origin":     cfg.Origin,
	}
	for k, v := range headers {
		if v != "" {
			client.SetHeader(k, v)
		}
	}

	if cfg.RateLimitRetries > 0 {
		client.SetRetryCount(cfg.RateLimitRetries)
		client.SetRetryWaitTime(cfg.RetryWait)
		client.SetRetryMaxWaitTime(maxRetryWait)
		client.AddRetryCondition(func(res *resty.Response, err error) bool {
			return err == nil && res != nil && res.StatusCode() == http.StatusTooManyRequests
		})
	}
	return client
}
