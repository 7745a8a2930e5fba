// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for talking to the citation service.
package httputil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff after an HTTP 429 when the server
// sends no usable Retry-After header. Tests override it.
var RetryBaseDelay = 5 * time.Second

// MaxRetryDelay caps any single wait, including one requested through
// Retry-After.
var MaxRetryDelay = 2 * time.Minute

// DoWithRetry executes req and, if maxRetries > 0, retries HTTP 429
// (Too Many Requests) responses up to maxRetries times. Each wait honours
// Retry-After (seconds or HTTP date) and otherwise doubles from
// RetryBaseDelay. With maxRetries <= 0 the request is sent exactly once.
//
// Only 429 is retried; every other status and every transport error is
// returned to the caller on the first occurrence. After exhausting retries
// the last 429 response is returned so the caller can inspect it. A
// cancelled context during a wait returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, log *slog.Logger) (*http.Response, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		wait := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		if wait <= 0 {
			wait = RetryBaseDelay << attempt
		}
		wait = min(wait, MaxRetryDelay)

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		log.Warn("rate limited, retrying",
			"url", req.URL.String(), "wait", wait, "attempt", attempt+1, "max", maxRetries)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// retryAfter parses a Retry-After header value. It returns 0 when the
// header is missing or unparseable.
func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
