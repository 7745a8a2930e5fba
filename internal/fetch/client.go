// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves BibTeX descriptions of web pages from a citation
// service and converts them to CSL items.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/url2cite/internal/csl"
	"github.com/pdiddy/url2cite/internal/httputil"
	"github.com/pdiddy/url2cite/pkg/types"
)

const (
	// DefaultEndpoint is Wikipedia's citoid BibTeX service. The target URL
	// is path-escaped and appended.
	DefaultEndpoint = "https://en.wikipedia.org/api/rest_v1/data/citation/bibtex/"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is requests per second.
	DefaultRateLimit = 1.0

	// DefaultUserAgent identifies the tool to the citation service.
	DefaultUserAgent = "url2cite (https://github.com/pdiddy/url2cite)"

	maxBodyBytes = 4 << 20
)

// Result is a fetched record: the BibTeX text as served and its CSL form.
type Result struct {
	Raw  string
	Item csl.Item
}

// Client fetches BibTeX from the citation service, one request at a time
// under a shared rate limit.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoint   string
	userAgent  string
	retries    int
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLimiter replaces the rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient creates a client from cfg. Zero fields take the package
// defaults.
func NewClient(cfg types.FetchConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		endpoint:   cfg.Endpoint,
		userAgent:  cfg.UserAgent,
		retries:    cfg.RateLimitRetries,
		log:        slog.New(slog.DiscardHandler),
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves and converts the record for target. It fails with
// *FetchError when the service cannot be reached or answers with a
// non-2xx status, and with *csl.ParseError or *csl.CardinalityError when
// the body is not a single BibTeX entry.
func (c *Client) Fetch(ctx context.Context, target string) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.endpoint + url.PathEscape(target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/x-bibtex")

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.retries, c.log)
	if err != nil {
		return Result{}, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, &FetchError{URL: target, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	c.log.Info("fetched citation", "url", target, "status", resp.StatusCode, "elapsed", time.Since(start))

	raw := string(body)
	item, err := csl.FromBibTeX(raw)
	if err != nil {
		return Result{}, fmt.Errorf("converting record for %s: %w", target, err)
	}
	return Result{Raw: raw, Item: item}, nil
}
