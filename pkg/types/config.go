// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the configuration shared by the url2cite CLI and its
// internal packages.
package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "url2cite/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for retrieving bibliographic records.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the URL prefix the escaped target URL is appended to.
	// The service must answer with a BibTeX document describing the target.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// RateLimit is the maximum number of requests per second (default 1).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// RateLimitRetries is how many times an HTTP 429 response is retried.
	// Zero disables retries, so any failure aborts the run.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries"`
}

// CacheBackend identifies where the bibliographic cache is persisted.
type CacheBackend string

const (
	BackendJSON   CacheBackend = "json"
	BackendSQLite CacheBackend = "sqlite"
)

// CacheConfig holds settings for the bibliographic cache.
type CacheConfig struct {
	// Path is the cache file, relative to the working directory
	// (default "citation-cache.json").
	Path string `json:"path" yaml:"path"`

	// Backend selects the store: json or sqlite.
	Backend CacheBackend `json:"backend" yaml:"backend"`
}

// LinkOutput selects how a cited hyperlink is rendered.
type LinkOutput string

const (
	// LinkOutputCitedLink keeps the link and appends the citation inside it.
	LinkOutputCitedLink LinkOutput = "cited-link"

	// LinkOutputCiteOnly replaces the link with the citation.
	LinkOutputCiteOnly LinkOutput = "cite-only"
)

// FilterConfig holds settings for the document rewrite.
type FilterConfig struct {
	// LinkOutput selects cited-link (default) or cite-only.
	LinkOutput LinkOutput `json:"link_output" yaml:"link_output"`
}

// Config groups all settings for a url2cite run.
type Config struct {
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch"`
	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Filter FilterConfig `json:"filter" yaml:"filter"`
}
