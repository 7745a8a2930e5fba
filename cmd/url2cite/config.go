// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/url2cite/internal/bibcache"
	"github.com/pdiddy/url2cite/internal/fetch"
	"github.com/pdiddy/url2cite/pkg/types"
)

func setDefaults() {
	viper.SetDefault("cache.path", bibcache.DefaultPath)
	viper.SetDefault("cache.backend", string(types.BackendJSON))
	viper.SetDefault("fetch.endpoint", fetch.DefaultEndpoint)
	viper.SetDefault("fetch.timeout", fetch.DefaultTimeout)
	viper.SetDefault("fetch.user_agent", "url2cite/"+version+" (https://github.com/pdiddy/url2cite)")
	viper.SetDefault("fetch.rate_limit", fetch.DefaultRateLimit)
	viper.SetDefault("fetch.rate_limit_retries", 0)
	viper.SetDefault("filter.link_output", string(types.LinkOutputCitedLink))
	viper.SetDefault("log.level", "warn")
}

// loadConfig reads the typed configuration from viper and validates the
// enumerated settings.
func loadConfig() (types.Config, error) {
	cfg := types.Config{
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: viper.GetString("fetch.user_agent"),
			},
			Endpoint:         viper.GetString("fetch.endpoint"),
			RateLimit:        viper.GetFloat64("fetch.rate_limit"),
			RateLimitRetries: viper.GetInt("fetch.rate_limit_retries"),
		},
		Cache: types.CacheConfig{
			Path:    viper.GetString("cache.path"),
			Backend: types.CacheBackend(strings.ToLower(viper.GetString("cache.backend"))),
		},
		Filter: types.FilterConfig{
			LinkOutput: types.LinkOutput(strings.ToLower(viper.GetString("filter.link_output"))),
		},
	}

	switch cfg.Cache.Backend {
	case types.BackendJSON, types.BackendSQLite:
	default:
		return cfg, fmt.Errorf("unsupported cache.backend %q: use json or sqlite", cfg.Cache.Backend)
	}
	switch cfg.Filter.LinkOutput {
	case types.LinkOutputCitedLink, types.LinkOutputCiteOnly:
	default:
		return cfg, fmt.Errorf("unsupported filter.link_output %q: use cited-link or cite-only", cfg.Filter.LinkOutput)
	}
	if cfg.Fetch.RateLimitRetries < 0 {
		return cfg, fmt.Errorf("fetch.rate_limit_retries must not be negative")
	}
	return cfg, nil
}

// newLogger returns a text logger writing to w at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log.level %q: %w", level, err)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// openCache opens the configured store and loads the cache. The returned
// close function releases the store.
func openCache(cfg types.CacheConfig, fetcher bibcache.Fetcher, log *slog.Logger) (*bibcache.Cache, func() error) {
	switch cfg.Backend {
	case types.BackendSQLite:
		path := cfg.Path
		if path == "" || path == bibcache.DefaultPath {
			path = "citation-cache.db"
		}
		store := bibcache.OpenSQLite(path)
		return bibcache.Open(store, fetcher, log), store.Close
	default:
		store := bibcache.NewJSONFile(cfg.Path)
		return bibcache.Open(store, fetcher, log), func() error { return nil }
	}
}
