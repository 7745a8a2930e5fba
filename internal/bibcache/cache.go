// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibcache keeps fetched bibliographic records keyed by URL and
// persists them after every new fetch.
//
// A Cache is not safe for concurrent use. Records are fetched one at a
// time and a URL already present is never fetched again, so a cache file
// can be edited by hand and the edits survive later runs.
package bibcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/url2cite/internal/fetch"
)

// Fetcher retrieves the record for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Result, error)
}

// Cache maps URLs to bibliographic records.
type Cache struct {
	store   Store
	fetcher Fetcher
	file    *File
	log     *slog.Logger
	now     func() time.Time
}

// Open loads the cache from store. A store that cannot be read or parsed
// yields an empty cache; the failure is logged at debug level only.
// fetcher may be nil for read-only use, in which case Ensure fails for
// URLs not already cached.
func Open(store Store, fetcher Fetcher, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	c := &Cache{store: store, fetcher: fetcher, log: log, now: time.Now}

	f, err := store.Load()
	if err != nil {
		log.Debug("starting with empty cache", "error", err)
		f = NewFile()
	}
	c.file = f
	return c
}

// Ensure makes sure url is cached. If it is absent the record is fetched,
// stored, and the whole cache is saved. Fetch errors are returned
// unchanged.
func (c *Cache) Ensure(ctx context.Context, url string) error {
	if _, ok := c.file.URLs.Get(url); ok {
		return nil
	}
	if c.fetcher == nil {
		return errors.New("cache has no fetcher")
	}

	c.log.Info("fetching citation", "url", url)
	res, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	c.file.URLs.Set(url, newRecord(url, res.Raw, res.Item, c.now().UTC()))
	if err := c.store.Save(c.file); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	return nil
}

// Get returns the record for url.
func (c *Cache) Get(url string) (Record, bool) {
	return c.file.URLs.Get(url)
}

// Len returns the number of cached URLs.
func (c *Cache) Len() int {
	return c.file.URLs.Len()
}

// Entries returns every entry in insertion order.
func (c *Cache) Entries() []Entry {
	entries := make([]Entry, 0, c.file.URLs.Len())
	for pair := c.file.URLs.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, Entry{URL: pair.Key, Record: pair.Value})
	}
	return entries
}

// Prune removes entries fetched before cutoff and saves the cache once if
// anything was removed. It returns the number removed.
func (c *Cache) Prune(cutoff time.Time) (int, error) {
	var stale []string
	for pair := c.file.URLs.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.FetchedAt.Before(cutoff) {
			stale = append(stale, pair.Key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	for _, url := range stale {
		c.file.URLs.Delete(url)
		c.log.Info("pruned citation", "url", url)
	}
	if err := c.store.Save(c.file); err != nil {
		return 0, fmt.Errorf("saving cache: %w", err)
	}
	return len(stale), nil
}
