// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter rewrites a pandoc document so that citekeys and links
// become citations backed by the bibliographic cache.
//
// A run has three stages, strictly in order:
//
//  1. ExtractCitekeys walks the whole tree and collects citekey definitions
//     ("[@key]: https://..." at the start of a paragraph).
//  2. ResolveCitations walks the tree again, resolving every citation id to
//     a URL, fetching records as needed, and adding citations to links.
//  3. AssembleReferences installs every cached record as the document's
//     references metadata.
//
// Stage 2 depends on the complete table built by stage 1, so a citation may
// use a citekey defined anywhere in the document.
package filter

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/pdiddy/url2cite/internal/bibcache"
	"github.com/pdiddy/url2cite/internal/citekey"
	"github.com/pdiddy/url2cite/internal/csl"
	"github.com/pdiddy/url2cite/internal/pandoc"
	"github.com/pdiddy/url2cite/pkg/types"
)

// Metadata keys read and written by the filter.
const (
	MetaEnable     = "url2cite"
	MetaReferences = "references"
)

// Cache is the part of the bibliographic cache the filter uses.
type Cache interface {
	Ensure(ctx context.Context, url string) error
	Entries() []bibcache.Entry
}

// Options configures a Filter.
type Options struct {
	LinkOutput types.LinkOutput
	Logger     *slog.Logger
}

// Filter holds the state of one run. Use a new Filter per document.
type Filter struct {
	cache      Cache
	keys       *citekey.Table
	linkOutput types.LinkOutput
	log        *slog.Logger
}

// New returns a filter backed by cache.
func New(cache Cache, opts Options) *Filter {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	out := opts.LinkOutput
	if out == "" {
		out = types.LinkOutputCitedLink
	}
	return &Filter{
		cache:      cache,
		keys:       citekey.New(log),
		linkOutput: out,
		log:        log,
	}
}

// Run applies all three stages to doc. On error doc must be discarded.
func (f *Filter) Run(ctx context.Context, doc *pandoc.Document, format string) error {
	if doc.Meta == nil {
		doc.Meta = pandoc.Meta{}
	}
	if _, err := allLinksEnabled(doc.Meta); err != nil {
		return err
	}
	if err := pandoc.Walk(ctx, doc, format, f.ExtractCitekeys); err != nil {
		return fmt.Errorf("extracting citekeys: %w", err)
	}
	f.log.Debug("extracted citekeys", "count", f.keys.Len())

	if err := pandoc.Walk(ctx, doc, format, f.ResolveCitations); err != nil {
		return fmt.Errorf("resolving citations: %w", err)
	}
	if err := f.AssembleReferences(doc.Meta); err != nil {
		return fmt.Errorf("assembling references: %w", err)
	}
	return nil
}

// Citekeys returns the table filled by ExtractCitekeys.
func (f *Filter) Citekeys() *citekey.Table {
	return f.keys
}

// AssembleReferences sets meta's references to every cached item, in cache
// order, replacing any previous value.
func (f *Filter) AssembleReferences(meta pandoc.Meta) error {
	entries := f.cache.Entries()
	items := make([]csl.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Parsed)
	}
	return meta.SetJSON(MetaReferences, items)
}

// isAbsoluteURL reports whether s parses as a URL with a scheme and a host.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
