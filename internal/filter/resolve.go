// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"slices"
	"strings"

	"github.com/pdiddy/url2cite/internal/pandoc"
	"github.com/pdiddy/url2cite/pkg/types"
)

// Link opt-in and opt-out markers, matched as classes or as whole words of
// the link title.
const (
	markerOptIn  = "url2cite"
	markerOptOut = "no-url2cite"

	// enableAllLinks as the url2cite metadata value cites every link.
	enableAllLinks = "all-links"
)

// ResolveCitations is the second-pass action. Citation ids become URLs
// and links that opt in gain a citation. Every URL is ensured in the cache
// before its node is rewritten.
func (f *Filter) ResolveCitations(ctx context.Context, n pandoc.Node, _ string, meta pandoc.Meta) (pandoc.Node, error) {
	switch v := n.(type) {
	case pandoc.Cite:
		return f.resolveCite(ctx, v)
	case pandoc.Link:
		return f.citeLink(ctx, v, meta)
	}
	return nil, nil
}

func (f *Filter) resolveCite(ctx context.Context, cite pandoc.Cite) (pandoc.Node, error) {
	citations := make([]pandoc.Citation, len(cite.Citations))
	for i, c := range cite.Citations {
		target, err := f.resolveID(c.ID)
		if err != nil {
			return nil, err
		}
		if err := f.cache.Ensure(ctx, target); err != nil {
			return nil, err
		}
		c.ID = target
		citations[i] = c
	}
	return pandoc.Cite{Citations: citations, Content: cite.Content}, nil
}

func (f *Filter) resolveID(id string) (string, error) {
	if isAbsoluteURL(id) {
		return id, nil
	}
	target, ok := f.keys.Lookup(id)
	if !ok {
		return "", &UnresolvedCitekeyError{Key: id}
	}
	return target, nil
}

func (f *Filter) citeLink(ctx context.Context, link pandoc.Link, meta pandoc.Meta) (pandoc.Node, error) {
	wanted, err := linkWanted(link, meta)
	if err != nil || !wanted {
		return nil, err
	}
	target := link.Target.URL
	if err := f.cache.Ensure(ctx, target); err != nil {
		return nil, err
	}

	cite := pandoc.Cite{
		Citations: []pandoc.Citation{{ID: target, Mode: pandoc.NormalCitation}},
		Content:   []pandoc.Node{pandoc.Str{Text: "[@" + target + "]"}},
	}
	if f.linkOutput == types.LinkOutputCiteOnly {
		cite.Content = append([]pandoc.Node{}, link.Content...)
		return cite, nil
	}

	content := make([]pandoc.Node, 0, len(link.Content)+2)
	content = append(content, link.Content...)
	content = append(content, pandoc.Space{}, cite)
	return pandoc.Link{Attr: link.Attr, Content: content, Target: link.Target}, nil
}

// linkWanted reports whether link should be cited: it must opt in (or the
// document enables all links), must not opt out, and must be absolute.
func linkWanted(link pandoc.Link, meta pandoc.Meta) (bool, error) {
	title := strings.Fields(link.Target.Title)
	if link.Attr.HasClass(markerOptOut) || slices.Contains(title, markerOptOut) {
		return false, nil
	}
	if !isAbsoluteURL(link.Target.URL) {
		return false, nil
	}
	if link.Attr.HasClass(markerOptIn) || slices.Contains(title, markerOptIn) {
		return true, nil
	}
	return allLinksEnabled(meta)
}

func allLinksEnabled(meta pandoc.Meta) (bool, error) {
	v, ok := meta.Lookup(MetaEnable)
	if !ok {
		return false, nil
	}
	s, ok := v.(string)
	if !ok {
		return false, &ConfigError{Key: MetaEnable, Value: v}
	}
	return s == enableAllLinks, nil
}
