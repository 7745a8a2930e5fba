// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"

	"github.com/pdiddy/url2cite/internal/pandoc"
)

// ExtractCitekeys is the first-pass action. It strips leading citekey
// definitions from paragraphs and records them. A paragraph left empty is
// kept.
func (f *Filter) ExtractCitekeys(_ context.Context, n pandoc.Node, _ string, _ pandoc.Meta) (pandoc.Node, error) {
	para, ok := n.(pandoc.Para)
	if !ok {
		return nil, nil
	}

	content := para.Content
	found := false
	for {
		key, target, rest, ok := leadingDefinition(content)
		if !ok {
			break
		}
		f.keys.Define(key, target)
		content, found = rest, true
	}
	if !found {
		return nil, nil
	}
	return pandoc.Para{Content: append([]pandoc.Node{}, content...)}, nil
}

// leadingDefinition matches Cite ":" [Space] URL at the head of content
// and returns the content after it, minus one following SoftBreak.
func leadingDefinition(content []pandoc.Node) (key, target string, rest []pandoc.Node, ok bool) {
	if len(content) < 3 {
		return "", "", nil, false
	}
	cite, ok := content[0].(pandoc.Cite)
	if !ok || len(cite.Citations) != 1 {
		return "", "", nil, false
	}
	c := cite.Citations[0]
	if len(c.Prefix) != 0 || len(c.Suffix) != 0 {
		return "", "", nil, false
	}
	if colon, ok := content[1].(pandoc.Str); !ok || colon.Text != ":" {
		return "", "", nil, false
	}

	i := 2
	if _, ok := content[i].(pandoc.Space); ok {
		i++
	}
	if i >= len(content) {
		return "", "", nil, false
	}
	str, ok := content[i].(pandoc.Str)
	if !ok || !isAbsoluteURL(str.Text) {
		return "", "", nil, false
	}

	rest = content[i+1:]
	if len(rest) > 0 {
		if _, ok := rest[0].(pandoc.SoftBreak); ok {
			rest = rest[1:]
		}
	}
	return c.ID, str.Text, rest, true
}
