// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"context"
	"sort"
)

// Action inspects one node and returns its replacement, or nil to keep the
// node unchanged. format is the pandoc output format the filter was invoked
// with. Actions must not modify n or anything reachable from it; they build
// new values instead.
type Action func(ctx context.Context, n Node, format string, meta Meta) (Node, error)

// Walk applies action to every node of doc.Blocks in depth-first pre-order.
// After a node is visited, the children of its replacement (or of the node
// itself when unchanged) are walked. The first error stops the walk and
// leaves doc unmodified.
func Walk(ctx context.Context, doc *Document, format string, action Action) error {
	w := &walker{ctx: ctx, action: action, format: format, meta: doc.Meta}
	blocks, err := w.nodes(doc.Blocks)
	if err != nil {
		return err
	}
	doc.Blocks = blocks
	return nil
}

type walker struct {
	ctx    context.Context
	action Action
	format string
	meta   Meta
}

func (w *walker) node(n Node) (Node, error) {
	if err := w.ctx.Err(); err != nil {
		return nil, err
	}
	res, err := w.action(w.ctx, n, w.format, w.meta)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = n
	}
	return w.children(res)
}

func (w *walker) children(n Node) (Node, error) {
	switch v := n.(type) {
	case Para:
		content, err := w.nodes(v.Content)
		if err != nil {
			return nil, err
		}
		return Para{Content: content}, nil

	case Cite:
		citations := make([]Citation, len(v.Citations))
		for i, c := range v.Citations {
			prefix, err := w.nodes(c.Prefix)
			if err != nil {
				return nil, err
			}
			suffix, err := w.nodes(c.Suffix)
			if err != nil {
				return nil, err
			}
			c.Prefix, c.Suffix = prefix, suffix
			citations[i] = c
		}
		content, err := w.nodes(v.Content)
		if err != nil {
			return nil, err
		}
		return Cite{Citations: citations, Content: content}, nil

	case Link:
		content, err := w.nodes(v.Content)
		if err != nil {
			return nil, err
		}
		return Link{Attr: v.Attr, Content: content, Target: v.Target}, nil

	case Other:
		content, err := w.value(v.Content)
		if err != nil {
			return nil, err
		}
		v.Content = content
		return v, nil

	default:
		return n, nil
	}
}

func (w *walker) nodes(ns []Node) ([]Node, error) {
	if ns == nil {
		return nil, nil
	}
	out := make([]Node, len(ns))
	for i, n := range ns {
		res, err := w.node(n)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func (w *walker) value(v any) (any, error) {
	switch x := v.(type) {
	case Node:
		return w.node(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			res, err := w.value(item)
			if err != nil {
				return nil, err
			}
			out[i] = res
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(x))
		for _, k := range keys {
			res, err := w.value(x[k])
			if err != nil {
				return nil, err
			}
			out[k] = res
		}
		return out, nil
	default:
		return v, nil
	}
}
