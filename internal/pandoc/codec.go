// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Decode reads a pandoc JSON document (API version 1.17 or later, the
// object form) from r.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw struct {
		APIVersion []int          `json:"pandoc-api-version"`
		Meta       map[string]any `json:"meta"`
		Blocks     []any          `json:"blocks"`
	}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding pandoc JSON: %w", err)
	}
	if len(raw.APIVersion) == 0 {
		return nil, fmt.Errorf("decoding pandoc JSON: missing pandoc-api-version (pandoc 1.17 or later required)")
	}

	blocks, err := decodeNodes(raw.Blocks)
	if err != nil {
		return nil, fmt.Errorf("decoding blocks: %w", err)
	}

	meta := make(Meta, len(raw.Meta))
	for key, v := range raw.Meta {
		n, err := decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("decoding metadata %q: %w", key, err)
		}
		node, ok := n.(Node)
		if !ok {
			return nil, fmt.Errorf("decoding metadata %q: expected a tagged value", key)
		}
		meta[key] = node
	}

	return &Document{APIVersion: raw.APIVersion, Meta: meta, Blocks: blocks}, nil
}

// Encode writes doc to w as pandoc JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// decodeValue converts a generic JSON value, turning every object with a
// string "t" field into a Node.
func decodeValue(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if tag, ok := x["t"].(string); ok {
			c, hasC := x["c"]
			return decodeNode(tag, c, hasC)
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			d, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = d
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			d, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	default:
		return v, nil
	}
}

func decodeNode(tag string, c any, hasC bool) (Node, error) {
	switch tag {
	case "Para":
		content, err := decodeNodes(c)
		if err != nil {
			return nil, fmt.Errorf("Para: %w", err)
		}
		return Para{Content: content}, nil

	case "Str":
		s, ok := c.(string)
		if !ok {
			return nil, fmt.Errorf("Str: content is %T, want string", c)
		}
		return Str{Text: s}, nil

	case "Space":
		return Space{}, nil

	case "SoftBreak":
		return SoftBreak{}, nil

	case "Cite":
		parts, ok := c.([]any)
		if !ok || len(parts) != 2 {
			return nil, fmt.Errorf("Cite: want [citations, inlines]")
		}
		rawCitations, ok := parts[0].([]any)
		if !ok {
			return nil, fmt.Errorf("Cite: citations are %T, want list", parts[0])
		}
		citations := make([]Citation, len(rawCitations))
		for i, rc := range rawCitations {
			cit, err := decodeCitation(rc)
			if err != nil {
				return nil, fmt.Errorf("Cite: citation %d: %w", i, err)
			}
			citations[i] = cit
		}
		content, err := decodeNodes(parts[1])
		if err != nil {
			return nil, fmt.Errorf("Cite: %w", err)
		}
		return Cite{Citations: citations, Content: content}, nil

	case "Link":
		parts, ok := c.([]any)
		if !ok || len(parts) != 3 {
			return nil, fmt.Errorf("Link: want [attr, inlines, target]")
		}
		attr, err := decodeAttr(parts[0])
		if err != nil {
			return nil, fmt.Errorf("Link: %w", err)
		}
		content, err := decodeNodes(parts[1])
		if err != nil {
			return nil, fmt.Errorf("Link: %w", err)
		}
		target, ok := parts[2].([]any)
		if !ok || len(target) != 2 {
			return nil, fmt.Errorf("Link: want [url, title] target")
		}
		u, _ := target[0].(string)
		title, _ := target[1].(string)
		return Link{Attr: attr, Content: content, Target: Target{URL: u, Title: title}}, nil

	default:
		content, err := decodeValue(c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		return Other{Name: tag, Content: content, HasContent: hasC}, nil
	}
}

func decodeNodes(v any) ([]Node, error) {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("expected a list of nodes, got %T", v)
	}
	nodes := make([]Node, 0, len(items))
	for i, item := range items {
		d, err := decodeValue(item)
		if err != nil {
			return nil, err
		}
		n, ok := d.(Node)
		if !ok {
			return nil, fmt.Errorf("element %d is %T, want a tagged node", i, d)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func decodeAttr(v any) (Attr, error) {
	parts, ok := v.([]any)
	if !ok || len(parts) != 3 {
		return Attr{}, fmt.Errorf("want [id, classes, keyvals] attributes")
	}
	var attr Attr
	attr.ID, _ = parts[0].(string)

	classes, _ := parts[1].([]any)
	for _, c := range classes {
		if s, ok := c.(string); ok {
			attr.Classes = append(attr.Classes, s)
		}
	}

	kvs, _ := parts[2].([]any)
	for _, kv := range kvs {
		pair, ok := kv.([]any)
		if !ok || len(pair) != 2 {
			return Attr{}, fmt.Errorf("attribute pair %v is malformed", kv)
		}
		k, _ := pair[0].(string)
		val, _ := pair[1].(string)
		attr.KeyVals = append(attr.KeyVals, [2]string{k, val})
	}
	return attr, nil
}

func decodeCitation(v any) (Citation, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Citation{}, fmt.Errorf("citation is %T, want object", v)
	}
	var cit Citation
	cit.ID, _ = m["citationId"].(string)

	var err error
	if cit.Prefix, err = decodeNodes(m["citationPrefix"]); err != nil {
		return Citation{}, fmt.Errorf("prefix: %w", err)
	}
	if cit.Suffix, err = decodeNodes(m["citationSuffix"]); err != nil {
		return Citation{}, fmt.Errorf("suffix: %w", err)
	}

	cit.Mode = NormalCitation
	if mode, ok := m["citationMode"].(map[string]any); ok {
		if t, ok := mode["t"].(string); ok {
			cit.Mode = CitationMode(t)
		}
	}
	if cit.NoteNum, err = intValue(m["citationNoteNum"]); err != nil {
		return Citation{}, fmt.Errorf("note number: %w", err)
	}
	if cit.Hash, err = intValue(m["citationHash"]); err != nil {
		return Citation{}, fmt.Errorf("hash: %w", err)
	}
	return cit, nil
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		i, err := strconv.Atoi(n.String())
		if err != nil {
			return 0, err
		}
		return i, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("got %T, want number", v)
	}
}

// tagged is the wire shape of every node.
type tagged struct {
	T string `json:"t"`
	C any    `json:"c,omitempty"`
}

func (p Para) MarshalJSON() ([]byte, error) {
	return json.Marshal(tagged{T: "Para", C: nodesOrEmpty(p.Content)})
}

func (c Cite) MarshalJSON() ([]byte, error) {
	citations := c.Citations
	if citations == nil {
		citations = []Citation{}
	}
	return json.Marshal(tagged{T: "Cite", C: []any{citations, nodesOrEmpty(c.Content)}})
}

func (l Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(tagged{T: "Link", C: []any{
		l.Attr,
		nodesOrEmpty(l.Content),
		[]string{l.Target.URL, l.Target.Title},
	}})
}

func (s Str) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		T string `json:"t"`
		C string `json:"c"`
	}{"Str", s.Text})
}

func (SoftBreak) MarshalJSON() ([]byte, error) {
	return []byte(`{"t":"SoftBreak"}`), nil
}

func (Space) MarshalJSON() ([]byte, error) {
	return []byte(`{"t":"Space"}`), nil
}

func (o Other) MarshalJSON() ([]byte, error) {
	if !o.HasContent {
		return json.Marshal(struct {
			T string `json:"t"`
		}{o.Name})
	}
	return json.Marshal(struct {
		T string `json:"t"`
		C any    `json:"c"`
	}{o.Name, o.Content})
}

func (a Attr) MarshalJSON() ([]byte, error) {
	classes := a.Classes
	if classes == nil {
		classes = []string{}
	}
	kvs := a.KeyVals
	if kvs == nil {
		kvs = [][2]string{}
	}
	return json.Marshal([]any{a.ID, classes, kvs})
}

func (c Citation) MarshalJSON() ([]byte, error) {
	mode := c.Mode
	if mode == "" {
		mode = NormalCitation
	}
	return json.Marshal(struct {
		ID      string            `json:"citationId"`
		Prefix  []Node            `json:"citationPrefix"`
		Suffix  []Node            `json:"citationSuffix"`
		Mode    map[string]string `json:"citationMode"`
		NoteNum int               `json:"citationNoteNum"`
		Hash    int               `json:"citationHash"`
	}{
		ID:      c.ID,
		Prefix:  nodesOrEmpty(c.Prefix),
		Suffix:  nodesOrEmpty(c.Suffix),
		Mode:    map[string]string{"t": string(mode)},
		NoteNum: c.NoteNum,
		Hash:    c.Hash,
	})
}

func (d Document) MarshalJSON() ([]byte, error) {
	meta := d.Meta
	if meta == nil {
		meta = Meta{}
	}
	return json.Marshal(struct {
		APIVersion []int  `json:"pandoc-api-version"`
		Meta       Meta   `json:"meta"`
		Blocks     []Node `json:"blocks"`
	}{d.APIVersion, meta, nodesOrEmpty(d.Blocks)})
}

func nodesOrEmpty(ns []Node) []Node {
	if ns == nil {
		return []Node{}
	}
	return ns
}
