// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Lookup returns the flattened value of a metadata field: MetaString and
// MetaInlines become string, MetaBool bool, MetaList []any and MetaMap
// map[string]any.
func (m Meta) Lookup(key string) (any, bool) {
	n, ok := m[key]
	if !ok {
		return nil, false
	}
	return Flatten(n), true
}

// Set stores a Go value (as produced by encoding/json into any) under key,
// converting it to metadata nodes.
func (m Meta) Set(key string, value any) {
	m[key] = MetaValue(value)
}

// SetJSON marshals v to JSON and stores the result under key. It is used to
// install structs such as bibliographic records into the metadata.
func (m Meta) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling metadata %q: %w", key, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("decoding metadata %q: %w", key, err)
	}
	m.Set(key, generic)
	return nil
}

// Flatten converts a metadata node into a plain Go value.
func Flatten(n Node) any {
	o, ok := n.(Other)
	if !ok {
		return Stringify(n)
	}
	switch o.Name {
	case "MetaString":
		s, _ := o.Content.(string)
		return s
	case "MetaBool":
		b, _ := o.Content.(bool)
		return b
	case "MetaInlines", "MetaBlocks":
		return Stringify(o.Content)
	case "MetaList":
		items, _ := o.Content.([]any)
		out := make([]any, 0, len(items))
		for _, item := range items {
			if child, ok := item.(Node); ok {
				out = append(out, Flatten(child))
			}
		}
		return out
	case "MetaMap":
		fields, _ := o.Content.(map[string]any)
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			if child, ok := item.(Node); ok {
				out[k] = Flatten(child)
			}
		}
		return out
	default:
		return Stringify(o)
	}
}

// MetaValue converts a Go value into a metadata node. Numbers become
// MetaString, as pandoc has no numeric metadata; nil map values are dropped.
func MetaValue(v any) Node {
	switch x := v.(type) {
	case Node:
		return x
	case string:
		return metaString(x)
	case bool:
		return Other{Name: "MetaBool", Content: x, HasContent: true}
	case json.Number:
		return metaString(x.String())
	case float64, float32, int, int64, int32:
		return metaString(fmt.Sprint(x))
	case []any:
		items := make([]any, 0, len(x))
		for _, item := range x {
			items = append(items, MetaValue(item))
		}
		return Other{Name: "MetaList", Content: items, HasContent: true}
	case map[string]any:
		fields := make(map[string]any, len(x))
		for k, item := range x {
			if item == nil {
				continue
			}
			fields[k] = MetaValue(item)
		}
		return Other{Name: "MetaMap", Content: fields, HasContent: true}
	case nil:
		return metaString("")
	default:
		return metaString(fmt.Sprint(x))
	}
}

func metaString(s string) Node {
	return Other{Name: "MetaString", Content: s, HasContent: true}
}

// Stringify returns the plain text of a node or node payload, joining
// words with single spaces.
func Stringify(v any) string {
	var b strings.Builder
	stringify(&b, v)
	return b.String()
}

func stringify(b *strings.Builder, v any) {
	switch x := v.(type) {
	case Str:
		b.WriteString(x.Text)
	case Space, SoftBreak:
		b.WriteByte(' ')
	case Para:
		stringify(b, x.Content)
	case Cite:
		stringify(b, x.Content)
	case Link:
		stringify(b, x.Content)
	case Other:
		switch x.Name {
		case "LineBreak":
			b.WriteByte(' ')
		case "MetaString":
			s, _ := x.Content.(string)
			b.WriteString(s)
		case "Code", "Math", "RawInline":
			if parts, ok := x.Content.([]any); ok && len(parts) == 2 {
				s, _ := parts[1].(string)
				b.WriteString(s)
			}
		default:
			stringify(b, x.Content)
		}
	case []Node:
		for _, n := range x {
			stringify(b, n)
		}
	case []any:
		for _, item := range x {
			stringify(b, item)
		}
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			stringify(b, x[k])
		}
	}
}
