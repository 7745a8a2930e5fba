// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package csl holds bibliographic records in CSL (Citation Style Language)
// form and converts BibTeX sources into them. The field names follow the
// CSL-JSON/CSL-YAML schema so records can be handed to pandoc's citeproc
// either as document metadata or as a --bibliography file.
package csl

import (
	"bytes"
	"encoding/json"
	"io"
	"maps"
	"reflect"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Item is one bibliographic entry in CSL form.
type Item struct {
	ID             string `json:"id" yaml:"id"`
	Type           string `json:"type" yaml:"type"`
	CitationKey    string `json:"citation-key,omitempty" yaml:"citation-key,omitempty"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	Author         []Name `json:"author,omitempty" yaml:"author,omitempty"`
	Editor         []Name `json:"editor,omitempty" yaml:"editor,omitempty"`
	ContainerTitle string `json:"container-title,omitempty" yaml:"container-title,omitempty"`
	Publisher      string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	PublisherPlace string `json:"publisher-place,omitempty" yaml:"publisher-place,omitempty"`
	Issued         *Date  `json:"issued,omitempty" yaml:"issued,omitempty"`
	Accessed       *Date  `json:"accessed,omitempty" yaml:"accessed,omitempty"`
	Volume         string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue          string `json:"issue,omitempty" yaml:"issue,omitempty"`
	Page           string `json:"page,omitempty" yaml:"page,omitempty"`
	Edition        string `json:"edition,omitempty" yaml:"edition,omitempty"`
	Number         string `json:"number,omitempty" yaml:"number,omitempty"`
	DOI            string `json:"DOI,omitempty" yaml:"DOI,omitempty"`
	ISBN           string `json:"ISBN,omitempty" yaml:"ISBN,omitempty"`
	ISSN           string `json:"ISSN,omitempty" yaml:"ISSN,omitempty"`
	URL            string `json:"URL,omitempty" yaml:"URL,omitempty"`
	Language       string `json:"language,omitempty" yaml:"language,omitempty"`
	Abstract       string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Note           string `json:"note,omitempty" yaml:"note,omitempty"`

	// Graph records how the item was derived, including the full source
	// text. It can be rebuilt by converting the source again.
	Graph []GraphEntry `json:"_graph,omitempty" yaml:"-"`

	// Extra holds members the typed fields cannot represent exactly, as
	// compact JSON keyed by CSL field name: unknown fields, and known
	// fields whose value has another shape (a numeric volume, a raw date).
	// They are written back unchanged and win over the typed field of the
	// same name.
	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// itemFields is Item without its methods.
type itemFields Item

// fieldIndex maps CSL field names to Item field indexes.
var fieldIndex = func() map[string]int {
	t := reflect.TypeFor[itemFields]()
	idx := make(map[string]int, t.NumField())
	for i := range t.NumField() {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			idx[name] = i
		}
	}
	return idx
}()

// UnmarshalJSON decodes a CSL-JSON object. Members that do not fit the
// typed fields are kept in Extra instead of failing the decode.
func (it *Item) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}

	var out itemFields
	v := reflect.ValueOf(&out).Elem()
	for name, raw := range members {
		if i, ok := fieldIndex[name]; ok {
			field := reflect.New(v.Field(i).Type())
			if err := json.Unmarshal(raw, field.Interface()); err == nil {
				v.Field(i).Set(field.Elem())
				if sameJSON(raw, field.Interface()) {
					continue
				}
			}
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return err
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[name] = buf.Bytes()
	}
	*it = Item(out)
	return nil
}

// MarshalJSON encodes the typed fields and then overlays Extra.
func (it Item) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(itemFields(it))
	if err != nil || len(it.Extra) == 0 {
		return data, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	maps.Copy(members, it.Extra)
	return json.Marshal(members)
}

// MarshalYAML writes the same members as MarshalJSON, minus _graph.
func (it Item) MarshalYAML() (any, error) {
	if len(it.Extra) == 0 {
		return itemFields(it), nil
	}
	data, err := it.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var members map[string]any
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	delete(members, "_graph")
	return members, nil
}

// sameJSON reports whether v encodes to the same JSON value as raw.
func sameJSON(raw json.RawMessage, v any) bool {
	enc, err := json.Marshal(v)
	if err != nil {
		return false
	}
	var a, b any
	if json.Unmarshal(raw, &a) != nil || json.Unmarshal(enc, &b) != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// Name is a person's name in CSL format.
type Name struct {
	Family  string `json:"family,omitempty" yaml:"family,omitempty"`
	Given   string `json:"given,omitempty" yaml:"given,omitempty"`
	Literal string `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// Date is a date in CSL format using date-parts.
type Date struct {
	DateParts [][]int `json:"date-parts" yaml:"date-parts"`
}

// GraphEntry is one conversion step.
type GraphEntry struct {
	Type string `json:"type" yaml:"type"`
	Data string `json:"data,omitempty" yaml:"data,omitempty"`
}

// FormatYAML writes items as a CSL-YAML list to w.
func FormatYAML(items []Item, w io.Writer) error {
	if items == nil {
		items = []Item{}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// FormatJSON writes items as an indented CSL-JSON array to w.
func FormatJSON(items []Item, w io.Writer) error {
	if items == nil {
		items = []Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
