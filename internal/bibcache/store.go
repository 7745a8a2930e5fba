// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibcache

import (
	"encoding/json"
	"fmt"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Store loads and saves the whole cache.
type Store interface {
	Load() (*File, error)
	Save(f *File) error
}

// JSONFile stores the cache as a tab-indented JSON document. Saves rewrite
// the file in place.
type JSONFile struct {
	Path string
}

// DefaultPath is the cache file used when none is configured.
const DefaultPath = "citation-cache.json"

// NewJSONFile returns a store for path, or DefaultPath if path is empty.
func NewJSONFile(path string) *JSONFile {
	if path == "" {
		path = DefaultPath
	}
	return &JSONFile{Path: path}
}

func (s *JSONFile) Load() (*File, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	f := &File{URLs: orderedmap.New[string, Record]()}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.Path, err)
	}
	if f.URLs == nil {
		f.URLs = orderedmap.New[string, Record]()
	}
	return f, nil
}

func (s *JSONFile) Save(f *File) error {
	data, err := json.MarshalIndent(f, "", "\t")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.WriteFile(s.Path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	return nil
}
