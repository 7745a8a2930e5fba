// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citekey maps short author-chosen citation keys to the URLs they
// stand for.
package citekey

import (
	"fmt"
	"log/slog"
)

// Table holds the citekey definitions found in one document. A key defined
// twice keeps the later URL; the overwrite is logged and recorded as a
// warning rather than rejected.
type Table struct {
	urls     map[string]string
	warnings []string
	log      *slog.Logger
}

// New returns an empty table. A nil logger discards output.
func New(log *slog.Logger) *Table {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Table{urls: make(map[string]string), log: log}
}

// Define records key → url, overwriting any previous definition.
func (t *Table) Define(key, url string) {
	if prev, ok := t.urls[key]; ok {
		msg := fmt.Sprintf("citekey %q defined more than once; %s replaces %s", key, url, prev)
		t.warnings = append(t.warnings, msg)
		t.log.Warn("duplicate citekey definition", "key", key, "previous", prev, "url", url)
	}
	t.urls[key] = url
}

// Lookup returns the URL for key.
func (t *Table) Lookup(key string) (string, bool) {
	url, ok := t.urls[key]
	return url, ok
}

// Len returns the number of defined keys.
func (t *Table) Len() int {
	return len(t.urls)
}

// Warnings returns the duplicate-definition warnings recorded so far.
func (t *Table) Warnings() []string {
	return t.warnings
}
