// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibcache

import (
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdiddy/url2cite/internal/csl"
)

// Banner is written to the info field of every new cache file.
const Banner = "Cache of bibliographic records fetched by url2cite, keyed by URL. " +
	"Entries are never refetched while present; edit or delete them freely."

// Record is one cached bibliographic record.
type Record struct {
	FetchedAt time.Time `json:"fetched"`
	RawSource []string  `json:"bibtex"`
	Parsed    csl.Item  `json:"csl"`
}

// Entry pairs a cached URL with its record.
type Entry struct {
	URL string
	Record
}

// URLMap holds records in insertion order.
type URLMap = orderedmap.OrderedMap[string, Record]

// File is the persisted form of the cache.
type File struct {
	Info string  `json:"_info"`
	URLs *URLMap `json:"urls"`
}

// NewFile returns an empty file carrying the default banner.
func NewFile() *File {
	return &File{Info: Banner, URLs: orderedmap.New[string, Record]()}
}

// newRecord builds the stored form of a fetched record: tabs in the raw
// source become four spaces, the source is split into lines, conversion
// provenance is dropped, and the item ID is set to url.
func newRecord(url, raw string, item csl.Item, fetchedAt time.Time) Record {
	item.ID = url
	item.Graph = nil
	return Record{
		FetchedAt: fetchedAt,
		RawSource: strings.Split(strings.ReplaceAll(raw, "\t", "    "), "\n"),
		Parsed:    item,
	}
}
