// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package csl

import (
	"strconv"
	"strings"

	"github.com/nickng/bibtex"
)

// Graph entry types recorded by FromBibTeX.
const (
	GraphSourceText = "@bibtex/text"
	GraphBibEntry   = "@bibtex/entry"
)

// entryTypes maps lower-cased BibTeX/BibLaTeX entry types to CSL types.
// Unknown types fall back to "document".
var entryTypes = map[string]string{
	"article":       "article-journal",
	"book":          "book",
	"mvbook":        "book",
	"booklet":       "pamphlet",
	"inbook":        "chapter",
	"incollection":  "chapter",
	"inproceedings": "paper-conference",
	"conference":    "paper-conference",
	"proceedings":   "book",
	"manual":        "report",
	"techreport":    "report",
	"report":        "report",
	"mastersthesis": "thesis",
	"phdthesis":     "thesis",
	"thesis":        "thesis",
	"online":        "webpage",
	"electronic":    "webpage",
	"www":           "webpage",
	"unpublished":   "manuscript",
	"patent":        "patent",
	"dataset":       "dataset",
	"software":      "software",
	"misc":          "document",
}

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// FromBibTeX parses raw, which must describe exactly one entry, and
// returns it as a CSL item. The item's ID is the entry's cite name; callers
// that key items by something else overwrite it. Graph records the source
// text and the entry header.
func FromBibTeX(raw string) (Item, error) {
	bib, err := bibtex.Parse(strings.NewReader(raw))
	if err != nil {
		return Item{}, &ParseError{Err: err}
	}
	if len(bib.Entries) != 1 {
		return Item{}, &CardinalityError{Count: len(bib.Entries)}
	}
	entry := bib.Entries[0]

	fields := make(map[string]string, len(entry.Fields))
	for k, v := range entry.Fields {
		if v == nil {
			continue
		}
		fields[strings.ToLower(k)] = strings.TrimSpace(v.String())
	}

	kind := strings.ToLower(entry.Type)
	item := Item{
		ID:          entry.CiteName,
		Type:        cslType(kind, fields),
		CitationKey: entry.CiteName,
		Title:       cleanText(fields["title"]),
		Author:      parseNames(fields["author"]),
		Editor:      parseNames(fields["editor"]),
		Volume:      cleanText(fields["volume"]),
		Issue:       cleanText(first(fields, "number", "issue")),
		Page:        strings.ReplaceAll(cleanText(fields["pages"]), "--", "-"),
		Edition:     cleanText(fields["edition"]),
		DOI:         cleanText(fields["doi"]),
		ISBN:        cleanText(fields["isbn"]),
		ISSN:        cleanText(fields["issn"]),
		URL:         cleanText(fields["url"]),
		Language:    cleanText(first(fields, "langid", "language")),
		Abstract:    cleanText(fields["abstract"]),
		Note:        cleanText(first(fields, "note", "howpublished")),
		Publisher: cleanText(first(fields,
			"publisher", "institution", "organization", "school")),
		PublisherPlace: cleanText(first(fields, "address", "location")),
		ContainerTitle: cleanText(first(fields,
			"journal", "journaltitle", "booktitle", "series")),
		Issued:   issued(fields),
		Accessed: parseISODate(fields["urldate"]),
		Graph: []GraphEntry{
			{Type: GraphSourceText, Data: raw},
			{Type: GraphBibEntry, Data: entry.Type + "{" + entry.CiteName},
		},
	}

	// Report and patent numbers are identifiers, not journal issues.
	if item.Type == "report" || item.Type == "patent" {
		item.Number, item.Issue = item.Issue, ""
	}
	return item, nil
}

func cslType(kind string, fields map[string]string) string {
	t, ok := entryTypes[kind]
	if !ok {
		return "document"
	}
	if kind == "misc" && fields["url"] != "" && fields["journal"] == "" {
		return "webpage"
	}
	return t
}

// first returns the value of the first non-empty field among keys.
func first(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

// issued builds the publication date from an ISO date field or from
// year/month/day.
func issued(fields map[string]string) *Date {
	if d := parseISODate(fields["date"]); d != nil {
		return d
	}
	year, err := strconv.Atoi(cleanText(fields["year"]))
	if err != nil {
		return nil
	}
	parts := []int{year}
	if m := parseMonth(fields["month"]); m > 0 {
		parts = append(parts, m)
		if day, err := strconv.Atoi(cleanText(fields["day"])); err == nil && day > 0 {
			parts = append(parts, day)
		}
	}
	return &Date{DateParts: [][]int{parts}}
}

func parseMonth(s string) int {
	s = strings.ToLower(cleanText(s))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return n
	}
	if len(s) >= 3 {
		return months[s[:3]]
	}
	return 0
}

// parseISODate reads YYYY, YYYY-MM or YYYY-MM-DD. A time suffix is ignored.
func parseISODate(s string) *Date {
	s = cleanText(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return nil
	}
	var parts []int
	for _, p := range strings.SplitN(s, "-", 3) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		parts = append(parts, n)
	}
	return &Date{DateParts: [][]int{parts}}
}

// parseNames splits a BibTeX name list on top-level "and".
func parseNames(s string) []Name {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil
	}
	var names []Name
	for _, part := range splitTopLevel(s, " and ") {
		if n := parseName(part); n != (Name{}) {
			names = append(names, n)
		}
	}
	return names
}

// parseName handles "Last, First", "Last, Jr, First" and "First Last".
// A fully braced name is kept as a literal.
func parseName(s string) Name {
	s = strings.TrimSpace(s)
	if s == "" {
		return Name{}
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && braced(s) {
		return Name{Literal: cleanText(s[1 : len(s)-1])}
	}
	if parts := splitTopLevel(s, ","); len(parts) > 1 {
		return Name{
			Family: cleanText(parts[0]),
			Given:  cleanText(parts[len(parts)-1]),
		}
	}
	s = cleanText(s)
	idx := strings.LastIndex(s, " ")
	if idx < 0 {
		return Name{Literal: s}
	}
	return Name{Given: s[:idx], Family: s[idx+1:]}
}

// braced reports whether the opening brace of s closes at its last byte.
func braced(s string) bool {
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}

// splitTopLevel splits s on sep, ignoring occurrences inside braces.
// Matching is case-insensitive.
func splitTopLevel(s, sep string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 && i+len(sep) <= len(s) && strings.EqualFold(s[i:i+len(sep)], sep) {
			out = append(out, s[start:i])
			start = i + len(sep)
			i = start - 1
		}
	}
	return append(out, s[start:])
}

var latexEscapes = strings.NewReplacer(
	`\&`, "&",
	`\%`, "%",
	`\$`, "$",
	`\#`, "#",
	`\_`, "_",
	`\{`, "{",
	`\}`, "}",
	"{", "",
	"}", "",
)

// cleanText drops grouping braces, unescapes LaTeX specials and collapses
// whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(latexEscapes.Replace(s)), " ")
}
