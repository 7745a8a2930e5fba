// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pandoc models the pandoc JSON document tree as a closed set of node
// variants, decodes and encodes it, and walks it depth-first for filters.
//
// Only the node kinds url2cite rewrites are modelled explicitly. Everything
// else decodes to Other, whose payload keeps nested nodes decoded so that a
// walk still reaches every node in the tree.
package pandoc

// Node is one tagged element of the document tree.
type Node interface {
	// Tag returns the pandoc constructor name (e.g. "Para", "Link").
	Tag() string
	isNode()
}

// Para is a paragraph block.
type Para struct {
	Content []Node
}

// Cite is a citation inline: the references it makes plus the inlines
// pandoc renders when citation processing is off.
type Cite struct {
	Citations []Citation
	Content   []Node
}

// Link is a hyperlink inline.
type Link struct {
	Attr    Attr
	Content []Node
	Target  Target
}

// Str is a run of text without spaces.
type Str struct {
	Text string
}

// SoftBreak is a line break in the source that renders as a space.
type SoftBreak struct{}

// Space is an inter-word space.
type Space struct{}

// Other is any node kind not modelled above. Content holds the decoded "c"
// payload: strings, json.Number, bools, []any, map[string]any and Node values.
type Other struct {
	Name       string
	Content    any
	HasContent bool
}

func (Para) Tag() string      { return "Para" }
func (Cite) Tag() string      { return "Cite" }
func (Link) Tag() string      { return "Link" }
func (Str) Tag() string       { return "Str" }
func (SoftBreak) Tag() string { return "SoftBreak" }
func (Space) Tag() string     { return "Space" }
func (o Other) Tag() string   { return o.Name }

func (Para) isNode()      {}
func (Cite) isNode()      {}
func (Link) isNode()      {}
func (Str) isNode()       {}
func (SoftBreak) isNode() {}
func (Space) isNode()     {}
func (Other) isNode()     {}

// Attr is the (identifier, classes, key-value pairs) triple pandoc attaches
// to links, spans, divs and headers.
type Attr struct {
	ID      string
	Classes []string
	KeyVals [][2]string
}

// HasClass reports whether class is among the attribute classes.
func (a Attr) HasClass(class string) bool {
	for _, c := range a.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Target is a link destination and its title.
type Target struct {
	URL   string
	Title string
}

// CitationMode is how a citation is rendered in text.
type CitationMode string

const (
	NormalCitation CitationMode = "NormalCitation"
	AuthorInText   CitationMode = "AuthorInText"
	SuppressAuthor CitationMode = "SuppressAuthor"
)

// Citation is one reference inside a Cite node.
type Citation struct {
	ID      string
	Prefix  []Node
	Suffix  []Node
	Mode    CitationMode
	NoteNum int
	Hash    int
}

// Meta is the document metadata, keyed by field name. Values are
// MetaString, MetaInlines, MetaList, MetaMap, MetaBool or MetaBlocks nodes.
type Meta map[string]Node

// Document is a complete pandoc JSON document.
type Document struct {
	APIVersion []int
	Meta       Meta
	Blocks     []Node
}
