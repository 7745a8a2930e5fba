// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pandoc

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "pandoc-api-version": [1, 23, 1],
  "meta": {
    "url2cite": {"t": "MetaInlines", "c": [{"t": "Str", "c": "all-links"}]},
    "draft": {"t": "MetaBool", "c": true}
  },
  "blocks": [
    {"t": "Para", "c": [
      {"t": "Cite", "c": [
        [{"citationId": "foo", "citationPrefix": [], "citationSuffix": [],
          "citationMode": {"t": "NormalCitation"}, "citationNoteNum": 1, "citationHash": 0}],
        [{"t": "Str", "c": "[@foo]"}]
      ]},
      {"t": "Str", "c": ":"},
      {"t": "Space"},
      {"t": "Str", "c": "https://example.org/y"}
    ]},
    {"t": "BulletList", "c": [[
      {"t": "Plain", "c": [
        {"t": "Emph", "c": [
          {"t": "Link", "c": [["", ["url2cite"], [["lang", "en"]]], [{"t": "Str", "c": "x"}], ["https://example.org/x", ""]]}
        ]}
      ]}
    ]]}
  ]
}`

func decodeSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	return doc
}

func TestDecodeTypedNodes(t *testing.T) {
	doc := decodeSample(t)

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, []int{1, 23, 1}, doc.APIVersion)

	para, ok := doc.Blocks[0].(Para)
	require.True(t, ok, "first block should be a Para, got %T", doc.Blocks[0])
	require.Len(t, para.Content, 4)

	cite, ok := para.Content[0].(Cite)
	require.True(t, ok)
	require.Len(t, cite.Citations, 1)
	assert.Equal(t, "foo", cite.Citations[0].ID)
	assert.Equal(t, NormalCitation, cite.Citations[0].Mode)
	assert.Equal(t, 1, cite.Citations[0].NoteNum)
	assert.Empty(t, cite.Citations[0].Prefix)

	assert.Equal(t, Str{Text: ":"}, para.Content[1])
	assert.Equal(t, Space{}, para.Content[2])

	list, ok := doc.Blocks[1].(Other)
	require.True(t, ok)
	assert.Equal(t, "BulletList", list.Tag())
}

func TestEncodeRoundTrip(t *testing.T) {
	doc := decodeSample(t)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.JSONEq(t, sampleDoc, buf.String())
}

func TestDecodeRejectsLegacyFormat(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"unMeta": {}}, []]`))
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedLink(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"pandoc-api-version":[1,23],"meta":{},"blocks":[{"t":"Para","c":[{"t":"Link","c":[]}]}]}`))
	assert.Error(t, err)
}

func TestWalkPreOrderVisitsEveryNode(t *testing.T) {
	doc := decodeSample(t)

	var tags []string
	err := Walk(context.Background(), doc, "html", func(_ context.Context, n Node, format string, _ Meta) (Node, error) {
		assert.Equal(t, "html", format)
		tags = append(tags, n.Tag())
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Para", "Cite", "Str", "Str", "Space", "Str",
		"BulletList", "Plain", "Emph", "Link", "Str",
	}, tags)
}

func TestWalkReplacesNodes(t *testing.T) {
	doc := decodeSample(t)

	err := Walk(context.Background(), doc, "html", func(_ context.Context, n Node, _ string, _ Meta) (Node, error) {
		if s, ok := n.(Str); ok && s.Text == "x" {
			return Str{Text: "replaced"}, nil
		}
		return nil, nil
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	assert.Contains(t, buf.String(), `"c":"replaced"`)
	assert.NotContains(t, buf.String(), `"c":"x"`)
}

func TestWalkVisitsChildrenOfReplacement(t *testing.T) {
	doc := &Document{
		APIVersion: []int{1, 23},
		Blocks:     []Node{Para{Content: []Node{Str{Text: "a"}}}},
	}

	var seen []string
	err := Walk(context.Background(), doc, "", func(_ context.Context, n Node, _ string, _ Meta) (Node, error) {
		switch v := n.(type) {
		case Para:
			return Para{Content: append([]Node{Str{Text: "new"}}, v.Content...)}, nil
		case Str:
			seen = append(seen, v.Text)
		}
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "a"}, seen)
}

func TestWalkErrorLeavesDocumentUntouched(t *testing.T) {
	doc := decodeSample(t)
	before := doc.Blocks[0]
	boom := errors.New("boom")

	err := Walk(context.Background(), doc, "html", func(_ context.Context, n Node, _ string, _ Meta) (Node, error) {
		if _, ok := n.(Link); ok {
			return nil, boom
		}
		if s, ok := n.(Str); ok {
			return Str{Text: s.Text + "!"}, nil
		}
		return nil, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, doc.Blocks[0])
}

func TestWalkHonoursCancellation(t *testing.T) {
	doc := decodeSample(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Walk(ctx, doc, "html", func(context.Context, Node, string, Meta) (Node, error) {
		t.Fatal("action should not run after cancellation")
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetaLookup(t *testing.T) {
	doc := decodeSample(t)

	v, ok := doc.Meta.Lookup("url2cite")
	require.True(t, ok)
	assert.Equal(t, "all-links", v)

	v, ok = doc.Meta.Lookup("draft")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = doc.Meta.Lookup("missing")
	assert.False(t, ok)
}

func TestMetaSetJSON(t *testing.T) {
	type person struct {
		Family string `json:"family"`
		Given  string `json:"given,omitempty"`
	}
	type item struct {
		ID     string   `json:"id"`
		Author []person `json:"author"`
		Year   int      `json:"year"`
	}

	meta := Meta{}
	require.NoError(t, meta.SetJSON("references", []item{
		{ID: "https://example.org/a", Author: []person{{Family: "Doe", Given: "Jane"}}, Year: 2020},
	}))

	v, ok := meta.Lookup("references")
	require.True(t, ok)
	assert.Equal(t, []any{
		map[string]any{
			"id":     "https://example.org/a",
			"author": []any{map[string]any{"family": "Doe", "given": "Jane"}},
			"year":   "2020",
		},
	}, v)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Document{APIVersion: []int{1, 23}, Meta: meta}))
	assert.Contains(t, buf.String(), `"t":"MetaList"`)
	assert.Contains(t, buf.String(), `"t":"MetaMap"`)
}

func TestStringify(t *testing.T) {
	inlines := []Node{
		Str{Text: "see"},
		Space{},
		Other{Name: "Emph", Content: []any{Str{Text: "this"}}, HasContent: true},
		SoftBreak{},
		Other{Name: "Code", Content: []any{[]any{"", []any{}, []any{}}, "x := 1"}, HasContent: true},
	}
	assert.Equal(t, "see this x := 1", Stringify(inlines))
}

func TestAttrHasClass(t *testing.T) {
	a := Attr{Classes: []string{"url2cite", "external"}}
	assert.True(t, a.HasClass("external"))
	assert.False(t, a.HasClass("no-url2cite"))
}
