// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibcache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/url2cite/internal/csl"
	"github.com/pdiddy/url2cite/internal/fetch"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	calls []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (fetch.Result, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return fetch.Result{}, f.err
	}
	return fetch.Result{
		Raw: "@misc{key,\n\ttitle = {Title of " + url + "}\n}",
		Item: csl.Item{
			ID:    "key",
			Type:  "webpage",
			Title: "Title of " + url,
			Graph: []csl.GraphEntry{{Type: csl.GraphSourceText, Data: "raw"}},
		},
	}, nil
}

// countingStore wraps a Store and counts saves.
type countingStore struct {
	Store
	saves int
}

func (s *countingStore) Save(f *File) error {
	s.saves++
	return s.Store.Save(f)
}

func openTestCache(t *testing.T, store Store, fetcher Fetcher) *Cache {
	t.Helper()
	c := Open(store, fetcher, nil)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestEnsureFetchesAtMostOnce(t *testing.T) {
	ff := &fakeFetcher{}
	c := openTestCache(t, NewJSONFile(filepath.Join(t.TempDir(), "cache.json")), ff)

	ctx := context.Background()
	require.NoError(t, c.Ensure(ctx, "https://example.org/a"))
	require.NoError(t, c.Ensure(ctx, "https://example.org/a"))

	assert.Equal(t, []string{"https://example.org/a"}, ff.calls)
	assert.Equal(t, 1, c.Len())
}

func TestEnsurePersistsAfterEachNewEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	store := &countingStore{Store: NewJSONFile(path)}
	c := openTestCache(t, store, &fakeFetcher{})

	ctx := context.Background()
	require.NoError(t, c.Ensure(ctx, "https://example.org/a"))
	assert.Equal(t, 1, store.saves)

	// The file on disk already holds the first entry.
	reopened := Open(NewJSONFile(path), nil, nil)
	_, ok := reopened.Get("https://example.org/a")
	assert.True(t, ok)

	require.NoError(t, c.Ensure(ctx, "https://example.org/a"))
	assert.Equal(t, 1, store.saves, "cached URL must not trigger a save")

	require.NoError(t, c.Ensure(ctx, "https://example.org/b"))
	assert.Equal(t, 2, store.saves)
}

func TestOpenMissingOrCorruptStoreIsEmpty(t *testing.T) {
	dir := t.TempDir()

	missing := Open(NewJSONFile(filepath.Join(dir, "absent.json")), nil, nil)
	assert.Zero(t, missing.Len())

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"urls": {"x": `), 0o644))
	c := Open(NewJSONFile(corrupt), nil, nil)
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Entries())
}

func TestReloadPreservesEntriesAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := openTestCache(t, NewJSONFile(path), &fakeFetcher{})

	urls := []string{"https://example.org/c", "https://example.org/a", "https://example.org/b"}
	for _, u := range urls {
		require.NoError(t, c.Ensure(context.Background(), u))
	}

	reloaded := Open(NewJSONFile(path), nil, nil)
	var got []string
	for _, e := range reloaded.Entries() {
		got = append(got, e.URL)
	}
	assert.Equal(t, urls, got)

	before, _ := c.Get("https://example.org/a")
	after, ok := reloaded.Get("https://example.org/a")
	require.True(t, ok)
	assert.True(t, before.FetchedAt.Equal(after.FetchedAt))
	assert.Equal(t, before.RawSource, after.RawSource)
	assert.Equal(t, before.Parsed, after.Parsed)
}

func TestStoredRecordIsNormalised(t *testing.T) {
	c := openTestCache(t, NewJSONFile(filepath.Join(t.TempDir(), "cache.json")), &fakeFetcher{})
	url := "https://example.org/a"
	require.NoError(t, c.Ensure(context.Background(), url))

	rec, ok := c.Get(url)
	require.True(t, ok)
	assert.Equal(t, url, rec.Parsed.ID)
	assert.Nil(t, rec.Parsed.Graph)
	assert.Equal(t, []string{
		"@misc{key,",
		"    title = {Title of " + url + "}",
		"}",
	}, rec.RawSource)
	assert.True(t, fixedNow.Equal(rec.FetchedAt))
}

func TestEnsureFetchErrorIsReturnedAndNothingStored(t *testing.T) {
	fetchErr := &fetch.FetchError{URL: "https://example.org/x", StatusCode: 404}
	store := &countingStore{Store: NewJSONFile(filepath.Join(t.TempDir(), "cache.json"))}
	c := openTestCache(t, store, &fakeFetcher{err: fetchErr})

	err := c.Ensure(context.Background(), "https://example.org/x")

	var fe *fetch.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 404, fe.StatusCode)
	assert.Zero(t, c.Len())
	assert.Zero(t, store.saves)
}

func TestExistingEntryIsNeverRefetched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	handEdited := `{
	"_info": "hand written",
	"urls": {
		"https://example.org/a": {
			"fetched": "2020-01-01T00:00:00Z",
			"bibtex": ["@misc{a}"],
			"csl": {"id": "https://example.org/a", "type": "book", "title": "Edited Title"}
		}
	}
}`
	require.NoError(t, os.WriteFile(path, []byte(handEdited), 0o644))

	ff := &fakeFetcher{}
	c := openTestCache(t, NewJSONFile(path), ff)
	require.NoError(t, c.Ensure(context.Background(), "https://example.org/a"))

	assert.Empty(t, ff.calls)
	rec, ok := c.Get("https://example.org/a")
	require.True(t, ok)
	assert.Equal(t, "Edited Title", rec.Parsed.Title)
	assert.Equal(t, "book", rec.Parsed.Type)
}

func TestHandEditedCSLSurvivesRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	handEdited := `{
	"_info": "hand written",
	"urls": {
		"https://example.org/a": {
			"fetched": "2020-01-01T00:00:00Z",
			"bibtex": ["@misc{a}"],
			"csl": {"id": "https://example.org/a", "type": "post-weblog", "title": "Post",
				"volume": 12, "genre": "Blog post", "container-title-short": "Ex."}
		}
	}
}`
	require.NoError(t, os.WriteFile(path, []byte(handEdited), 0o644))

	ff := &fakeFetcher{}
	c := openTestCache(t, NewJSONFile(path), ff)
	require.Equal(t, 1, c.Len())
	require.NoError(t, c.Ensure(context.Background(), "https://example.org/a"))
	require.NoError(t, c.Ensure(context.Background(), "https://new.example/"))
	assert.Equal(t, []string{"https://new.example/"}, ff.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved struct {
		URLs map[string]struct {
			CSL map[string]any `json:"csl"`
		} `json:"urls"`
	}
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved.URLs, 2)
	old := saved.URLs["https://example.org/a"].CSL
	assert.Equal(t, 12.0, old["volume"])
	assert.Equal(t, "Blog post", old["genre"])
	assert.Equal(t, "Ex.", old["container-title-short"])
	assert.Equal(t, "Post", old["title"])
}

func TestJSONFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := openTestCache(t, NewJSONFile(path), &fakeFetcher{})
	require.NoError(t, c.Ensure(context.Background(), "https://example.org/a"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "{\n\t\"_info\": "), out)
	for _, key := range []string{`"urls"`, `"fetched"`, `"bibtex"`, `"csl"`, `"2026-03-01T12:00:00Z"`} {
		assert.Contains(t, out, key)
	}
	assert.NotContains(t, out, "_graph")
}

func TestEnsureWithoutFetcher(t *testing.T) {
	c := Open(NewJSONFile(filepath.Join(t.TempDir(), "cache.json")), nil, nil)
	assert.Error(t, c.Ensure(context.Background(), "https://example.org/a"))
}

func TestPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := openTestCache(t, NewJSONFile(path), &fakeFetcher{})
	ctx := context.Background()

	require.NoError(t, c.Ensure(ctx, "https://example.org/old"))
	c.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	require.NoError(t, c.Ensure(ctx, "https://example.org/new"))

	n, err := c.Prune(fixedNow.Add(24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reloaded := Open(NewJSONFile(path), nil, nil)
	require.Equal(t, 1, reloaded.Len())
	assert.Equal(t, "https://example.org/new", reloaded.Entries()[0].URL)

	n, err = c.Prune(fixedNow)
	require.NoError(t, err)
	assert.Zero(t, n)
}
