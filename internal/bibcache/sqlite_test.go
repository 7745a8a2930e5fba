// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bibcache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store := OpenSQLite(path)
	defer store.Close()

	c := openTestCache(t, store, &fakeFetcher{})
	urls := []string{"https://example.org/z", "https://example.org/a"}
	for _, u := range urls {
		require.NoError(t, c.Ensure(context.Background(), u))
	}

	reopened := OpenSQLite(path)
	defer reopened.Close()

	f, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, Banner, f.Info)
	require.Equal(t, 2, f.URLs.Len())
	assert.Equal(t, urls[0], f.URLs.Oldest().Key)
	assert.Equal(t, urls[1], f.URLs.Newest().Key)

	rec, ok := f.URLs.Get(urls[1])
	require.True(t, ok)
	assert.Equal(t, urls[1], rec.Parsed.ID)
	assert.True(t, fixedNow.Equal(rec.FetchedAt))
	want, _ := c.Get(urls[1])
	assert.Equal(t, want.RawSource, rec.RawSource)
}

func TestSQLiteStoreEmpty(t *testing.T) {
	store := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	defer store.Close()

	f, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Banner, f.Info)
	assert.Zero(t, f.URLs.Len())
}

func TestSQLiteSaveReplacesEntries(t *testing.T) {
	store := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	defer store.Close()

	f := NewFile()
	f.URLs.Set("https://example.org/a", Record{FetchedAt: fixedNow})
	f.URLs.Set("https://example.org/b", Record{FetchedAt: fixedNow})
	require.NoError(t, store.Save(f))

	f.URLs.Delete("https://example.org/a")
	require.NoError(t, store.Save(f))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 1, loaded.URLs.Len())
	assert.Equal(t, "https://example.org/b", loaded.URLs.Oldest().Key)
}

func TestSQLiteUnreadableDatabaseStartsEmptyAndIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citation-cache.db")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a database\n", 512)), 0o644))

	store := OpenSQLite(path)
	defer store.Close()
	_, err := store.Load()
	assert.Error(t, err)

	c := openTestCache(t, store, &fakeFetcher{})
	assert.Zero(t, c.Len())
	require.NoError(t, c.Ensure(context.Background(), "https://example.org/a"))

	reopened := OpenSQLite(path)
	defer reopened.Close()
	f, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, 1, f.URLs.Len())
	assert.Equal(t, "https://example.org/a", f.URLs.Oldest().Key)
}

func TestSQLiteKeepsCSLExtras(t *testing.T) {
	store := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	defer store.Close()

	f := NewFile()
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"fetched": "2024-01-01T00:00:00Z", "bibtex": [],
		"csl": {"id": "https://example.org/a", "type": "book", "volume": 12, "genre": "Novel"}}`), &rec))
	f.URLs.Set("https://example.org/a", rec)
	require.NoError(t, store.Save(f))

	loaded, err := store.Load()
	require.NoError(t, err)
	got, ok := loaded.URLs.Get("https://example.org/a")
	require.True(t, ok)
	assert.Equal(t, rec.Parsed, got.Parsed)
}
