// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/url2cite/internal/bibcache"
	"github.com/pdiddy/url2cite/internal/csl"
	"github.com/pdiddy/url2cite/internal/fetch"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the bibliographic cache",
	Long: `Cache subcommands list, show, prefetch, export, and prune the records
the filter keeps in citation-cache.json (or the configured store).`,
}

// --- list subcommand ---

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached URLs",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

// listEntry is the JSON form of one list row.
type listEntry struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched"`
	Type      string    `json:"type"`
	Title     string    `json:"title,omitempty"`
}

func runCacheList(cmd *cobra.Command, args []string) error {
	cache, closeCache, err := openCacheFromConfig(false)
	if err != nil {
		return err
	}
	defer closeCache()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatCacheList(cmd.OutOrStdout(), cache.Entries(), jsonOutput)
}

func formatCacheList(w io.Writer, entries []bibcache.Entry, jsonOutput bool) error {
	if jsonOutput {
		rows := make([]listEntry, len(entries))
		for i, e := range entries {
			rows[i] = listEntry{URL: e.URL, FetchedAt: e.FetchedAt, Type: e.Parsed.Type, Title: e.Parsed.Title}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "Cache is empty.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-16s  %-50s  %s\n", "#", "Fetched", "Type", "URL", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, e := range entries {
		fmt.Fprintf(w, "%-4d  %-10s  %-16s  %-50s  %s\n",
			i+1, e.FetchedAt.Format(time.DateOnly), e.Parsed.Type,
			truncate(e.URL, 50), truncate(e.Parsed.Title, 40))
	}
	fmt.Fprintf(w, "\n%d entries\n", len(entries))
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

// --- show subcommand ---

var cacheShowCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "Print one cached record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheShow,
}

func runCacheShow(cmd *cobra.Command, args []string) error {
	cache, closeCache, err := openCacheFromConfig(false)
	if err != nil {
		return err
	}
	defer closeCache()

	rec, ok := cache.Get(args[0])
	if !ok {
		return fmt.Errorf("%s is not cached", args[0])
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// --- fetch subcommand ---

var cacheFetchCmd = &cobra.Command{
	Use:   "fetch <url>...",
	Short: "Fetch records for URLs into the cache",
	Long: `Fetch warms the cache ahead of a pandoc run. URLs already cached are
skipped. A failed URL does not stop the others; the command exits non-zero
if any failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCacheFetch,
}

// fetchSummary counts the outcome of a batch fetch.
type fetchSummary struct {
	Fetched int
	Skipped int
	Failed  int
}

func runCacheFetch(cmd *cobra.Command, args []string) error {
	cache, closeCache, err := openCacheFromConfig(true)
	if err != nil {
		return err
	}
	defer closeCache()

	sum := fetchBatch(cmd, cache, args)
	if sum.Failed > 0 {
		return fmt.Errorf("%d URL(s) failed", sum.Failed)
	}
	return nil
}

func fetchBatch(cmd *cobra.Command, cache *bibcache.Cache, urls []string) fetchSummary {
	w := cmd.OutOrStdout()
	var sum fetchSummary
	for _, u := range urls {
		if _, ok := cache.Get(u); ok {
			fmt.Fprintf(w, "skipped: %s (already cached)\n", u)
			sum.Skipped++
			continue
		}
		if err := cache.Ensure(cmd.Context(), u); err != nil {
			fmt.Fprintf(w, "failed: %s: %v\n", u, err)
			sum.Failed++
			continue
		}
		fmt.Fprintf(w, "fetched: %s\n", u)
		sum.Fetched++
	}
	fmt.Fprintf(w, "\n%d fetched, %d skipped, %d failed\n", sum.Fetched, sum.Skipped, sum.Failed)
	return sum
}

// --- export subcommand ---

var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cached records as a CSL bibliography",
	Long: `Export writes every cached record as CSL-YAML or CSL-JSON, suitable for
pandoc --bibliography. Output goes to stdout unless --output is given.`,
	Args: cobra.NoArgs,
	RunE: runCacheExport,
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	cache, closeCache, err := openCacheFromConfig(false)
	if err != nil {
		return err
	}
	defer closeCache()

	entries := cache.Entries()
	items := make([]csl.Item, len(entries))
	for i, e := range entries {
		items[i] = e.Parsed
	}

	w := cmd.OutOrStdout()
	if output != "" && output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml", "":
		err = csl.FormatYAML(items, w)
	case "json":
		err = csl.FormatJSON(items, w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	if output != "" && output != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records to %s\n", len(items), output)
	}
	return nil
}

// --- prune subcommand ---

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove records fetched longer ago than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetDuration("older-than")
	if age <= 0 {
		return fmt.Errorf("--older-than must be a positive duration (e.g. 720h)")
	}

	cache, closeCache, err := openCacheFromConfig(false)
	if err != nil {
		return err
	}
	defer closeCache()

	n, err := cache.Prune(time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries, %d remain\n", n, cache.Len())
	return nil
}

// --- shared helpers ---

// openCacheFromConfig loads configuration and opens the cache. withFetcher
// attaches a fetch client for commands that may fetch.
func openCacheFromConfig(withFetcher bool) (*bibcache.Cache, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	var fetcher bibcache.Fetcher
	if withFetcher {
		fetcher = fetch.NewClient(cfg.Fetch, fetch.WithLogger(logger))
	}
	cache, closeCache := openCache(cfg.Cache, fetcher, logger)
	return cache, closeCache, nil
}

func init() {
	cacheListCmd.Flags().Bool("json", false, "output entries as JSON")

	cacheExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	cacheExportCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	cachePruneCmd.Flags().Duration("older-than", 0, "remove records fetched before now minus this duration")

	cacheCmd.AddCommand(cacheListCmd, cacheShowCmd, cacheFetchCmd, cacheExportCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
