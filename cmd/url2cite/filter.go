// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/url2cite/internal/fetch"
	"github.com/pdiddy/url2cite/internal/filter"
	"github.com/pdiddy/url2cite/internal/pandoc"
)

// runFilter reads a pandoc document from stdin, rewrites it, and writes it
// to stdout. Nothing is written on failure.
func runFilter(cmd *cobra.Command, args []string) error {
	var format string
	if len(args) > 0 {
		format = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := fetch.NewClient(cfg.Fetch, fetch.WithLogger(logger))
	cache, closeCache := openCache(cfg.Cache, client, logger)
	defer closeCache()

	doc, err := pandoc.Decode(bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	f := filter.New(cache, filter.Options{LinkOutput: cfg.Filter.LinkOutput, Logger: logger})
	if err := f.Run(cmd.Context(), doc, format); err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	if err := pandoc.Encode(w, doc); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return w.Flush()
}
