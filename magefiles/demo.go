//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Demo renders testdata/example.md to HTML through pandoc with the filter
// and citeproc. Requires pandoc on PATH and network access for uncached
// URLs.
func Demo() error {
	mg.Deps(Build)

	filterBin, err := filepath.Abs(filepath.Join(binDir, binName))
	if err != nil {
		return err
	}
	out := filepath.Join(binDir, "example.html")
	if err := sh.RunV("pandoc", "testdata/example.md",
		"--filter", filterBin, "--citeproc", "--standalone", "-o", out); err != nil {
		return fmt.Errorf("pandoc: %w", err)
	}
	fmt.Printf("Rendered %s\n", out)
	return nil
}
