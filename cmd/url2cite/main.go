// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the url2cite CLI. Run without a
// subcommand it is a pandoc JSON filter:
//
//	pandoc --filter url2cite --citeproc doc.md -o doc.html
//
// The cache subcommands inspect and maintain the bibliographic cache.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from log.level before any command runs. Output goes to
// stderr; stdout carries the document.
var logger = slog.New(slog.DiscardHandler)

// rootCmd is the pandoc filter.
var rootCmd = &cobra.Command{
	Use:   "url2cite [format]",
	Short: "Pandoc filter that turns links and URL citekeys into citations",
	Long: `url2cite reads a pandoc JSON document on stdin and writes it back on
stdout with every citation resolved to a URL. Citekeys are defined in the
document with lines like

  [@key]: https://example.org/page

Links opt in with the url2cite class or title word, or all links are cited
when the document metadata sets url2cite: all-links. Bibliographic records
are fetched once per URL and kept in citation-cache.json; every cached
record is added to the document's references metadata for --citeproc.

The optional argument is the output format pandoc passes to filters.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log.level"), os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug("using config file", "path", f)
		}
		return nil
	},
	RunE: runFilter,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./url2cite.yaml or ~/.config/url2cite/url2cite.yaml)")
	rootCmd.PersistentFlags().String("cache", "", "cache file (default: citation-cache.json)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default warn)")

	viper.BindPFlag("cache.path", rootCmd.PersistentFlags().Lookup("cache"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("url2cite")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "url2cite"))
		}
	}

	viper.SetEnvPrefix("URL2CITE")
	viper.SetEnvKeyReplacer(newKeyReplacer())
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "url2cite: reading config %s: %v\n", cfgFile, err)
	}
}

// newKeyReplacer maps config keys to environment names:
// fetch.rate_limit is read from URL2CITE_FETCH_RATE_LIMIT.
func newKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
