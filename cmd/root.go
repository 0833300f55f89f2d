// Package cmd contains all CLI commands for note-sync
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"note-sync/config"
	"note-sync/utils"
)

var (
	verbose  bool
	feedFlag string
	cfg      *config.Config
	logger   *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "note-sync",
	Short: "Local cache for the paged notes API",
	Long: `note-sync keeps a local SQLite cache in step with the remote notes API.

Reads are served from the cache; the cache is backfilled page by page from the
server and every request carries a bearer credential that is refreshed once on 401.

Example usage:
  note-sync refresh            # Re-download the first page of the feed
  note-sync append --pages 0   # Page through the feed until the server runs out
  note-sync list               # Print cached, fully enriched notes
  note-sync watch              # Follow the feed and serve /metrics`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&feedFlag, "feed", "", "feed name (default from NOTE_PAGING_FEED)")
}

// initConfig loads configuration from the environment and builds the logger.
func initConfig() error {
	var err error

	cfg, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger = utils.NewLogger(os.Stderr, level, cfg.LogFormat).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if feedFlag != "" {
		cfg.Paging.Feed = feedFlag
	}

	logger.Debug("configuration loaded",
		"db_path", cfg.Database.Path,
		"api_base_url", cfg.API.BaseURL,
		"feed", cfg.Paging.Feed,
		"page_size", cfg.EffectivePageSize(),
		"refresh_enabled", cfg.Auth.RefreshToken != "")

	return nil
}
