package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"note-sync/models"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Replace the cached feed with the first remote page",
	Long: `Fetch the first page of the feed and atomically replace every cached note
and the feed cursor with it.`,
	Args: cobra.NoArgs,
	RunE: runRefresh,
}

var appendCmd = &cobra.Command{
	Use:   "append",
	Short: "Fetch the next pages of the feed",
	Long: `Continue the feed from its stored cursor. Once the server has reported the
last page no network call is made until the next refresh.

Examples:
  note-sync append             # Fetch one more page
  note-sync append --pages 3   # Fetch up to three pages
  note-sync append --pages 0   # Fetch until the end of the feed`,
	Args: cobra.NoArgs,
	RunE: runAppend,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(appendCmd)

	appendCmd.Flags().Int("pages", 1, "number of pages to fetch (0 = until the end)")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	return withApplication(cmd.Context(), func(app *application) error {
		result := app.mediator.Load(cmd.Context(), cfg.Paging.Feed, models.LoadRefresh, cfg.EffectivePageSize())
		if result.Err != nil {
			return result.Err
		}
		return printFeedStatus(cmd, app, result.EndOfPaginationReached)
	})
}

func runAppend(cmd *cobra.Command, args []string) error {
	pages, _ := cmd.Flags().GetInt("pages")
	if pages < 0 {
		return fmt.Errorf("--pages must not be negative")
	}

	return withApplication(cmd.Context(), func(app *application) error {
		end := false
		for fetched := 0; pages == 0 || fetched < pages; fetched++ {
			result := app.mediator.Load(cmd.Context(), cfg.Paging.Feed, models.LoadAppend, cfg.EffectivePageSize())
			if result.Err != nil {
				return result.Err
			}
			if result.EndOfPaginationReached {
				end = true
				break
			}
		}
		return printFeedStatus(cmd, app, end)
	})
}

func printFeedStatus(cmd *cobra.Command, app *application, end bool) error {
	total, err := app.store.Count(cmd.Context(), false)
	if err != nil {
		return err
	}
	visible, err := app.store.Count(cmd.Context(), true)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "feed=%s cached=%d visible=%d end_of_pagination=%t\n",
		cfg.Paging.Feed, total, visible, end)
	return nil
}
