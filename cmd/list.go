package cmd

import (
	"encoding/json"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"note-sync/models"
	"note-sync/repository"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cached notes",
	Long: `List notes from the local cache, newest first. Notes whose summary or
sentiment has not been computed yet are hidden unless --all is given.

Examples:
  note-sync list                   # Enriched notes only
  note-sync list --all             # Include notes still being enriched
  note-sync list --limit 5 --json  # First five as JSON`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("all", false, "include notes that are not enriched yet")
	listCmd.Flags().Int("limit", 0, "maximum number of notes (0 = no limit)")
	listCmd.Flags().Int("offset", 0, "number of notes to skip")
	listCmd.Flags().Bool("json", false, "output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return withApplication(cmd.Context(), func(app *application) error {
		notes, err := app.store.Query(cmd.Context(), repository.QueryOptions{
			EnrichedOnly: !all,
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(notes)
		}
		return outputNoteTable(cmd, notes)
	})
}

func outputNoteTable(cmd *cobra.Command, notes []models.Note) error {
	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header([]string{"ID", "CREATED", "OWNER", "SENTIMENT", "TITLE"})

	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		sentiment := "-"
		if n.SentimentScore != nil {
			sentiment = strconv.FormatFloat(*n.SentimentScore, 'f', 2, 64)
		}
		rows = append(rows, []string{strconv.FormatInt(n.ID, 10), n.CreatedAt, n.OwnerDisplayName, sentiment, n.Title})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
