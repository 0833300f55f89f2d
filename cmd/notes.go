package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a note on the server and cache it",
	Args:  cobra.NoArgs,
	RunE:  runCreate,
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a note on the server and cache it",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note on the server and from the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Drop cached notes that no longer exist on the server",
	Long: `Walk every page of the remote feed and remove cached notes the server no
longer returns. Notes that are returned are refreshed in place.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the notes API is reachable",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(createCmd, updateCmd, deleteCmd, reconcileCmd, healthCmd)

	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().String("title", "", "note title")
		c.Flags().String("content", "", "note content")
		_ = c.MarkFlagRequired("title")
	}
}

func runCreate(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	content, _ := cmd.Flags().GetString("content")

	return withApplication(cmd.Context(), func(app *application) error {
		note, err := app.notes.Create(cmd.Context(), title, content)
		if err != nil {
			return err
		}
		return printJSON(cmd, note)
	})
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseNoteID(args[0])
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	content, _ := cmd.Flags().GetString("content")

	return withApplication(cmd.Context(), func(app *application) error {
		note, err := app.notes.Update(cmd.Context(), id, title, content)
		if err != nil {
			return err
		}
		return printJSON(cmd, note)
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseNoteID(args[0])
	if err != nil {
		return err
	}

	return withApplication(cmd.Context(), func(app *application) error {
		if err := app.notes.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted note %d\n", id)
		return nil
	})
}

func runReconcile(cmd *cobra.Command, args []string) error {
	return withApplication(cmd.Context(), func(app *application) error {
		result, err := app.notes.Reconcile(cmd.Context(), cfg.EffectivePageSize())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pages=%d remote=%d removed=%d\n", result.Pages, result.Remote, result.Removed)
		return nil
	})
}

func runHealth(cmd *cobra.Command, args []string) error {
	return withApplication(cmd.Context(), func(app *application) error {
		if err := app.client.Health(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	})
}

func parseNoteID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id %q", arg)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
