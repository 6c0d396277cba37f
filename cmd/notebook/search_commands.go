package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			tags, err := nb.Store.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, tags)
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tags yet")
				return nil
			}
			rows := make([][]string, 0, len(tags))
			for _, t := range tags {
				rows = append(rows, []string{t.Name, strconv.Itoa(t.Entries)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tag", "Entries"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			results, err := nb.Search(query, limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No matches")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "[%d] %s", r.ID, r.Title)
				if r.Category != "" {
					fmt.Fprintf(out, " (%s)", r.Category)
				}
				fmt.Fprintf(out, "  %.2f\n", r.Score)
				for _, fragments := range r.Fragments {
					for _, f := range fragments {
						fmt.Fprintf(out, "    %s\n", strings.TrimSpace(f))
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	return cmd
}

func newReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			n, err := nb.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d entries\n", n)
			return nil
		},
	}
}
