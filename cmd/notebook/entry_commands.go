package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/notebook/internal/api"
	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/fetcher"
	"github.com/pbaille/notebook/internal/store"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var rawURL string
	var noEnrich bool

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a new entry",
		Long: "Add a note, or ingest a web page with --url (a bare URL argument works too).\n" +
			"The entry is summarized, tagged and categorized unless --no-enrich is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			if rawURL == "" && fetcher.IsURL(content) {
				rawURL, content = strings.TrimSpace(content), ""
			}
			if rawURL == "" && strings.TrimSpace(title) == "" {
				title = firstLine(content)
			}

			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			entry, err := nb.AddEntry(cmd.Context(), api.AddEntryRequest{Title: title, Content: content, URL: rawURL})
			if err != nil {
				return err
			}

			if !noEnrich {
				entry = enrichAll(cmd, nb, entry)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added entry %d\n", entry.ID)
			printEntry(cmd.OutOrStdout(), entry)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Entry title (defaults to the first line of content)")
	cmd.Flags().StringVarP(&rawURL, "url", "u", "", "Fetch the entry from a web page")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip summary, tags and category generation")
	return cmd
}

// enrichAll fills every derived field. Failures are reported and skipped so
// the new entry is kept either way.
func enrichAll(cmd *cobra.Command, nb *api.Notebook, entry *domain.Entry) *domain.Entry {
	steps := []struct {
		name string
		run  func() (*domain.Entry, error)
	}{
		{"summary", func() (*domain.Entry, error) {
			res, err := nb.Enricher.GenerateSummary(cmd.Context(), entry.ID)
			return res.Entry, err
		}},
		{"tags", func() (*domain.Entry, error) {
			res, err := nb.Enricher.GenerateTags(cmd.Context(), entry.ID, false)
			return res.Entry, err
		}},
		{"category", func() (*domain.Entry, error) {
			res, err := nb.Enricher.GenerateCategory(cmd.Context(), entry.ID, false)
			return res.Entry, err
		}},
	}
	for _, step := range steps {
		updated, err := step.run()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "(%s skipped: %v)\n", step.name, err)
			continue
		}
		entry = updated
	}
	return entry
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var query string
	var sortBy string
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			result, err := nb.Store.ListEntries(cmd.Context(), store.ListQuery{Query: query, Sort: sortBy, Page: page})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			if result.Total == 0 {
				fmt.Fprintln(out, "No entries found")
				return nil
			}
			rows := make([][]string, 0, len(result.Entries))
			for i := range result.Entries {
				e := &result.Entries[i]
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					truncate(e.Title, 48),
					displayCategory(e),
					string(e.Review.Status),
					strings.Join(e.TagNames(), ", "),
					e.UpdatedAt.Local().Format("2006-01-02"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Category", "Review", "Tags", "Updated"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "Page %d of %d (%d entries)\n", result.Page, result.PageCount, result.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by text in title or content")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort by created or updated")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an entry with its derived fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			entry, err := nb.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entry)
			}
			printEntry(cmd.OutOrStdout(), entry)
			return nil
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var title string
	var content string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or content of an entry",
		Long:  "Change the title or content of an entry. Derived fields are kept; regenerate them with --force.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			current, err := nb.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			req := api.UpdateEntryRequest{Title: current.Title, Content: current.Content}
			if cmd.Flags().Changed("title") {
				req.Title = title
			}
			if cmd.Flags().Changed("content") {
				req.Content = content
			}
			entry, err := nb.UpdateEntry(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated entry %d\n", entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			nb, err := ctx.notebook()
			if err != nil {
				return err
			}
			if err := nb.DeleteEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %d\n", id)
			return nil
		},
	}
}

func printEntry(out io.Writer, e *domain.Entry) {
	fmt.Fprintf(out, "ID:       %d\n", e.ID)
	fmt.Fprintf(out, "Title:    %s\n", e.Title)
	if e.SourceURL != "" {
		fmt.Fprintf(out, "Source:   %s\n", e.SourceURL)
	}
	fmt.Fprintf(out, "Created:  %s\n", e.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Updated:  %s\n", e.UpdatedAt.Local().Format(time.DateTime))

	if e.HasSummary() {
		fmt.Fprintf(out, "\nSummary:  %s\n", e.Summary.Text)
	}
	if e.HasTags() {
		fmt.Fprintf(out, "Tags:     %s\n", strings.Join(e.Tags.Tags, ", "))
	}
	if category := displayCategory(e); category != "-" {
		fmt.Fprintf(out, "Category: %s (%s)\n", category, e.Review.Status)
		if e.Review.HasOverride() && e.HasCategory() {
			fmt.Fprintf(out, "          AI said %s\n", e.Category.Category)
		}
		if e.Review.OverrideReason != "" {
			fmt.Fprintf(out, "          reason: %s\n", e.Review.OverrideReason)
		}
	}

	if strings.TrimSpace(e.Content) != "" {
		fmt.Fprintf(out, "\n%s\n", e.Content)
	}
}

func displayCategory(e *domain.Entry) string {
	if c := e.EffectiveCategory(); c != "" {
		return c
	}
	return "-"
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", raw)
	}
	return id, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(strings.TrimSpace(s), 80)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
