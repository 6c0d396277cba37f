package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/enrich"
	"github.com/pbaille/notebook/internal/taxonomy"
)

type generateFunc func(ctx context.Context, svc *enrich.Service, id int64, force bool) (enrich.Result, error)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	return newGenerateCommand(ctx, "summarize <id>", "Generate the summary of an entry", false,
		func(c context.Context, svc *enrich.Service, id int64, _ bool) (enrich.Result, error) {
			return svc.GenerateSummary(c, id)
		},
		func(r enrich.Result) string { return r.Entry.Summary.Text },
	)
}

func newTagCommand(ctx *commandContext) *cobra.Command {
	return newGenerateCommand(ctx, "tag <id>", "Generate tags for an entry", true,
		func(c context.Context, svc *enrich.Service, id int64, force bool) (enrich.Result, error) {
			return svc.GenerateTags(c, id, force)
		},
		func(r enrich.Result) string {
			if !r.Entry.HasTags() {
				return "(no tags)"
			}
			return strings.Join(r.Entry.Tags.Tags, ", ")
		},
	)
}

func newCategorizeCommand(ctx *commandContext) *cobra.Command {
	return newGenerateCommand(ctx, "categorize <id>", "Classify an entry into the category taxonomy", true,
		func(c context.Context, svc *enrich.Service, id int64, force bool) (enrich.Result, error) {
			return svc.GenerateCategory(c, id, force)
		},
		func(r enrich.Result) string {
			cat := r.Entry.Category
			return fmt.Sprintf("%s (confidence %.2f)", cat.Category, cat.Confidence)
		},
	)
}

// newGenerateCommand builds one of the enrichment commands. Summaries have
// no force flag: an existing summary is never replaced.
func newGenerateCommand(ctx *commandContext, use, short string, forceable bool, run generateFunc, describe func(enrich.Result) string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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
			res, err := run(cmd.Context(), nb.Enricher, id, force)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"entry": res.Entry, "generated": res.Generated})
			}
			out := cmd.OutOrStdout()
			if !res.Generated {
				fmt.Fprintln(out, "Kept existing value")
			}
			fmt.Fprintln(out, describe(res))
			return nil
		},
	}
	if forceable {
		cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing value")
	}
	return cmd
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Review the category of an entry",
	}

	var reason string
	overrideCmd := &cobra.Command{
		Use:   "override <id> <label>",
		Short: "Replace the AI category with a reviewer label",
		Long:  "Replace the AI category with a reviewer label. Labels:\n  " + overrideLabels(),
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.Join(args[1:], " ")
			return runReview(cmd, ctx, args[0], func(c context.Context, svc *enrich.Service, id int64) (*domain.Entry, error) {
				return svc.SetCategoryOverride(c, id, label, reason)
			})
		},
	}
	overrideCmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the AI category was wrong")

	clearCmd := &cobra.Command{
		Use:   "clear <id>",
		Short: "Remove the override and return to the AI category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, ctx, args[0], func(c context.Context, svc *enrich.Service, id int64) (*domain.Entry, error) {
				return svc.ClearCategoryOverride(c, id)
			})
		},
	}

	markCmd := &cobra.Command{
		Use:   "mark <id>",
		Short: "Confirm the AI category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, ctx, args[0], func(c context.Context, svc *enrich.Service, id int64) (*domain.Entry, error) {
				return svc.MarkCategoryReviewed(c, id)
			})
		},
	}

	labelsCmd := &cobra.Command{
		Use:   "labels",
		Short: "List the AI categories and reviewer labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"categories": taxonomy.Categories(),
					"overrides":  taxonomy.OverrideOptions(),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "AI categories:")
			for _, c := range taxonomy.Categories() {
				fmt.Fprintf(out, "  %s\n", c)
			}
			fmt.Fprintln(out, "Reviewer labels:")
			for _, o := range taxonomy.OverrideOptions() {
				fmt.Fprintf(out, "  %s\n", o)
			}
			return nil
		},
	}

	reviewCmd.AddCommand(overrideCmd, clearCmd, markCmd, labelsCmd)
	return reviewCmd
}

func runReview(cmd *cobra.Command, ctx *commandContext, rawID string, apply func(context.Context, *enrich.Service, int64) (*domain.Entry, error)) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	nb, err := ctx.notebook()
	if err != nil {
		return err
	}
	entry, err := apply(cmd.Context(), nb.Enricher, id)
	if err != nil {
		return err
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, entry)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Entry %d: %s (%s)\n", entry.ID, displayCategory(entry), entry.Review.Status)
	return nil
}

func overrideLabels() string {
	options := taxonomy.OverrideOptions()
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = string(o)
	}
	return strings.Join(labels, "\n  ")
}
