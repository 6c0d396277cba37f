package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var dataDirFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &dataDirFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "notebook",
		Short:         "Notes with AI summaries, tags and reviewed categories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Override the data directory")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Write results as JSON")

	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newEditCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newSummarizeCommand(ctx))
	rootCmd.AddCommand(newTagCommand(ctx))
	rootCmd.AddCommand(newCategorizeCommand(ctx))
	rootCmd.AddCommand(newReviewCommand(ctx))
	rootCmd.AddCommand(newTagsCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newReindexCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	closeAfterRun(rootCmd, ctx)
	return rootCmd
}

// closeAfterRun releases the store and index once a command finishes,
// including when it fails.
func closeAfterRun(cmd *cobra.Command, ctx *commandContext) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			defer ctx.close()
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		closeAfterRun(sub, ctx)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
