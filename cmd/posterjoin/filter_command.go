package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"posterjoin/internal/config"
	"posterjoin/internal/filter"
	"posterjoin/internal/ledger"
)

func newFilterCommand(ctx *commandContext) *cobra.Command {
	var overrides config.Overrides
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Append ratings for movies that have a poster",
		Long: `Append every ratings line whose movie has a poster file to the output.

Lines keep their content and order. The output is opened in append mode, so
running the filter twice duplicates its contents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Override(overrides); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(true)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			f := filter.New(filter.OptionsFromConfig(cfg), logger)
			runID := newRunID()
			var summary filter.Summary
			err = trackRun(commandCtx(cmd), store, ledger.RunFilter, runID, func() (any, error) {
				var runErr error
				summary, runErr = f.Run(commandCtx(cmd), runID)
				return summary, runErr
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			printFilterSummary(cmd, summary, cfg.Paths.Output)
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.Movies, "movies", "", "Movie metadata (movie::title::genres)")
	cmd.Flags().StringVar(&overrides.Users, "users", "", "User metadata (user::gender::age::occupation::zip)")
	cmd.Flags().StringVar(&overrides.Ratings, "ratings", "", "Ratings log (user::movie::score::timestamp)")
	cmd.Flags().StringVar(&overrides.PosterDir, "poster-dir", "", "Directory holding mov_id<id>.jpg files")
	cmd.Flags().StringVar(&overrides.Output, "output", "", "Filtered ratings file, appended to")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func printFilterSummary(cmd *cobra.Command, summary filter.Summary, output string) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Filter summary", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderMetrics([]metric{
		{label: "Run", value: summary.RunID},
		intMetric("Movies", summary.Movies),
		intMetric("Users", summary.Users),
		intMetric("Posters", summary.PosterCount),
		intMetric("Ratings read", summary.RatingsRead),
		intMetric("Ratings kept", summary.Retained),
		{label: "Bytes appended", value: fmt.Sprintf("%d", summary.BytesWritten)},
	}))

	if summary.Retained == 0 {
		fmt.Fprintln(out, renderStatusLine("Output", statusWarn, "no ratings matched a poster; nothing written", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Output", statusOK, output, colorize))
	}
	if len(summary.IgnoredPosters) > 0 {
		fmt.Fprintln(out, renderStatusLine("Ignored posters", statusWarn, summarizeIDs(summary.IgnoredPosters), colorize))
	}
}
