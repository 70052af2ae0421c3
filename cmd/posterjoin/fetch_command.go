package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"posterjoin/internal/config"
	"posterjoin/internal/fetch"
	"posterjoin/internal/ledger"
	"posterjoin/internal/posters"
)

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var overrides config.Overrides
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download posters for every movie in the ratings log",
		Long: `Download the poster of every distinct movie referenced by the ratings log.

Poster URLs come from the join table. Existing posters are kept, movies
without a join entry are reported as missing, and failed downloads are
logged and retried on the next run.`,
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
			if !dryRun {
				if err := cfg.EnsureDirectories(); err != nil {
					return err
				}
			}
			logger, err := ctx.ensureLogger(!dryRun)
			if err != nil {
				return err
			}

			var store *ledger.Store
			if !dryRun {
				store, err = ctx.openLedger(cfg)
				if err != nil {
					return err
				}
				if store != nil {
					defer store.Close()
				}
			}

			opts := fetch.OptionsFromConfig(cfg)
			opts.DryRun = dryRun
			downloader := posters.NewDownloader(posters.DownloaderOptions{
				Timeout:           cfg.FetchTimeout(),
				UserAgent:         cfg.Fetch.UserAgent,
				RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
				Burst:             cfg.Fetch.Burst,
			})
			var recorder fetch.Recorder
			if store != nil {
				recorder = store
			}
			fetcher := fetch.New(opts, downloader, recorder, logger)

			runID := newRunID()
			var summary fetch.Summary
			err = trackRun(commandCtx(cmd), store, ledger.RunFetch, runID, func() (any, error) {
				var runErr error
				summary, runErr = fetcher.Run(commandCtx(cmd), runID)
				return summary, runErr
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, summary)
			}
			printFetchSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&overrides.JoinCSV, "join-csv", "", "Join table mapping movie ids to poster URLs")
	cmd.Flags().StringVar(&overrides.Ratings, "ratings", "", "Ratings log (user::movie::score::timestamp)")
	cmd.Flags().StringVar(&overrides.PosterDir, "poster-dir", "", "Directory receiving mov_id<id>.jpg files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report planned downloads without fetching")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

func printFetchSummary(cmd *cobra.Command, summary fetch.Summary) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	title := "Fetch summary"
	if summary.DryRun {
		title = "Fetch plan (dry run)"
	}
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	metrics := []metric{
		{label: "Run", value: summary.RunID},
		intMetric("Join rows", summary.JoinRows),
		intMetric("Join rows skipped", summary.JoinSkipped),
		intMetric("Distinct movies", summary.Distinct),
		intMetric("Downloaded", summary.Downloaded),
		intMetric("Already present", summary.Present),
		intMetric("Missing source", summary.Missing),
		intMetric("Failed", summary.Failed),
	}
	if summary.DryRun {
		metrics = append(metrics, intMetric("Planned", summary.Planned))
	}
	fmt.Fprintln(out, renderMetrics(metrics))

	fmt.Fprintln(out, renderStatusLine("Missing", countStatus(summary.Missing), summarizeIDs(summary.MissingIDs), colorize))
	failedKind := statusOK
	if summary.Failed > 0 {
		failedKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind, summarizeIDs(summary.FailedIDs), colorize))
	if summary.Failed > 0 {
		fmt.Fprintln(out, "Failed downloads are retried on the next fetch run.")
	}
}
