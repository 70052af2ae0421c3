package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"posterjoin/internal/ledger"
)

type runView struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type fetchView struct {
	RunID      string         `json:"run_id"`
	Counts     map[string]int `json:"counts"`
	MissingIDs []string       `json:"missing_ids,omitempty"`
	FailedIDs  []string       `json:"failed_ids,omitempty"`
}

type statusView struct {
	Runs        []runView  `json:"runs"`
	LatestFetch *fetchView `json:"latest_fetch,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent runs and the latest fetch outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Ledger.Enabled {
				return errors.New("status: the run ledger is disabled (set ledger.enabled = true)")
			}
			store, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := loadStatusView(cmd, store, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			printStatus(cmd, view)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}

func loadStatusView(cmd *cobra.Command, store *ledger.Store, limit int) (statusView, error) {
	ctx := commandCtx(cmd)
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return statusView{}, err
	}
	view := statusView{Runs: make([]runView, 0, len(runs))}
	for _, run := range runs {
		rv := runView{
			ID:        run.ID,
			Kind:      string(run.Kind),
			Status:    string(run.Status),
			StartedAt: run.StartedAt,
			Summary:   run.Summary,
			Error:     run.Error,
		}
		if !run.FinishedAt.IsZero() {
			finished := run.FinishedAt
			rv.FinishedAt = &finished
		}
		view.Runs = append(view.Runs, rv)
	}

	latest, ok, err := store.LatestRun(ctx, ledger.RunFetch)
	if err != nil || !ok {
		return view, err
	}
	counts, err := store.OutcomeCounts(ctx, latest.ID)
	if err != nil {
		return view, err
	}
	fv := &fetchView{RunID: latest.ID, Counts: make(map[string]int, len(counts))}
	for kind, count := range counts {
		fv.Counts[string(kind)] = count
	}
	if fv.MissingIDs, err = outcomeIDs(cmd, store, latest.ID, ledger.OutcomeMissing); err != nil {
		return view, err
	}
	if fv.FailedIDs, err = outcomeIDs(cmd, store, latest.ID, ledger.OutcomeFailed); err != nil {
		return view, err
	}
	view.LatestFetch = fv
	return view, nil
}

func outcomeIDs(cmd *cobra.Command, store *ledger.Store, runID string, kind ledger.OutcomeKind) ([]string, error) {
	outcomes, err := store.Outcomes(commandCtx(cmd), runID, kind)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		ids = append(ids, o.MovieID)
	}
	return ids, nil
}

func printStatus(cmd *cobra.Command, view statusView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Recent runs", colorize) {
		fmt.Fprintln(out, line)
	}
	if len(view.Runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(view.Runs))
	for _, run := range view.Runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Kind,
			run.Status,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Kind", "Status", "Started", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
	for _, run := range view.Runs {
		if run.Error != "" {
			fmt.Fprintln(out, renderStatusLine(shortID(run.ID), statusError, run.Error, colorize))
		}
	}

	if view.LatestFetch == nil {
		return
	}
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Latest fetch "+shortID(view.LatestFetch.RunID), colorize) {
		fmt.Fprintln(out, line)
	}
	kinds := make([]string, 0, len(view.LatestFetch.Counts))
	for kind := range view.LatestFetch.Counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	outcomeRows := make([][]string, 0, len(kinds))
	for _, kind := range kinds {
		outcomeRows = append(outcomeRows, []string{kind, strconv.Itoa(view.LatestFetch.Counts[kind])})
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Movies"}, outcomeRows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintln(out, renderStatusLine("Missing", countStatus(len(view.LatestFetch.MissingIDs)), summarizeIDs(view.LatestFetch.MissingIDs), colorize))
	fmt.Fprintln(out, renderStatusLine("Failed", countStatus(len(view.LatestFetch.FailedIDs)), summarizeIDs(view.LatestFetch.FailedIDs), colorize))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
