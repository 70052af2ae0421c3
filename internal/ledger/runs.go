package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, kind, status, started_at, finished_at, summary_json, error_message"

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, id string, kind RunKind, startedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("begin run: id is required")
	}
	if err := s.exec(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
		id, string(kind), string(RunRunning), formatTime(startedAt),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and summary. A non-nil runErr marks the
// run failed.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, summary any, runErr error) error {
	status := RunCompleted
	var message string
	if runErr != nil {
		status = RunFailed
		message = runErr.Error()
	}
	var summaryJSON any
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshal run summary: %w", err)
		}
		summaryJSON = string(data)
	}
	if err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, summary_json = ?, error_message = ? WHERE id = ?`,
		string(status), formatTime(finishedAt), summaryJSON, nullableString(message), id,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordOutcome stores what happened to one movie during a fetch run.
func (s *Store) RecordOutcome(ctx context.Context, runID string, outcome Outcome) error {
	recorded := outcome.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	if err := s.exec(ctx,
		`INSERT INTO fetch_outcomes (run_id, seq, movie_id, outcome, source_url, bytes, error_message, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, outcome.Seq, outcome.MovieID, string(outcome.Kind),
		nullableString(outcome.SourceURL), outcome.Bytes, nullableString(outcome.Error), formatTime(recorded),
	); err != nil {
		return fmt.Errorf("record outcome for movie %s: %w", outcome.MovieID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run of the given kind.
func (s *Store) LatestRun(ctx context.Context, kind RunKind) (Run, bool, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE kind = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, string(kind))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// Outcomes returns the outcomes of a fetch run in ratings order. An empty
// kind returns every outcome.
func (s *Store) Outcomes(ctx context.Context, runID string, kind OutcomeKind) ([]Outcome, error) {
	query := `SELECT seq, movie_id, outcome, source_url, bytes, error_message, recorded_at
              FROM fetch_outcomes WHERE run_id = ?`
	args := []any{runID}
	if kind != "" {
		query += ` AND outcome = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			o        Outcome
			kindRaw  string
			source   sql.NullString
			errMsg   sql.NullString
			recorded sql.NullString
		)
		if err := rows.Scan(&o.Seq, &o.MovieID, &kindRaw, &source, &o.Bytes, &errMsg, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Kind = OutcomeKind(kindRaw)
		o.SourceURL = source.String
		o.Error = errMsg.String
		o.RecordedAt = parseTime(recorded)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// OutcomeCounts tallies outcomes of a fetch run by kind.
func (s *Store) OutcomeCounts(ctx context.Context, runID string) (map[OutcomeKind]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT outcome, COUNT(1) FROM fetch_outcomes WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := map[OutcomeKind]int{}
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[OutcomeKind(kind)] = count
	}
	return counts, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		kind        string
		status      string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		summary     sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(&run.ID, &kind, &status, &startedRaw, &finishedRaw, &summary, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	if summary.Valid {
		run.Summary = json.RawMessage(summary.String)
	}
	run.Error = errMsg.String
	return run, nil
}
