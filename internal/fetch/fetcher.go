package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"posterjoin/internal/config"
	"posterjoin/internal/dataset"
	"posterjoin/internal/fileutil"
	"posterjoin/internal/ledger"
	"posterjoin/internal/logging"
	"posterjoin/internal/posters"
)

// LockName is the lock file held inside the poster directory during a run.
const LockName = ".posterjoin.lock"

// Event types attached to fetch warnings.
const (
	EventPosterMissing     = "poster_missing"
	EventPosterFetchFailed = "poster_fetch_failed"
)

// Downloader stores the image at url as the poster for movieID in dir.
type Downloader interface {
	Download(ctx context.Context, url, dir, movieID string) (int64, error)
}

// Recorder persists per-movie outcomes. *ledger.Store satisfies it.
type Recorder interface {
	RecordOutcome(ctx context.Context, runID string, outcome ledger.Outcome) error
}

// Options locates the fetch inputs and poster directory.
type Options struct {
	JoinCSV   string
	Ratings   string
	PosterDir string
	// DryRun resolves every movie without downloading or writing.
	DryRun bool
}

// OptionsFromConfig builds Options from resolved configuration paths.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		JoinCSV:   cfg.Paths.JoinCSV,
		Ratings:   cfg.Paths.Ratings,
		PosterDir: cfg.Paths.PosterDir,
	}
}

// Summary reports the result of a fetch run.
type Summary struct {
	RunID       string   `json:"run_id"`
	DryRun      bool     `json:"dry_run,omitempty"`
	JoinRows    int      `json:"join_rows"`
	JoinSkipped int      `json:"join_skipped"`
	Distinct    int      `json:"distinct"`
	Missing     int      `json:"missing"`
	Downloaded  int      `json:"downloaded"`
	Present     int      `json:"present"`
	Failed      int      `json:"failed"`
	Planned     int      `json:"planned,omitempty"`
	Bytes       int64    `json:"bytes"`
	MissingIDs  []string `json:"missing_ids,omitempty"`
	FailedIDs   []string `json:"failed_ids,omitempty"`
}

// Fetcher retrieves posters for the movies in a ratings log.
type Fetcher struct {
	opts       Options
	downloader Downloader
	recorder   Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a Fetcher. recorder may be nil when no ledger is kept.
func New(opts Options, downloader Downloader, recorder Recorder, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fetcher{
		opts:       opts,
		downloader: downloader,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// Run performs one fetch pass. Only malformed input, an unreadable file, a
// held lock, a ledger write failure or cancellation end the run early.
func (f *Fetcher) Run(ctx context.Context, runID string) (Summary, error) {
	summary := Summary{RunID: runID, DryRun: f.opts.DryRun}
	if f.downloader == nil && !f.opts.DryRun {
		return summary, errors.New("fetch: downloader is required")
	}
	logger := logging.NewRunLogger(f.logger, "fetch", runID)

	table, stats, err := dataset.ReadJoinTable(f.opts.JoinCSV, logger)
	if err != nil {
		return summary, err
	}
	summary.JoinRows = stats.Rows
	summary.JoinSkipped = stats.Skipped
	logger.Info("join table loaded",
		logging.String("path", f.opts.JoinCSV),
		logging.Int("rows", stats.Rows),
		logging.Int("skipped", stats.Skipped),
		logging.Int("movies", stats.Movies),
	)

	if !f.opts.DryRun {
		lock, err := fileutil.AcquireLock(filepath.Join(f.opts.PosterDir, LockName))
		if err != nil {
			return summary, fmt.Errorf("lock poster directory: %w", err)
		}
		logger.Debug("poster directory locked", logging.String("lock", lock.Path()))
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Debug("release poster lock", logging.Error(err))
			}
		}()
	}

	seen := make(map[string]struct{})
	err = dataset.EachRatedMovie(f.opts.Ratings, func(_ int, movieID string) error {
		if _, ok := seen[movieID]; ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[movieID] = struct{}{}
		summary.Distinct++
		outcome := f.resolve(ctx, logger, table, movieID)
		outcome.Seq = summary.Distinct
		if ctxErr := ctx.Err(); ctxErr != nil && outcome.Kind == ledger.OutcomeFailed {
			return ctxErr
		}
		summary.add(outcome)
		return f.record(ctx, runID, outcome)
	})
	if err != nil {
		if ctx.Err() == nil {
			logging.ErrorWithContext(logger, "poster fetch aborted", "fetch_aborted",
				logging.Int("distinct", summary.Distinct),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the reported input line and rerun fetch"),
			)
		}
		return summary, err
	}

	logger.Info("poster fetch finished",
		logging.String(logging.FieldEventType, "fetch_complete"),
		logging.Int("distinct", summary.Distinct),
		logging.Int("missing", summary.Missing),
		logging.Int("downloaded", summary.Downloaded),
		logging.Int("present", summary.Present),
		logging.Int("failed", summary.Failed),
		logging.Int("planned", summary.Planned),
	)
	return summary, nil
}

func (f *Fetcher) resolve(ctx context.Context, logger *slog.Logger, table dataset.JoinTable, movieID string) ledger.Outcome {
	outcome := ledger.Outcome{MovieID: movieID, RecordedAt: f.now()}
	movieLogger := logger.With(logging.String(logging.FieldMovieID, movieID))

	url, ok := table[movieID]
	if !ok {
		outcome.Kind = ledger.OutcomeMissing
		logging.WarnWithContext(movieLogger, "no poster source for movie", EventPosterMissing,
			logging.String(logging.FieldErrorHint, "add a row for this movie to the join table"),
			logging.String(logging.FieldImpact, "ratings for this movie are dropped by the filter"),
		)
		return outcome
	}
	outcome.SourceURL = url

	target := posters.Path(f.opts.PosterDir, movieID)
	exists, err := fileutil.Exists(target)
	if err != nil {
		outcome.Kind = ledger.OutcomeFailed
		outcome.Error = err.Error()
		logging.WarnWithContext(movieLogger, "poster path not accessible", EventPosterFetchFailed,
			logging.String("path", target),
			logging.Error(err),
		)
		return outcome
	}
	if exists {
		outcome.Kind = ledger.OutcomePresent
		movieLogger.Debug("poster already present", logging.String("path", target))
		return outcome
	}

	if f.opts.DryRun {
		outcome.Kind = ledger.OutcomePlanned
		movieLogger.Info("would download poster", logging.String("url", url))
		return outcome
	}

	written, err := f.downloader.Download(ctx, url, f.opts.PosterDir, movieID)
	outcome.Bytes = written
	if err != nil {
		outcome.Kind = ledger.OutcomeFailed
		outcome.Error = err.Error()
		if ctx.Err() == nil {
			logging.WarnWithContext(movieLogger, "poster download failed", EventPosterFetchFailed,
				logging.String("url", url),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the poster URL; the next run retries it"),
				logging.String(logging.FieldImpact, "movie has no poster until a later run succeeds"),
			)
		}
		return outcome
	}
	outcome.Kind = ledger.OutcomeDownloaded
	movieLogger.Info("poster downloaded",
		logging.String("url", url),
		logging.Int64("bytes", written),
	)
	return outcome
}

func (f *Fetcher) record(ctx context.Context, runID string, outcome ledger.Outcome) error {
	if f.recorder == nil {
		return nil
	}
	if err := f.recorder.RecordOutcome(ctx, runID, outcome); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

func (s *Summary) add(outcome ledger.Outcome) {
	switch outcome.Kind {
	case ledger.OutcomeMissing:
		s.Missing++
		s.MissingIDs = append(s.MissingIDs, outcome.MovieID)
	case ledger.OutcomePresent:
		s.Present++
	case ledger.OutcomePlanned:
		s.Planned++
	case ledger.OutcomeFailed:
		s.Failed++
		s.FailedIDs = append(s.FailedIDs, outcome.MovieID)
	case ledger.OutcomeDownloaded:
		s.Downloaded++
		s.Bytes += outcome.Bytes
	}
}
