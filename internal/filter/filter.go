package filter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"posterjoin/internal/config"
	"posterjoin/internal/dataset"
	"posterjoin/internal/fileutil"
	"posterjoin/internal/logging"
	"posterjoin/internal/posters"
)

// LockSuffix is appended to the output path to name the run lock.
const LockSuffix = ".lock"

// Options locates the filter inputs and output.
type Options struct {
	Movies    string
	Users     string
	Ratings   string
	PosterDir string
	Output    string
}

// OptionsFromConfig builds Options from resolved configuration paths.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Movies:    cfg.Paths.Movies,
		Users:     cfg.Paths.Users,
		Ratings:   cfg.Paths.Ratings,
		PosterDir: cfg.Paths.PosterDir,
		Output:    cfg.Paths.Output,
	}
}

// Summary reports the result of a filter run.
type Summary struct {
	RunID          string   `json:"run_id"`
	Movies         int      `json:"movies"`
	Users          int      `json:"users"`
	PosterCount    int      `json:"poster_count"`
	IgnoredPosters []string `json:"ignored_posters,omitempty"`
	RatingsRead    int      `json:"ratings_read"`
	Retained       int      `json:"retained"`
	BytesWritten   int64    `json:"bytes_written"`
}

// Metadata holds the movie and user tables loaded before filtering. Filtering
// only consults the poster set; the tables are exposed for callers that
// enrich or report on the retained ratings.
type Metadata struct {
	Movies dataset.Movies
	Users  dataset.Users
}

// Filter appends poster-backed ratings to the output file.
type Filter struct {
	opts   Options
	logger *slog.Logger
}

// New constructs a Filter.
func New(opts Options, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Filter{opts: opts, logger: logger}
}

// LoadMetadata reads the movie and user tables.
func (f *Filter) LoadMetadata() (Metadata, error) {
	movies, err := dataset.ReadMovies(f.opts.Movies)
	if err != nil {
		return Metadata{}, err
	}
	users, err := dataset.ReadUsers(f.opts.Users)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Movies: movies, Users: users}, nil
}

// Run performs one filter pass. Any malformed input line aborts the run
// before the output is touched.
func (f *Filter) Run(ctx context.Context, runID string) (Summary, error) {
	summary := Summary{RunID: runID}
	logger := logging.NewRunLogger(f.logger, "filter", runID)

	lock, err := fileutil.AcquireLock(f.opts.Output + LockSuffix)
	if err != nil {
		return summary, fmt.Errorf("lock output: %w", err)
	}
	logger.Debug("output locked", logging.String("lock", lock.Path()))
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Debug("release output lock", logging.Error(err))
		}
	}()

	meta, err := f.LoadMetadata()
	if err != nil {
		return summary, err
	}
	summary.Movies = len(meta.Movies)
	summary.Users = len(meta.Users)
	logger.Info("metadata loaded",
		logging.Int("movies", summary.Movies),
		logging.Int("users", summary.Users),
	)

	scan, err := posters.Scan(f.opts.PosterDir)
	if err != nil {
		return summary, err
	}
	summary.PosterCount = len(scan.Posters)
	summary.IgnoredPosters = scan.Ignored
	for _, name := range scan.Ignored {
		logging.WarnWithContext(logger, "poster name has no integer movie id", "poster_name_invalid",
			logging.String("file", name),
			logging.String(logging.FieldErrorHint, "rename or remove the file"),
			logging.String(logging.FieldImpact, "file is not counted as a poster"),
		)
	}
	logger.Info("poster directory scanned",
		logging.String("path", f.opts.PosterDir),
		logging.Int("posters", summary.PosterCount),
	)

	var retained []string
	err = dataset.EachRating(f.opts.Ratings, func(r dataset.Rating) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.RatingsRead++
		if scan.Posters.Has(r.MovieID) {
			retained = append(retained, r.Raw)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() == nil {
			logging.ErrorWithContext(logger, "rating filter aborted", "filter_aborted",
				logging.Int("ratings_read", summary.RatingsRead),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the reported ratings line and rerun filter"),
			)
		}
		return summary, err
	}
	summary.Retained = len(retained)

	if len(retained) == 0 {
		logging.WarnWithContext(logger, "no ratings matched a poster", "filter_empty",
			logging.Int("ratings_read", summary.RatingsRead),
			logging.String(logging.FieldErrorHint, "run fetch first or check the poster directory"),
			logging.String(logging.FieldImpact, "output file left untouched"),
		)
		return summary, nil
	}

	last := len(retained) - 1
	retained[last] = strings.TrimRightFunc(retained[last], unicode.IsSpace)

	written, err := fileutil.AppendLines(f.opts.Output, retained)
	summary.BytesWritten = written
	if err != nil {
		return summary, fmt.Errorf("append filtered ratings: %w", err)
	}

	logger.Info("filtered ratings written",
		logging.String(logging.FieldEventType, "filter_complete"),
		logging.String("path", f.opts.Output),
		logging.Int("ratings_read", summary.RatingsRead),
		logging.Int("retained", summary.Retained),
		logging.Int64("bytes", written),
	)
	return summary, nil
}
