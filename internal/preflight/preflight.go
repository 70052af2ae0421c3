package preflight

import (
	"context"
	"net/http"
	"path/filepath"

	"posterjoin/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every readiness check for the given config. client is
// used to probe the poster source; a nil client skips that probe.
func RunAll(ctx context.Context, cfg *config.Config, client *http.Client) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckFileReadable("Join table", cfg.Paths.JoinCSV),
		CheckFileReadable("Ratings", cfg.Paths.Ratings),
		CheckFileReadable("Movies", cfg.Paths.Movies),
		CheckFileReadable("Users", cfg.Paths.Users),
		CheckDirectoryAccess("Poster directory", cfg.Paths.PosterDir),
		CheckDirectoryAccess("Output directory", filepath.Dir(cfg.Paths.Output)),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	if client != nil {
		results = append(results, CheckPosterSource(ctx, client, cfg.Paths.JoinCSV))
	}
	return results
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
