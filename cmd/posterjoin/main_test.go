package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"posterjoin/internal/fetch"
	"posterjoin/internal/filter"
	"posterjoin/internal/posters"
	"posterjoin/internal/testsupport"
)

func writeDataset(t *testing.T, env *cliTestEnv, baseURL string) {
	t.Helper()
	testsupport.WriteJoinCSV(t, env.cfg.Paths.JoinCSV,
		[]string{"42", "tt1", "tt2", baseURL + "/a.jpg"},
		[]string{"7", "tt7", "tt7", baseURL + "/gone.jpg"},
	)
	testsupport.WriteLines(t, env.cfg.Paths.Ratings,
		"7::42::5::999999999",
		"7::99::3::999999999",
		"8::7::4::978300760",
		"9::42::2::978300761",
	)
	testsupport.WriteLines(t, env.cfg.Paths.Movies, "7::Toy Story (1995)::Animation", "42::Heat (1995)::Action", "99::Casino (1995)::Drama")
	testsupport.WriteLines(t, env.cfg.Paths.Users, "7::F::1::10::48067", "8::M::56::16::70072", "9::M::25::15::55117")
}

func newPosterServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("jpeg"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchFilterAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	srv := newPosterServer(t)
	writeDataset(t, env, srv.URL)

	out, _, err := runCLI(t, []string{"fetch", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var fetched fetch.Summary
	if err := json.Unmarshal([]byte(out), &fetched); err != nil {
		t.Fatalf("decode fetch summary: %v\n%s", err, out)
	}
	if fetched.Distinct != 3 || fetched.Downloaded != 1 || fetched.Missing != 1 || fetched.Failed != 1 {
		t.Fatalf("unexpected fetch summary: %+v", fetched)
	}
	if got := testsupport.ReadFile(t, posters.Path(env.cfg.Paths.PosterDir, "42")); got != "jpeg" {
		t.Fatalf("unexpected poster content %q", got)
	}

	out, _, err = runCLI(t, []string{"filter", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	var filtered filter.Summary
	if err := json.Unmarshal([]byte(out), &filtered); err != nil {
		t.Fatalf("decode filter summary: %v\n%s", err, out)
	}
	if filtered.Retained != 2 || filtered.RatingsRead != 4 || filtered.Movies != 3 || filtered.Users != 3 {
		t.Fatalf("unexpected filter summary: %+v", filtered)
	}
	if got := testsupport.ReadFile(t, env.cfg.Paths.Output); got != "7::42::5::999999999\n9::42::2::978300761" {
		t.Fatalf("unexpected output %q", got)
	}

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if len(view.Runs) != 2 {
		t.Fatalf("expected two runs, got %+v", view.Runs)
	}
	for _, run := range view.Runs {
		if run.Status != "completed" {
			t.Fatalf("unexpected run status: %+v", run)
		}
	}
	if view.LatestFetch == nil || view.LatestFetch.RunID != fetched.RunID {
		t.Fatalf("unexpected latest fetch: %+v", view.LatestFetch)
	}
	if view.LatestFetch.Counts["downloaded"] != 1 || len(view.LatestFetch.MissingIDs) != 1 || view.LatestFetch.MissingIDs[0] != "99" {
		t.Fatalf("unexpected latest fetch outcomes: %+v", view.LatestFetch)
	}
	if len(view.LatestFetch.FailedIDs) != 1 || view.LatestFetch.FailedIDs[0] != "7" {
		t.Fatalf("unexpected failed ids: %+v", view.LatestFetch.FailedIDs)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status table: %v", err)
	}
	requireContains(t, out, "Recent runs")
	requireContains(t, out, "Latest fetch")
	requireContains(t, out, "99")
}

func TestFetchTableOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	srv := newPosterServer(t)
	writeDataset(t, env, srv.URL)

	out, _, err := runCLI(t, []string{"fetch"}, env.configPath)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	requireContains(t, out, "Fetch summary")
	requireContains(t, out, "Distinct movies")
	requireContains(t, out, "retried on the next fetch run")
}

func TestFetchDryRunLeavesPosterDirAlone(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDataset(t, env, "http://127.0.0.1:1")

	out, _, err := runCLI(t, []string{"fetch", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("fetch --dry-run: %v", err)
	}
	requireContains(t, out, "dry run")
	if _, err := os.Stat(env.cfg.Paths.PosterDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run created poster dir, stat err=%v", err)
	}
	if _, err := os.Stat(env.cfg.Paths.StateDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run created state dir, stat err=%v", err)
	}
}

func TestFetchPosterDirFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	srv := newPosterServer(t)
	writeDataset(t, env, srv.URL)
	altDir := filepath.Join(env.baseDir, "alt-posters")

	if _, _, err := runCLI(t, []string{"fetch", "--poster-dir", altDir}, env.configPath); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(posters.Path(altDir, "42")); err != nil {
		t.Fatalf("expected poster in override dir: %v", err)
	}
	if _, err := os.Stat(posters.Path(env.cfg.Paths.PosterDir, "42")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("configured poster dir should be unused, stat err=%v", err)
	}
}

func TestFilterFailureIsRecorded(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDataset(t, env, "http://127.0.0.1:1")
	testsupport.WriteLines(t, env.cfg.Paths.Ratings, "7::42::5::1", "broken line")
	testsupport.WritePoster(t, env.cfg.Paths.PosterDir, "42")

	if _, _, err := runCLI(t, []string{"filter"}, env.configPath); err == nil {
		t.Fatal("expected filter to fail on malformed ratings")
	}
	if _, err := os.Stat(env.cfg.Paths.Output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("output must not exist after failure, stat err=%v", err)
	}

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(view.Runs) != 1 || view.Runs[0].Status != "failed" || view.Runs[0].Error == "" {
		t.Fatalf("expected one failed run, got %+v", view.Runs)
	}
	if view.LatestFetch != nil {
		t.Fatalf("no fetch run expected, got %+v", view.LatestFetch)
	}
}

func TestStatusWithoutRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	srv := newPosterServer(t)

	if _, _, err := runCLI(t, []string{"check", "--offline"}, env.configPath); err == nil {
		t.Fatal("expected check to fail before the dataset exists")
	}

	writeDataset(t, env, srv.URL)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Readiness")
	requireContains(t, out, "Poster source")
}
