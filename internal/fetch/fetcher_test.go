package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"posterjoin/internal/config"
	"posterjoin/internal/dataset"
	"posterjoin/internal/fetch"
	"posterjoin/internal/fileutil"
	"posterjoin/internal/ledger"
	"posterjoin/internal/posters"
	"posterjoin/internal/testsupport"
)

type fakeDownloader struct {
	calls []string
	fail  map[string]error
}

func (f *fakeDownloader) Download(_ context.Context, url, dir, movieID string) (int64, error) {
	f.calls = append(f.calls, movieID)
	if err := f.fail[movieID]; err != nil {
		return 0, err
	}
	body := []byte("jpeg:" + url)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(posters.Path(dir, movieID), body, 0o644); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

func newFetcher(cfg *config.Config, downloader fetch.Downloader, recorder fetch.Recorder) *fetch.Fetcher {
	return fetch.New(fetch.OptionsFromConfig(cfg), downloader, recorder, nil)
}

func TestRunDownloadsPosterFromJoinedURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/x/a.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("poster-bytes"))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV, []string{"42", "tt1", "tt2", srv.URL, "x", "a.jpg"})
	testsupport.WriteLines(t, cfg.Paths.Ratings, "7::42::5::999999999")

	downloader := posters.NewDownloader(posters.DownloaderOptions{Client: srv.Client()})
	summary, err := newFetcher(cfg, downloader, nil).Run(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Distinct != 1 || summary.Downloaded != 1 || summary.Missing != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := testsupport.ReadFile(t, posters.Path(cfg.Paths.PosterDir, "42")); got != "poster-bytes" {
		t.Fatalf("unexpected poster content %q", got)
	}
	if summary.Bytes != int64(len("poster-bytes")) {
		t.Fatalf("unexpected byte count %d", summary.Bytes)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}
}

func TestRunCountsMoviesWithoutJoinEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV,
		[]string{"42", "tt1", "tt2", "http://x/a.jpg"},
		[]string{"5", "tt5", "tt5", ""},
	)
	testsupport.WriteLines(t, cfg.Paths.Ratings,
		"7::42::5::999999999",
		"7::99::3::999999999",
		"8::5::4::999999999",
	)

	downloader := &fakeDownloader{}
	summary, err := newFetcher(cfg, downloader, nil).Run(context.Background(), "run-missing")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Missing != 2 || !reflect.DeepEqual(summary.MissingIDs, []string{"99", "5"}) {
		t.Fatalf("unexpected missing: %+v", summary)
	}
	if summary.JoinSkipped != 1 {
		t.Fatalf("expected the empty join row to be skipped, got %+v", summary)
	}
	if !reflect.DeepEqual(downloader.calls, []string{"42"}) {
		t.Fatalf("unexpected downloads: %v", downloader.calls)
	}
	if ok, _ := fileutil.Exists(posters.Path(cfg.Paths.PosterDir, "99")); ok {
		t.Fatal("no poster expected for movie 99")
	}
}

func TestRunVisitsEachMovieOnceInFirstOccurrenceOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV,
		[]string{"1", "a", "b", "http://x/1.jpg"},
		[]string{"2", "a", "b", "http://x/2.jpg"},
		[]string{"3", "a", "b", "http://x/3.jpg"},
	)
	testsupport.WriteLines(t, cfg.Paths.Ratings,
		"1::3::5::1", "2::1::5::1", "3::3::4::1", "4::2::1::1", "5::1::2::1",
	)

	downloader := &fakeDownloader{}
	summary, err := newFetcher(cfg, downloader, nil).Run(context.Background(), "run-once")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Distinct != 3 {
		t.Fatalf("expected 3 distinct movies, got %d", summary.Distinct)
	}
	if !reflect.DeepEqual(downloader.calls, []string{"3", "1", "2"}) {
		t.Fatalf("unexpected visit order: %v", downloader.calls)
	}
}

func TestRunSkipsExistingPosters(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV, []string{"42", "a", "b", "http://x/a.jpg"})
	testsupport.WriteLines(t, cfg.Paths.Ratings, "7::42::5::999999999")

	downloader := &fakeDownloader{}
	fetcher := newFetcher(cfg, downloader, nil)
	if _, err := fetcher.Run(context.Background(), "first"); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	summary, err := fetcher.Run(context.Background(), "second")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Present != 1 || summary.Downloaded != 0 {
		t.Fatalf("unexpected second summary: %+v", summary)
	}
	if len(downloader.calls) != 1 {
		t.Fatalf("expected a single download across runs, got %v", downloader.calls)
	}
}

func TestRunContinuesAfterFailedDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV,
		[]string{"1", "a", "b", srv.URL + "/missing.jpg"},
		[]string{"2", "a", "b", srv.URL + "/found.jpg"},
	)
	testsupport.WriteLines(t, cfg.Paths.Ratings, "1::1::5::1", "1::2::5::1")

	downloader := posters.NewDownloader(posters.DownloaderOptions{Client: srv.Client()})
	summary, err := newFetcher(cfg, downloader, nil).Run(context.Background(), "run-fail")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 || summary.Downloaded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !reflect.DeepEqual(summary.FailedIDs, []string{"1"}) {
		t.Fatalf("unexpected failed ids: %v", summary.FailedIDs)
	}
	if ok, _ := fileutil.Exists(posters.Path(cfg.Paths.PosterDir, "1")); ok {
		t.Fatal("failed download must not leave a poster behind")
	}
	entries, err := os.ReadDir(cfg.Paths.PosterDir)
	if err != nil {
		t.Fatalf("read poster dir: %v", err)
	}
	for _, entry := range entries {
		if entry.Name() != "mov_id2.jpg" && entry.Name() != fetch.LockName {
			t.Fatalf("unexpected leftover %s", entry.Name())
		}
	}
}

func TestRunRejectsMalformedRatings(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV, []string{"42", "a", "b", "http://x/a.jpg"})
	testsupport.WriteLines(t, cfg.Paths.Ratings, "7::42::5::1", "garbage")

	_, err := newFetcher(cfg, &fakeDownloader{}, nil).Run(context.Background(), "run-bad")
	if !errors.Is(err, dataset.ErrMalformedLine) {
		t.Fatalf("expected malformed line error, got %v", err)
	}
	var lineErr *dataset.LineError
	if !errors.As(err, &lineErr) || lineErr.Line != 2 {
		t.Fatalf("expected error on line 2, got %v", err)
	}
}

func TestRunDryRunPlansWithoutWriting(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV, []string{"42", "a", "b", "http://x/a.jpg"})
	testsupport.WriteLines(t, cfg.Paths.Ratings, "7::42::5::1", "7::99::5::1")

	opts := fetch.OptionsFromConfig(cfg)
	opts.DryRun = true
	summary, err := fetch.New(opts, nil, nil, nil).Run(context.Background(), "dry")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Planned != 1 || summary.Missing != 1 || !summary.DryRun {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, err := os.Stat(cfg.Paths.PosterDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run must not create the poster dir, stat err=%v", err)
	}
}

func TestRunRefusesHeldLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutLedger())
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV, []string{"42", "a", "b", "http://x/a.jpg"})
	testsupport.WriteLines(t, cfg.Paths.Ratings, "7::42::5::1")

	lock, err := fileutil.AcquireLock(filepath.Join(cfg.Paths.PosterDir, fetch.LockName))
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	_, err = newFetcher(cfg, &fakeDownloader{}, nil).Run(context.Background(), "locked")
	if !errors.Is(err, fileutil.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunRecordsOneOutcomePerMovie(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV,
		[]string{"1", "a", "b", "http://x/1.jpg"},
		[]string{"2", "a", "b", "http://x/2.jpg"},
	)
	testsupport.WriteLines(t, cfg.Paths.Ratings, "1::2::5::1", "2::1::5::1", "3::2::5::1", "4::7::5::1")
	testsupport.WritePoster(t, cfg.Paths.PosterDir, "1")

	ctx := context.Background()
	if err := store.BeginRun(ctx, "run-ledger", ledger.RunFetch, time.Now()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	downloader := &fakeDownloader{}
	if _, err := newFetcher(cfg, downloader, store).Run(ctx, "run-ledger"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	outcomes, err := store.Outcomes(ctx, "run-ledger", "")
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	var got []string
	for _, o := range outcomes {
		got = append(got, o.MovieID+":"+string(o.Kind))
	}
	want := []string{"2:downloaded", "1:present", "7:missing"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected outcomes: %v", got)
	}
}

type cancelingDownloader struct {
	cancel context.CancelFunc
	calls  []string
}

func (d *cancelingDownloader) Download(ctx context.Context, _, _, movieID string) (int64, error) {
	d.calls = append(d.calls, movieID)
	d.cancel()
	return 0, ctx.Err()
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	testsupport.WriteJoinCSV(t, cfg.Paths.JoinCSV,
		[]string{"1", "a", "b", "http://x/1.jpg"},
		[]string{"2", "a", "b", "http://x/2.jpg"},
	)
	testsupport.WriteLines(t, cfg.Paths.Ratings, "1::1::5::1", "1::2::5::1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := store.BeginRun(context.Background(), "run-cancel", ledger.RunFetch, time.Now()); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	downloader := &cancelingDownloader{cancel: cancel}
	summary, err := newFetcher(cfg, downloader, store).Run(ctx, "run-cancel")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(downloader.calls) != 1 {
		t.Fatalf("expected the run to stop after one download, got %v", downloader.calls)
	}
	if summary.Failed != 0 || len(summary.FailedIDs) != 0 {
		t.Fatalf("interrupted movie must not count as failed: %+v", summary)
	}
	outcomes, err := store.Outcomes(context.Background(), "run-cancel", "")
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("interrupted movie must not be recorded: %+v", outcomes)
	}
}
