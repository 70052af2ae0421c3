package posters

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"posterjoin/internal/fileutil"
)

const (
	defaultDownloadTimeout = 30 * time.Second
	defaultUserAgent       = "posterjoin/dev"
)

// StatusError reports a non-2xx response from a poster source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
}

// DownloaderOptions configures a Downloader.
type DownloaderOptions struct {
	// Client overrides the HTTP client. Tests use it to inject a fake transport.
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	// RequestsPerSecond paces requests; zero or less disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// Downloader fetches poster images into a poster directory.
type Downloader struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewDownloader builds a Downloader with defaults for unset options.
func NewDownloader(opts DownloaderOptions) *Downloader {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultDownloadTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &Downloader{client: client, userAgent: userAgent, limiter: limiter}
}

// Download fetches url and stores it as the poster for movieID in dir. It
// returns the number of bytes written.
func (d *Downloader) Download(ctx context.Context, url, dir, movieID string) (int64, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	written, err := fileutil.WriteAtomic(dir, FileName(movieID), resp.Body)
	if err != nil {
		return written, fmt.Errorf("store poster %s: %w", FileName(movieID), err)
	}
	return written, nil
}
