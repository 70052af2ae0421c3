package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.DatasetDir = strings.TrimSpace(c.Paths.DatasetDir)
	if c.Paths.DatasetDir == "" {
		c.Paths.DatasetDir = envOr(envDatasetDir, defaultDatasetDir)
	}
	if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
		return fmt.Errorf("paths.dataset_dir: %w", err)
	}

	if strings.TrimSpace(c.Paths.PosterDir) == "" {
		c.Paths.PosterDir = envOr(envPosterDir, "")
	}
	if strings.TrimSpace(c.Paths.Output) == "" {
		c.Paths.Output = envOr(envOutput, "")
	}

	derived := []struct {
		name  string
		field *string
		base  string
	}{
		{"paths.join_csv", &c.Paths.JoinCSV, defaultJoinCSVName},
		{"paths.ratings", &c.Paths.Ratings, defaultRatingsName},
		{"paths.users", &c.Paths.Users, defaultUsersName},
		{"paths.movies", &c.Paths.Movies, defaultMoviesName},
		{"paths.poster_dir", &c.Paths.PosterDir, defaultPosterDirName},
		{"paths.output", &c.Paths.Output, defaultOutputName},
	}
	for _, d := range derived {
		value := strings.TrimSpace(*d.field)
		if value == "" {
			value = filepath.Join(c.Paths.DatasetDir, d.base)
		}
		if *d.field, err = expandPath(value); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}

	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
	if c.Fetch.Burst <= 0 {
		c.Fetch.Burst = defaultFetchBurst
	}
}

func (c *Config) normalizeLedger() error {
	var err error
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = filepath.Join(c.Paths.StateDir, defaultLedgerName)
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
