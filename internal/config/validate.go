package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	for name, value := range map[string]string{
		"paths.join_csv":   c.Paths.JoinCSV,
		"paths.ratings":    c.Paths.Ratings,
		"paths.users":      c.Paths.Users,
		"paths.movies":     c.Paths.Movies,
		"paths.poster_dir": c.Paths.PosterDir,
		"paths.output":     c.Paths.Output,
		"paths.state_dir":  c.Paths.StateDir,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	if filepath.Clean(c.Paths.Output) == filepath.Clean(c.Paths.Ratings) {
		return errors.New("paths.output must differ from paths.ratings")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	if c.Fetch.RequestsPerSecond < 0 {
		return errors.New("fetch.requests_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}
