package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"posterjoin/internal/config"
	"posterjoin/internal/ledger"
	"posterjoin/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the run logger. Without stateLog it writes to stderr
// only and leaves the state directory untouched.
func (c *commandContext) ensureLogger(stateLog bool) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		var logger *slog.Logger
		if stateLog {
			logger, err = logging.NewFromConfig(cfg)
		} else {
			logger, err = logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		}
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openLedger returns nil when the ledger is disabled.
func (c *commandContext) openLedger(cfg *config.Config) (*ledger.Store, error) {
	if cfg == nil || !cfg.Ledger.Enabled {
		return nil, nil
	}
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, nil
}

// trackRun brackets fn with ledger bookkeeping. store may be nil.
func trackRun(ctx context.Context, store *ledger.Store, kind ledger.RunKind, runID string, fn func() (any, error)) error {
	if store != nil {
		if err := store.BeginRun(ctx, runID, kind, time.Now()); err != nil {
			return err
		}
	}
	summary, runErr := fn()
	if store != nil {
		// Use a fresh context so a cancelled run is still marked failed.
		if err := store.FinishRun(context.Background(), runID, time.Now(), summary, runErr); err != nil && runErr == nil {
			return err
		}
	}
	return runErr
}

func newRunID() string {
	return uuid.NewString()
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
