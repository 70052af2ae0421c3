package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posterjoin/internal/config"
	"posterjoin/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"POSTERJOIN_DATASET_DIR", "POSTERJOIN_POSTER_DIR", "POSTERJOIN_OUTPUT"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(base, "posterjoin.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndataset_dir = %q\njoin_csv = %q\nratings = %q\nusers = %q\nmovies = %q\nposter_dir = %q\noutput = %q\nstate_dir = %q\n\n[ledger]\nenabled = %t\npath = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.DatasetDir,
		cfg.Paths.JoinCSV,
		cfg.Paths.Ratings,
		cfg.Paths.Users,
		cfg.Paths.Movies,
		cfg.Paths.PosterDir,
		cfg.Paths.Output,
		cfg.Paths.StateDir,
		cfg.Ledger.Enabled,
		cfg.Ledger.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}
