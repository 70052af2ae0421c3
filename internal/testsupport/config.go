package testsupport

import (
	"path/filepath"
	"testing"

	"posterjoin/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose paths all live under a per-test temp
// directory. The dataset files themselves are not created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	dataset := filepath.Join(base, "dataset")
	cfgVal := config.Default()
	cfgVal.Paths = config.Paths{
		DatasetDir: dataset,
		JoinCSV:    filepath.Join(dataset, "data.csv"),
		Ratings:    filepath.Join(dataset, "ratings.dat"),
		Users:      filepath.Join(dataset, "users.dat"),
		Movies:     filepath.Join(dataset, "movies.dat"),
		PosterDir:  filepath.Join(dataset, "posters"),
		Output:     filepath.Join(dataset, "new_rating.txt"),
		StateDir:   filepath.Join(base, "state"),
	}
	cfgVal.Ledger.Path = filepath.Join(base, "state", "ledger.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutLedger disables the run ledger on the test config.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
