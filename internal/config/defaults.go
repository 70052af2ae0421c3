package config

const (
	defaultConfigPath        = "~/.config/posterjoin/config.toml"
	defaultDatasetDir        = "~/datasets/ml-1m"
	defaultStateDir          = "~/.local/share/posterjoin"
	defaultJoinCSVName       = "data.csv"
	defaultRatingsName       = "ratings.dat"
	defaultUsersName         = "users.dat"
	defaultMoviesName        = "movies.dat"
	defaultPosterDirName     = "posters"
	defaultOutputName        = "new_rating.txt"
	defaultLedgerName        = "ledger.db"
	defaultFetchTimeout      = 30
	defaultFetchUserAgent    = "posterjoin/dev"
	defaultFetchBurst        = 1
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	envDatasetDir            = "POSTERJOIN_DATASET_DIR"
	envPosterDir             = "POSTERJOIN_POSTER_DIR"
	envOutput                = "POSTERJOIN_OUTPUT"
	defaultLedgerEnabled     = true
	defaultRequestsPerSecond = 0
)

// Default returns a Config populated with repository defaults. Dataset file
// paths are left empty and derived from dataset_dir during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Fetch: Fetch{
			TimeoutSeconds:    defaultFetchTimeout,
			UserAgent:         defaultFetchUserAgent,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultFetchBurst,
		},
		Ledger: Ledger{
			Enabled: defaultLedgerEnabled,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
