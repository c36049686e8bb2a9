package config

// Config is the top-level dynofx configuration.
type Config struct {
	App          AppConfig          `toml:"app"`
	Database     DatabaseConfig     `toml:"database"`
	Ledger       LedgerConfig       `toml:"ledger"`
	Achievements AchievementsConfig `toml:"achievements"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LedgerConfig controls the virtual trading ledger.
type LedgerConfig struct {
	// StartingBalance is the virtual cash credited to every new account.
	StartingBalance string `toml:"starting_balance"`
	// CloseRetries bounds how often a close is retried after losing a
	// balance-update race before the caller sees Unavailable.
	CloseRetries int `toml:"close_retries"`
}

type AchievementsConfig struct {
	CatalogPath string `toml:"catalog_path"`
	// RetryAttempts bounds out-of-band re-evaluation of a failed
	// achievement pass before it is dropped.
	RetryAttempts int `toml:"retry_attempts"`
	// RetryIntervalSeconds is the drain interval of the retry worker.
	RetryIntervalSeconds int `toml:"retry_interval_seconds"`
}
