package config

import "strings"

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9980"
	defaultDatabasePath      = "data/dynofx.db"
	defaultStartingBalance   = "100000"
	defaultCloseRetries      = 3
	defaultCatalogPath       = "configs/achievements.yaml"
	defaultRetryAttempts     = 5
	defaultRetryIntervalSecs = 30
)

func (c *Config) applyDefaults() {
	c.App.applyDefaults()
	c.Database.applyDefaults()
	c.Ledger.applyDefaults()
	c.Achievements.applyDefaults()
}

func (a *AppConfig) applyDefaults() {
	if strings.TrimSpace(a.Env) == "" {
		a.Env = defaultAppEnv
	}
	if strings.TrimSpace(a.LogLevel) == "" {
		a.LogLevel = defaultAppLogLevel
	}
	if strings.TrimSpace(a.HTTPAddr) == "" {
		a.HTTPAddr = defaultAppHTTPAddr
	}
}

func (d *DatabaseConfig) applyDefaults() {
	if strings.TrimSpace(d.Path) == "" {
		d.Path = defaultDatabasePath
	}
}

func (l *LedgerConfig) applyDefaults() {
	if strings.TrimSpace(l.StartingBalance) == "" {
		l.StartingBalance = defaultStartingBalance
	}
	if l.CloseRetries <= 0 {
		l.CloseRetries = defaultCloseRetries
	}
}

func (a *AchievementsConfig) applyDefaults() {
	if strings.TrimSpace(a.CatalogPath) == "" {
		a.CatalogPath = defaultCatalogPath
	}
	if a.RetryAttempts <= 0 {
		a.RetryAttempts = defaultRetryAttempts
	}
	if a.RetryIntervalSeconds <= 0 {
		a.RetryIntervalSeconds = defaultRetryIntervalSecs
	}
}
