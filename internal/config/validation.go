package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// validate performs basic sanity checks on the loaded config.
func validate(c *Config) error {
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Achievements.validate(); err != nil {
		return err
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	bal, err := decimal.NewFromString(l.StartingBalance)
	if err != nil {
		return fmt.Errorf("ledger.starting_balance is not a decimal: %w", err)
	}
	if bal.Sign() <= 0 {
		return fmt.Errorf("ledger.starting_balance must be > 0")
	}
	if l.CloseRetries > 20 {
		return fmt.Errorf("ledger.close_retries must be <= 20")
	}
	return nil
}

func (a *AchievementsConfig) validate() error {
	if a.RetryAttempts > 100 {
		return fmt.Errorf("achievements.retry_attempts must be <= 100")
	}
	return nil
}

// StartingBalanceDecimal returns the starting balance as a decimal.
// Load has already validated the string form.
func (l LedgerConfig) StartingBalanceDecimal() decimal.Decimal {
	bal, err := decimal.NewFromString(l.StartingBalance)
	if err != nil {
		panic(fmt.Sprintf("starting balance not validated: %v", err))
	}
	return bal
}
