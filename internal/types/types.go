package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a simulated position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// ParseDirection normalizes a wire-level direction. BUY/SELL are accepted
// as aliases for LONG/SHORT.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LONG", "BUY":
		return DirectionLong, nil
	case "SHORT", "SELL":
		return DirectionShort, nil
	default:
		return "", fmt.Errorf("%w: direction %q", ErrInvalidInput, raw)
	}
}

// TradeStatus is the lifecycle state of a trade. CLOSED is terminal.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

// AccountStatus gates trade commands; suspended accounts keep their
// history but refuse new activity.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Account is the read view of a user's virtual account. Level is derived
// from Experience by the leveling policy, never stored as truth.
type Account struct {
	ID              string          `json:"id"`
	Balance         decimal.Decimal `json:"balance"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	Experience      int64           `json:"experience"`
	Level           int             `json:"level"`
	Status          AccountStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Trade is one simulated position. ExitPrice, Pnl and ClosedAt are nil
// while the trade is open; once closed the record never changes.
type Trade struct {
	ID         string           `json:"id"`
	AccountID  string           `json:"account_id"`
	Symbol     string           `json:"symbol"`
	Direction  Direction        `json:"direction"`
	Size       decimal.Decimal  `json:"size"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	ExitPrice  *decimal.Decimal `json:"exit_price,omitempty"`
	Pnl        *decimal.Decimal `json:"pnl,omitempty"`
	Status     TradeStatus      `json:"status"`
	Setup      string           `json:"setup,omitempty"`
	OpenedAt   time.Time        `json:"opened_at"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
}

// Closed reports whether the trade has reached its terminal state.
func (t Trade) Closed() bool { return t.Status == TradeStatusClosed }

// TradeStats is an aggregate over an account's closed trades. Derived at
// query time, not ledger truth.
type TradeStats struct {
	ClosedTrades  int64           `json:"closed_trades"`
	WinningTrades int64           `json:"winning_trades"`
	LosingTrades  int64           `json:"losing_trades"`
	WinRate       float64         `json:"win_rate"`
	TotalPnl      decimal.Decimal `json:"total_pnl"`
}

// AchievementUnlock records that a milestone predicate became true for an
// account. At most one exists per (account, achievement) pair.
type AchievementUnlock struct {
	AccountID     string    `json:"account_id"`
	AchievementID string    `json:"achievement_id"`
	XPAwarded     int64     `json:"xp_awarded"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}
