package model

import (
	"gorm.io/datatypes"
)

// Money columns are stored as decimal strings; timestamps as unix millis.

type AccountModel struct {
	ID              string `gorm:"column:id;primaryKey"`
	Balance         string `gorm:"column:balance"`
	StartingBalance string `gorm:"column:starting_balance"`
	Experience      int64  `gorm:"column:experience"`
	Status          string `gorm:"column:status"`
	Version         int64  `gorm:"column:version"`
	CreatedAtUnix   int64  `gorm:"column:created_at"`
	UpdatedAtUnix   int64  `gorm:"column:updated_at"`
}

func (AccountModel) TableName() string { return "accounts" }

type TradeModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	AccountID    string `gorm:"column:account_id;index"`
	Symbol       string `gorm:"column:symbol"`
	Direction    string `gorm:"column:direction"`
	Size         string `gorm:"column:size"`
	EntryPrice   string `gorm:"column:entry_price"`
	ExitPrice    string `gorm:"column:exit_price"`
	Pnl          string `gorm:"column:pnl"`
	Status       string `gorm:"column:status;index"`
	SetupType    string `gorm:"column:setup_type"`
	OpenedAtUnix int64  `gorm:"column:opened_at"`
	ClosedAtUnix int64  `gorm:"column:closed_at"`
}

func (TradeModel) TableName() string { return "trades" }

// AchievementUnlockModel carries the composite unique index that makes
// unlock inserts idempotent under concurrent evaluation.
type AchievementUnlockModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	AccountID      string         `gorm:"column:account_id;uniqueIndex:idx_unlock_account_achievement"`
	AchievementID  string         `gorm:"column:achievement_id;uniqueIndex:idx_unlock_account_achievement"`
	XPAwarded      int64          `gorm:"column:xp_awarded"`
	Context        datatypes.JSON `gorm:"column:context"`
	UnlockedAtUnix int64          `gorm:"column:unlocked_at"`
}

func (AchievementUnlockModel) TableName() string { return "achievement_unlocks" }
