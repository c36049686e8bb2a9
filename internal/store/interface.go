package store

import (
	"context"

	"github.com/kutalian/dynofx/internal/store/model"
)

// UnitOfWork defines a transaction scope. CloseTrade runs its trade
// transition and balance delta inside one unit; either both commit or
// neither does.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Accounts returns the account repository within this transaction.
	Accounts() AccountRepository
	// Trades returns the trade repository within this transaction.
	Trades() TradeRepository
	// Unlocks returns the achievement unlock repository within this transaction.
	Unlocks() UnlockRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)

	// Accounts returns the account repository outside any transaction.
	Accounts() AccountRepository
	// Trades returns the trade repository outside any transaction.
	Trades() TradeRepository
	// Unlocks returns the unlock repository outside any transaction.
	Unlocks() UnlockRepository

	// Close closes the store connection.
	Close() error
}

// AccountRepository handles account persistence. Find methods return
// (nil, nil) when the row does not exist.
type AccountRepository interface {
	Create(ctx context.Context, account *model.AccountModel) error
	FindByID(ctx context.Context, id string) (*model.AccountModel, error)

	// UpdateBalance commits a new balance only if the row version still
	// matches the one the caller read. Returns false without error when
	// the version moved, which the ledger treats as a conflict to retry.
	UpdateBalance(ctx context.Context, id string, newBalance string, readVersion int64) (bool, error)

	// AddExperience adds amount to the account's experience. Additive, so
	// no version guard is needed. Returns false when the account is missing.
	AddExperience(ctx context.Context, id string, amount int64) (bool, error)

	// SetStatus updates the account status. Returns false when the
	// account is missing.
	SetStatus(ctx context.Context, id, status string) (bool, error)
}

// TradeRepository handles trade persistence.
type TradeRepository interface {
	Insert(ctx context.Context, trade *model.TradeModel) error
	FindByID(ctx context.Context, id string) (*model.TradeModel, error)

	// MarkClosed transitions a trade OPEN -> CLOSED, recording exit price,
	// realized pnl and close time. The update is guarded on status=OPEN;
	// false means the trade was not open (double close).
	MarkClosed(ctx context.Context, id, exitPrice, pnl string, closedAtUnix int64) (bool, error)

	// ListByAccount returns the account's trades ordered by opened_at.
	ListByAccount(ctx context.Context, accountID string) ([]model.TradeModel, error)

	// ClosedPnls returns the stored pnl strings of the account's closed
	// trades, oldest first.
	ClosedPnls(ctx context.Context, accountID string) ([]string, error)
}

// UnlockRepository handles achievement unlock persistence.
type UnlockRepository interface {
	// InsertUnique inserts the unlock under the (account, achievement)
	// uniqueness constraint. Returns false when the pair already exists;
	// the constraint, not the caller's evaluation, is the source of truth
	// for "already granted".
	InsertUnique(ctx context.Context, unlock *model.AchievementUnlockModel) (bool, error)

	// ListByAccount returns the account's unlocks ordered by unlock time.
	ListByAccount(ctx context.Context, accountID string) ([]model.AchievementUnlockModel, error)

	// UnlockedIDs returns the set of achievement ids already unlocked.
	UnlockedIDs(ctx context.Context, accountID string) (map[string]bool, error)
}
