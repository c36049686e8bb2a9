package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kutalian/dynofx/internal/store/model"
	"github.com/kutalian/dynofx/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "dynofx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedAccount(t *testing.T, st *GormStore, id string) {
	t.Helper()
	require.NoError(t, st.Accounts().Create(context.Background(), &model.AccountModel{
		ID:              id,
		Balance:         "100000",
		StartingBalance: "100000",
		Status:          string(types.AccountStatusActive),
		Version:         1,
	}))
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestAccountFindByIDMissingReturnsNilNil(t *testing.T) {
	st := newTestStore(t)
	acct, err := st.Accounts().FindByID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestUpdateBalanceVersionGuard(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acct-1")

	// First CAS on the read version succeeds and bumps the version.
	ok, err := st.Accounts().UpdateBalance(ctx, "acct-1", "100050", 1)
	require.NoError(t, err)
	assert.True(t, ok)

	acct, err := st.Accounts().FindByID(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100050", acct.Balance)
	assert.Equal(t, int64(2), acct.Version)

	// A writer still holding the stale version loses without error.
	ok, err = st.Accounts().UpdateBalance(ctx, "acct-1", "99999", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	acct, err = st.Accounts().FindByID(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100050", acct.Balance)
}

func TestSetStatusAndAddExperience(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acct-1")

	ok, err := st.Accounts().SetStatus(ctx, "acct-1", string(types.AccountStatusSuspended))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.Accounts().SetStatus(ctx, "nobody", string(types.AccountStatusSuspended))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = st.Accounts().AddExperience(ctx, "acct-1", 75)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.Accounts().AddExperience(ctx, "acct-1", 25)
	require.NoError(t, err)
	assert.True(t, ok)

	acct, err := st.Accounts().FindByID(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), acct.Experience)
	assert.Equal(t, string(types.AccountStatusSuspended), acct.Status)
}

func TestMarkClosedIsTerminal(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acct-1")

	now := time.Now().UnixMilli()
	require.NoError(t, st.Trades().Insert(ctx, &model.TradeModel{
		ID:           "t1",
		AccountID:    "acct-1",
		Symbol:       "EURUSD",
		Direction:    string(types.DirectionLong),
		Size:         "10000",
		EntryPrice:   "1.1000",
		Status:       string(types.TradeStatusOpen),
		OpenedAtUnix: now,
	}))

	ok, err := st.Trades().MarkClosed(ctx, "t1", "1.1050", "50", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// The status guard turns a second close into a no-op.
	ok, err = st.Trades().MarkClosed(ctx, "t1", "1.2000", "1000", now)
	require.NoError(t, err)
	assert.False(t, ok)

	trade, err := st.Trades().FindByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, string(types.TradeStatusClosed), trade.Status)
	assert.Equal(t, "50", trade.Pnl)
	assert.Equal(t, "1.1050", trade.ExitPrice)
}

func TestClosedPnlsOldestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acct-1")

	base := time.Now().UnixMilli()
	for i, pnl := range []string{"50", "-20", "12.5"} {
		id := string(rune('a' + i))
		require.NoError(t, st.Trades().Insert(ctx, &model.TradeModel{
			ID:           id,
			AccountID:    "acct-1",
			Symbol:       "EURUSD",
			Direction:    string(types.DirectionLong),
			Size:         "1",
			EntryPrice:   "1.1",
			Status:       string(types.TradeStatusOpen),
			OpenedAtUnix: base + int64(i),
		}))
		ok, err := st.Trades().MarkClosed(ctx, id, "1.2", pnl, base+int64(i)*10)
		require.NoError(t, err)
		require.True(t, ok)
	}
	// A still-open trade must not appear in the aggregate.
	require.NoError(t, st.Trades().Insert(ctx, &model.TradeModel{
		ID:           "open",
		AccountID:    "acct-1",
		Symbol:       "EURUSD",
		Direction:    string(types.DirectionLong),
		Size:         "1",
		EntryPrice:   "1.1",
		Status:       string(types.TradeStatusOpen),
		OpenedAtUnix: base,
	}))

	pnls, err := st.Trades().ClosedPnls(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"50", "-20", "12.5"}, pnls)
}

func TestInsertUniqueEnforcesOnePerPair(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.Unlocks().InsertUnique(ctx, &model.AchievementUnlockModel{
		AccountID:     "acct-1",
		AchievementID: "first_trade",
		XPAwarded:     50,
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = st.Unlocks().InsertUnique(ctx, &model.AchievementUnlockModel{
		AccountID:     "acct-1",
		AchievementID: "first_trade",
		XPAwarded:     50,
	})
	require.NoError(t, err)
	assert.False(t, created)

	// Same achievement for another account is a distinct pair.
	created, err = st.Unlocks().InsertUnique(ctx, &model.AchievementUnlockModel{
		AccountID:     "acct-2",
		AchievementID: "first_trade",
		XPAwarded:     50,
	})
	require.NoError(t, err)
	assert.True(t, created)

	ids, err := st.Unlocks().UnlockedIDs(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"first_trade": true}, ids)
}

func TestUnitOfWorkRollbackDiscardsWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acct-1")

	uow, err := st.Begin(ctx)
	require.NoError(t, err)
	ok, err := uow.Accounts().UpdateBalance(ctx, "acct-1", "0", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, uow.Rollback())

	acct, err := st.Accounts().FindByID(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "100000", acct.Balance)
	assert.Equal(t, int64(1), acct.Version)
}

func TestUnitOfWorkCommitPersistsWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, "acct-1")

	uow, err := st.Begin(ctx)
	require.NoError(t, err)
	ok, err := uow.Accounts().UpdateBalance(ctx, "acct-1", "123456", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, uow.Commit())

	acct, err := st.Accounts().FindByID(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "123456", acct.Balance)
	assert.Equal(t, int64(2), acct.Version)
}
