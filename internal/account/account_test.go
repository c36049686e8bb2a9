package account

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kutalian/dynofx/internal/store"
	"github.com/kutalian/dynofx/internal/store/gormstore"
	"github.com/kutalian/dynofx/internal/store/model"
	"github.com/kutalian/dynofx/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st, err := gormstore.Open(filepath.Join(t.TempDir(), "dynofx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, decimal.NewFromInt(100000))
	require.NoError(t, err)
	return svc, st
}

func TestNewServiceRejectsBadStartingBalance(t *testing.T) {
	st, err := gormstore.Open(filepath.Join(t.TempDir(), "dynofx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = NewService(st, decimal.Zero)
	assert.Error(t, err)
	_, err = NewService(st, decimal.NewFromInt(-5))
	assert.Error(t, err)
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", created.ID)
	assert.True(t, created.Balance.Equal(decimal.NewFromInt(100000)))
	assert.True(t, created.StartingBalance.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, int64(0), created.Experience)
	assert.Equal(t, 1, created.Level)
	assert.Equal(t, types.AccountStatusActive, created.Status)

	got, err := svc.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.Balance.Equal(created.Balance))
}

func TestCreateRejectsDuplicatesAndEmptyIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acct-1")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "acct-1")
	assert.ErrorIs(t, err, types.ErrInvalidState)

	_, err = svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestGetMissingAccount(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, types.ErrAccountNotFound)
}

func TestGrantExperienceRaisesLevel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acct-1")
	require.NoError(t, err)

	// 100 xp reaches level 2, another 200 reaches level 3 (threshold 300).
	require.NoError(t, svc.GrantExperience(ctx, "acct-1", 100))
	acct, err := svc.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), acct.Experience)
	assert.Equal(t, 2, acct.Level)

	require.NoError(t, svc.GrantExperience(ctx, "acct-1", 200))
	acct, err = svc.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), acct.Experience)
	assert.Equal(t, 3, acct.Level)
}

func TestGrantExperienceValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.GrantExperience(ctx, "acct-1", -10), types.ErrInvalidInput)
	assert.ErrorIs(t, svc.GrantExperience(ctx, "nobody", 50), types.ErrAccountNotFound)

	// Zero grants are a no-op, not an error.
	_, err := svc.Create(ctx, "acct-1")
	require.NoError(t, err)
	assert.NoError(t, svc.GrantExperience(ctx, "acct-1", 0))
}

func TestSetStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acct-1")
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, "acct-1", types.AccountStatusSuspended))
	acct, err := svc.Get(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, types.AccountStatusSuspended, acct.Status)

	require.NoError(t, svc.SetStatus(ctx, "acct-1", types.AccountStatusActive))

	assert.ErrorIs(t, svc.SetStatus(ctx, "acct-1", "frozen"), types.ErrInvalidInput)
	assert.ErrorIs(t, svc.SetStatus(ctx, "nobody", types.AccountStatusSuspended), types.ErrAccountNotFound)
}

func TestStats(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "acct-1")
	require.NoError(t, err)

	// No closed trades yet.
	stats, err := svc.Stats(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ClosedTrades)
	assert.Equal(t, float64(0), stats.WinRate)
	assert.True(t, stats.TotalPnl.IsZero())

	seedClosedTrade(t, st, "acct-1", "t1", "50")
	seedClosedTrade(t, st, "acct-1", "t2", "-20")
	seedClosedTrade(t, st, "acct-1", "t3", "0")
	seedClosedTrade(t, st, "acct-1", "t4", "12.5")

	stats, err = svc.Stats(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.ClosedTrades)
	assert.Equal(t, int64(2), stats.WinningTrades)
	assert.Equal(t, int64(1), stats.LosingTrades)
	assert.InDelta(t, 0.5, stats.WinRate, 1e-9)
	assert.True(t, stats.TotalPnl.Equal(decimal.RequireFromString("42.5")), "got %s", stats.TotalPnl)

	_, err = svc.Stats(ctx, "nobody")
	assert.ErrorIs(t, err, types.ErrAccountNotFound)
}

func seedClosedTrade(t *testing.T, st store.Store, accountID, id, pnl string) {
	t.Helper()
	now := time.Now().UnixMilli()
	m := &model.TradeModel{
		ID:           id,
		AccountID:    accountID,
		Symbol:       "EURUSD",
		Direction:    string(types.DirectionLong),
		Size:         "1",
		EntryPrice:   "1.1",
		Status:       string(types.TradeStatusOpen),
		OpenedAtUnix: now,
	}
	require.NoError(t, st.Trades().Insert(context.Background(), m))
	ok, err := st.Trades().MarkClosed(context.Background(), id, "1.2", pnl, now)
	require.NoError(t, err)
	require.True(t, ok)
}
