// Package account owns the virtual account record: balance, experience
// and status. Balance mutations happen only through the trade ledger's
// unit of work; this service covers provisioning, reads and XP grants.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kutalian/dynofx/internal/leveling"
	"github.com/kutalian/dynofx/internal/logger"
	"github.com/kutalian/dynofx/internal/store"
	"github.com/kutalian/dynofx/internal/store/model"
	"github.com/kutalian/dynofx/internal/types"

	"github.com/shopspring/decimal"
)

// Service provides account provisioning and projections.
type Service struct {
	store           store.Store
	startingBalance decimal.Decimal
}

func NewService(st store.Store, startingBalance decimal.Decimal) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("account service requires a store")
	}
	if startingBalance.Sign() <= 0 {
		return nil, fmt.Errorf("starting balance must be > 0, got %s", startingBalance)
	}
	return &Service{store: st, startingBalance: startingBalance}, nil
}

// Create provisions a new account with the configured starting balance
// and zero experience. The id comes from the external identity layer.
func (s *Service) Create(ctx context.Context, accountID string) (types.Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return types.Account{}, fmt.Errorf("%w: empty account id", types.ErrInvalidInput)
	}
	existing, err := s.store.Accounts().FindByID(ctx, accountID)
	if err != nil {
		return types.Account{}, fmt.Errorf("lookup account %s: %w", accountID, err)
	}
	if existing != nil {
		return types.Account{}, fmt.Errorf("%w: account %s already provisioned", types.ErrInvalidState, accountID)
	}
	m := &model.AccountModel{
		ID:              accountID,
		Balance:         s.startingBalance.String(),
		StartingBalance: s.startingBalance.String(),
		Experience:      0,
		Status:          string(types.AccountStatusActive),
		Version:         1,
	}
	if err := s.store.Accounts().Create(ctx, m); err != nil {
		return types.Account{}, fmt.Errorf("create account %s: %w", accountID, err)
	}
	logger.Infof("account %s provisioned with balance %s", accountID, m.Balance)
	return ToAccount(m)
}

// Get returns the account projection, with level derived from experience.
func (s *Service) Get(ctx context.Context, accountID string) (types.Account, error) {
	m, err := s.store.Accounts().FindByID(ctx, accountID)
	if err != nil {
		return types.Account{}, fmt.Errorf("lookup account %s: %w", accountID, err)
	}
	if m == nil {
		return types.Account{}, fmt.Errorf("%w: %s", types.ErrAccountNotFound, accountID)
	}
	return ToAccount(m)
}

// GrantExperience adds amount to the account's experience. Experience is
// monotonic; negative grants are rejected.
func (s *Service) GrantExperience(ctx context.Context, accountID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative experience grant %d", types.ErrInvalidInput, amount)
	}
	if amount == 0 {
		return nil
	}
	ok, err := s.store.Accounts().AddExperience(ctx, accountID, amount)
	if err != nil {
		return fmt.Errorf("grant %d xp to %s: %w", amount, accountID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrAccountNotFound, accountID)
	}
	return nil
}

// SetStatus switches the account between active and suspended. Suspended
// accounts keep their balance and history but refuse new trade commands.
func (s *Service) SetStatus(ctx context.Context, accountID string, status types.AccountStatus) error {
	if status != types.AccountStatusActive && status != types.AccountStatusSuspended {
		return fmt.Errorf("%w: unknown account status %q", types.ErrInvalidInput, status)
	}
	ok, err := s.store.Accounts().SetStatus(ctx, accountID, string(status))
	if err != nil {
		return fmt.Errorf("set status %s on %s: %w", status, accountID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrAccountNotFound, accountID)
	}
	logger.Infof("account %s status set to %s", accountID, status)
	return nil
}

// Stats aggregates the account's closed trades with exact decimals.
func (s *Service) Stats(ctx context.Context, accountID string) (types.TradeStats, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return types.TradeStats{}, err
	}
	pnls, err := s.store.Trades().ClosedPnls(ctx, accountID)
	if err != nil {
		return types.TradeStats{}, fmt.Errorf("load closed pnls for %s: %w", accountID, err)
	}
	var stats types.TradeStats
	total := decimal.Zero
	for _, raw := range pnls {
		pnl, err := decimal.NewFromString(raw)
		if err != nil {
			return types.TradeStats{}, fmt.Errorf("corrupt pnl %q for %s: %w", raw, accountID, err)
		}
		stats.ClosedTrades++
		switch pnl.Sign() {
		case 1:
			stats.WinningTrades++
		case -1:
			stats.LosingTrades++
		}
		total = total.Add(pnl)
	}
	stats.TotalPnl = total
	if stats.ClosedTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.ClosedTrades)
	}
	return stats, nil
}

// ToAccount converts a stored account row into the domain view.
func ToAccount(m *model.AccountModel) (types.Account, error) {
	balance, err := decimal.NewFromString(m.Balance)
	if err != nil {
		return types.Account{}, fmt.Errorf("corrupt balance %q on account %s: %w", m.Balance, m.ID, err)
	}
	starting, err := decimal.NewFromString(m.StartingBalance)
	if err != nil {
		return types.Account{}, fmt.Errorf("corrupt starting balance %q on account %s: %w", m.StartingBalance, m.ID, err)
	}
	return types.Account{
		ID:              m.ID,
		Balance:         balance,
		StartingBalance: starting,
		Experience:      m.Experience,
		Level:           leveling.LevelOf(m.Experience),
		Status:          types.AccountStatus(m.Status),
		CreatedAt:       time.UnixMilli(m.CreatedAtUnix),
	}, nil
}
