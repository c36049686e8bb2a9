// Package ledger owns trade records and their state transitions. A trade
// opens with no cash effect and closes exactly once; the close applies the
// realized pnl to the owning account inside one unit of work.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kutalian/dynofx/internal/logger"
	"github.com/kutalian/dynofx/internal/store"
	"github.com/kutalian/dynofx/internal/store/model"
	"github.com/kutalian/dynofx/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CloseListener is notified after a close commits. Implementations must
// not roll the ledger back: whatever they do is a derived side effect.
type CloseListener interface {
	TradeClosed(ctx context.Context, trade types.Trade)
}

// Ledger is the command surface for simulated trades.
type Ledger struct {
	store    store.Store
	retries  int
	listener CloseListener
}

func New(st store.Store, closeRetries int) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger requires a store")
	}
	if closeRetries <= 0 {
		closeRetries = 3
	}
	return &Ledger{store: st, retries: closeRetries}, nil
}

// SetCloseListener sets the post-commit hook. Called once during wiring.
func (l *Ledger) SetCloseListener(listener CloseListener) {
	l.listener = listener
}

// OpenRequest carries the caller-supplied fields of a new trade. The
// account id is the externally authenticated identity.
type OpenRequest struct {
	AccountID  string
	Symbol     string
	Direction  types.Direction
	Size       decimal.Decimal
	EntryPrice decimal.Decimal
	Setup      string
}

// OpenTrade creates a trade in state OPEN. Opening moves no cash; only
// realized pnl at close touches the balance.
func (l *Ledger) OpenTrade(ctx context.Context, req OpenRequest) (types.Trade, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return types.Trade{}, fmt.Errorf("%w: empty symbol", types.ErrInvalidInput)
	}
	if req.Direction != types.DirectionLong && req.Direction != types.DirectionShort {
		return types.Trade{}, fmt.Errorf("%w: direction %q", types.ErrInvalidInput, req.Direction)
	}
	if req.Size.Sign() <= 0 {
		return types.Trade{}, fmt.Errorf("%w: size must be > 0, got %s", types.ErrInvalidInput, req.Size)
	}
	if req.EntryPrice.Sign() <= 0 {
		return types.Trade{}, fmt.Errorf("%w: entry price must be > 0, got %s", types.ErrInvalidInput, req.EntryPrice)
	}

	acct, err := l.store.Accounts().FindByID(ctx, req.AccountID)
	if err != nil {
		return types.Trade{}, fmt.Errorf("lookup account %s: %w", req.AccountID, err)
	}
	if acct == nil {
		return types.Trade{}, fmt.Errorf("%w: %s", types.ErrAccountNotFound, req.AccountID)
	}
	if acct.Status != string(types.AccountStatusActive) {
		return types.Trade{}, fmt.Errorf("%w: account %s is %s", types.ErrInvalidState, req.AccountID, acct.Status)
	}

	m := &model.TradeModel{
		ID:           uuid.NewString(),
		AccountID:    req.AccountID,
		Symbol:       req.Symbol,
		Direction:    string(req.Direction),
		Size:         req.Size.String(),
		EntryPrice:   req.EntryPrice.String(),
		Status:       string(types.TradeStatusOpen),
		SetupType:    strings.TrimSpace(req.Setup),
		OpenedAtUnix: time.Now().UnixMilli(),
	}
	if err := l.store.Trades().Insert(ctx, m); err != nil {
		return types.Trade{}, fmt.Errorf("insert trade: %w", err)
	}
	logger.Debugf("trade %s opened account=%s symbol=%s dir=%s size=%s entry=%s",
		m.ID, m.AccountID, m.Symbol, m.Direction, m.Size, m.EntryPrice)
	return ToTrade(m)
}

// CloseTrade transitions the trade to CLOSED and applies its realized pnl
// to the owning account as one atomic unit. The balance write is a
// version-guarded compare-and-swap; a lost race re-runs the whole unit up
// to the configured retry bound, after which the caller sees Unavailable.
// Trades are scoped to the calling account: a trade owned by someone else
// reports TradeNotFound.
func (l *Ledger) CloseTrade(ctx context.Context, accountID, tradeID string, exitPrice decimal.Decimal, closedAt time.Time) (types.Trade, error) {
	if strings.TrimSpace(accountID) == "" {
		return types.Trade{}, fmt.Errorf("%w: empty account id", types.ErrInvalidInput)
	}
	if strings.TrimSpace(tradeID) == "" {
		return types.Trade{}, fmt.Errorf("%w: empty trade id", types.ErrInvalidInput)
	}
	if exitPrice.Sign() <= 0 {
		return types.Trade{}, fmt.Errorf("%w: exit price must be > 0, got %s", types.ErrInvalidInput, exitPrice)
	}
	if closedAt.IsZero() {
		closedAt = time.Now()
	}

	var lastErr error
	for attempt := 0; attempt < l.retries; attempt++ {
		// Cancellation is honored between attempts only; once an attempt
		// reaches the commit it runs to completion.
		if err := ctx.Err(); err != nil {
			return types.Trade{}, err
		}
		trade, err := l.closeOnce(ctx, accountID, tradeID, exitPrice, closedAt)
		if err == nil {
			if l.listener != nil {
				l.listener.TradeClosed(ctx, trade)
			}
			return trade, nil
		}
		if !isConflict(err) {
			return types.Trade{}, err
		}
		lastErr = err
		logger.Debugf("close trade %s: balance race lost, attempt %d/%d", tradeID, attempt+1, l.retries)
	}
	return types.Trade{}, fmt.Errorf("close trade %s: %w after %d attempts: %v",
		tradeID, types.ErrUnavailable, l.retries, lastErr)
}

func (l *Ledger) closeOnce(ctx context.Context, accountID, tradeID string, exitPrice decimal.Decimal, closedAt time.Time) (types.Trade, error) {
	uow, err := l.store.Begin(ctx)
	if err != nil {
		return types.Trade{}, fmt.Errorf("begin close unit: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback()
		}
	}()

	m, err := uow.Trades().FindByID(ctx, tradeID)
	if err != nil {
		return types.Trade{}, fmt.Errorf("lookup trade %s: %w", tradeID, err)
	}
	if m == nil {
		return types.Trade{}, fmt.Errorf("%w: %s", types.ErrTradeNotFound, tradeID)
	}
	if m.AccountID != accountID {
		// Row scoping: another account's trade looks like a missing one.
		return types.Trade{}, fmt.Errorf("%w: %s", types.ErrTradeNotFound, tradeID)
	}
	if m.Status != string(types.TradeStatusOpen) {
		return types.Trade{}, fmt.Errorf("%w: trade %s already closed", types.ErrInvalidState, tradeID)
	}
	if closedAt.UnixMilli() < m.OpenedAtUnix {
		return types.Trade{}, fmt.Errorf("%w: close time precedes open time of trade %s", types.ErrInvalidInput, tradeID)
	}

	acct, err := uow.Accounts().FindByID(ctx, m.AccountID)
	if err != nil {
		return types.Trade{}, fmt.Errorf("lookup account %s: %w", m.AccountID, err)
	}
	if acct == nil {
		return types.Trade{}, fmt.Errorf("%w: %s", types.ErrAccountNotFound, m.AccountID)
	}
	if acct.Status != string(types.AccountStatusActive) {
		return types.Trade{}, fmt.Errorf("%w: account %s is %s", types.ErrInvalidState, m.AccountID, acct.Status)
	}

	size, entry, err := tradeDecimals(m)
	if err != nil {
		return types.Trade{}, err
	}
	balance, err := decimal.NewFromString(acct.Balance)
	if err != nil {
		return types.Trade{}, fmt.Errorf("corrupt balance %q on account %s: %w", acct.Balance, acct.ID, err)
	}

	pnl := RealizedPnL(types.Direction(m.Direction), size, entry, exitPrice)

	ok, err := uow.Trades().MarkClosed(ctx, tradeID, exitPrice.String(), pnl.String(), closedAt.UnixMilli())
	if err != nil {
		return types.Trade{}, fmt.Errorf("close trade %s: %w", tradeID, err)
	}
	if !ok {
		return types.Trade{}, fmt.Errorf("%w: trade %s already closed", types.ErrInvalidState, tradeID)
	}

	ok, err = uow.Accounts().UpdateBalance(ctx, acct.ID, balance.Add(pnl).String(), acct.Version)
	if err != nil {
		return types.Trade{}, fmt.Errorf("apply balance delta to %s: %w", acct.ID, err)
	}
	if !ok {
		return types.Trade{}, fmt.Errorf("apply balance delta to %s: %w", acct.ID, types.ErrConcurrencyConflict)
	}

	if err := uow.Commit(); err != nil {
		return types.Trade{}, fmt.Errorf("commit close of %s: %w: %v", tradeID, types.ErrConcurrencyConflict, err)
	}
	committed = true

	m.Status = string(types.TradeStatusClosed)
	m.ExitPrice = exitPrice.String()
	m.Pnl = pnl.String()
	m.ClosedAtUnix = closedAt.UnixMilli()
	logger.Infof("trade %s closed account=%s pnl=%s", m.ID, m.AccountID, m.Pnl)
	return ToTrade(m)
}

// ListTrades returns the account's trades, open and closed, ordered by
// open time.
func (l *Ledger) ListTrades(ctx context.Context, accountID string) ([]types.Trade, error) {
	acct, err := l.store.Accounts().FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lookup account %s: %w", accountID, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrAccountNotFound, accountID)
	}
	models, err := l.store.Trades().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list trades for %s: %w", accountID, err)
	}
	trades := make([]types.Trade, 0, len(models))
	for i := range models {
		trade, err := ToTrade(&models[i])
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// isConflict also matches sqlite lock contention: with two writers on a
// shared-cache WAL database a transaction can fail with "locked"/"busy"
// instead of losing the version check, and both resolve the same way.
func isConflict(err error) bool {
	if errors.Is(err, types.ErrConcurrencyConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "table is locked") ||
		strings.Contains(msg, "database is busy")
}

func tradeDecimals(m *model.TradeModel) (size, entry decimal.Decimal, err error) {
	size, err = decimal.NewFromString(m.Size)
	if err != nil {
		return size, entry, fmt.Errorf("corrupt size %q on trade %s: %w", m.Size, m.ID, err)
	}
	entry, err = decimal.NewFromString(m.EntryPrice)
	if err != nil {
		return size, entry, fmt.Errorf("corrupt entry price %q on trade %s: %w", m.EntryPrice, m.ID, err)
	}
	return size, entry, nil
}

// ToTrade converts a stored trade row into the domain view.
func ToTrade(m *model.TradeModel) (types.Trade, error) {
	size, entry, err := tradeDecimals(m)
	if err != nil {
		return types.Trade{}, err
	}
	trade := types.Trade{
		ID:         m.ID,
		AccountID:  m.AccountID,
		Symbol:     m.Symbol,
		Direction:  types.Direction(m.Direction),
		Size:       size,
		EntryPrice: entry,
		Status:     types.TradeStatus(m.Status),
		Setup:      m.SetupType,
		OpenedAt:   time.UnixMilli(m.OpenedAtUnix),
	}
	if m.Status == string(types.TradeStatusClosed) {
		exit, err := decimal.NewFromString(m.ExitPrice)
		if err != nil {
			return types.Trade{}, fmt.Errorf("corrupt exit price %q on trade %s: %w", m.ExitPrice, m.ID, err)
		}
		pnl, err := decimal.NewFromString(m.Pnl)
		if err != nil {
			return types.Trade{}, fmt.Errorf("corrupt pnl %q on trade %s: %w", m.Pnl, m.ID, err)
		}
		closedAt := time.UnixMilli(m.ClosedAtUnix)
		trade.ExitPrice = &exit
		trade.Pnl = &pnl
		trade.ClosedAt = &closedAt
	}
	return trade, nil
}
