// Package achievement evaluates milestone predicates after ledger
// mutations and grants experience for unlocks it actually created.
package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kutalian/dynofx/internal/account"
	"github.com/kutalian/dynofx/internal/logger"
	"github.com/kutalian/dynofx/internal/store"
	"github.com/kutalian/dynofx/internal/store/model"
	"github.com/kutalian/dynofx/internal/types"

	"gorm.io/datatypes"
)

// Engine runs the predicate-then-unique-insert pass. Failures degrade
// gamification, never accounting: the ledger close that triggered an
// evaluation stands regardless, and failed passes are re-run out of band.
type Engine struct {
	store    store.Store
	accounts *account.Service
	catalog  *Catalog

	retryAttempts int
	retryInterval time.Duration

	mu      sync.Mutex
	pending map[string]int // accountID -> attempts so far
}

func NewEngine(st store.Store, accounts *account.Service, catalog *Catalog, retryAttempts int, retryInterval time.Duration) (*Engine, error) {
	if st == nil || accounts == nil || catalog == nil {
		return nil, fmt.Errorf("achievement engine requires store, accounts and catalog")
	}
	if retryAttempts <= 0 {
		retryAttempts = 5
	}
	if retryInterval <= 0 {
		retryInterval = 30 * time.Second
	}
	return &Engine{
		store:         st,
		accounts:      accounts,
		catalog:       catalog,
		retryAttempts: retryAttempts,
		retryInterval: retryInterval,
		pending:       make(map[string]int),
	}, nil
}

// TradeClosed implements ledger.CloseListener. It runs synchronously
// after the close commits, so every predicate observes the post-close
// balance. An evaluation error is reported and queued, never returned to
// the ledger.
func (e *Engine) TradeClosed(ctx context.Context, trade types.Trade) {
	if err := e.Evaluate(ctx, trade.AccountID); err != nil {
		logger.Errorf("achievement evaluation failed for account %s: %v (queued for retry)", trade.AccountID, err)
		e.enqueue(trade.AccountID)
	}
}

// Evaluate checks every definition the account has not yet unlocked. For
// each now-true predicate it inserts the unlock under the uniqueness
// constraint and grants XP only when this evaluation created the row.
func (e *Engine) Evaluate(ctx context.Context, accountID string) error {
	acct, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	stats, err := e.accounts.Stats(ctx, accountID)
	if err != nil {
		return err
	}
	unlocked, err := e.store.Unlocks().UnlockedIDs(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load unlocked set for %s: %w", accountID, err)
	}

	ec := EvalContext{Account: acct, Stats: stats}
	for _, def := range e.catalog.Snapshot().Definitions {
		if unlocked[def.ID] || !def.predicate(ec) {
			continue
		}
		created, err := e.unlock(ctx, accountID, def, ec)
		if err != nil {
			return err
		}
		if created {
			logger.Infof("achievement %s unlocked account=%s xp=%d", def.ID, accountID, def.XPReward)
		}
	}
	return nil
}

// unlock inserts the unlock row and grants its XP in one unit of work: a
// failed grant rolls the unlock back, so a later re-evaluation sees the
// milestone as still locked and attempts the pair again. The uniqueness
// constraint still arbitrates concurrent closes; a lost race reports
// created=false and grants nothing.
func (e *Engine) unlock(ctx context.Context, accountID string, def Definition, ec EvalContext) (bool, error) {
	uow, err := e.store.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin unlock unit for %s: %w", accountID, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = uow.Rollback()
		}
	}()

	created, err := uow.Unlocks().InsertUnique(ctx, &model.AchievementUnlockModel{
		AccountID:     accountID,
		AchievementID: def.ID,
		XPAwarded:     def.XPReward,
		Context:       unlockContext(ec),
	})
	if err != nil {
		return false, fmt.Errorf("insert unlock %s for %s: %w", def.ID, accountID, err)
	}
	if !created {
		// A concurrent close evaluated the same predicate first; the
		// constraint already granted it.
		return false, nil
	}
	if def.XPReward > 0 {
		ok, err := uow.Accounts().AddExperience(ctx, accountID, def.XPReward)
		if err != nil {
			return false, fmt.Errorf("grant xp for %s: %w", def.ID, err)
		}
		if !ok {
			return false, fmt.Errorf("%w: %s", types.ErrAccountNotFound, accountID)
		}
	}
	if err := uow.Commit(); err != nil {
		return false, fmt.Errorf("commit unlock %s for %s: %w", def.ID, accountID, err)
	}
	committed = true
	return true, nil
}

// ListUnlocked returns the account's unlocks in unlock order.
func (e *Engine) ListUnlocked(ctx context.Context, accountID string) ([]types.AchievementUnlock, error) {
	if _, err := e.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	models, err := e.store.Unlocks().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list unlocks for %s: %w", accountID, err)
	}
	out := make([]types.AchievementUnlock, 0, len(models))
	for _, m := range models {
		out = append(out, types.AchievementUnlock{
			AccountID:     m.AccountID,
			AchievementID: m.AchievementID,
			XPAwarded:     m.XPAwarded,
			UnlockedAt:    time.UnixMilli(m.UnlockedAtUnix),
		})
	}
	return out, nil
}

// Run drains the retry queue until ctx is canceled. Each pass re-runs the
// full evaluation for the queued account; a pass that keeps failing is
// dropped after the configured number of attempts.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.drain(ctx)
		}
	}
}

func (e *Engine) enqueue(accountID string) {
	e.mu.Lock()
	if _, ok := e.pending[accountID]; !ok {
		e.pending[accountID] = 0
	}
	e.mu.Unlock()
}

func (e *Engine) drain(ctx context.Context) {
	e.mu.Lock()
	batch := make(map[string]int, len(e.pending))
	for id, attempts := range e.pending {
		batch[id] = attempts
	}
	e.pending = make(map[string]int)
	e.mu.Unlock()

	for id, attempts := range batch {
		if err := e.Evaluate(ctx, id); err == nil {
			logger.Infof("achievement retry succeeded for account %s", id)
			continue
		} else if attempts+1 >= e.retryAttempts {
			logger.Errorf("achievement retry exhausted for account %s after %d attempts: %v", id, attempts+1, err)
			continue
		} else {
			logger.Warnf("achievement retry failed for account %s (attempt %d/%d): %v", id, attempts+1, e.retryAttempts, err)
			e.mu.Lock()
			e.pending[id] = attempts + 1
			e.mu.Unlock()
		}
	}
}

func unlockContext(ec EvalContext) datatypes.JSON {
	raw, err := json.Marshal(map[string]any{
		"balance":       ec.Account.Balance.String(),
		"closed_trades": ec.Stats.ClosedTrades,
		"total_pnl":     ec.Stats.TotalPnl.String(),
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
