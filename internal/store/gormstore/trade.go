package gormstore

import (
	"context"
	"errors"

	"github.com/kutalian/dynofx/internal/store/model"
	"github.com/kutalian/dynofx/internal/types"

	"gorm.io/gorm"
)

type tradeRepository struct {
	db *gorm.DB
}

func newTradeRepo(db *gorm.DB) *tradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) Insert(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	return r.db.WithContext(ctx).Create(trade).Error
}

func (r *tradeRepository) FindByID(ctx context.Context, id string) (*model.TradeModel, error) {
	var trade model.TradeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// MarkClosed guards the terminal transition on status=OPEN so a concurrent
// double close surfaces as RowsAffected 0, never as a second pnl.
func (r *tradeRepository) MarkClosed(ctx context.Context, id, exitPrice, pnl string, closedAtUnix int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.TradeModel{}).
		Where("id = ? AND status = ?", id, string(types.TradeStatusOpen)).
		Updates(map[string]interface{}{
			"status":     string(types.TradeStatusClosed),
			"exit_price": exitPrice,
			"pnl":        pnl,
			"closed_at":  closedAtUnix,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *tradeRepository) ListByAccount(ctx context.Context, accountID string) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("opened_at ASC, id ASC").
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// ClosedPnls returns the realized pnl of every closed trade, as stored
// decimal strings. Aggregation happens in the caller with exact decimals
// rather than in SQL over lossy REAL casts.
func (r *tradeRepository) ClosedPnls(ctx context.Context, accountID string) ([]string, error) {
	var pnls []string
	if err := r.db.WithContext(ctx).Model(&model.TradeModel{}).
		Where("account_id = ? AND status = ?", accountID, string(types.TradeStatusClosed)).
		Order("closed_at ASC, id ASC").
		Pluck("pnl", &pnls).Error; err != nil {
		return nil, err
	}
	return pnls, nil
}
