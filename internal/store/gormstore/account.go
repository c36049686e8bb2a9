package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/kutalian/dynofx/internal/store/model"

	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func newAccountRepo(db *gorm.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *model.AccountModel) error {
	if account == nil {
		return errors.New("account cannot be nil")
	}
	now := time.Now().UnixMilli()
	if account.CreatedAtUnix == 0 {
		account.CreatedAtUnix = now
	}
	account.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*model.AccountModel, error) {
	var account model.AccountModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateBalance is the compare-and-swap half of per-account serialization:
// the WHERE clause on version makes a lost race visible as RowsAffected 0
// instead of a silent lost update.
func (r *accountRepository) UpdateBalance(ctx context.Context, id string, newBalance string, readVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AccountModel{}).
		Where("id = ? AND version = ?", id, readVersion).
		Updates(map[string]interface{}{
			"balance":    newBalance,
			"version":    readVersion + 1,
			"updated_at": time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *accountRepository) SetStatus(ctx context.Context, id, status string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AccountModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *accountRepository) AddExperience(ctx context.Context, id string, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AccountModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"experience": gorm.Expr("experience + ?", amount),
			"updated_at": time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
