package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/kutalian/dynofx/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type unlockRepository struct {
	db *gorm.DB
}

func newUnlockRepo(db *gorm.DB) *unlockRepository {
	return &unlockRepository{db: db}
}

// InsertUnique relies on the composite unique index: a concurrent close
// that already unlocked the same achievement turns this insert into a
// no-op with RowsAffected 0, which the engine reads as "skip the XP".
func (r *unlockRepository) InsertUnique(ctx context.Context, unlock *model.AchievementUnlockModel) (bool, error) {
	if unlock == nil {
		return false, errors.New("unlock cannot be nil")
	}
	if unlock.UnlockedAtUnix == 0 {
		unlock.UnlockedAtUnix = time.Now().UnixMilli()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(unlock)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *unlockRepository) ListByAccount(ctx context.Context, accountID string) ([]model.AchievementUnlockModel, error) {
	var unlocks []model.AchievementUnlockModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("unlocked_at ASC, id ASC").
		Find(&unlocks).Error; err != nil {
		return nil, err
	}
	return unlocks, nil
}

func (r *unlockRepository) UnlockedIDs(ctx context.Context, accountID string) (map[string]bool, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.AchievementUnlockModel{}).
		Where("account_id = ?", accountID).
		Pluck("achievement_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
