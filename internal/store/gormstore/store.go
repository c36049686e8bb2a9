package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kutalian/dynofx/internal/store"
	"github.com/kutalian/dynofx/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore implements store.Store using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return newGormStore(db)
}

// OpenFromDB wraps an existing gorm connection (used by tests).
func OpenFromDB(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) (*GormStore, error) {
	models := []interface{}{
		&model.AccountModel{},
		&model.TradeModel{},
		&model.AchievementUnlockModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		// SQLite + WAL: allow a little read parallelism while keeping
		// write lock contention low.
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx}, nil
}

func (s *GormStore) Accounts() store.AccountRepository { return newAccountRepo(s.db) }
func (s *GormStore) Trades() store.TradeRepository     { return newTradeRepo(s.db) }
func (s *GormStore) Unlocks() store.UnlockRepository   { return newUnlockRepo(s.db) }

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*GormStore)(nil)

type gormUnitOfWork struct {
	tx *gorm.DB
}

func (u *gormUnitOfWork) Accounts() store.AccountRepository { return newAccountRepo(u.tx) }
func (u *gormUnitOfWork) Trades() store.TradeRepository     { return newTradeRepo(u.tx) }
func (u *gormUnitOfWork) Unlocks() store.UnlockRepository   { return newUnlockRepo(u.tx) }

func (u *gormUnitOfWork) Commit() error {
	return u.tx.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	return u.tx.Rollback().Error
}
