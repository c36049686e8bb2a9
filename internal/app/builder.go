package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kutalian/dynofx/internal/account"
	"github.com/kutalian/dynofx/internal/achievement"
	dxcfg "github.com/kutalian/dynofx/internal/config"
	"github.com/kutalian/dynofx/internal/ledger"
	"github.com/kutalian/dynofx/internal/store"
	"github.com/kutalian/dynofx/internal/store/gormstore"
	resthttp "github.com/kutalian/dynofx/internal/transport/http/rest"
)

// AppBuilder assembles the component graph. The store override exists so
// tests can inject an in-memory database.
type AppBuilder struct {
	cfg *dxcfg.Config

	storeOverride store.Store
}

type AppBuilderOption func(*AppBuilder)

func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeOverride = st }
}

func NewAppBuilder(cfg *dxcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	st := b.storeOverride
	if st == nil {
		opened, err := gormstore.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open store at %s: %w", cfg.Database.Path, err)
		}
		st = opened
	}

	accounts, err := account.NewService(st, cfg.Ledger.StartingBalanceDecimal())
	if err != nil {
		return nil, err
	}

	tradeLedger, err := ledger.New(st, cfg.Ledger.CloseRetries)
	if err != nil {
		return nil, err
	}

	catalog, err := achievement.NewCatalog(cfg.Achievements.CatalogPath)
	if err != nil {
		return nil, err
	}
	engine, err := achievement.NewEngine(st, accounts, catalog,
		cfg.Achievements.RetryAttempts,
		time.Duration(cfg.Achievements.RetryIntervalSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	tradeLedger.SetCloseListener(engine)

	httpSrv, err := resthttp.NewServer(resthttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Accounts: accounts,
		Ledger:   tradeLedger,
		Unlocks:  engine,
	})
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, store: st, engine: engine, http: httpSrv}, nil
}
