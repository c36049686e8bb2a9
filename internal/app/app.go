package app

import (
	"context"
	"fmt"

	"github.com/kutalian/dynofx/internal/achievement"
	dxcfg "github.com/kutalian/dynofx/internal/config"
	"github.com/kutalian/dynofx/internal/logger"
	"github.com/kutalian/dynofx/internal/store"
	resthttp "github.com/kutalian/dynofx/internal/transport/http/rest"

	"golang.org/x/sync/errgroup"
)

// App wires config, store, ledger core and transport, and runs the HTTP
// server alongside the achievement retry worker.
type App struct {
	cfg    *dxcfg.Config
	store  store.Store
	engine *achievement.Engine
	http   *resthttp.Server
}

// NewApp builds the application object (without starting it).
func NewApp(cfg *dxcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves until ctx is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
	}()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infof("rest api listening on %s", a.http.Addr())
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("rest server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return a.engine.Run(ctx)
	})

	return group.Wait()
}
