// Package resthttp is the thin wire adapter over the trading core. It
// holds no decision logic: commands and projections pass straight through
// to the ledger, account and achievement services.
package resthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kutalian/dynofx/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server serves the /api/v1 trading API.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server dependencies.
type ServerConfig struct {
	Addr     string
	Accounts AccountService
	Ledger   LedgerService
	Unlocks  UnlockService
}

// NewServer builds the HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Accounts == nil || cfg.Ledger == nil || cfg.Unlocks == nil {
		return nil, errors.New("rest server requires accounts, ledger and unlocks services")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiRouter := NewRouter(cfg.Accounts, cfg.Ledger, cfg.Unlocks)
	apiRouter.Register(router.Group("/api/v1"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router (used by httptest in tests).
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.router
}

// Start serves until ctx is canceled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, path, status, client, dur)
	}
}
