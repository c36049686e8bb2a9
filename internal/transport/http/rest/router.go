package resthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kutalian/dynofx/internal/ledger"
	"github.com/kutalian/dynofx/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// accountHeader carries the externally authenticated account identity.
// The core trusts it; authentication itself lives outside this service.
const accountHeader = "X-Account-ID"

// AccountService is the account surface the adapter consumes.
type AccountService interface {
	Create(ctx context.Context, accountID string) (types.Account, error)
	Get(ctx context.Context, accountID string) (types.Account, error)
	Stats(ctx context.Context, accountID string) (types.TradeStats, error)
	SetStatus(ctx context.Context, accountID string, status types.AccountStatus) error
}

// LedgerService is the trade command/projection surface.
type LedgerService interface {
	OpenTrade(ctx context.Context, req ledger.OpenRequest) (types.Trade, error)
	CloseTrade(ctx context.Context, accountID, tradeID string, exitPrice decimal.Decimal, closedAt time.Time) (types.Trade, error)
	ListTrades(ctx context.Context, accountID string) ([]types.Trade, error)
}

// UnlockService lists unlocked achievements.
type UnlockService interface {
	ListUnlocked(ctx context.Context, accountID string) ([]types.AchievementUnlock, error)
}

// Router mounts the trading API routes.
type Router struct {
	accounts AccountService
	ledger   LedgerService
	unlocks  UnlockService
}

func NewRouter(accounts AccountService, ledgerSvc LedgerService, unlocks UnlockService) *Router {
	return &Router{accounts: accounts, ledger: ledgerSvc, unlocks: unlocks}
}

// Register mounts the routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/accounts", r.handleCreateAccount)
	group.GET("/account", r.handleGetAccount)
	group.GET("/account/stats", r.handleGetStats)
	group.POST("/account/status", r.handleSetStatus)
	group.POST("/trades", r.handleOpenTrade)
	group.POST("/trades/:id/close", r.handleCloseTrade)
	group.GET("/trades", r.handleListTrades)
	group.GET("/achievements", r.handleListAchievements)
}

type openTradeRequest struct {
	Symbol     string `json:"symbol"`
	Direction  string `json:"direction"`
	Size       string `json:"size"`
	EntryPrice string `json:"entry_price"`
	Setup      string `json:"setup"`
}

type closeTradeRequest struct {
	ExitPrice string `json:"exit_price"`
}

func (r *Router) handleCreateAccount(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	acct, err := r.accounts.Create(c.Request.Context(), accountID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

func (r *Router) handleGetAccount(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	acct, err := r.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (r *Router) handleGetStats(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	stats, err := r.accounts.Stats(c.Request.Context(), accountID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (r *Router) handleSetStatus(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if err := r.accounts.SetStatus(c.Request.Context(), accountID, types.AccountStatus(req.Status)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (r *Router) handleOpenTrade(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	var req openTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	direction, err := types.ParseDirection(req.Direction)
	if err != nil {
		fail(c, err)
		return
	}
	size, err := parseDecimal(req.Size, "size")
	if err != nil {
		fail(c, err)
		return
	}
	entry, err := parseDecimal(req.EntryPrice, "entry_price")
	if err != nil {
		fail(c, err)
		return
	}
	trade, err := r.ledger.OpenTrade(c.Request.Context(), ledger.OpenRequest{
		AccountID:  accountID,
		Symbol:     req.Symbol,
		Direction:  direction,
		Size:       size,
		EntryPrice: entry,
		Setup:      req.Setup,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, trade)
}

func (r *Router) handleCloseTrade(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	var req closeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	exit, err := parseDecimal(req.ExitPrice, "exit_price")
	if err != nil {
		fail(c, err)
		return
	}
	trade, err := r.ledger.CloseTrade(c.Request.Context(), accountID, c.Param("id"), exit, time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (r *Router) handleListTrades(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	trades, err := r.ledger.ListTrades(c.Request.Context(), accountID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (r *Router) handleListAchievements(c *gin.Context) {
	accountID, ok := requireAccount(c)
	if !ok {
		return
	}
	unlocks, err := r.unlocks.ListUnlocked(c.Request.Context(), accountID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": unlocks})
}

func requireAccount(c *gin.Context) (string, bool) {
	accountID := strings.TrimSpace(c.GetHeader(accountHeader))
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + accountHeader + " header"})
		return "", false
	}
	return accountID, true
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	val, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q", types.ErrInvalidInput, field, raw)
	}
	return val, nil
}

// fail maps domain sentinels to status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrAccountNotFound), errors.Is(err, types.ErrTradeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, types.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
