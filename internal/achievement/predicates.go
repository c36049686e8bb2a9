package achievement

import (
	"fmt"

	"github.com/kutalian/dynofx/internal/types"

	"github.com/shopspring/decimal"
)

// EvalContext is the read-only state a predicate sees: the post-commit
// account plus the aggregate over its closed trades.
type EvalContext struct {
	Account types.Account
	Stats   types.TradeStats
}

// Predicate is a pure milestone check. Predicates never write; the unique
// insert on the unlock table, not the predicate, decides "already granted".
type Predicate func(EvalContext) bool

func compilePredicate(rule Rule) (Predicate, error) {
	switch rule.Kind {
	case "closed_trades":
		if rule.Threshold < 1 {
			return nil, fmt.Errorf("closed_trades rule requires threshold >= 1")
		}
		n := rule.Threshold
		return func(ec EvalContext) bool {
			return ec.Stats.ClosedTrades >= n
		}, nil

	case "profitable_trades":
		if rule.Threshold < 1 {
			return nil, fmt.Errorf("profitable_trades rule requires threshold >= 1")
		}
		n := rule.Threshold
		return func(ec EvalContext) bool {
			return ec.Stats.WinningTrades >= n
		}, nil

	case "balance_ratio":
		if rule.Ratio <= 1 {
			return nil, fmt.Errorf("balance_ratio rule requires ratio > 1")
		}
		ratio := decimal.NewFromFloat(rule.Ratio)
		return func(ec EvalContext) bool {
			target := ec.Account.StartingBalance.Mul(ratio)
			return ec.Account.Balance.GreaterThanOrEqual(target)
		}, nil

	case "net_profit":
		minTrades := rule.MinTrades
		return func(ec EvalContext) bool {
			return ec.Stats.ClosedTrades >= minTrades && ec.Stats.TotalPnl.Sign() > 0
		}, nil

	default:
		return nil, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}
