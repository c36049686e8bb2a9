package ledger

import (
	"github.com/kutalian/dynofx/internal/types"

	"github.com/shopspring/decimal"
)

// RealizedPnL computes the profit or loss fixed at close:
//
//	LONG:  (exit - entry) * size
//	SHORT: (entry - exit) * size
//
// Exact decimal arithmetic; the result is stored once and never
// recalculated.
func RealizedPnL(direction types.Direction, size, entry, exit decimal.Decimal) decimal.Decimal {
	if direction == types.DirectionShort {
		return entry.Sub(exit).Mul(size)
	}
	return exit.Sub(entry).Mul(size)
}
