package trading

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
)

// ComputeTradeSize resolves the USD notional for a new position. With
// StakePct set the stake scales with balance, otherwise the fixed contract
// size applies. The result is clamped to [MinTradeUSD, MaxTradeUSD], capped
// at the balance, and floored to the cent. Non-finite or non-positive
// balances size to zero.
func ComputeTradeSize(balance float64, cfg *config.Config) decimal.Decimal {
	if math.IsNaN(balance) || math.IsInf(balance, 0) || balance <= 0 {
		return decimal.Zero
	}
	bal := decimal.NewFromFloat(balance)

	var size decimal.Decimal
	if cfg.StakePct > 0 {
		size = bal.Mul(decimal.NewFromFloat(cfg.StakePct))
	} else {
		size = cfg.ContractSize
	}

	if size.LessThan(cfg.MinTradeUSD) {
		size = cfg.MinTradeUSD
	}
	if size.GreaterThan(cfg.MaxTradeUSD) {
		size = cfg.MaxTradeUSD
	}
	if size.GreaterThan(bal) {
		size = bal
	}
	return size.RoundFloor(2)
}
