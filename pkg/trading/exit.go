package trading

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
)

// MaxLossThreshold returns the per-trade loss cap as a positive dollar
// amount. Dynamic sizing scales with contract size and clamps to the
// configured band; otherwise the fixed amount applies.
func MaxLossThreshold(cfg *config.Config) decimal.Decimal {
	if !cfg.DynamicMaxLoss {
		return cfg.MaxLossUSDPerTrade
	}
	t := cfg.ContractSize.Mul(decimal.NewFromFloat(cfg.MaxLossPct))
	if t.LessThan(cfg.MaxLossFloorUSD) {
		t = cfg.MaxLossFloorUSD
	}
	if t.GreaterThan(cfg.MaxLossCeilUSD) {
		t = cfg.MaxLossCeilUSD
	}
	return t
}

// CapPnl clamps a realized loss to the max-loss threshold and recomputes
// the exit price so the ledger identity shares*exit == costBasis + pnl
// stays exact. Profits and in-band losses pass through untouched.
func CapPnl(pnl, exitPrice, costBasis, shares decimal.Decimal, cfg *config.Config) (cappedPnl, cappedExit decimal.Decimal) {
	threshold := MaxLossThreshold(cfg)
	if pnl.GreaterThanOrEqual(threshold.Neg()) || shares.LessThanOrEqual(decimal.Zero) {
		return pnl, exitPrice
	}
	cappedPnl = threshold.Neg()
	cappedExit = costBasis.Add(cappedPnl).Div(shares)
	return cappedPnl, cappedExit
}

// exitMark is the price a sell would realize: the resting bid when one
// exists, otherwise whatever usable price the quote carries.
func exitMark(q signals.Quote) (decimal.Decimal, bool) {
	if q.Book.BestBid.IsPositive() && q.Book.BestBid.LessThan(decimal.NewFromInt(1)) {
		return q.Book.BestBid, true
	}
	return q.EffectivePrice()
}

// EvaluateExits runs the exit priority chain against one open position.
// The first matching rule wins. The returned eval always carries the
// current PnL and the opposing-flip flag, whether or not an exit fired;
// grace transitions are returned as actions for the caller to apply.
func EvaluateExits(pos *PositionView, snap *signals.Snapshot, cfg *config.Config, grace GraceState, now time.Time) ExitEval {
	eval := ExitEval{GraceAction: GraceNone}

	heldProb := snap.Prob(pos.Side)
	oppProb := snap.Prob(pos.Side.Opposite())
	eval.OpposingMoreLikely = oppProb >= cfg.FlipMinProb && oppProb-heldProb >= cfg.FlipMargin

	quote := snap.Quote(pos.Side)
	mark, markOK := exitMark(quote)
	if markOK {
		eval.PnL = pos.Shares.Mul(mark.Sub(pos.EntryPrice))
	} else if pos.UnrealizedPnL != nil {
		eval.PnL = *pos.UnrealizedPnL
	}

	exit := func(reason string) ExitEval {
		eval.Decision = &ExitDecision{
			PositionID: pos.ID,
			Side:       pos.Side,
			Shares:     pos.Shares,
			Reason:     reason,
		}
		return eval
	}

	if grace.Active() && eval.PnL.GreaterThanOrEqual(cfg.GraceRecoveryUSD) {
		eval.GraceAction = GraceClear
	}

	if pos.MarketSlug != snap.MarketSlug {
		return exit(fmt.Sprintf("Rollover: market now %s", snap.MarketSlug))
	}

	secsLeft := snap.SecondsToSettlement(now)
	if secsLeft < cfg.MinExitSecondsToSettle {
		return exit(fmt.Sprintf("Settlement: %.0fs left", secsLeft))
	}

	threshold := MaxLossThreshold(cfg)
	if eval.PnL.LessThanOrEqual(threshold.Neg()) {
		reason := fmt.Sprintf("Max Loss: %s <= -%s", eval.PnL.StringFixed(2), threshold.StringFixed(2))
		permitted := cfg.GraceEnabled && cfg.GracePeriod > 0 &&
			secsLeft >= cfg.GraceMinSecondsToSettle &&
			quote.Book.Liquidity().GreaterThanOrEqual(cfg.GraceMinLiquidity)
		if permitted && cfg.GraceRequireModelSupport {
			permitted = heldProb >= 0.55 && heldProb >= oppProb
		}
		switch {
		case !permitted:
			return exit(reason)
		case grace.Active():
			if now.Sub(grace.BreachedAt) > cfg.GracePeriod {
				return exit(reason)
			}
			return eval
		case grace.Used:
			return exit(reason)
		default:
			eval.GraceAction = GraceStart
			return eval
		}
	}

	if markOK && mark.GreaterThanOrEqual(cfg.TakeProfitPriceCeil) {
		return exit(fmt.Sprintf("TP: price %s at ceiling %s", mark.StringFixed(2), cfg.TakeProfitPriceCeil.StringFixed(2)))
	}

	if cfg.TrailingEnabled && pos.MaxUnrealizedPnL.GreaterThanOrEqual(cfg.TrailingStartUSD) {
		floor := pos.MaxUnrealizedPnL.Sub(cfg.TrailingDrawdownUSD)
		if eval.PnL.LessThanOrEqual(floor) {
			return exit(fmt.Sprintf("Trailing TP: %s off peak %s", eval.PnL.StringFixed(2), pos.MaxUnrealizedPnL.StringFixed(2)))
		}
	}

	if !cfg.TrailingEnabled && cfg.TakeProfitUSD.IsPositive() && eval.PnL.GreaterThanOrEqual(cfg.TakeProfitUSD) {
		return exit(fmt.Sprintf("TP: +%s", eval.PnL.StringFixed(2)))
	}

	if cfg.MaxHold > 0 && pos.Age(now) > cfg.MaxHold && !eval.PnL.IsPositive() {
		return exit(fmt.Sprintf("Time Stop: held %s at %s", pos.Age(now).Round(time.Second), eval.PnL.StringFixed(2)))
	}

	if eval.PnL.IsNegative() && pos.SizeUSD.IsPositive() {
		lossPct, _ := eval.PnL.Neg().Div(pos.SizeUSD).Float64()
		if lossPct >= cfg.StopLossPct && eval.OpposingMoreLikely {
			return exit(fmt.Sprintf("Stop Loss: -%.0f%% and model flipped to %s", lossPct*100, pos.Side.Opposite()))
		}
	}

	return eval
}
