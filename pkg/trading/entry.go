package trading

import (
	"fmt"
	"math"
	"time"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
)

// phaseFromSeconds buckets the remaining window time when the feed did not
// attach a phase to its recommendation.
func phaseFromSeconds(secs float64) signals.Phase {
	switch {
	case secs >= 200:
		return signals.PhaseEarly
	case secs >= 100:
		return signals.PhaseMid
	default:
		return signals.PhaseLate
	}
}

// EffectiveThresholds computes the probability and edge floors for the
// current phase. Boosts stack additively onto the probability floor; the
// edge floor is the phase base alone.
func EffectiveThresholds(phase signals.Phase, weekend, inferred bool, cfg *config.Config) (prob, edge float64) {
	switch phase {
	case signals.PhaseEarly:
		prob, edge = cfg.ProbEarly, cfg.EdgeEarly
	case signals.PhaseMid:
		prob, edge = cfg.ProbMid, cfg.EdgeMid
	default:
		prob, edge = cfg.ProbLate, cfg.EdgeLate
	}
	if weekend {
		prob += cfg.WeekendProbBoost
	}
	if phase == signals.PhaseMid {
		prob += cfg.MidPhaseBoost
	}
	if inferred {
		prob += cfg.InferredSideBoost
	}
	return prob, edge
}

// ComputeEntryBlockers runs every entry condition against the snapshot and
// collects all failures. Only two conditions abort early: a recommendation
// that does not mandate entry under strict gating, and an unresolvable
// side. Everything else is appended so the status surface shows the full
// picture of why the engine is flat.
func ComputeEntryBlockers(snap *signals.Snapshot, cfg *config.Config, st *State, candleCount int, inPosition bool, now time.Time) EntryResult {
	var res EntryResult
	block := func(format string, args ...any) {
		res.Blockers = append(res.Blockers, fmt.Sprintf(format, args...))
	}

	recAction := signals.Action("NONE")
	if snap.Rec != nil {
		recAction = snap.Rec.Action
	}
	if cfg.RecGating == config.RecGatingStrict && recAction != signals.ActionEnter {
		block("Rec=%s (strict gating requires ENTER)", recAction)
		return res
	}
	if cfg.RecGating == config.RecGatingLoose && recAction == signals.ActionExit {
		block("Rec=EXIT (model wants out of this market)")
		return res
	}

	if snap.Rec != nil && snap.Rec.Side.Valid() {
		res.Side = snap.Rec.Side
	} else {
		res.Side = snap.FavoredSide()
		res.SideInferred = true
	}
	if !res.Side.Valid() {
		block("No resolvable side (probabilities tied, no model direction)")
		return res
	}

	entryQuote := snap.Quote(res.Side)
	oppQuote := snap.Quote(res.Side.Opposite())

	entryPrice, entryOK := entryQuote.EffectivePrice()
	if !entryOK {
		block("%s price unusable (feed and book both invalid)", res.Side)
	}
	oppPrice, oppOK := oppQuote.EffectivePrice()
	if !oppOK {
		block("%s price unusable (feed and book both invalid)", res.Side.Opposite())
	}

	secsLeft := snap.SecondsToSettlement(now)
	if secsLeft < cfg.MinEntrySecondsToSettle {
		block("Too close to settlement: %.0fs left, need %.0fs", secsLeft, cfg.MinEntrySecondsToSettle)
	}

	if candleCount < cfg.MinWarmupCandles {
		block("Warming up: %d/%d candles", candleCount, cfg.MinWarmupCandles)
	}
	if !snap.Indicators.Ready() {
		block("Indicators not ready")
	}

	if last := st.LastWinAt(); !last.IsZero() {
		if elapsed := now.Sub(last); elapsed < cfg.WinCooldown {
			block("Win cooldown: %s remaining", (cfg.WinCooldown - elapsed).Round(time.Second))
		}
	}
	if last := st.LastLossAt(); !last.IsZero() {
		if elapsed := now.Sub(last); elapsed < cfg.LossCooldown {
			block("Loss cooldown: %s remaining", (cfg.LossCooldown - elapsed).Round(time.Second))
		}
	}

	if st.ShouldSkipSlug(snap.MarketSlug) {
		block("Skipping %s after max-loss stop", snap.MarketSlug)
	}
	if inPosition {
		block("Already in a position")
	}

	utc := now.UTC()
	if cfg.FridayCutoffHour >= 0 && utc.Weekday() == time.Friday && utc.Hour() >= cfg.FridayCutoffHour {
		block("Friday cutoff: no entries after %02d:00 UTC", cfg.FridayCutoffHour)
	}
	if cfg.SundayOpenHour >= 0 && utc.Weekday() == time.Sunday && utc.Hour() < cfg.SundayOpenHour {
		block("Sunday open: no entries before %02d:00 UTC", cfg.SundayOpenHour)
	}

	weekend := config.IsWeekend(now)
	minLiquidity := cfg.MinLiquidity
	maxSpread := cfg.MaxSpread
	minRangePct := cfg.MinRangePct
	minConfidence := cfg.MinConfidence
	if weekend {
		minLiquidity = cfg.WeekendMinLiquidity
		maxSpread = cfg.WeekendMaxSpread
		minRangePct = cfg.WeekendMinRangePct
		minConfidence = cfg.WeekendMinConfidence
	}

	if liq := entryQuote.Book.Liquidity(); liq.LessThan(minLiquidity) {
		block("Thin book: liquidity %s < %s", liq.StringFixed(0), minLiquidity.StringFixed(0))
	}
	if entryQuote.Book.Spread.GreaterThan(maxSpread) {
		block("Wide spread: %s > %s", entryQuote.Book.Spread.StringFixed(3), maxSpread.StringFixed(3))
	}
	if snap.MarketVolume.LessThan(cfg.MinMarketVolume) {
		block("Market volume %s < %s", snap.MarketVolume.StringFixed(0), cfg.MinMarketVolume.StringFixed(0))
	}
	if cfg.MinBTCVolume > 0 && snap.BTCVolume < cfg.MinBTCVolume {
		block("BTC volume %.0f < %.0f", snap.BTCVolume, cfg.MinBTCVolume)
	}
	if cfg.MinBTCVolumeRatio > 0 && snap.BTCAvgVolume > 0 {
		if ratio := snap.BTCVolume / snap.BTCAvgVolume; ratio < cfg.MinBTCVolumeRatio {
			block("BTC volume ratio %.2f < %.2f", ratio, cfg.MinBTCVolumeRatio)
		}
	}

	if conf := snap.Confidence(); conf < minConfidence {
		block("Low confidence: %.3f < %.3f", conf, minConfidence)
	}
	if r := snap.Indicators.RangePct20; r != nil && *r < minRangePct {
		block("Chop: 20-candle range %.4f%% < %.4f%%", *r*100, minRangePct*100)
	}
	if cfg.MinImpulsePct > 0 && math.Abs(snap.Indicators.ImpulsePct) < cfg.MinImpulsePct {
		block("Weak impulse: %.4f%% < %.4f%%", math.Abs(snap.Indicators.ImpulsePct)*100, cfg.MinImpulsePct*100)
	}
	if rsi := snap.Indicators.RSI; rsi != nil && *rsi >= cfg.RSIDeadZoneLow && *rsi <= cfg.RSIDeadZoneHigh {
		block("RSI %.1f in dead zone [%.0f, %.0f]", *rsi, cfg.RSIDeadZoneLow, cfg.RSIDeadZoneHigh)
	}

	if entryOK {
		if entryPrice.LessThan(cfg.AbsMinPrice) || entryPrice.GreaterThan(cfg.AbsMaxPrice) {
			block("Price %s outside absolute bounds [%s, %s]", entryPrice.StringFixed(3), cfg.AbsMinPrice.StringFixed(2), cfg.AbsMaxPrice.StringFixed(2))
		}
		if entryPrice.LessThan(cfg.MinEntryPrice) || entryPrice.GreaterThan(cfg.MaxEntryPrice) {
			block("Price %s outside entry bounds [%s, %s]", entryPrice.StringFixed(3), cfg.MinEntryPrice.StringFixed(2), cfg.MaxEntryPrice.StringFixed(2))
		}
	}
	if oppOK && oppPrice.LessThan(cfg.MinOpposingPrice) {
		block("Opposing price %s < %s (market nearly settled)", oppPrice.StringFixed(3), cfg.MinOpposingPrice.StringFixed(2))
	}

	phase := phaseFromSeconds(secsLeft)
	if snap.Rec != nil && snap.Rec.Phase != "" {
		phase = snap.Rec.Phase
	}
	res.Phase = phase
	probFloor, edgeFloor := EffectiveThresholds(phase, weekend, res.SideInferred, cfg)
	prob := snap.Prob(res.Side)
	if prob < probFloor {
		block("%s phase: prob %.3f < %.3f", phase, prob, probFloor)
	}
	if entryOK {
		if edge := prob - entryPrice.InexactFloat64(); edge < edgeFloor {
			block("%s phase: edge %.3f < %.3f", phase, edge, edgeFloor)
		}
	}

	if tripped, remaining := st.CheckCircuitBreaker(cfg.MaxConsecutiveLosses, cfg.BreakerCooldown, now); tripped {
		block("Circuit breaker: %d straight losses, %s remaining", st.ConsecutiveLosses(), remaining.Round(time.Second))
	}
	if cfg.DailyLossLimit.IsPositive() {
		if daily := st.DailyPnL(now); daily.LessThanOrEqual(cfg.DailyLossLimit.Neg()) {
			block("Daily loss limit hit: %s <= -%s", daily.StringFixed(2), cfg.DailyLossLimit.StringFixed(2))
		}
	}

	return res
}
