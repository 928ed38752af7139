package trading

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
)

// weekdayNoon is a Thursday, clear of weekend tightening and schedule
// rules.
var weekdayNoon = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

func goodBook() signals.BookSummary {
	return signals.BookSummary{
		BestBid:  decimal.RequireFromString("0.54"),
		BestAsk:  decimal.RequireFromString("0.56"),
		Spread:   decimal.RequireFromString("0.02"),
		BidDepth: decimal.NewFromInt(500),
		AskDepth: decimal.NewFromInt(500),
	}
}

func goodSnapshot(now time.Time) *signals.Snapshot {
	return &signals.Snapshot{
		MarketSlug: "btc-updown-5m-1200",
		CapturedAt: now,
		Up: signals.Quote{
			TokenID: "tok-up",
			Price:   decimal.RequireFromString("0.55"),
			Book:    goodBook(),
		},
		Down: signals.Quote{
			TokenID: "tok-down",
			Price:   decimal.RequireFromString("0.44"),
			Book:    goodBook(),
		},
		ProbUp:   0.70,
		ProbDown: 0.30,
		Rec: &signals.Recommendation{
			Action: signals.ActionEnter,
			Side:   signals.SideUp,
			Phase:  signals.PhaseEarly,
			Edge:   0.15,
		},
		SettlementAt: now.Add(240 * time.Second),
		Indicators: signals.Indicators{
			RSI:        signals.Float64(60),
			MACD:       signals.Float64(0.5),
			MACDSignal: signals.Float64(0.3),
			VWAPDev:    signals.Float64(0.001),
			RangePct20: signals.Float64(0.001),
			ImpulsePct: 0.001,
		},
		LastPrice:    64000,
		MarketVolume: decimal.NewFromInt(10000),
		BTCVolume:    1500,
		BTCAvgVolume: 1000,
	}
}

func hasBlockerPrefix(t *testing.T, res EntryResult, prefix string) bool {
	t.Helper()
	for _, b := range res.Blockers {
		if strings.HasPrefix(b, prefix) {
			return true
		}
	}
	return false
}

func TestEntryEligibleHappyPath(t *testing.T) {
	cfg := config.Default()
	res := ComputeEntryBlockers(goodSnapshot(weekdayNoon), &cfg, NewState(), 30, false, weekdayNoon)
	if !res.Eligible() {
		t.Fatalf("expected eligible, blockers: %v", res.Blockers)
	}
	if res.Side != signals.SideUp || res.SideInferred {
		t.Fatalf("expected explicit UP, got %s inferred=%v", res.Side, res.SideInferred)
	}
}

func TestEntryStrictGatingRequiresEnter(t *testing.T) {
	cfg := config.Default()
	cfg.RecGating = config.RecGatingStrict

	snap := goodSnapshot(weekdayNoon)
	snap.Rec.Action = signals.ActionWait

	res := ComputeEntryBlockers(snap, &cfg, NewState(), 30, false, weekdayNoon)
	if res.Side.Valid() {
		t.Fatalf("expected no side, got %s", res.Side)
	}
	if len(res.Blockers) != 1 || !strings.HasPrefix(res.Blockers[0], "Rec=") {
		t.Fatalf("expected single Rec= blocker, got %v", res.Blockers)
	}
}

func TestEntryLooseModeInfersSide(t *testing.T) {
	cfg := config.Default()
	cfg.RecGating = config.RecGatingLoose

	snap := goodSnapshot(weekdayNoon)
	snap.Rec = nil

	res := ComputeEntryBlockers(snap, &cfg, NewState(), 30, false, weekdayNoon)
	if res.Side != signals.SideUp || !res.SideInferred {
		t.Fatalf("expected inferred UP, got %s inferred=%v", res.Side, res.SideInferred)
	}
	if !res.Eligible() {
		t.Fatalf("expected eligible with inferred side, blockers: %v", res.Blockers)
	}
}

func TestEntryNoResolvableSide(t *testing.T) {
	cfg := config.Default()
	cfg.RecGating = config.RecGatingLoose

	snap := goodSnapshot(weekdayNoon)
	snap.Rec = nil
	snap.ProbUp, snap.ProbDown = 0.5, 0.5

	res := ComputeEntryBlockers(snap, &cfg, NewState(), 30, false, weekdayNoon)
	if res.Side.Valid() || len(res.Blockers) != 1 {
		t.Fatalf("expected single no-side blocker, got side=%s blockers=%v", res.Side, res.Blockers)
	}
}

func TestEntryBlockersAreCollected(t *testing.T) {
	cfg := config.Default()
	snap := goodSnapshot(weekdayNoon)
	snap.SettlementAt = weekdayNoon.Add(30 * time.Second) // too close
	snap.Indicators.RSI = signals.Float64(50)             // dead zone
	snap.MarketVolume = decimal.NewFromInt(10)            // thin market

	res := ComputeEntryBlockers(snap, &cfg, NewState(), 30, false, weekdayNoon)
	if len(res.Blockers) < 3 {
		t.Fatalf("expected multiple collected blockers, got %v", res.Blockers)
	}
}

func TestEntryBlockedWhileInPosition(t *testing.T) {
	cfg := config.Default()
	res := ComputeEntryBlockers(goodSnapshot(weekdayNoon), &cfg, NewState(), 30, true, weekdayNoon)
	if !hasBlockerPrefix(t, res, "Already in a position") {
		t.Fatalf("expected in-position blocker, got %v", res.Blockers)
	}
}

func TestEntryLossCooldown(t *testing.T) {
	cfg := config.Default()
	st := NewState()
	st.RecordExit("btc-updown-5m-1155", "Stop Loss", decimal.NewFromInt(-5), false, weekdayNoon.Add(-time.Minute))

	res := ComputeEntryBlockers(goodSnapshot(weekdayNoon), &cfg, st, 30, false, weekdayNoon)
	if !hasBlockerPrefix(t, res, "Loss cooldown") {
		t.Fatalf("expected loss cooldown blocker, got %v", res.Blockers)
	}
}

func TestEntrySkipSlugAfterMaxLoss(t *testing.T) {
	cfg := config.Default()
	st := NewState()
	snap := goodSnapshot(weekdayNoon)
	st.RecordExit(snap.MarketSlug, "Max Loss: -16.00 <= -15.00", decimal.NewFromInt(-16), true, weekdayNoon.Add(-10*time.Minute))

	res := ComputeEntryBlockers(snap, &cfg, st, 30, false, weekdayNoon)
	if !hasBlockerPrefix(t, res, "Skipping") {
		t.Fatalf("expected skip-slug blocker, got %v", res.Blockers)
	}

	// A different slug clears the flag.
	next := goodSnapshot(weekdayNoon)
	next.MarketSlug = "btc-updown-5m-1205"
	res = ComputeEntryBlockers(next, &cfg, st, 30, false, weekdayNoon)
	if hasBlockerPrefix(t, res, "Skipping") {
		t.Fatalf("skip flag should clear on a new slug, got %v", res.Blockers)
	}
}

func TestEntryWinCooldown(t *testing.T) {
	cfg := config.Default()
	st := NewState()
	st.RecordExit("btc-updown-5m-1155", "TP: +4.00", decimal.NewFromInt(4), false, weekdayNoon.Add(-10*time.Second))

	res := ComputeEntryBlockers(goodSnapshot(weekdayNoon), &cfg, st, 30, false, weekdayNoon)
	if !hasBlockerPrefix(t, res, "Win cooldown") {
		t.Fatalf("expected win cooldown blocker, got %v", res.Blockers)
	}

	// Past the cooldown the win no longer blocks.
	later := weekdayNoon.Add(cfg.WinCooldown)
	res = ComputeEntryBlockers(goodSnapshot(later), &cfg, st, 30, false, later)
	if hasBlockerPrefix(t, res, "Win cooldown") {
		t.Fatalf("cooldown should have expired, got %v", res.Blockers)
	}
}

func TestEntryWeekdaySchedule(t *testing.T) {
	cfg := config.Default()
	cfg.FridayCutoffHour = 20
	cfg.SundayOpenHour = 8

	fridayLate := time.Date(2026, time.January, 2, 21, 0, 0, 0, time.UTC)
	res := ComputeEntryBlockers(goodSnapshot(fridayLate), &cfg, NewState(), 30, false, fridayLate)
	if !hasBlockerPrefix(t, res, "Friday cutoff") {
		t.Fatalf("expected Friday cutoff blocker, got %v", res.Blockers)
	}

	fridayEarly := time.Date(2026, time.January, 2, 19, 0, 0, 0, time.UTC)
	res = ComputeEntryBlockers(goodSnapshot(fridayEarly), &cfg, NewState(), 30, false, fridayEarly)
	if hasBlockerPrefix(t, res, "Friday cutoff") {
		t.Fatalf("before the cutoff hour Friday must not block, got %v", res.Blockers)
	}

	sundayEarly := time.Date(2026, time.January, 4, 7, 0, 0, 0, time.UTC)
	res = ComputeEntryBlockers(goodSnapshot(sundayEarly), &cfg, NewState(), 30, false, sundayEarly)
	if !hasBlockerPrefix(t, res, "Sunday open") {
		t.Fatalf("expected Sunday open blocker, got %v", res.Blockers)
	}

	sundayLate := time.Date(2026, time.January, 4, 9, 0, 0, 0, time.UTC)
	res = ComputeEntryBlockers(goodSnapshot(sundayLate), &cfg, NewState(), 30, false, sundayLate)
	if hasBlockerPrefix(t, res, "Sunday open") {
		t.Fatalf("after the open hour Sunday must not block, got %v", res.Blockers)
	}

	// -1 disables both rules.
	cfg.FridayCutoffHour, cfg.SundayOpenHour = -1, -1
	res = ComputeEntryBlockers(goodSnapshot(fridayLate), &cfg, NewState(), 30, false, fridayLate)
	if hasBlockerPrefix(t, res, "Friday cutoff") {
		t.Fatalf("disabled cutoff must not block, got %v", res.Blockers)
	}
	res = ComputeEntryBlockers(goodSnapshot(sundayEarly), &cfg, NewState(), 30, false, sundayEarly)
	if hasBlockerPrefix(t, res, "Sunday open") {
		t.Fatalf("disabled open hour must not block, got %v", res.Blockers)
	}
}

func TestEntryResultCarriesResolvedPhase(t *testing.T) {
	cfg := config.Default()

	res := ComputeEntryBlockers(goodSnapshot(weekdayNoon), &cfg, NewState(), 30, false, weekdayNoon)
	if res.Phase != signals.PhaseEarly {
		t.Fatalf("expected recommendation phase EARLY, got %s", res.Phase)
	}

	// Without a recommendation phase the bucket comes from the clock:
	// 240s out is EARLY, 150s out is MID.
	snap := goodSnapshot(weekdayNoon)
	snap.Rec.Phase = ""
	res = ComputeEntryBlockers(snap, &cfg, NewState(), 30, false, weekdayNoon)
	if res.Phase != signals.PhaseEarly {
		t.Fatalf("expected time-derived EARLY, got %s", res.Phase)
	}

	snap = goodSnapshot(weekdayNoon)
	snap.Rec.Phase = ""
	snap.SettlementAt = weekdayNoon.Add(150 * time.Second)
	res = ComputeEntryBlockers(snap, &cfg, NewState(), 30, false, weekdayNoon)
	if res.Phase != signals.PhaseMid {
		t.Fatalf("expected time-derived MID, got %s", res.Phase)
	}
}

func TestEntryWeekendTightening(t *testing.T) {
	cfg := config.Default()
	saturday := time.Date(2026, time.January, 3, 12, 0, 0, 0, time.UTC)

	snap := goodSnapshot(saturday)
	snap.ProbUp, snap.ProbDown = 0.60, 0.40 // passes 0.58 weekday floor, fails 0.62 weekend floor

	res := ComputeEntryBlockers(snap, &cfg, NewState(), 30, false, saturday)
	if !hasBlockerPrefix(t, res, "Low confidence") {
		t.Fatalf("expected weekend confidence blocker, got %v", res.Blockers)
	}
}

func TestEntryDailyLossLimit(t *testing.T) {
	cfg := config.Default()
	cfg.LossCooldown = 0
	st := NewState()
	st.RecordExit("btc-updown-5m-1150", "Stop Loss", cfg.DailyLossLimit.Neg().Sub(decimal.NewFromInt(1)), false, weekdayNoon.Add(-time.Hour))

	res := ComputeEntryBlockers(goodSnapshot(weekdayNoon), &cfg, st, 30, false, weekdayNoon)
	if !hasBlockerPrefix(t, res, "Daily loss limit") {
		t.Fatalf("expected daily loss blocker, got %v", res.Blockers)
	}
}

func TestEffectiveThresholdsBoostsAreAdditive(t *testing.T) {
	cfg := config.Default()

	base, edge := EffectiveThresholds(signals.PhaseEarly, false, false, &cfg)
	if base != cfg.ProbEarly || edge != cfg.EdgeEarly {
		t.Fatalf("unexpected early base %v/%v", base, edge)
	}

	boosted, _ := EffectiveThresholds(signals.PhaseMid, true, true, &cfg)
	want := cfg.ProbMid + cfg.WeekendProbBoost + cfg.MidPhaseBoost + cfg.InferredSideBoost
	if boosted != want {
		t.Fatalf("expected stacked floor %v, got %v", want, boosted)
	}
}
