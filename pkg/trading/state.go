package trading

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// State is the session-scoped risk tracker. It is owned exclusively by one
// engine and never accessed concurrently, so it carries no lock. Switching
// executor mode constructs a fresh State.
type State struct {
	lastWinAt  time.Time
	lastLossAt time.Time

	skipSlug string

	consecutiveLosses int
	breakerTrippedAt  time.Time

	dailyPnL decimal.Decimal
	dailyKey string

	mfe   map[string]decimal.Decimal
	mae   map[string]decimal.Decimal
	grace map[string]GraceState

	lastEntry EntryStatus
}

// NewState returns an empty session state.
func NewState() *State {
	return &State{
		mfe:   make(map[string]decimal.Decimal),
		mae:   make(map[string]decimal.Decimal),
		grace: make(map[string]GraceState),
	}
}

func dayKey(now time.Time) string { return now.UTC().Format("2006-01-02") }

// rollDay resets the daily PnL accumulator at midnight UTC.
func (s *State) rollDay(now time.Time) {
	key := dayKey(now)
	if s.dailyKey != key {
		s.dailyKey = key
		s.dailyPnL = decimal.Zero
	}
}

// DailyPnL returns realized PnL accumulated since midnight UTC.
func (s *State) DailyPnL(now time.Time) decimal.Decimal {
	s.rollDay(now)
	return s.dailyPnL
}

// LastWinAt returns the timestamp of the most recent winning exit.
func (s *State) LastWinAt() time.Time { return s.lastWinAt }

// LastLossAt returns the timestamp of the most recent losing exit.
func (s *State) LastLossAt() time.Time { return s.lastLossAt }

// ConsecutiveLosses returns the current losing streak length.
func (s *State) ConsecutiveLosses() int { return s.consecutiveLosses }

// TrackPnL folds a fresh unrealized PnL observation into the MFE/MAE
// tracking for a position and returns the updated pair.
func (s *State) TrackPnL(positionID string, pnl decimal.Decimal) (mfe, mae decimal.Decimal) {
	if prev, ok := s.mfe[positionID]; !ok || pnl.GreaterThan(prev) {
		s.mfe[positionID] = pnl
	}
	if prev, ok := s.mae[positionID]; !ok || pnl.LessThan(prev) {
		s.mae[positionID] = pnl
	}
	return s.mfe[positionID], s.mae[positionID]
}

// MFE returns the best unrealized PnL observed for a position.
func (s *State) MFE(positionID string) (decimal.Decimal, bool) {
	v, ok := s.mfe[positionID]
	return v, ok
}

// MAE returns the worst unrealized PnL observed for a position.
func (s *State) MAE(positionID string) (decimal.Decimal, bool) {
	v, ok := s.mae[positionID]
	return v, ok
}

// Grace returns the grace sub-state for a position.
func (s *State) Grace(positionID string) GraceState { return s.grace[positionID] }

// StartGrace begins the one-and-only grace window for a position.
func (s *State) StartGrace(positionID string, now time.Time) {
	s.grace[positionID] = GraceState{BreachedAt: now, Used: true}
}

// ClearGrace stops a running grace timer. Used stays true: the window is
// spent even when the position recovered.
func (s *State) ClearGrace(positionID string) {
	g := s.grace[positionID]
	g.BreachedAt = time.Time{}
	s.grace[positionID] = g
}

// ForgetPosition drops all per-position tracking after a close.
func (s *State) ForgetPosition(positionID string) {
	delete(s.mfe, positionID)
	delete(s.mae, positionID)
	delete(s.grace, positionID)
}

// TrackedPositions returns the ids currently carrying MFE/MAE state.
func (s *State) TrackedPositions() []string {
	ids := make([]string, 0, len(s.mfe))
	for id := range s.mfe {
		ids = append(ids, id)
	}
	return ids
}

// RecordExit books a realized exit: cooldown stamps, losing-streak
// counter, the skip-market flag on a max-loss stop, and daily PnL.
func (s *State) RecordExit(marketSlug, reason string, pnl decimal.Decimal, skipOnMaxLoss bool, now time.Time) {
	s.rollDay(now)
	s.dailyPnL = s.dailyPnL.Add(pnl)

	if pnl.IsNegative() {
		s.lastLossAt = now
		s.consecutiveLosses++
		if skipOnMaxLoss && strings.HasPrefix(reason, "Max Loss") {
			s.skipSlug = marketSlug
		}
	} else {
		s.lastWinAt = now
		s.consecutiveLosses = 0
	}
}

// ShouldSkipSlug reports whether entries on this market slug are blocked
// by a previous max-loss stop. Seeing a different slug clears the flag.
func (s *State) ShouldSkipSlug(slug string) bool {
	if s.skipSlug == "" {
		return false
	}
	if s.skipSlug != slug {
		s.skipSlug = ""
		return false
	}
	return true
}

// CheckCircuitBreaker trips once the losing streak reaches maxLosses and
// stays tripped for the cooldown, after which the streak resets.
func (s *State) CheckCircuitBreaker(maxLosses int, cooldown time.Duration, now time.Time) (tripped bool, remaining time.Duration) {
	if !s.breakerTrippedAt.IsZero() {
		elapsed := now.Sub(s.breakerTrippedAt)
		if elapsed < cooldown {
			return true, cooldown - elapsed
		}
		s.breakerTrippedAt = time.Time{}
		s.consecutiveLosses = 0
		return false, 0
	}
	if maxLosses > 0 && s.consecutiveLosses >= maxLosses {
		s.breakerTrippedAt = now
		return true, cooldown
	}
	return false, 0
}

// SetLastEntryStatus records the most recent gate run for observability.
func (s *State) SetLastEntryStatus(res EntryResult, now time.Time) {
	s.lastEntry = EntryStatus{
		At:       now,
		Eligible: res.Eligible(),
		Side:     res.Side,
		Inferred: res.SideInferred,
		Blockers: append([]string(nil), res.Blockers...),
	}
}

// LastEntryStatus returns the last recorded gate outcome.
func (s *State) LastEntryStatus() EntryStatus { return s.lastEntry }
