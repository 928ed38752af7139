// Package trading contains the pure decision core: entry gating, exit
// evaluation, position sizing, session risk state, and the engine that
// drives one decision tick against an order executor.
package trading

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/signals"
)

// PositionView unifies the paper and live executors' notion of an open
// position. MarkPrice and UnrealizedPnL are nil until the first successful
// mark-to-market; TokenID is set only by the live executor.
type PositionView struct {
	ID         string
	MarketSlug string
	Side       signals.Side
	TokenID    string

	EntryPrice decimal.Decimal
	Shares     decimal.Decimal
	SizeUSD    decimal.Decimal

	MarkPrice     *decimal.Decimal
	UnrealizedPnL *decimal.Decimal

	// MFE/MAE: best and worst unrealized PnL seen since entry. Maintained
	// by TradingState; MaxUnrealizedPnL >= UnrealizedPnL >= MinUnrealizedPnL
	// once tracking has begun.
	MaxUnrealizedPnL decimal.Decimal
	MinUnrealizedPnL decimal.Decimal

	OpenedAt    time.Time
	LastTradeAt time.Time
}

// Age is the time the position has been open.
func (p *PositionView) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

// GraceState is the per-position max-loss grace window. A zero BreachedAt
// means no timer is running. Used flips to true the first time a window
// starts and never resets, so each position gets at most one grace window.
type GraceState struct {
	BreachedAt time.Time
	Used       bool
}

// Active reports whether a grace timer is currently running.
func (g GraceState) Active() bool { return !g.BreachedAt.IsZero() }

// GraceAction is the grace-state transition requested by the exit
// evaluator. The caller (engine) applies it to TradingState.
type GraceAction int

const (
	GraceNone GraceAction = iota
	GraceStart
	GraceClear
)

func (a GraceAction) String() string {
	switch a {
	case GraceStart:
		return "START_GRACE"
	case GraceClear:
		return "CLEAR_GRACE"
	default:
		return "NONE"
	}
}

// ExitDecision instructs the executor to close a position.
type ExitDecision struct {
	PositionID string
	Side       signals.Side
	Shares     decimal.Decimal
	Reason     string
}

// ExitEval is the full result of evaluating one position for exit.
// OpposingMoreLikely is computed from model probabilities on every call,
// independent of whether any exit fires.
type ExitEval struct {
	Decision           *ExitDecision
	GraceAction        GraceAction
	PnL                decimal.Decimal
	OpposingMoreLikely bool
}

// EntryResult is the outcome of the entry gate. Side is the outcome that
// would be traded (explicit from the recommendation or inferred from model
// probabilities); it is empty when no side could be resolved. Phase is the
// bucket the thresholds were evaluated against; it is empty when the gate
// aborted before resolving one.
type EntryResult struct {
	Blockers     []string
	Side         signals.Side
	SideInferred bool
	Phase        signals.Phase
}

// Eligible reports whether every gate condition passed.
func (r EntryResult) Eligible() bool { return len(r.Blockers) == 0 && r.Side.Valid() }

// EntryStatus is the observable snapshot of the last gate run, exposed to
// the API layer.
type EntryStatus struct {
	At       time.Time
	Eligible bool
	Side     signals.Side
	Inferred bool
	Blockers []string
}
