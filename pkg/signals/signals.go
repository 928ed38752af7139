// Package signals defines the per-tick market snapshot consumed by the
// trading engine. A Snapshot is assembled once per poll by a feed
// collaborator and treated as immutable for the duration of the tick.
package signals

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Side is one of the two mutually exclusive outcomes of an up/down market.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// Opposite returns the other outcome.
func (s Side) Opposite() Side {
	switch s {
	case SideUp:
		return SideDown
	case SideDown:
		return SideUp
	default:
		return ""
	}
}

// Valid reports whether s names a tradable outcome.
func (s Side) Valid() bool { return s == SideUp || s == SideDown }

// Phase buckets time-to-settlement into threshold tiers.
type Phase string

const (
	PhaseEarly Phase = "EARLY"
	PhaseMid   Phase = "MID"
	PhaseLate  Phase = "LATE"
)

// Action is the model's recommended handling of the current market.
type Action string

const (
	ActionEnter Action = "ENTER"
	ActionWait  Action = "WAIT"
	ActionExit  Action = "EXIT"
)

// Recommendation is the model's verdict for this tick. Side may be empty
// when the model does not mandate a direction.
type Recommendation struct {
	Action Action
	Side   Side
	Phase  Phase
	Edge   float64
}

// BookSummary is a condensed top-of-book view for one outcome token.
type BookSummary struct {
	BestBid  decimal.Decimal
	BestAsk  decimal.Decimal
	Spread   decimal.Decimal
	BidDepth decimal.Decimal
	AskDepth decimal.Decimal
}

// Liquidity is the total resting depth on both sides of the book.
func (b BookSummary) Liquidity() decimal.Decimal {
	return b.BidDepth.Add(b.AskDepth)
}

// Quote carries the tradable price and book for one outcome.
type Quote struct {
	TokenID string
	Price   decimal.Decimal
	Book    BookSummary
}

// priceSane reports whether p is a usable binary-outcome price.
func priceSane(p decimal.Decimal) bool {
	return p.IsPositive() && p.LessThan(decimal.NewFromInt(1))
}

// PriceSane reports whether the primary price feed value is usable.
func (q Quote) PriceSane() bool { return priceSane(q.Price) }

// EffectivePrice returns the primary price, falling back to the book's
// best ask then best bid when the feed value is invalid. The second return
// is false when no usable price exists at all.
func (q Quote) EffectivePrice() (decimal.Decimal, bool) {
	if priceSane(q.Price) {
		return q.Price, true
	}
	if priceSane(q.Book.BestAsk) {
		return q.Book.BestAsk, true
	}
	if priceSane(q.Book.BestBid) {
		return q.Book.BestBid, true
	}
	return decimal.Zero, false
}

// Indicators is the technical readout attached to a snapshot. The five
// pointer fields must all be present before the entry gate considers the
// feed warmed up.
type Indicators struct {
	RSI        *float64
	MACD       *float64
	MACDSignal *float64
	VWAPDev    *float64 // last price distance from VWAP, as a fraction
	RangePct20 *float64 // 20-candle high/low range over last price
	ImpulsePct float64  // short-horizon spot move, as a fraction
}

// Ready reports whether every required indicator has a value.
func (i Indicators) Ready() bool {
	return i.RSI != nil && i.MACD != nil && i.MACDSignal != nil &&
		i.VWAPDev != nil && i.RangePct20 != nil
}

// Snapshot is one tick's worth of upstream signal data.
type Snapshot struct {
	MarketSlug string
	CapturedAt time.Time

	Up   Quote
	Down Quote

	ProbUp   float64
	ProbDown float64
	Rec      *Recommendation

	// SettlementAt is the venue settlement timestamp; zero when the feed
	// could not resolve it. WindowSecondsLeft is the candle-window derived
	// fallback.
	SettlementAt      time.Time
	WindowSecondsLeft float64

	Indicators   Indicators
	LastPrice    float64
	SpotDelta    float64 // spot reference minus window open
	MarketVolume decimal.Decimal
	BTCVolume    float64
	BTCAvgVolume float64
}

// Quote returns the quote for the requested side.
func (s *Snapshot) Quote(side Side) Quote {
	if side == SideDown {
		return s.Down
	}
	return s.Up
}

// Prob returns the model probability for the requested side.
func (s *Snapshot) Prob(side Side) float64 {
	if side == SideDown {
		return s.ProbDown
	}
	return s.ProbUp
}

// FavoredSide is the outcome the model currently considers more likely,
// or empty on an exact tie.
func (s *Snapshot) FavoredSide() Side {
	switch {
	case s.ProbUp > s.ProbDown:
		return SideUp
	case s.ProbDown > s.ProbUp:
		return SideDown
	default:
		return ""
	}
}

// Confidence is the larger of the two outcome probabilities.
func (s *Snapshot) Confidence() float64 {
	if s.ProbUp > s.ProbDown {
		return s.ProbUp
	}
	return s.ProbDown
}

// SecondsToSettlement prefers the venue settlement timestamp over the
// candle-window remainder.
func (s *Snapshot) SecondsToSettlement(now time.Time) float64 {
	if !s.SettlementAt.IsZero() {
		return s.SettlementAt.Sub(now).Seconds()
	}
	return s.WindowSecondsLeft
}

// Source produces one snapshot per decision tick along with the number of
// warm-up candles the feed has accumulated.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, int, error)
}

// Float64 returns a pointer to v; convenience for Indicators literals.
func Float64(v float64) *float64 { return &v }
