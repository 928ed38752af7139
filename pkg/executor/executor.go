// Package executor places and tracks orders. The paper executor simulates
// fills against live orderbooks and persists through the ledger; the live
// executor trades through the venue client. Both satisfy OrderExecutor so
// the engine never branches on mode.
package executor

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/signals"
	"github.com/GoPolymarket/updown-trader/pkg/trading"
	"github.com/GoPolymarket/updown-trader/pkg/venue"
)

// FetchError marks a transient I/O failure at the executor boundary. The
// engine degrades to a fallback (skip the tick, keep cached positions)
// instead of propagating it into the decision functions.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err}
}

// OpenRequest describes the entry the engine wants.
type OpenRequest struct {
	Side       signals.Side
	MarketSlug string
	TokenID    string
	SizeUSD    decimal.Decimal
	Price      decimal.Decimal
	Phase      signals.Phase
}

// OpenResult reports what actually filled.
type OpenResult struct {
	Filled      bool
	FillPrice   decimal.Decimal
	FillShares  decimal.Decimal
	FillSizeUSD decimal.Decimal
}

// CloseResult reports the realized outcome of a close.
type CloseResult struct {
	Closed    bool
	ExitPrice decimal.Decimal
	PnL       decimal.Decimal
	Reason    string
}

// BalanceSummary is the account view used for sizing and the kill switch.
type BalanceSummary struct {
	Balance  decimal.Decimal
	Starting decimal.Decimal
	Realized decimal.Decimal
}

// OrderExecutor is the capability surface the engine drives. I/O failures
// come back as *FetchError; anything else signals state corruption, such
// as closing a position that does not exist.
type OrderExecutor interface {
	OpenPosition(ctx context.Context, req *OpenRequest) (*OpenResult, error)
	ClosePosition(ctx context.Context, positionID string, side signals.Side, shares decimal.Decimal, reason string) (*CloseResult, error)
	OpenPositions(ctx context.Context, snap *signals.Snapshot) ([]trading.PositionView, error)
	MarkPositions(positions []trading.PositionView, snap *signals.Snapshot) []trading.PositionView
	Balance(ctx context.Context) (*BalanceSummary, error)
	Mode() string
}

// walkBuy consumes ascending ask levels until the notional is spent or the
// book runs out, returning the VWAP and total shares taken.
func walkBuy(asks []venue.Level, notional decimal.Decimal) (avgPrice, shares decimal.Decimal) {
	remaining := notional
	spent := decimal.Zero
	for _, lvl := range asks {
		if !remaining.IsPositive() {
			break
		}
		if !lvl.Price.IsPositive() || !lvl.Size.IsPositive() {
			continue
		}
		levelNotional := lvl.Price.Mul(lvl.Size)
		take := decimal.Min(remaining, levelNotional)
		shares = shares.Add(take.Div(lvl.Price))
		spent = spent.Add(take)
		remaining = remaining.Sub(take)
	}
	if shares.IsPositive() {
		avgPrice = spent.Div(shares)
	}
	return avgPrice, shares
}

// walkSell consumes descending bid levels until the share count is sold or
// the book runs out, returning the VWAP and total proceeds.
func walkSell(bids []venue.Level, shares decimal.Decimal) (avgPrice, proceeds decimal.Decimal) {
	remaining := shares
	sold := decimal.Zero
	for _, lvl := range bids {
		if !remaining.IsPositive() {
			break
		}
		if !lvl.Price.IsPositive() || !lvl.Size.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, lvl.Size)
		proceeds = proceeds.Add(take.Mul(lvl.Price))
		sold = sold.Add(take)
		remaining = remaining.Sub(take)
	}
	if sold.IsPositive() {
		avgPrice = proceeds.Div(sold)
	}
	return avgPrice, proceeds
}

// markAgainst recomputes mark price and unrealized PnL from the snapshot's
// book for the held side. Shared by both executors.
func markAgainst(positions []trading.PositionView, snap *signals.Snapshot) []trading.PositionView {
	out := make([]trading.PositionView, len(positions))
	for i, pos := range positions {
		q := snap.Quote(pos.Side)
		mark := q.Book.BestBid
		if !mark.IsPositive() {
			if eff, ok := q.EffectivePrice(); ok {
				mark = eff
			}
		}
		if mark.IsPositive() {
			pnl := pos.Shares.Mul(mark.Sub(pos.EntryPrice))
			pos.MarkPrice = &mark
			pos.UnrealizedPnL = &pnl
		}
		out[i] = pos
	}
	return out
}
