package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/ledger"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
	"github.com/GoPolymarket/updown-trader/pkg/trading"
	"github.com/GoPolymarket/updown-trader/pkg/venue"
)

// BookSource is the slice of the venue client the paper executor needs for
// fill simulation.
type BookSource interface {
	OrderBook(ctx context.Context, tokenID string) (*venue.Book, error)
}

// Paper simulates fills by walking real orderbooks and holds at most one
// open position, persisted through the ledger.
type Paper struct {
	cfg    *config.Config
	books  BookSource
	ledger *ledger.Ledger
	log    zerolog.Logger
}

// NewPaper builds the paper executor.
func NewPaper(cfg *config.Config, books BookSource, l *ledger.Ledger, log zerolog.Logger) *Paper {
	return &Paper{
		cfg:    cfg,
		books:  books,
		ledger: l,
		log:    log.With().Str("executor", config.ModePaper).Logger(),
	}
}

// Mode identifies this executor.
func (p *Paper) Mode() string { return config.ModePaper }

// simulateBuy walks the asks for the requested notional, falling back to
// the reference price when no book is available.
func (p *Paper) simulateBuy(ctx context.Context, tokenID string, notional, refPrice decimal.Decimal) (price, shares decimal.Decimal) {
	if p.books != nil && tokenID != "" {
		book, err := p.books.OrderBook(ctx, tokenID)
		if err != nil {
			p.log.Warn().Err(err).Str("token", tokenID).Msg("book fetch failed, using reference price")
		} else if book != nil && len(book.Asks) > 0 {
			if avg, filled := walkBuy(book.Asks, notional); filled.IsPositive() {
				return avg, filled
			}
		}
	}
	if refPrice.IsPositive() {
		return refPrice, notional.Div(refPrice)
	}
	return decimal.Zero, decimal.Zero
}

// simulateSell walks the bids for the requested shares, falling back to
// the reference price when no book is available.
func (p *Paper) simulateSell(ctx context.Context, tokenID string, shares, refPrice decimal.Decimal) (price, proceeds decimal.Decimal) {
	if p.books != nil && tokenID != "" {
		book, err := p.books.OrderBook(ctx, tokenID)
		if err != nil {
			p.log.Warn().Err(err).Str("token", tokenID).Msg("book fetch failed, using reference price")
		} else if book != nil && len(book.Bids) > 0 {
			if avg, got := walkSell(book.Bids, shares); got.IsPositive() {
				return avg, got
			}
		}
	}
	if refPrice.IsPositive() {
		return refPrice, shares.Mul(refPrice)
	}
	return decimal.Zero, decimal.Zero
}

// OpenPosition fills the requested notional against the live book and
// records the open trade. Only one position may exist at a time.
func (p *Paper) OpenPosition(ctx context.Context, req *OpenRequest) (*OpenResult, error) {
	existing, err := p.ledger.OpenTrade(config.ModePaper)
	if err != nil {
		return nil, fetchErr("load open trade", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("open position already exists: %s", existing.ID)
	}

	price, shares := p.simulateBuy(ctx, req.TokenID, req.SizeUSD, req.Price)
	if !shares.IsPositive() {
		return &OpenResult{}, nil
	}
	filledUSD := shares.Mul(price)

	t := &ledger.Trade{
		Mode:       config.ModePaper,
		Status:     ledger.StatusOpen,
		MarketSlug: req.MarketSlug,
		Side:       string(req.Side),
		TokenID:    req.TokenID,
		EntryPrice: price,
		Shares:     shares,
		SizeUSD:    filledUSD,
		OpenedAt:   time.Now().UTC(),
	}
	if err := p.ledger.AddTrade(t); err != nil {
		return nil, fetchErr("record trade", err)
	}

	p.log.Info().
		Str("market", req.MarketSlug).
		Str("side", string(req.Side)).
		Str("phase", string(req.Phase)).
		Str("price", price.StringFixed(3)).
		Str("shares", shares.StringFixed(2)).
		Str("size_usd", filledUSD.StringFixed(2)).
		Msg("paper fill")

	return &OpenResult{
		Filled:      true,
		FillPrice:   price,
		FillShares:  shares,
		FillSizeUSD: filledUSD,
	}, nil
}

// ClosePosition sells the open trade into the book, caps the realized
// loss, and closes the ledger row. The reason is overridden only when
// capping actually changed the PnL.
func (p *Paper) ClosePosition(ctx context.Context, positionID string, side signals.Side, shares decimal.Decimal, reason string) (*CloseResult, error) {
	t, err := p.ledger.TradeByID(positionID)
	if err != nil {
		return nil, fetchErr("load trade", err)
	}
	if t == nil || t.Status != ledger.StatusOpen {
		return nil, fmt.Errorf("close of unknown position %s", positionID)
	}

	sellShares := shares
	if !sellShares.IsPositive() || sellShares.GreaterThan(t.Shares) {
		sellShares = t.Shares
	}

	exitPrice, proceeds := p.simulateSell(ctx, t.TokenID, sellShares, t.EntryPrice)
	if !exitPrice.IsPositive() {
		exitPrice = t.EntryPrice
		proceeds = sellShares.Mul(exitPrice)
	}

	rawPnL := proceeds.Sub(t.SizeUSD)
	pnl, cappedExit := trading.CapPnl(rawPnL, exitPrice, t.SizeUSD, sellShares, p.cfg)
	if !pnl.Equal(rawPnL) {
		exitPrice = cappedExit
		reason = fmt.Sprintf("Max Loss: capped from %s", rawPnL.StringFixed(2))
	}

	now := time.Now().UTC()
	t.Status = ledger.StatusClosed
	t.ExitPrice = exitPrice
	t.PnL = pnl
	t.Reason = reason
	t.ClosedAt = &now
	if err := p.ledger.UpdateTrade(t); err != nil {
		return nil, fetchErr("close trade", err)
	}

	p.log.Info().
		Str("market", t.MarketSlug).
		Str("side", t.Side).
		Str("exit_price", exitPrice.StringFixed(3)).
		Str("pnl", pnl.StringFixed(2)).
		Str("reason", reason).
		Msg("paper close")

	return &CloseResult{Closed: true, ExitPrice: exitPrice, PnL: pnl, Reason: reason}, nil
}

// OpenPositions returns the single open trade as a position view.
func (p *Paper) OpenPositions(ctx context.Context, snap *signals.Snapshot) ([]trading.PositionView, error) {
	t, err := p.ledger.OpenTrade(config.ModePaper)
	if err != nil {
		return nil, fetchErr("load open trade", err)
	}
	if t == nil {
		return nil, nil
	}
	return []trading.PositionView{{
		ID:          t.ID,
		MarketSlug:  t.MarketSlug,
		Side:        signals.Side(t.Side),
		TokenID:     t.TokenID,
		EntryPrice:  t.EntryPrice,
		Shares:      t.Shares,
		SizeUSD:     t.SizeUSD,
		OpenedAt:    t.OpenedAt,
		LastTradeAt: t.OpenedAt,
	}}, nil
}

// MarkPositions refreshes marks from the snapshot book.
func (p *Paper) MarkPositions(positions []trading.PositionView, snap *signals.Snapshot) []trading.PositionView {
	return markAgainst(positions, snap)
}

// Balance reports starting balance plus realized PnL across closed paper
// trades.
func (p *Paper) Balance(ctx context.Context) (*BalanceSummary, error) {
	realized, err := p.ledger.RealizedPnL(config.ModePaper)
	if err != nil {
		return nil, fetchErr("realized pnl", err)
	}
	return &BalanceSummary{
		Balance:  p.cfg.StartingBalance.Add(realized),
		Starting: p.cfg.StartingBalance,
		Realized: realized,
	}, nil
}
