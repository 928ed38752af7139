package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/ledger"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
	"github.com/GoPolymarket/updown-trader/pkg/trading"
	"github.com/GoPolymarket/updown-trader/pkg/venue"
)

// dust below which a derived net position counts as flat.
var positionDust = decimal.RequireFromString("0.01")

// Live places real orders through the venue client. Positions are derived
// from the venue's trade history instead of local state, so a restart or
// an out-of-band manual trade cannot desynchronize the engine.
//
// The derivation is O(trades) per refresh. The cache bounds the cost to
// once per TradeRefreshInterval, which is fine at this strategy's trade
// rate; revisit if a session ever accumulates tens of thousands of fills.
type Live struct {
	cfg      *config.Config
	venue    venue.Client
	approver Approver
	ledger   *ledger.Ledger
	log      zerolog.Logger

	cachedTrades []venue.TradeRecord
	lastRefresh  time.Time

	lastExitAttempt map[string]time.Time
}

// Approver is the on-chain approval capability. Nil disables approval
// repair; sells then rely on pre-existing allowance.
type Approver interface {
	Ensure(ctx context.Context) (bool, error)
}

// NewLive builds the live executor.
func NewLive(cfg *config.Config, vc venue.Client, approver Approver, l *ledger.Ledger, log zerolog.Logger) *Live {
	return &Live{
		cfg:             cfg,
		venue:           vc,
		approver:        approver,
		ledger:          l,
		log:             log.With().Str("executor", config.ModeLive).Logger(),
		lastExitAttempt: make(map[string]time.Time),
	}
}

// Mode identifies this executor.
func (l *Live) Mode() string { return config.ModeLive }

// refreshTrades refetches trade history at most once per refresh interval.
// On failure the stale cache is kept.
func (l *Live) refreshTrades(ctx context.Context) {
	if time.Since(l.lastRefresh) < l.cfg.TradeRefreshInterval && l.cachedTrades != nil {
		return
	}
	trades, err := l.venue.TradeHistory(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("trade history refresh failed, keeping cached positions")
		return
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].MatchedAt.Before(trades[j].MatchedAt) })
	l.cachedTrades = trades
	l.lastRefresh = time.Now()
}

// tokenRun accumulates the current unbroken net-long run for one token.
type tokenRun struct {
	slug      string
	net       decimal.Decimal
	buyCost   decimal.Decimal
	buyShares decimal.Decimal
	openedAt  time.Time
	lastTrade time.Time
}

// derivePositions folds the trade history into net open positions. A run
// resets every time the token's net share count returns to flat.
func derivePositions(trades []venue.TradeRecord) []trading.PositionView {
	runs := make(map[string]*tokenRun)
	for _, t := range trades {
		run := runs[t.TokenID]
		if run == nil {
			run = &tokenRun{}
			runs[t.TokenID] = run
		}
		switch t.Side {
		case venue.OrderBuy:
			if !run.net.IsPositive() {
				*run = tokenRun{openedAt: t.MatchedAt}
			}
			run.slug = t.MarketSlug
			run.net = run.net.Add(t.Size)
			run.buyCost = run.buyCost.Add(t.Price.Mul(t.Size))
			run.buyShares = run.buyShares.Add(t.Size)
			run.lastTrade = t.MatchedAt
		case venue.OrderSell:
			run.net = run.net.Sub(t.Size)
			run.lastTrade = t.MatchedAt
		}
	}

	var out []trading.PositionView
	for tokenID, run := range runs {
		if run.net.LessThan(positionDust) || !run.buyShares.IsPositive() {
			continue
		}
		entry := run.buyCost.Div(run.buyShares)
		out = append(out, trading.PositionView{
			ID:          tokenID,
			MarketSlug:  run.slug,
			Side:        sideFromSlug(run.slug),
			TokenID:     tokenID,
			EntryPrice:  entry,
			Shares:      run.net,
			SizeUSD:     entry.Mul(run.net),
			OpenedAt:    run.openedAt,
			LastTradeAt: run.lastTrade,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// OpenPositions derives open positions from cached trade history and
// resolves sides against the snapshot's token ids.
func (l *Live) OpenPositions(ctx context.Context, snap *signals.Snapshot) ([]trading.PositionView, error) {
	l.refreshTrades(ctx)
	positions := derivePositions(l.cachedTrades)
	for i := range positions {
		if snap != nil {
			switch positions[i].TokenID {
			case snap.Up.TokenID:
				positions[i].Side = signals.SideUp
			case snap.Down.TokenID:
				positions[i].Side = signals.SideDown
			}
		}
	}
	return positions, nil
}

// MarkPositions refreshes marks from the snapshot book.
func (l *Live) MarkPositions(positions []trading.PositionView, snap *signals.Snapshot) []trading.PositionView {
	return markAgainst(positions, snap)
}

// feeUSD computes the configured fee impact on a notional, for logging
// only; the venue settles fees itself.
func (l *Live) feeUSD(notional decimal.Decimal) decimal.Decimal {
	if l.cfg.FeeRateBps <= 0 {
		return decimal.Zero
	}
	return notional.Mul(decimal.NewFromFloat(l.cfg.FeeRateBps)).Div(decimal.NewFromInt(10000))
}

// checkOrderBand rejects orders outside the sane share/price window.
func (l *Live) checkOrderBand(shares, price decimal.Decimal) error {
	if shares.LessThan(l.cfg.MinShareSize) {
		return fmt.Errorf("order size %s below minimum %s shares", shares.StringFixed(2), l.cfg.MinShareSize.StringFixed(2))
	}
	if price.LessThan(l.cfg.MinOrderPrice) || price.GreaterThan(l.cfg.MaxOrderPrice) {
		return fmt.Errorf("order price %s outside band [%s, %s]", price.StringFixed(3), l.cfg.MinOrderPrice.StringFixed(2), l.cfg.MaxOrderPrice.StringFixed(2))
	}
	return nil
}

// OpenPosition places a real buy order.
func (l *Live) OpenPosition(ctx context.Context, req *OpenRequest) (*OpenResult, error) {
	if !req.Price.IsPositive() {
		return nil, fmt.Errorf("open without a reference price")
	}
	shares := req.SizeUSD.Div(req.Price).RoundFloor(2)
	if err := l.checkOrderBand(shares, req.Price); err != nil {
		return nil, err
	}

	resp, err := l.venue.PlaceOrder(ctx, &venue.OrderRequest{
		TokenID: req.TokenID,
		Side:    venue.OrderBuy,
		Price:   req.Price,
		Size:    shares,
	})
	if err != nil {
		return nil, fetchErr("place buy", err)
	}
	if !resp.Filled() {
		l.log.Warn().Str("order", resp.OrderID).Str("status", resp.Status).Msg("buy placed but nothing filled")
		return &OpenResult{}, nil
	}

	fillUSD := resp.FilledSize.Mul(resp.AvgPrice)
	fee := l.feeUSD(fillUSD)
	l.log.Info().
		Str("market", req.MarketSlug).
		Str("side", string(req.Side)).
		Str("price", resp.AvgPrice.StringFixed(3)).
		Str("shares", resp.FilledSize.StringFixed(2)).
		Str("fee_usd", fee.StringFixed(4)).
		Msg("live fill")

	if err := l.ledger.AddFill(&ledger.Fill{
		MarketSlug: req.MarketSlug,
		TokenID:    req.TokenID,
		Side:       string(req.Side),
		Action:     venue.OrderBuy,
		Price:      resp.AvgPrice,
		Shares:     resp.FilledSize,
		FeeUSD:     fee,
		At:         time.Now().UTC(),
	}); err != nil {
		l.log.Error().Err(err).Msg("fill not recorded")
	}

	l.lastRefresh = time.Time{}
	return &OpenResult{
		Filled:      true,
		FillPrice:   resp.AvgPrice,
		FillShares:  resp.FilledSize,
		FillSizeUSD: fillUSD,
	}, nil
}

// ClosePosition sells a derived position. The sell size is clamped to the
// minimum of the requested size, the held balance, and the venue-reported
// allowance; a per-token cooldown stops repeated failed attempts.
func (l *Live) ClosePosition(ctx context.Context, positionID string, side signals.Side, shares decimal.Decimal, reason string) (*CloseResult, error) {
	tokenID := positionID
	if last, ok := l.lastExitAttempt[tokenID]; ok && time.Since(last) < l.cfg.ExitRetryCooldown {
		l.log.Debug().Str("token", tokenID).Msg("exit attempt inside retry cooldown")
		return &CloseResult{}, nil
	}
	l.lastExitAttempt[tokenID] = time.Now()

	positions := derivePositions(l.cachedTrades)
	var pos *trading.PositionView
	for i := range positions {
		if positions[i].TokenID == tokenID {
			pos = &positions[i]
			break
		}
	}
	if pos == nil {
		return nil, fmt.Errorf("close of unknown position %s", positionID)
	}

	ba, err := l.venue.TokenBalanceAllowance(ctx, tokenID)
	if err != nil {
		return nil, fetchErr("balance-allowance", err)
	}
	if l.approver != nil && ba.Allowance.LessThan(shares) {
		if submitted, err := l.approver.Ensure(ctx); err != nil {
			l.log.Warn().Err(err).Msg("allowance repair failed")
		} else if submitted {
			l.log.Info().Msg("approval transaction submitted")
		}
	}

	sellShares := decimal.Min(shares, ba.Balance, ba.Allowance).RoundFloor(2)
	if sellShares.LessThan(l.cfg.MinShareSize) {
		l.log.Warn().
			Str("token", tokenID).
			Str("requested", shares.StringFixed(2)).
			Str("sellable", sellShares.StringFixed(2)).
			Msg("sell size below minimum after clamping")
		return &CloseResult{}, nil
	}

	book, err := l.venue.OrderBook(ctx, tokenID)
	if err != nil {
		return nil, fetchErr("orderbook", err)
	}
	price := book.BestBid()
	if price.IsZero() {
		l.log.Warn().Str("token", tokenID).Msg("no bids to sell into, retrying after cooldown")
		return &CloseResult{}, nil
	}
	if price.LessThan(l.cfg.MinOrderPrice) {
		price = l.cfg.MinOrderPrice
	}
	if price.GreaterThan(l.cfg.MaxOrderPrice) {
		price = l.cfg.MaxOrderPrice
	}

	resp, err := l.venue.PlaceOrder(ctx, &venue.OrderRequest{
		TokenID: tokenID,
		Side:    venue.OrderSell,
		Price:   price,
		Size:    sellShares,
	})
	if err != nil {
		return nil, fetchErr("place sell", err)
	}
	if !resp.Filled() {
		l.log.Warn().Str("order", resp.OrderID).Str("status", resp.Status).Msg("sell placed but nothing filled")
		return &CloseResult{}, nil
	}

	proceeds := resp.FilledSize.Mul(resp.AvgPrice)
	pnl := resp.FilledSize.Mul(resp.AvgPrice.Sub(pos.EntryPrice))
	fee := l.feeUSD(proceeds)
	l.log.Info().
		Str("market", pos.MarketSlug).
		Str("side", string(pos.Side)).
		Str("exit_price", resp.AvgPrice.StringFixed(3)).
		Str("pnl", pnl.StringFixed(2)).
		Str("fee_usd", fee.StringFixed(4)).
		Str("reason", reason).
		Msg("live close")

	if err := l.ledger.AddFill(&ledger.Fill{
		MarketSlug: pos.MarketSlug,
		TokenID:    tokenID,
		Side:       string(pos.Side),
		Action:     venue.OrderSell,
		Price:      resp.AvgPrice,
		Shares:     resp.FilledSize,
		FeeUSD:     fee,
		At:         time.Now().UTC(),
	}); err != nil {
		l.log.Error().Err(err).Msg("fill not recorded")
	}

	l.lastRefresh = time.Time{}
	return &CloseResult{Closed: true, ExitPrice: resp.AvgPrice, PnL: pnl, Reason: reason}, nil
}

// Balance reports the live collateral balance. Realized is measured
// against the configured starting balance.
func (l *Live) Balance(ctx context.Context) (*BalanceSummary, error) {
	bal, err := l.venue.CollateralBalance(ctx)
	if err != nil {
		return nil, fetchErr("collateral balance", err)
	}
	return &BalanceSummary{
		Balance:  bal,
		Starting: l.cfg.StartingBalance,
		Realized: bal.Sub(l.cfg.StartingBalance),
	}, nil
}

// CancelAll best-effort cancels outstanding orders; used by the kill
// switch.
func (l *Live) CancelAll(ctx context.Context) error {
	if err := l.venue.CancelAll(ctx); err != nil {
		return fetchErr("cancel all", err)
	}
	return nil
}

// sideFromSlug is the fallback when the snapshot cannot resolve a token
// id; the slug convention ends in the outcome name.
func sideFromSlug(slug string) signals.Side {
	if strings.HasSuffix(slug, "down") {
		return signals.SideDown
	}
	return signals.SideUp
}
