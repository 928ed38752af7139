// Package engine drives one decision tick: mark open positions, run the
// exit chain, and when still flat with trading enabled, run the entry
// gate, size the trade, and open.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/executor"
	"github.com/GoPolymarket/updown-trader/pkg/metrics"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
	"github.com/GoPolymarket/updown-trader/pkg/trading"
)

// canceler is the optional kill-switch capability an executor may offer.
type canceler interface {
	CancelAll(ctx context.Context) error
}

// Engine owns one TradingState and one executor. Ticks run sequentially;
// the mutex only guards the small status surface read by the API layer.
type Engine struct {
	cfg   *config.Config
	exec  executor.OrderExecutor
	state *trading.State
	log   zerolog.Logger

	mu             sync.Mutex
	tradingEnabled bool
	lastStatus     trading.EntryStatus

	sessionPnL decimal.Decimal
}

// New builds an engine with a fresh session state.
func New(cfg *config.Config, exec executor.OrderExecutor, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:            cfg,
		exec:           exec,
		state:          trading.NewState(),
		log:            log.With().Str("component", "engine").Str("mode", exec.Mode()).Logger(),
		tradingEnabled: true,
	}
}

// Mode reports the backing executor's mode.
func (e *Engine) Mode() string { return e.exec.Mode() }

// TradingEnabled reports whether new entries are allowed.
func (e *Engine) TradingEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tradingEnabled
}

// SetTradingEnabled flips the entry kill switch. Disabling also
// best-effort cancels outstanding live orders. An in-flight tick is never
// aborted; the flag takes effect at the next entry evaluation.
func (e *Engine) SetTradingEnabled(ctx context.Context, enabled bool) {
	e.mu.Lock()
	e.tradingEnabled = enabled
	e.mu.Unlock()

	e.log.Info().Bool("enabled", enabled).Msg("trading flag changed")
	if !enabled {
		if c, ok := e.exec.(canceler); ok {
			if err := c.CancelAll(ctx); err != nil {
				e.log.Warn().Err(err).Msg("cancel outstanding orders failed")
			}
		}
	}
}

// LastEntryStatus returns the most recent gate outcome for the API layer.
func (e *Engine) LastEntryStatus() trading.EntryStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStatus
}

// SessionPnL returns realized PnL accumulated by this engine instance.
func (e *Engine) SessionPnL() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionPnL
}

// DailyPnL returns realized PnL since midnight UTC.
func (e *Engine) DailyPnL() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.DailyPnL(time.Now().UTC())
}

// Balance proxies the executor's balance view.
func (e *Engine) Balance(ctx context.Context) (*executor.BalanceSummary, error) {
	return e.exec.Balance(ctx)
}

func (e *Engine) setStatus(res trading.EntryResult, now time.Time) {
	e.state.SetLastEntryStatus(res, now)
	e.mu.Lock()
	e.lastStatus = e.state.LastEntryStatus()
	e.mu.Unlock()
}

// Tick runs one full decision cycle against a snapshot. Transient I/O
// failures degrade to a skipped step; only state corruption errors
// propagate.
func (e *Engine) Tick(ctx context.Context, snap *signals.Snapshot, candleCount int) error {
	now := time.Now().UTC()
	metrics.TicksTotal.Inc()

	positions, err := e.exec.OpenPositions(ctx, snap)
	if err != nil {
		var fe *executor.FetchError
		if errors.As(err, &fe) {
			e.log.Warn().Err(err).Msg("positions unavailable, skipping tick")
			return nil
		}
		return fmt.Errorf("load positions: %w", err)
	}

	positions = e.exec.MarkPositions(positions, snap)
	for i := range positions {
		if err := e.processExit(ctx, &positions[i], snap, now); err != nil {
			return err
		}
	}

	// Exits first, always. Entry evaluation only runs against the
	// post-exit position set.
	positions, err = e.exec.OpenPositions(ctx, snap)
	if err != nil {
		var fe *executor.FetchError
		if errors.As(err, &fe) {
			e.log.Warn().Err(err).Msg("position refetch failed, skipping entry")
			return nil
		}
		return fmt.Errorf("refetch positions: %w", err)
	}

	if !e.TradingEnabled() {
		e.setStatus(trading.EntryResult{Blockers: []string{"Trading disabled"}}, now)
		return nil
	}

	res := trading.ComputeEntryBlockers(snap, e.cfg, e.state, candleCount, len(positions) > 0, now)
	e.setStatus(res, now)
	e.observeBreaker(now)

	if !res.Eligible() {
		metrics.EntriesBlockedTotal.Inc()
		e.log.Debug().Strs("blockers", res.Blockers).Msg("entry blocked")
		return nil
	}

	return e.enter(ctx, snap, res, now)
}

func (e *Engine) processExit(ctx context.Context, pos *trading.PositionView, snap *signals.Snapshot, now time.Time) error {
	if pos.UnrealizedPnL != nil {
		pos.MaxUnrealizedPnL, pos.MinUnrealizedPnL = e.state.TrackPnL(pos.ID, *pos.UnrealizedPnL)
	}

	eval := trading.EvaluateExits(pos, snap, e.cfg, e.state.Grace(pos.ID), now)
	switch eval.GraceAction {
	case trading.GraceStart:
		e.state.StartGrace(pos.ID, now)
		e.log.Info().Str("position", pos.ID).Str("pnl", eval.PnL.StringFixed(2)).Msg("max loss breached, grace window started")
	case trading.GraceClear:
		e.state.ClearGrace(pos.ID)
		e.log.Info().Str("position", pos.ID).Str("pnl", eval.PnL.StringFixed(2)).Msg("recovered, grace window cleared")
	}
	if eval.Decision == nil {
		return nil
	}

	d := eval.Decision
	res, err := e.exec.ClosePosition(ctx, d.PositionID, d.Side, d.Shares, d.Reason)
	if err != nil {
		var fe *executor.FetchError
		if errors.As(err, &fe) {
			e.log.Warn().Err(err).Str("position", d.PositionID).Msg("close failed, retrying next tick")
			return nil
		}
		return fmt.Errorf("close position %s: %w", d.PositionID, err)
	}
	if !res.Closed {
		return nil
	}

	e.state.RecordExit(pos.MarketSlug, res.Reason, res.PnL, e.cfg.SkipSlugAfterMaxLoss, now)
	e.state.ForgetPosition(pos.ID)

	pnlF, _ := res.PnL.Float64()
	metrics.ExitsTotal.WithLabelValues(e.Mode(), metrics.ExitReasonLabel(res.Reason)).Inc()
	metrics.RealizedPnL.Add(pnlF)
	daily, _ := e.state.DailyPnL(now).Float64()
	metrics.DailyPnL.Set(daily)

	e.mu.Lock()
	e.sessionPnL = e.sessionPnL.Add(res.PnL)
	e.mu.Unlock()

	e.log.Info().
		Str("position", d.PositionID).
		Str("reason", res.Reason).
		Str("pnl", res.PnL.StringFixed(2)).
		Str("daily_pnl", e.state.DailyPnL(now).StringFixed(2)).
		Msg("position closed")
	return nil
}

func (e *Engine) enter(ctx context.Context, snap *signals.Snapshot, res trading.EntryResult, now time.Time) error {
	bal, err := e.exec.Balance(ctx)
	if err != nil {
		var fe *executor.FetchError
		if errors.As(err, &fe) {
			e.log.Warn().Err(err).Msg("balance unavailable, skipping entry")
			return nil
		}
		return fmt.Errorf("balance: %w", err)
	}

	balF, _ := bal.Balance.Float64()
	size := trading.ComputeTradeSize(balF, e.cfg)
	if !size.IsPositive() {
		e.log.Debug().Str("balance", bal.Balance.StringFixed(2)).Msg("trade size zero, no entry")
		return nil
	}

	quote := snap.Quote(res.Side)
	price, ok := quote.EffectivePrice()
	if !ok {
		return nil
	}

	phase := res.Phase
	if phase == "" {
		phase = signals.PhaseLate
	}

	open, err := e.exec.OpenPosition(ctx, &executor.OpenRequest{
		Side:       res.Side,
		MarketSlug: snap.MarketSlug,
		TokenID:    quote.TokenID,
		SizeUSD:    size,
		Price:      price,
		Phase:      phase,
	})
	if err != nil {
		var fe *executor.FetchError
		if errors.As(err, &fe) {
			e.log.Warn().Err(err).Msg("open failed, will retry on a later tick")
			return nil
		}
		return fmt.Errorf("open position: %w", err)
	}
	if !open.Filled {
		e.log.Warn().Str("market", snap.MarketSlug).Msg("entry produced no fill")
		return nil
	}

	metrics.TradesTotal.WithLabelValues(e.Mode(), string(res.Side)).Inc()
	e.log.Info().
		Str("market", snap.MarketSlug).
		Str("side", string(res.Side)).
		Bool("inferred", res.SideInferred).
		Str("price", open.FillPrice.StringFixed(3)).
		Str("size_usd", open.FillSizeUSD.StringFixed(2)).
		Msg("position opened")
	return nil
}

func (e *Engine) observeBreaker(now time.Time) {
	tripped, _ := e.state.CheckCircuitBreaker(e.cfg.MaxConsecutiveLosses, e.cfg.BreakerCooldown, now)
	if tripped {
		metrics.CircuitBreakerTripped.Set(1)
	} else {
		metrics.CircuitBreakerTripped.Set(0)
	}
}
