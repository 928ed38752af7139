// Package metrics registers prometheus instruments for the trading loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "updown_ticks_total", Help: "Decision ticks processed"},
	)
	EntriesBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "updown_entries_blocked_total", Help: "Ticks where entry was refused by the gate"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "updown_trades_total", Help: "Positions opened"},
		[]string{"mode", "side"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "updown_exits_total", Help: "Positions closed"},
		[]string{"mode", "reason"},
	)
	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "updown_realized_pnl_usd", Help: "Session realized PnL in USD"},
	)
	DailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "updown_daily_pnl_usd", Help: "Realized PnL since midnight in USD"},
	)
	CircuitBreakerTripped = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "updown_circuit_breaker_tripped", Help: "1 while the consecutive-loss breaker blocks entries"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		EntriesBlockedTotal,
		TradesTotal,
		ExitsTotal,
		RealizedPnL,
		DailyPnL,
		CircuitBreakerTripped,
	)
}

// ExitReasonLabel collapses free-form exit reasons to a bounded label set.
func ExitReasonLabel(reason string) string {
	switch {
	case reason == "":
		return "unknown"
	case len(reason) >= 8 && reason[:8] == "Max Loss":
		return "max_loss"
	case len(reason) >= 11 && reason[:11] == "Trailing TP":
		return "trailing_tp"
	case len(reason) >= 2 && reason[:2] == "TP":
		return "take_profit"
	case len(reason) >= 9 && reason[:9] == "Time Stop":
		return "time_stop"
	case len(reason) >= 9 && reason[:9] == "Stop Loss":
		return "stop_loss"
	case len(reason) >= 8 && reason[:8] == "Rollover":
		return "rollover"
	case len(reason) >= 10 && reason[:10] == "Settlement":
		return "settlement"
	default:
		return "other"
	}
}
