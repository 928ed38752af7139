// Package updowntrader wires the decision engine to its collaborators:
// config, signal feed, venue client, ledger, and executors. The Client is
// the single aggregate handed to the poll loop and the API layer; nothing
// is reachable through package-level state.
package updowntrader

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/engine"
	"github.com/GoPolymarket/updown-trader/pkg/executor"
	"github.com/GoPolymarket/updown-trader/pkg/feed"
	"github.com/GoPolymarket/updown-trader/pkg/ledger"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
	"github.com/GoPolymarket/updown-trader/pkg/trading"
	"github.com/GoPolymarket/updown-trader/pkg/venue"
)

// Client aggregates the trading collaborators behind one configuration.
type Client struct {
	cfg *config.Config
	log zerolog.Logger

	Feed   signals.Source
	Venue  venue.Client
	Ledger *ledger.Ledger

	approver executor.Approver

	mu     sync.Mutex
	engine *engine.Engine
}

// Option overrides a collaborator before the engine is constructed.
type Option func(*Client)

// WithFeed replaces the snapshot source.
func WithFeed(src signals.Source) Option {
	return func(c *Client) { c.Feed = src }
}

// WithVenue replaces the venue client.
func WithVenue(vc venue.Client) Option {
	return func(c *Client) { c.Venue = vc }
}

// WithApprover sets the on-chain approval capability for live mode.
func WithApprover(a executor.Approver) Option {
	return func(c *Client) { c.approver = a }
}

// New builds the aggregate and an engine for the configured mode.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) (*Client, error) {
	c := &Client{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(c)
	}

	if c.Feed == nil {
		c.Feed = feed.New(cfg.FeedURL)
	}
	if c.Venue == nil {
		c.Venue = venue.NewHTTPClient(cfg.VenueBaseURL)
	}

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	c.Ledger = l

	eng, err := c.buildEngine(cfg.Mode)
	if err != nil {
		return nil, err
	}
	c.engine = eng
	return c, nil
}

// buildEngine constructs an executor for the mode and a fresh engine (and
// with it a fresh session state) on top of it.
func (c *Client) buildEngine(mode string) (*engine.Engine, error) {
	var exec executor.OrderExecutor
	switch mode {
	case config.ModePaper:
		exec = executor.NewPaper(c.cfg, c.Venue, c.Ledger, c.log)
	case config.ModeLive:
		exec = executor.NewLive(c.cfg, c.Venue, c.approver, c.Ledger, c.log)
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	return engine.New(c.cfg, exec, c.log), nil
}

func (c *Client) current() *engine.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

// Tick runs one decision cycle: fetch a snapshot, then drive the engine.
// Feed failures skip the tick.
func (c *Client) Tick(ctx context.Context) error {
	snap, candles, err := c.Feed.Snapshot(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("snapshot unavailable, skipping tick")
		return nil
	}
	return c.current().Tick(ctx, snap, candles)
}

// Mode reports the active executor mode.
func (c *Client) Mode() string { return c.current().Mode() }

// TradingEnabled reports the entry kill switch.
func (c *Client) TradingEnabled() bool { return c.current().TradingEnabled() }

// SetTradingEnabled flips the entry kill switch.
func (c *Client) SetTradingEnabled(ctx context.Context, enabled bool) {
	c.current().SetTradingEnabled(ctx, enabled)
}

// LastEntryStatus exposes the most recent gate outcome.
func (c *Client) LastEntryStatus() trading.EntryStatus { return c.current().LastEntryStatus() }

// Balance proxies the active executor's account view.
func (c *Client) Balance(ctx context.Context) (*executor.BalanceSummary, error) {
	return c.current().Balance(ctx)
}

// DailyPnL is realized PnL since midnight UTC for the active session.
func (c *Client) DailyPnL() decimal.Decimal { return c.current().DailyPnL() }

// SessionPnL is realized PnL since the active engine was constructed.
func (c *Client) SessionPnL() decimal.Decimal { return c.current().SessionPnL() }

// SwitchMode replaces the engine with a fresh one in the requested mode.
// The old session state is discarded, never migrated.
func (c *Client) SwitchMode(ctx context.Context, mode string) error {
	if mode != config.ModePaper && mode != config.ModeLive {
		return fmt.Errorf("unknown mode %q", mode)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine.Mode() == mode {
		return nil
	}
	eng, err := c.buildEngine(mode)
	if err != nil {
		return err
	}
	c.log.Info().Str("from", c.engine.Mode()).Str("to", mode).Msg("switching mode")
	c.engine = eng
	return nil
}
