package updowntrader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
	"github.com/GoPolymarket/updown-trader/pkg/venue"
)

// stubVenue satisfies venue.Client without any network.
type stubVenue struct{}

func (stubVenue) OrderBook(context.Context, string) (*venue.Book, error) {
	return &venue.Book{}, nil
}
func (stubVenue) Midpoint(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (stubVenue) PlaceOrder(context.Context, *venue.OrderRequest) (*venue.OrderResponse, error) {
	return &venue.OrderResponse{}, nil
}
func (stubVenue) CancelAll(context.Context) error { return nil }
func (stubVenue) CollateralBalance(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(1000), nil
}
func (stubVenue) TokenBalanceAllowance(context.Context, string) (*venue.BalanceAllowance, error) {
	return &venue.BalanceAllowance{}, nil
}
func (stubVenue) TradeHistory(context.Context) ([]venue.TradeRecord, error) { return nil, nil }

type stubFeed struct{}

func (stubFeed) Snapshot(context.Context) (*signals.Snapshot, int, error) {
	return &signals.Snapshot{MarketSlug: "btc-updown-5m-1200"}, 0, nil
}

func testClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.LedgerPath = filepath.Join(t.TempDir(), "updown.db")

	c, err := New(&cfg, zerolog.Nop(), WithFeed(stubFeed{}), WithVenue(stubVenue{}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNewClientDefaultsToPaper(t *testing.T) {
	c := testClient(t)
	if c.Mode() != config.ModePaper {
		t.Fatalf("expected paper mode, got %s", c.Mode())
	}
	if !c.TradingEnabled() {
		t.Fatal("expected trading enabled at start")
	}
}

func TestSwitchModeDiscardsSession(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	c.SetTradingEnabled(ctx, false)
	if c.TradingEnabled() {
		t.Fatal("kill switch did not engage")
	}

	if err := c.SwitchMode(ctx, config.ModeLive); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if c.Mode() != config.ModeLive {
		t.Fatalf("expected live, got %s", c.Mode())
	}
	// A fresh engine means fresh session state, including the kill switch.
	if !c.TradingEnabled() {
		t.Fatal("expected fresh engine with trading enabled")
	}

	if err := c.SwitchMode(ctx, "demo"); err == nil {
		t.Fatal("expected rejection of unknown mode")
	}
}

func TestTickSurvivesFeedFailure(t *testing.T) {
	c := testClient(t)
	c.Feed = failingFeed{}
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("tick must degrade on feed failure, got %v", err)
	}
}

type failingFeed struct{}

func (failingFeed) Snapshot(context.Context) (*signals.Snapshot, int, error) {
	return nil, 0, context.DeadlineExceeded
}
