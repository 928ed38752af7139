package executor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
	"github.com/GoPolymarket/updown-trader/pkg/ledger"
	"github.com/GoPolymarket/updown-trader/pkg/signals"
	"github.com/GoPolymarket/updown-trader/pkg/venue"
)

// fakeBooks serves one canned book per token.
type fakeBooks struct {
	books map[string]*venue.Book
}

func (f *fakeBooks) OrderBook(_ context.Context, tokenID string) (*venue.Book, error) {
	if b, ok := f.books[tokenID]; ok {
		return b, nil
	}
	return &venue.Book{TokenID: tokenID}, nil
}

func newPaperFixture(t *testing.T) (*Paper, *ledger.Ledger) {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	cfg := config.Default()
	cfg.DynamicMaxLoss = false
	cfg.MaxLossUSDPerTrade = decimal.NewFromInt(15)

	books := &fakeBooks{books: map[string]*venue.Book{
		"tok-up": {
			TokenID: "tok-up",
			Bids:    []venue.Level{{Price: dec("0.54"), Size: dec("1000")}},
			Asks:    []venue.Level{{Price: dec("0.55"), Size: dec("1000")}},
		},
	}}
	return NewPaper(&cfg, books, l, zerolog.Nop()), l
}

func TestPaperOpenCloseRoundTrip(t *testing.T) {
	p, _ := newPaperFixture(t)
	ctx := context.Background()

	open, err := p.OpenPosition(ctx, &OpenRequest{
		Side:       signals.SideUp,
		MarketSlug: "btc-updown-5m-1200",
		TokenID:    "tok-up",
		SizeUSD:    dec("110"),
		Price:      dec("0.55"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !open.Filled || !open.FillPrice.Equal(dec("0.55")) {
		t.Fatalf("expected ask fill at 0.55, got %+v", open)
	}
	if !open.FillShares.Equal(dec("200")) {
		t.Fatalf("expected 200 shares, got %s", open.FillShares)
	}

	positions, err := p.OpenPositions(ctx, nil)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("expected one position, got %d", len(positions))
	}
	pos := positions[0]

	// A second open must be rejected: single slot.
	if _, err := p.OpenPosition(ctx, &OpenRequest{Side: signals.SideUp, TokenID: "tok-up", SizeUSD: dec("50"), Price: dec("0.55")}); err == nil {
		t.Fatal("expected single-slot rejection")
	}

	res, err := p.ClosePosition(ctx, pos.ID, pos.Side, pos.Shares, "Time Stop: held 3m")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !res.Closed {
		t.Fatal("expected close")
	}
	// Sold 200 at the 0.54 bid: -2 against the 110 basis, inside the cap.
	if !res.PnL.Equal(dec("-2")) {
		t.Fatalf("expected pnl -2, got %s", res.PnL)
	}
	if res.Reason != "Time Stop: held 3m" {
		t.Fatalf("reason must not change without capping, got %q", res.Reason)
	}

	positions, err = p.OpenPositions(ctx, nil)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 0 {
		t.Fatalf("expected flat after close, got %d", len(positions))
	}
}

func TestPaperCloseCapsLossAndOverridesReason(t *testing.T) {
	p, _ := newPaperFixture(t)
	ctx := context.Background()

	// Crash the bid so the realized loss exceeds the 15 USD cap.
	p.books.(*fakeBooks).books["tok-up"].Bids = []venue.Level{{Price: dec("0.40"), Size: dec("1000")}}

	open, err := p.OpenPosition(ctx, &OpenRequest{
		Side: signals.SideUp, MarketSlug: "btc-updown-5m-1200",
		TokenID: "tok-up", SizeUSD: dec("110"), Price: dec("0.55"),
	})
	if err != nil || !open.Filled {
		t.Fatalf("open: %v %+v", err, open)
	}

	positions, _ := p.OpenPositions(ctx, nil)
	res, err := p.ClosePosition(ctx, positions[0].ID, positions[0].Side, positions[0].Shares, "Stop Loss")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	// Raw: 200 * (0.40 - 0.55) = -30, capped to -15.
	if !res.PnL.Equal(dec("-15")) {
		t.Fatalf("expected capped pnl -15, got %s", res.PnL)
	}
	if res.Reason == "Stop Loss" {
		t.Fatal("expected reason override when capping changed the pnl")
	}
	// Ledger identity: shares * exit == cost + pnl.
	lhs := dec("200").Mul(res.ExitPrice)
	rhs := dec("110").Add(res.PnL)
	if !lhs.Sub(rhs).Abs().LessThan(dec("0.000001")) {
		t.Fatalf("identity broken: %s vs %s", lhs, rhs)
	}
}

func TestPaperCloseUnknownPositionIsAnError(t *testing.T) {
	p, _ := newPaperFixture(t)
	if _, err := p.ClosePosition(context.Background(), "no-such-id", signals.SideUp, dec("10"), "Rollover"); err == nil {
		t.Fatal("expected error for unknown position")
	}
}

func TestPaperBalanceTracksRealized(t *testing.T) {
	p, l := newPaperFixture(t)
	ctx := context.Background()

	now := weekdayNoonTrades()[0].MatchedAt
	closed := now.Add(time.Minute)
	tr := &ledger.Trade{
		Mode: config.ModePaper, Status: ledger.StatusClosed,
		MarketSlug: "btc-updown-5m-1155", Side: "UP",
		EntryPrice: dec("0.50"), Shares: dec("100"), SizeUSD: dec("50"),
		ExitPrice: dec("0.60"), PnL: dec("10"), Reason: "TP",
		OpenedAt: now, ClosedAt: &closed,
	}
	if err := l.AddTrade(tr); err != nil {
		t.Fatalf("seed trade: %v", err)
	}

	bal, err := p.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Realized.Equal(dec("10")) {
		t.Fatalf("expected realized 10, got %s", bal.Realized)
	}
	if !bal.Balance.Equal(bal.Starting.Add(dec("10"))) {
		t.Fatalf("expected starting+realized, got %s", bal.Balance)
	}
}
