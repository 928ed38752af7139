package trading

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/config"
)

func TestComputeTradeSizeStakePct(t *testing.T) {
	cfg := config.Default()
	cfg.StakePct = 0.08
	cfg.MinTradeUSD = decimal.NewFromInt(25)
	cfg.MaxTradeUSD = decimal.NewFromInt(250)

	got := ComputeTradeSize(1000, &cfg)
	if !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected 80, got %s", got)
	}
}

func TestComputeTradeSizeFixedContract(t *testing.T) {
	cfg := config.Default()
	cfg.StakePct = 0
	cfg.ContractSize = decimal.NewFromInt(100)
	cfg.MinTradeUSD = decimal.NewFromInt(5)
	cfg.MaxTradeUSD = decimal.NewFromInt(250)

	got := ComputeTradeSize(1000, &cfg)
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected contract size 100, got %s", got)
	}
}

func TestComputeTradeSizeDegenerateBalances(t *testing.T) {
	cfg := config.Default()
	for _, bal := range []float64{0, -50, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := ComputeTradeSize(bal, &cfg); !got.IsZero() {
			t.Fatalf("balance %v: expected 0, got %s", bal, got)
		}
	}
}

func TestComputeTradeSizeClampedToBalance(t *testing.T) {
	cfg := config.Default()
	cfg.StakePct = 0
	cfg.ContractSize = decimal.NewFromInt(100)
	cfg.MinTradeUSD = decimal.NewFromInt(5)

	got := ComputeTradeSize(42.50, &cfg)
	if got.GreaterThan(decimal.RequireFromString("42.5")) {
		t.Fatalf("size %s exceeds balance", got)
	}
	if !got.IsPositive() {
		t.Fatalf("expected positive size, got %s", got)
	}
}

func TestComputeTradeSizeBounds(t *testing.T) {
	cfg := config.Default()
	cfg.StakePct = 0.01
	cfg.MinTradeUSD = decimal.NewFromInt(25)
	cfg.MaxTradeUSD = decimal.NewFromInt(250)

	// 1% of 1000 is 10, below the floor.
	got := ComputeTradeSize(1000, &cfg)
	if !got.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected clamp to min 25, got %s", got)
	}

	cfg.StakePct = 0.9
	got = ComputeTradeSize(1000, &cfg)
	if !got.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("expected clamp to max 250, got %s", got)
	}
}
