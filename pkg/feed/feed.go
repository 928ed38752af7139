// Package feed fetches signal snapshots from the model service. The
// service aggregates market data and indicators out of process; this
// client only decodes its JSON into the engine's snapshot type.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GoPolymarket/updown-trader/pkg/signals"
)

// Client polls the model service's snapshot endpoint.
type Client struct {
	url  string
	http *http.Client
}

// New builds a feed client for the snapshot URL.
func New(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

type wireQuote struct {
	TokenID  string  `json:"token_id"`
	Price    float64 `json:"price"`
	BestBid  float64 `json:"best_bid"`
	BestAsk  float64 `json:"best_ask"`
	Spread   float64 `json:"spread"`
	BidDepth float64 `json:"bid_depth"`
	AskDepth float64 `json:"ask_depth"`
}

type wireSnapshot struct {
	MarketSlug string    `json:"market_slug"`
	CapturedAt time.Time `json:"captured_at"`

	Up   wireQuote `json:"up"`
	Down wireQuote `json:"down"`

	ProbUp   float64 `json:"prob_up"`
	ProbDown float64 `json:"prob_down"`

	Rec *struct {
		Action string  `json:"action"`
		Side   string  `json:"side"`
		Phase  string  `json:"phase"`
		Edge   float64 `json:"edge"`
	} `json:"recommendation"`

	SettlementAt      *time.Time `json:"settlement_at"`
	WindowSecondsLeft float64    `json:"window_seconds_left"`

	RSI        *float64 `json:"rsi"`
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	VWAPDev    *float64 `json:"vwap_dev"`
	RangePct20 *float64 `json:"range_pct_20"`
	ImpulsePct float64  `json:"impulse_pct"`

	LastPrice    float64 `json:"last_price"`
	SpotDelta    float64 `json:"spot_delta"`
	MarketVolume float64 `json:"market_volume"`
	BTCVolume    float64 `json:"btc_volume"`
	BTCAvgVolume float64 `json:"btc_avg_volume"`

	CandleCount int `json:"candle_count"`
}

func convertQuote(w wireQuote) signals.Quote {
	return signals.Quote{
		TokenID: w.TokenID,
		Price:   decimal.NewFromFloat(w.Price),
		Book: signals.BookSummary{
			BestBid:  decimal.NewFromFloat(w.BestBid),
			BestAsk:  decimal.NewFromFloat(w.BestAsk),
			Spread:   decimal.NewFromFloat(w.Spread),
			BidDepth: decimal.NewFromFloat(w.BidDepth),
			AskDepth: decimal.NewFromFloat(w.AskDepth),
		},
	}
}

// Snapshot fetches and decodes one snapshot plus the feed's warm-up candle
// count.
func (c *Client) Snapshot(ctx context.Context) (*signals.Snapshot, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build snapshot request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch snapshot: status %d", resp.StatusCode)
	}

	var w wireSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if w.MarketSlug == "" {
		return nil, 0, fmt.Errorf("snapshot missing market slug")
	}

	snap := &signals.Snapshot{
		MarketSlug:        w.MarketSlug,
		CapturedAt:        w.CapturedAt,
		Up:                convertQuote(w.Up),
		Down:              convertQuote(w.Down),
		ProbUp:            w.ProbUp,
		ProbDown:          w.ProbDown,
		WindowSecondsLeft: w.WindowSecondsLeft,
		Indicators: signals.Indicators{
			RSI:        w.RSI,
			MACD:       w.MACD,
			MACDSignal: w.MACDSignal,
			VWAPDev:    w.VWAPDev,
			RangePct20: w.RangePct20,
			ImpulsePct: w.ImpulsePct,
		},
		LastPrice:    w.LastPrice,
		SpotDelta:    w.SpotDelta,
		MarketVolume: decimal.NewFromFloat(w.MarketVolume),
		BTCVolume:    w.BTCVolume,
		BTCAvgVolume: w.BTCAvgVolume,
	}
	if w.SettlementAt != nil {
		snap.SettlementAt = *w.SettlementAt
	}
	if w.Rec != nil {
		snap.Rec = &signals.Recommendation{
			Action: signals.Action(w.Rec.Action),
			Side:   signals.Side(w.Rec.Side),
			Phase:  signals.Phase(w.Rec.Phase),
			Edge:   w.Rec.Edge,
		}
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now().UTC()
	}
	return snap, w.CandleCount, nil
}
