package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderBookParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/book" || r.URL.Query().Get("token_id") != "tok-up" {
			t.Errorf("unexpected request %s %s", r.URL.Path, r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"asset_id": "tok-up",
			"bids":     []map[string]string{{"price": "0.54", "size": "120"}},
			"asks":     []map[string]string{{"price": "0.56", "size": "80"}},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	book, err := c.OrderBook(context.Background(), "tok-up")
	if err != nil {
		t.Fatalf("orderbook: %v", err)
	}
	if !book.BestBid().Equal(decimal.RequireFromString("0.54")) {
		t.Fatalf("expected bid 0.54, got %s", book.BestBid())
	}
	if !book.BestAsk().Equal(decimal.RequireFromString("0.56")) {
		t.Fatalf("expected ask 0.56, got %s", book.BestAsk())
	}
}

func TestPlaceOrderRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/order" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["side"] != OrderBuy || body["token_id"] != "tok-up" {
			t.Errorf("unexpected body %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"order_id":    "ord-1",
			"status":      "matched",
			"filled_size": "200",
			"avg_price":   "0.55",
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	resp, err := c.PlaceOrder(context.Background(), &OrderRequest{
		TokenID: "tok-up",
		Side:    OrderBuy,
		Price:   decimal.RequireFromString("0.55"),
		Size:    decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !resp.Filled() || !resp.FilledSize.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected full fill, got %+v", resp)
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient balance", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.CollateralBalance(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestTradeHistoryParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{
				"id": "t1", "market": "btc-updown-5m-1200", "asset_id": "tok-up",
				"side": "BUY", "price": "0.50", "size": "100", "match_time": 1767268800,
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	trades, err := c.TradeHistory(context.Background())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(trades) != 1 || trades[0].TokenID != "tok-up" {
		t.Fatalf("unexpected trades %+v", trades)
	}
	if !trades[0].Price.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected price 0.5, got %s", trades[0].Price)
	}
}

func TestAPIKeyHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("expected bearer header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"balance": "1000"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithAPIKey("sekrit"))
	if _, err := c.CollateralBalance(context.Background()); err != nil {
		t.Fatalf("balance: %v", err)
	}
}
