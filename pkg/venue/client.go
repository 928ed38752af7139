package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Client is the venue API surface the executors depend on.
type Client interface {
	OrderBook(ctx context.Context, tokenID string) (*Book, error)
	Midpoint(ctx context.Context, tokenID string) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	CancelAll(ctx context.Context) error
	CollateralBalance(ctx context.Context) (decimal.Decimal, error)
	TokenBalanceAllowance(ctx context.Context, tokenID string) (*BalanceAllowance, error)
	TradeHistory(ctx context.Context) ([]TradeRecord, error)
}

// HTTPClient talks to the venue's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithAPIKey attaches an API key to every request.
func WithAPIKey(key string) Option {
	return func(c *HTTPClient) { c.apiKey = key }
}

// WithHTTPClient overrides the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

// NewHTTPClient builds a venue client against baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wireBook struct {
	AssetID string      `json:"asset_id"`
	Bids    []wireLevel `json:"bids"`
	Asks    []wireLevel `json:"asks"`
}

func parseLevels(in []wireLevel) ([]Level, error) {
	out := make([]Level, 0, len(in))
	for _, l := range in {
		price, err := decimal.NewFromString(l.Price)
		if err != nil {
			return nil, fmt.Errorf("parse level price %q: %w", l.Price, err)
		}
		size, err := decimal.NewFromString(l.Size)
		if err != nil {
			return nil, fmt.Errorf("parse level size %q: %w", l.Size, err)
		}
		out = append(out, Level{Price: price, Size: size})
	}
	return out, nil
}

// OrderBook fetches the full book for one token.
func (c *HTTPClient) OrderBook(ctx context.Context, tokenID string) (*Book, error) {
	q := url.Values{"token_id": {tokenID}}
	var wb wireBook
	if err := c.doJSON(ctx, http.MethodGet, "/book", q, nil, &wb); err != nil {
		return nil, err
	}
	bids, err := parseLevels(wb.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(wb.Asks)
	if err != nil {
		return nil, err
	}
	return &Book{TokenID: tokenID, Bids: bids, Asks: asks}, nil
}

// Midpoint fetches the mid price for one token.
func (c *HTTPClient) Midpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	q := url.Values{"token_id": {tokenID}}
	var out struct {
		Mid string `json:"mid"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/midpoint", q, nil, &out); err != nil {
		return decimal.Zero, err
	}
	mid, err := decimal.NewFromString(out.Mid)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse midpoint %q: %w", out.Mid, err)
	}
	return mid, nil
}

// PlaceOrder submits a marketable limit order.
func (c *HTTPClient) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	body := map[string]string{
		"token_id": req.TokenID,
		"side":     req.Side,
		"price":    req.Price.String(),
		"size":     req.Size.String(),
	}
	var out struct {
		OrderID    string `json:"order_id"`
		Status     string `json:"status"`
		FilledSize string `json:"filled_size"`
		AvgPrice   string `json:"avg_price"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/order", nil, body, &out); err != nil {
		return nil, err
	}
	resp := &OrderResponse{OrderID: out.OrderID, Status: out.Status}
	if out.FilledSize != "" {
		size, err := decimal.NewFromString(out.FilledSize)
		if err != nil {
			return nil, fmt.Errorf("parse filled size %q: %w", out.FilledSize, err)
		}
		resp.FilledSize = size
	}
	if out.AvgPrice != "" {
		price, err := decimal.NewFromString(out.AvgPrice)
		if err != nil {
			return nil, fmt.Errorf("parse avg price %q: %w", out.AvgPrice, err)
		}
		resp.AvgPrice = price
	}
	return resp, nil
}

// CancelAll cancels every resting order for the account.
func (c *HTTPClient) CancelAll(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/orders", nil, nil, nil)
}

// CollateralBalance returns the account's free collateral in USD.
func (c *HTTPClient) CollateralBalance(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Balance string `json:"balance"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/balance", nil, nil, &out); err != nil {
		return decimal.Zero, err
	}
	bal, err := decimal.NewFromString(out.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", out.Balance, err)
	}
	return bal, nil
}

// TokenBalanceAllowance returns the holdings and spendable approval for
// one outcome token.
func (c *HTTPClient) TokenBalanceAllowance(ctx context.Context, tokenID string) (*BalanceAllowance, error) {
	q := url.Values{"token_id": {tokenID}}
	var out struct {
		Balance   string `json:"balance"`
		Allowance string `json:"allowance"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/balance-allowance", q, nil, &out); err != nil {
		return nil, err
	}
	bal, err := decimal.NewFromString(out.Balance)
	if err != nil {
		return nil, fmt.Errorf("parse token balance %q: %w", out.Balance, err)
	}
	allow, err := decimal.NewFromString(out.Allowance)
	if err != nil {
		return nil, fmt.Errorf("parse allowance %q: %w", out.Allowance, err)
	}
	return &BalanceAllowance{Balance: bal, Allowance: allow}, nil
}

// TradeHistory returns the account's executions, newest first.
func (c *HTTPClient) TradeHistory(ctx context.Context) ([]TradeRecord, error) {
	var out []struct {
		ID        string `json:"id"`
		Market    string `json:"market"`
		AssetID   string `json:"asset_id"`
		Side      string `json:"side"`
		Price     string `json:"price"`
		Size      string `json:"size"`
		MatchTime int64  `json:"match_time"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/trades", nil, nil, &out); err != nil {
		return nil, err
	}
	trades := make([]TradeRecord, 0, len(out))
	for _, t := range out {
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			return nil, fmt.Errorf("parse trade price %q: %w", t.Price, err)
		}
		size, err := decimal.NewFromString(t.Size)
		if err != nil {
			return nil, fmt.Errorf("parse trade size %q: %w", t.Size, err)
		}
		trades = append(trades, TradeRecord{
			ID:         t.ID,
			MarketSlug: t.Market,
			TokenID:    t.AssetID,
			Side:       t.Side,
			Price:      price,
			Size:       size,
			MatchedAt:  time.Unix(t.MatchTime, 0).UTC(),
		})
	}
	return trades, nil
}
