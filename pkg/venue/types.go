// Package venue is the exchange-facing client: orderbook and price
// queries, order placement, balance/allowance lookups, trade history, and
// on-chain approval transactions.
package venue

import (
	"time"

	"github.com/shopspring/decimal"
)

// Level is one orderbook price level.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// Book is a full orderbook snapshot for one outcome token. Bids are sorted
// best (highest) first, asks best (lowest) first.
type Book struct {
	TokenID string
	Bids    []Level
	Asks    []Level
}

// BestBid returns the top bid, or zero on an empty side.
func (b *Book) BestBid() decimal.Decimal {
	if len(b.Bids) == 0 {
		return decimal.Zero
	}
	return b.Bids[0].Price
}

// BestAsk returns the top ask, or zero on an empty side.
func (b *Book) BestAsk() decimal.Decimal {
	if len(b.Asks) == 0 {
		return decimal.Zero
	}
	return b.Asks[0].Price
}

const (
	OrderBuy  = "BUY"
	OrderSell = "SELL"
)

// OrderRequest is a marketable limit order.
type OrderRequest struct {
	TokenID string
	Side    string
	Price   decimal.Decimal
	Size    decimal.Decimal
}

// OrderResponse is the venue's acknowledgment of a placed order.
type OrderResponse struct {
	OrderID    string
	Status     string
	FilledSize decimal.Decimal
	AvgPrice   decimal.Decimal
}

// Filled reports whether any size executed.
func (r *OrderResponse) Filled() bool { return r.FilledSize.IsPositive() }

// TradeRecord is one historical execution from the venue's trade feed.
type TradeRecord struct {
	ID         string
	MarketSlug string
	TokenID    string
	Side       string
	Price      decimal.Decimal
	Size       decimal.Decimal
	MatchedAt  time.Time
}

// BalanceAllowance pairs the holdings and the spendable approval for one
// token, as reported by the venue.
type BalanceAllowance struct {
	Balance   decimal.Decimal
	Allowance decimal.Decimal
}
