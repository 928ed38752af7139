// Package ledger persists trades and live fills in a local SQLite file.
// The paper executor treats it as the source of truth for its single open
// position; the live executor only appends fills for audit.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Trade is one round trip. Exit fields stay zero until the trade closes.
type Trade struct {
	ID         string `gorm:"primaryKey"`
	Mode       string `gorm:"index"`
	Status     string `gorm:"index"`
	MarketSlug string
	Side       string
	TokenID    string

	EntryPrice decimal.Decimal `gorm:"type:numeric"`
	Shares     decimal.Decimal `gorm:"type:numeric"`
	SizeUSD    decimal.Decimal `gorm:"type:numeric"`

	ExitPrice decimal.Decimal `gorm:"type:numeric"`
	PnL       decimal.Decimal `gorm:"type:numeric"`
	Reason    string

	OpenedAt time.Time
	ClosedAt *time.Time
}

// Fill is one live order execution, append-only.
type Fill struct {
	ID         string `gorm:"primaryKey"`
	MarketSlug string
	TokenID    string `gorm:"index"`
	Side       string
	Action     string // BUY or SELL
	Price      decimal.Decimal `gorm:"type:numeric"`
	Shares     decimal.Decimal `gorm:"type:numeric"`
	FeeUSD     decimal.Decimal `gorm:"type:numeric"`
	At         time.Time
}

// Ledger wraps the SQLite store.
type Ledger struct {
	db *gorm.DB
}

// Open opens (creating if needed) the ledger database at path and runs
// migrations.
func Open(path string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Trade{}, &Fill{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// NewTradeID returns a fresh trade identifier.
func NewTradeID() string { return uuid.NewString() }

// AddTrade inserts a new trade row.
func (l *Ledger) AddTrade(t *Trade) error {
	if t.ID == "" {
		t.ID = NewTradeID()
	}
	if err := l.db.Create(t).Error; err != nil {
		return fmt.Errorf("add trade: %w", err)
	}
	return nil
}

// UpdateTrade saves all fields of an existing trade.
func (l *Ledger) UpdateTrade(t *Trade) error {
	if err := l.db.Save(t).Error; err != nil {
		return fmt.Errorf("update trade %s: %w", t.ID, err)
	}
	return nil
}

// OpenTrade returns the single open trade for a mode, or nil when flat.
func (l *Ledger) OpenTrade(mode string) (*Trade, error) {
	var t Trade
	err := l.db.Where("mode = ? AND status = ?", mode, StatusOpen).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade: %w", err)
	}
	return &t, nil
}

// TradeByID loads one trade.
func (l *Ledger) TradeByID(id string) (*Trade, error) {
	var t Trade
	err := l.db.First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("trade %s: %w", id, err)
	}
	return &t, nil
}

// RealizedPnL sums closed-trade PnL for a mode.
func (l *Ledger) RealizedPnL(mode string) (decimal.Decimal, error) {
	var trades []Trade
	err := l.db.Select("pn_l").Where("mode = ? AND status = ?", mode, StatusClosed).Find(&trades).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("realized pnl: %w", err)
	}
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.PnL)
	}
	return total, nil
}

// RecentTrades returns the newest trades for a mode, newest first.
func (l *Ledger) RecentTrades(mode string, limit int) ([]Trade, error) {
	var trades []Trade
	err := l.db.Where("mode = ?", mode).Order("opened_at DESC").Limit(limit).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("recent trades: %w", err)
	}
	return trades, nil
}

// AddFill appends one live execution record.
func (l *Ledger) AddFill(f *Fill) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if err := l.db.Create(f).Error; err != nil {
		return fmt.Errorf("add fill: %w", err)
	}
	return nil
}
