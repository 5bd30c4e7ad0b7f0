// Package journal persists closed trades in SQLite via Gorm, so the trade
// record survives restarts independently of the state snapshot.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mako/internal/gateway/exchange"
	"mako/internal/trader"
)

type tradeModel struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	PositionID string         `gorm:"column:position_id;index"`
	Symbol     string         `gorm:"column:symbol;index"`
	Side       string         `gorm:"column:side"`
	Quantity   float64        `gorm:"column:quantity"`
	EntryPrice float64        `gorm:"column:entry_price"`
	ExitPrice  float64        `gorm:"column:exit_price"`
	PnL        float64        `gorm:"column:pnl"`
	Reason     string         `gorm:"column:reason"`
	DetailJSON datatypes.JSON `gorm:"column:detail_json;type:TEXT"`
	OpenedAt   int64          `gorm:"column:opened_at"`
	ClosedAt   int64          `gorm:"column:closed_at;index"`
}

// tradeDetail is the order/target context stored alongside the flat trade
// columns.
type tradeDetail struct {
	OrderID     int64   `json:"order_id,omitempty"`
	ExitOrderID int64   `json:"exit_order_id,omitempty"`
	TakeProfit  float64 `json:"take_profit,omitempty"`
	StopLoss    float64 `json:"stop_loss,omitempty"`
}

func (tradeModel) TableName() string { return "trades" }

// Store is the Gorm-backed trade journal.
type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: database path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&tradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for status-server reads without
	// piling up lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AppendClosed records one closed trade. Implements trader.TradeJournal.
func (s *Store) AppendClosed(ctx context.Context, trade trader.ClosedTrade) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("journal: store not initialized")
	}
	detail, err := json.Marshal(tradeDetail{
		OrderID:     trade.OrderID,
		ExitOrderID: trade.ExitOrderID,
		TakeProfit:  trade.TakeProfit,
		StopLoss:    trade.StopLoss,
	})
	if err != nil {
		return fmt.Errorf("journal: encoding trade detail: %w", err)
	}
	row := tradeModel{
		PositionID: trade.PositionID,
		Symbol:     trade.Symbol,
		Side:       string(trade.Side),
		Quantity:   trade.Quantity,
		EntryPrice: trade.EntryPrice,
		ExitPrice:  trade.ExitPrice,
		PnL:        trade.PnL,
		Reason:     trade.Reason,
		DetailJSON: datatypes.JSON(detail),
		OpenedAt:   trade.OpenedAt.Unix(),
		ClosedAt:   trade.ClosedAt.Unix(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Recent returns the latest closed trades, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]trader.ClosedTrade, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal: store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var rows []tradeModel
	err := s.db.WithContext(ctx).
		Order("closed_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]trader.ClosedTrade, 0, len(rows))
	for _, row := range rows {
		var detail tradeDetail
		if len(row.DetailJSON) > 0 {
			// Rows from older schema versions have no detail blob.
			_ = json.Unmarshal(row.DetailJSON, &detail)
		}
		out = append(out, trader.ClosedTrade{
			PositionID: row.PositionID,
			Symbol:     row.Symbol,
			Side:       asSide(row.Side),
			Quantity:   row.Quantity,
			EntryPrice: row.EntryPrice,
			ExitPrice:  row.ExitPrice,
			PnL:        row.PnL,
			Reason:     row.Reason,
			OpenedAt:   unixTime(row.OpenedAt),
			ClosedAt:   unixTime(row.ClosedAt),

			OrderID:     detail.OrderID,
			ExitOrderID: detail.ExitOrderID,
			TakeProfit:  detail.TakeProfit,
			StopLoss:    detail.StopLoss,
		})
	}
	return out, nil
}

func asSide(s string) exchange.Side {
	if s == string(exchange.SideSell) {
		return exchange.SideSell
	}
	return exchange.SideBuy
}

func unixTime(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
