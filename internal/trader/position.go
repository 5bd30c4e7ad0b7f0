package trader

import (
	"time"

	"mako/internal/gateway/exchange"
)

type PositionStatus string

const (
	// StatusPending: order submitted and acknowledged, fill not yet
	// confirmed.
	StatusPending PositionStatus = "PENDING"
	// StatusActive: entry fill confirmed, position live and (for BUY)
	// watched for take-profit/stop-loss.
	StatusActive PositionStatus = "ACTIVE"
	// StatusCompleted: closed; lives in history only.
	StatusCompleted PositionStatus = "COMPLETED"
)

// Position is the durable trade entity. It is owned exclusively by the
// Manager: all mutation happens inside the Manager's critical section, and
// external code only ever sees copies.
type Position struct {
	ID         string         `json:"id"`
	OrderID    int64          `json:"order_id"`
	Symbol     string         `json:"symbol"`
	BaseAsset  string         `json:"base_asset"`
	QuoteAsset string         `json:"quote_asset"`
	Side       exchange.Side  `json:"side"`
	Quantity   float64        `json:"quantity"`
	EntryPrice float64        `json:"entry_price"`
	TakeProfit float64        `json:"take_profit,omitempty"`
	StopLoss   float64        `json:"stop_loss,omitempty"`
	Status     PositionStatus `json:"status"`
	OpenedAt   time.Time      `json:"opened_at"`
	ClosedAt   *time.Time     `json:"closed_at,omitempty"`

	// Exit facts, populated when the position completes via TP/SL.
	ExitOrderID int64   `json:"exit_order_id,omitempty"`
	ExitPrice   float64 `json:"exit_price,omitempty"`
	RealizedPnL float64 `json:"realized_pnl,omitempty"`
}

// Notional is the quote-asset value of the position at its entry price.
func (p *Position) Notional() float64 { return p.Quantity * p.EntryPrice }

// ClosedTrade is the journal row appended when a position completes.
type ClosedTrade struct {
	PositionID string
	Symbol     string
	Side       exchange.Side
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     string
	OpenedAt   time.Time
	ClosedAt   time.Time

	// Order and target facts, journalled as a JSON detail blob.
	OrderID     int64
	ExitOrderID int64
	TakeProfit  float64
	StopLoss    float64
}

// Exit reasons recorded in the journal.
const (
	ExitReasonTakeProfit = "take_profit"
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonEntryFill  = "entry_fill"
)
