// Package exchange defines the collaborator interfaces the trading core
// depends on. Concrete implementations (Binance) live in sibling packages;
// tests substitute fakes.
package exchange

import (
	"context"

	"mako/internal/market"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// AssetBalance mirrors the exchange's free/locked split per asset.
type AssetBalance struct {
	Free   float64
	Locked float64
}

func (b AssetBalance) Total() float64 { return b.Free + b.Locked }

// OrderAck is the exchange's acceptance of a submitted order.
type OrderAck struct {
	OrderID int64
	Symbol  string
}

// OrderState is the result of an order-status query.
type OrderState struct {
	Status      OrderStatus
	ExecutedQty float64
}

// MarketSource serves public market data.
type MarketSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	Candles(ctx context.Context, symbol, interval string, limit int) (market.Candles, error)
}

// Account serves authenticated balance queries.
type Account interface {
	Balances(ctx context.Context) (map[string]AssetBalance, error)
}

// OrderGateway submits and tracks orders.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, symbol string, side Side, quantity, price float64) (OrderAck, error)
	OrderStatus(ctx context.Context, symbol string, orderID int64) (OrderState, error)
}

// Exchange is the full collaborator surface used by the orchestrator.
type Exchange interface {
	MarketSource
	Account
	OrderGateway
}
