// Package binance implements the exchange interfaces on the go-binance
// spot SDK. The SDK signs authenticated requests (HMAC over the query
// string, timestamped); every call here is routed through the resilient
// request layer under its endpoint key.
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	"mako/internal/gateway/exchange"
	"mako/internal/logger"
	"mako/internal/market"
	"mako/internal/request"
)

// Order size formatting expected by the spot API.
const (
	quantityScale = 6
	priceScale    = 8
)

type Client struct {
	cfg Config
	api *binance.Client
	req *request.Client
}

func New(cfg Config, req *request.Client) (*Client, error) {
	final := cfg.withDefaults()
	if req == nil {
		return nil, fmt.Errorf("binance: request client is required")
	}
	api := binance.NewClient(final.APIKey, final.SecretKey)
	api.BaseURL = final.RESTBaseURL
	api.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Client{cfg: final, api: api, req: req}, nil
}

// Retryable classifies Binance API errors for the request layer: rate
// limits, timeouts and internal errors retry; order rejections and other
// client errors do not. Transport errors always retry.
func Retryable(err error) bool {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	switch apiErr.Code {
	case -1000, -1001, -1003, -1007, -1016:
		return true
	default:
		return false
	}
}

func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}
	var price float64
	err := c.req.Do(ctx, EndpointTicker, func(ctx context.Context) error {
		prices, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		if len(prices) == 0 {
			return fmt.Errorf("no price returned for %s", symbol)
		}
		price, err = parseFloat(prices[0].Price)
		return err
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) (market.Candles, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if limit <= 0 {
		limit = 24
	}
	var out market.Candles
	err := c.req.Do(ctx, EndpointKlines, func(ctx context.Context) error {
		kls, err := c.api.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
		if err != nil {
			return err
		}
		out = make(market.Candles, 0, len(kls))
		for _, kl := range kls {
			if kl == nil {
				continue
			}
			candle, err := toCandle(kl)
			if err != nil {
				logger.Warnf("binance: skipping malformed kline for %s: %v", symbol, err)
				continue
			}
			out = append(out, candle)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Balances(ctx context.Context) (map[string]exchange.AssetBalance, error) {
	var out map[string]exchange.AssetBalance
	err := c.req.Do(ctx, EndpointAccount, func(ctx context.Context) error {
		acct, err := c.api.NewGetAccountService().Do(ctx)
		if err != nil {
			return err
		}
		out = make(map[string]exchange.AssetBalance, len(acct.Balances))
		for _, b := range acct.Balances {
			free, err1 := parseFloat(b.Free)
			locked, err2 := parseFloat(b.Locked)
			if err1 != nil || err2 != nil {
				continue
			}
			if free == 0 && locked == 0 {
				continue
			}
			out[b.Asset] = exchange.AssetBalance{Free: free, Locked: locked}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PlaceOrder(ctx context.Context, symbol string, side exchange.Side, quantity, price float64) (exchange.OrderAck, error) {
	if quantity <= 0 || price <= 0 {
		return exchange.OrderAck{}, fmt.Errorf("quantity and price must be positive")
	}
	qty := decimal.NewFromFloat(quantity).StringFixed(quantityScale)
	px := decimal.NewFromFloat(price).StringFixed(priceScale)

	var ack exchange.OrderAck
	err := c.req.Do(ctx, EndpointOrder, func(ctx context.Context) error {
		resp, err := c.api.NewCreateOrderService().
			Symbol(symbol).
			Side(binance.SideType(side)).
			Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Quantity(qty).
			Price(px).
			Do(ctx)
		if err != nil {
			return err
		}
		ack = exchange.OrderAck{OrderID: resp.OrderID, Symbol: resp.Symbol}
		return nil
	})
	if err != nil {
		return exchange.OrderAck{}, err
	}
	return ack, nil
}

func (c *Client) OrderStatus(ctx context.Context, symbol string, orderID int64) (exchange.OrderState, error) {
	var state exchange.OrderState
	err := c.req.Do(ctx, EndpointOrder, func(ctx context.Context) error {
		order, err := c.api.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
		if err != nil {
			return err
		}
		executed, err := parseFloat(order.ExecutedQuantity)
		if err != nil {
			executed = 0
		}
		state = exchange.OrderState{
			Status:      exchange.OrderStatus(order.Status),
			ExecutedQty: executed,
		}
		return nil
	})
	if err != nil {
		return exchange.OrderState{}, err
	}
	return state, nil
}

func toCandle(kl *binance.Kline) (market.Candle, error) {
	open, err := parseFloat(kl.Open)
	if err != nil {
		return market.Candle{}, err
	}
	high, err := parseFloat(kl.High)
	if err != nil {
		return market.Candle{}, err
	}
	low, err := parseFloat(kl.Low)
	if err != nil {
		return market.Candle{}, err
	}
	close, err := parseFloat(kl.Close)
	if err != nil {
		return market.Candle{}, err
	}
	volume, err := parseFloat(kl.Volume)
	if err != nil {
		return market.Candle{}, err
	}
	return market.Candle{
		OpenTime:  kl.OpenTime,
		CloseTime: kl.CloseTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}
