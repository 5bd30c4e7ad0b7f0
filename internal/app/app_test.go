package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/internal/config"
	"mako/internal/gateway/exchange"
	"mako/internal/gateway/notifier"
	"mako/internal/market"
	"mako/internal/request"
)

type fakeExchange struct {
	mu      sync.Mutex
	candles map[string]market.Candles
	prices  map[string]float64
	orders  []string
	nextID  int64
}

func (f *fakeExchange) CurrentPrice(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prices[symbol], nil
}

func (f *fakeExchange) Candles(_ context.Context, symbol, _ string, _ int) (market.Candles, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.candles[symbol], nil
}

func (f *fakeExchange) Balances(context.Context) (map[string]exchange.AssetBalance, error) {
	return map[string]exchange.AssetBalance{}, nil
}

func (f *fakeExchange) PlaceOrder(_ context.Context, symbol string, side exchange.Side, _, _ float64) (exchange.OrderAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.orders = append(f.orders, string(side)+" "+symbol)
	return exchange.OrderAck{OrderID: f.nextID, Symbol: symbol}, nil
}

func (f *fakeExchange) OrderStatus(context.Context, string, int64) (exchange.OrderState, error) {
	return exchange.OrderState{Status: exchange.OrderStatusNew}, nil
}

// breakoutCandles produce a BUY verdict at roughly 64% confidence: flat
// base, volume-backed jump on the last candle.
func breakoutCandles() market.Candles {
	candles := make(market.Candles, 35)
	for i := range candles {
		vol := 10.0
		if i >= len(candles)-5 {
			vol = 20
		}
		candles[i] = market.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: vol}
	}
	candles[len(candles)-1] = market.Candle{Open: 100, High: 121, Low: 99, Close: 120, Volume: 20}
	return candles
}

func flatCandles() market.Candles {
	candles := make(market.Candles, 35)
	for i := range candles {
		candles[i] = market.Candle{Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 10}
	}
	return candles
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{HTTPAddr: ":0", LogLevel: "info"},
		Exchange: config.ExchangeConfig{
			RESTBaseURL: "https://api.binance.com",
			APIKey:      "k", SecretKey: "s", TimeoutSeconds: 15,
		},
		Trading: config.TradingConfig{
			TradeAmountUSD:       100,
			TakeProfitPct:        2.5,
			StopLossPct:          1.5,
			ConfidenceThreshold:  60,
			CheckIntervalSeconds: 60,
			KlineInterval:        "15m",
			KlineLimit:           100,
			InitialBalances:      map[string]float64{"USDT": 1000},
		},
		State: config.StateConfig{
			SnapshotPath:    filepath.Join(dir, "state.json"),
			JournalPath:     filepath.Join(dir, "trades.db"),
			SignalLogPath:   filepath.Join(dir, "signals.db"),
			SignalLogRetain: 100,
			HistoryLimit:    100,
		},
		Report: config.ReportConfig{IntervalHours: 6},
	}
}

func buildTestApp(t *testing.T, fake *fakeExchange) *App {
	t.Helper()
	b := NewBuilder(testConfig(t), "",
		WithExchange(func(*config.Config, *request.Client) (exchange.Exchange, error) {
			return fake, nil
		}),
		WithNotifier(func(*config.Config, *request.Client) notifier.TextNotifier {
			return notifier.Noop{}
		}),
		WithPairs(func(string) ([]config.Pair, error) {
			return []config.Pair{{Symbol: "BNBUSDT", Base: "BNB", Quote: "USDT"}}, nil
		}),
	)
	a, err := b.Build()
	require.NoError(t, err)
	return a
}

func TestBuildDisablesStatusServerOnEmptyAddr(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.HTTPAddr = ""
	b := NewBuilder(cfg, "",
		WithExchange(func(*config.Config, *request.Client) (exchange.Exchange, error) {
			return &fakeExchange{}, nil
		}),
		WithNotifier(func(*config.Config, *request.Client) notifier.TextNotifier {
			return notifier.Noop{}
		}),
		WithPairs(func(string) ([]config.Pair, error) {
			return []config.Pair{{Symbol: "BNBUSDT", Base: "BNB", Quote: "USDT"}}, nil
		}),
	)
	a, err := b.Build()
	require.NoError(t, err)
	assert.Nil(t, a.http)
}

func TestTickEntersOnStrongBuySignal(t *testing.T) {
	fake := &fakeExchange{
		candles: map[string]market.Candles{"BNBUSDT": breakoutCandles()},
		prices:  map[string]float64{"BNBUSDT": 120},
	}
	a := buildTestApp(t, fake)

	a.tick(context.Background())

	require.Len(t, fake.orders, 1)
	assert.Equal(t, "BUY BNBUSDT", fake.orders[0])
	open := a.manager.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "BNBUSDT", open[0].Symbol)
	assert.InDelta(t, 100.0/120.0, open[0].Quantity, 1e-4)
	assert.InDelta(t, 120*1.025, open[0].TakeProfit, 1e-6)
}

func TestTickHoldsOnFlatMarket(t *testing.T) {
	fake := &fakeExchange{
		candles: map[string]market.Candles{"BNBUSDT": flatCandles()},
		prices:  map[string]float64{"BNBUSDT": 100},
	}
	a := buildTestApp(t, fake)

	a.tick(context.Background())
	assert.Empty(t, fake.orders)
	assert.Empty(t, a.manager.OpenPositions())
}

func TestTickSkipsEntryWhenPositionOpen(t *testing.T) {
	fake := &fakeExchange{
		candles: map[string]market.Candles{"BNBUSDT": breakoutCandles()},
		prices:  map[string]float64{"BNBUSDT": 120},
	}
	a := buildTestApp(t, fake)

	a.tick(context.Background())
	a.tick(context.Background())

	assert.Len(t, fake.orders, 1, "one signal, one position, no doubling up")
}

func TestTunablesReload(t *testing.T) {
	fake := &fakeExchange{
		candles: map[string]market.Candles{"BNBUSDT": breakoutCandles()},
		prices:  map[string]float64{"BNBUSDT": 120},
	}
	a := buildTestApp(t, fake)

	// Raise the confidence bar above what the breakout scores (~64%).
	cfg := testConfig(t)
	cfg.Trading.ConfidenceThreshold = 90
	a.onConfigReload(cfg)

	a.tick(context.Background())
	assert.Empty(t, fake.orders, "reloaded threshold must gate entries")
}
