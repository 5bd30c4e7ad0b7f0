package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mako/internal/analysis/indicator"
	"mako/internal/analysis/signal"
	"mako/internal/config"
	"mako/internal/gateway/exchange"
	"mako/internal/gateway/notifier"
	"mako/internal/logger"
	"mako/internal/market"
	"mako/internal/scheduler"
	"mako/internal/trader"
)

// evalConcurrency bounds parallel market-data fetches per tick.
const evalConcurrency = 4

// tick is one pass of the trading loop. Order matters: fills are
// reconciled before exits are checked, so a position that filled since the
// last tick is exit-protected within the same tick.
func (a *App) tick(ctx context.Context) {
	a.manager.ReconcileOrders(ctx)
	a.manager.CheckExits(ctx)

	tun := a.Tunables()
	signals := a.evaluatePairs(ctx, tun)
	for i, sig := range signals {
		if sig == nil {
			continue
		}
		a.actOnSignal(ctx, a.pairs[i], *sig, tun)
	}

	a.maybeReport(ctx)
	if err := a.manager.Persist(); err != nil {
		logger.Errorf("app: snapshot persist failed: %v", err)
	}
}

// evaluatePairs scores every configured pair concurrently. The result
// slice is indexed like a.pairs; a nil entry means evaluation failed and
// the pair is skipped this tick.
func (a *App) evaluatePairs(ctx context.Context, tun Tunables) []*signal.Signal {
	scorerCfg := signal.Config{
		Indicator: indicator.Settings{
			RSIPeriod:    tun.Indicator.RSIPeriod,
			SMAPeriod:    tun.Indicator.SMAPeriod,
			EMAShort:     tun.Indicator.EMAShort,
			EMALong:      tun.Indicator.EMALong,
			BollPeriod:   tun.Indicator.BollPeriod,
			BollMult:     tun.Indicator.BollMult,
			StochPeriod:  tun.Indicator.StochPeriod,
			VolumeWindow: tun.Indicator.VolumeWindow,
		},
		TakeProfitPct: tun.TakeProfitPct,
		StopLossPct:   tun.StopLossPct,
	}
	klineDur, _ := scheduler.ParseIntervalDuration(a.cfg.Trading.KlineInterval)

	out := make([]*signal.Signal, len(a.pairs))
	var mu sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(evalConcurrency)
	for i, pair := range a.pairs {
		i, pair := i, pair
		group.Go(func() error {
			candles, err := a.exch.Candles(ctx, pair.Symbol, a.cfg.Trading.KlineInterval, a.cfg.Trading.KlineLimit)
			if err != nil {
				logger.Warnf("app: candle fetch failed for %s: %v", pair.Symbol, err)
				return nil
			}
			candles = market.DropUnclosed(candles, klineDur)
			if len(candles) == 0 {
				return nil
			}
			sig := signal.Score(pair.Symbol, candles, scorerCfg)
			a.logSignal(ctx, sig)
			mu.Lock()
			out[i] = &sig
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func (a *App) logSignal(ctx context.Context, sig signal.Signal) {
	logger.Infof("signal %s: %s confidence=%.1f%% price=%.8f",
		sig.Symbol, sig.Decision, sig.Confidence, sig.CurrentPrice)
	if a.signals == nil {
		return
	}
	if err := a.signals.Append(ctx, sig); err != nil {
		logger.Warnf("app: signal log append failed for %s: %v", sig.Symbol, err)
	}
}

// actOnSignal turns an actionable signal into an order. BUY enters a new
// watched position; SELL liquidates up to one trade's worth of existing
// base holdings. Anything below the confidence bar only gets logged.
func (a *App) actOnSignal(ctx context.Context, pair config.Pair, sig signal.Signal, tun Tunables) {
	if sig.Decision == signal.Hold || sig.Confidence < tun.ConfidenceThreshold {
		return
	}
	if sig.CurrentPrice <= 0 {
		return
	}
	a.send(notifier.PredictionMessage(sig))

	switch sig.Decision {
	case signal.Buy:
		a.enterPosition(ctx, pair, sig, tun)
	case signal.Sell:
		a.liquidate(ctx, pair, sig, tun)
	}
}

func (a *App) enterPosition(ctx context.Context, pair config.Pair, sig signal.Signal, tun Tunables) {
	if a.manager.HasOpenPosition(pair.Symbol) {
		logger.Infof("app: %s already has an open position, skipping entry", pair.Symbol)
		return
	}
	quantity := roundQuantity(tun.TradeAmountUSD / sig.CurrentPrice)
	if quantity <= 0 {
		return
	}

	pos, err := a.manager.OpenPosition(ctx, trader.OpenRequest{
		Symbol:     pair.Symbol,
		BaseAsset:  pair.Base,
		QuoteAsset: pair.Quote,
		Side:       exchange.SideBuy,
		Quantity:   quantity,
		Price:      sig.CurrentPrice,
		TakeProfit: sig.TakeProfitPrice,
		StopLoss:   sig.StopLossPrice,
	})
	if err != nil {
		if errors.Is(err, trader.ErrInsufficientBalance) {
			logger.Warnf("app: cannot afford BUY for %s: %v", pair.Symbol, err)
			a.send(notifier.InsufficientBalanceMessage(pair.Symbol, pair.Quote, tun.TradeAmountUSD, a.manager.Balance(pair.Quote)))
			return
		}
		logger.Errorf("app: BUY entry failed for %s: %v", pair.Symbol, err)
		a.send(notifier.ErrorMessage("placing BUY order for "+pair.Symbol, err))
		return
	}
	a.send(notifier.OrderExecutedMessage("BUY", pair.Symbol, pos.Quantity, pos.EntryPrice, pos.TakeProfit, pos.StopLoss, pos.OrderID))
}

// liquidate sells existing base holdings on a SELL signal, capped at one
// trade's worth so a single signal never dumps the whole balance.
func (a *App) liquidate(ctx context.Context, pair config.Pair, sig signal.Signal, tun Tunables) {
	held := a.manager.Balance(pair.Base)
	if held <= 0 {
		logger.Debugf("app: SELL signal for %s but no %s held", pair.Symbol, pair.Base)
		return
	}
	quantity := roundQuantity(math.Min(held, tun.TradeAmountUSD/sig.CurrentPrice))
	if quantity <= 0 {
		return
	}

	pos, err := a.manager.OpenPosition(ctx, trader.OpenRequest{
		Symbol:     pair.Symbol,
		BaseAsset:  pair.Base,
		QuoteAsset: pair.Quote,
		Side:       exchange.SideSell,
		Quantity:   quantity,
		Price:      sig.CurrentPrice,
	})
	if err != nil {
		logger.Errorf("app: SELL failed for %s: %v", pair.Symbol, err)
		a.send(notifier.ErrorMessage("placing SELL order for "+pair.Symbol, err))
		return
	}
	a.send(notifier.OrderExecutedMessage("SELL", pair.Symbol, pos.Quantity, pos.EntryPrice, 0, 0, pos.OrderID))
}

// maybeReport sends the periodic performance summary once per configured
// interval, valuing every held asset against USDT at current prices.
func (a *App) maybeReport(ctx context.Context) {
	interval := time.Duration(a.cfg.Report.IntervalHours) * time.Hour
	last := a.manager.LastReportAt()
	now := time.Now().UTC()
	if !last.IsZero() && now.Sub(last) < interval {
		return
	}

	balances := a.manager.Balances()
	values := make(map[string]float64, len(balances))
	var total float64
	for asset, amount := range balances {
		switch {
		case amount <= 0:
			continue
		case isUSDStable(asset):
			values[asset] = amount
		default:
			price, err := a.exch.CurrentPrice(ctx, asset+"USDT")
			if err != nil {
				logger.Warnf("app: report valuation failed for %s: %v", asset, err)
				continue
			}
			values[asset] = amount * price
		}
		total += values[asset]
	}

	stats := a.manager.Stats()
	a.send(notifier.PerformanceReportMessage(notifier.ReportInfo{
		Balances:    balances,
		ValuesUSD:   values,
		TotalUSD:    total,
		TotalTrades: stats.TotalTrades,
		Profitable:  stats.ProfitableTrades,
		WinRate:     stats.WinRate,
		TotalPnL:    stats.TotalProfitLoss,
		OpenCount:   len(a.manager.OpenPositions()),
		ClosedCount: len(a.manager.History()),
	}))
	a.manager.MarkReported(now)
}

func isUSDStable(asset string) bool {
	switch asset {
	case "USDT", "BUSD", "USDC", "TUSD", "USD":
		return true
	}
	return false
}

// roundQuantity floors to 6 decimals, the lot precision used for orders.
func roundQuantity(q float64) float64 {
	return math.Floor(q*1e6) / 1e6
}
