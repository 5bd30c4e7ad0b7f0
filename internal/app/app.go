// Package app wires the gateways, stores and the trade manager together
// and drives the trading loop.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mako/internal/config"
	"mako/internal/gateway/exchange"
	"mako/internal/gateway/notifier"
	"mako/internal/logger"
	"mako/internal/scheduler"
	"mako/internal/store/journal"
	"mako/internal/store/signallog"
	"mako/internal/trader"
	statushttp "mako/internal/transport/http/status"
)

// Tunables are the trading parameters that may change at runtime through a
// config reload. They are read at the start of every tick.
type Tunables struct {
	TradeAmountUSD      float64
	TakeProfitPct       float64
	StopLossPct         float64
	ConfidenceThreshold float64
	Indicator           config.SignalConfig
}

func tunablesFrom(cfg *config.Config) Tunables {
	return Tunables{
		TradeAmountUSD:      cfg.Trading.TradeAmountUSD,
		TakeProfitPct:       cfg.Trading.TakeProfitPct,
		StopLossPct:         cfg.Trading.StopLossPct,
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		Indicator:           cfg.Signal,
	}
}

type App struct {
	cfg     *config.Config
	cfgPath string
	pairs   []config.Pair

	exch    exchange.Exchange
	notify  notifier.TextNotifier
	manager *trader.Manager
	journal *journal.Store
	signals *signallog.Store
	http    *statushttp.Server

	mu       sync.RWMutex
	tunables Tunables
}

// Tunables returns the current runtime parameters.
func (a *App) Tunables() Tunables {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tunables
}

func (a *App) setTunables(t Tunables) {
	a.mu.Lock()
	a.tunables = t
	a.mu.Unlock()
}

// Run restores state, announces startup, and blocks running the trading
// loop, the status server and the config watcher until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if err := a.manager.Restore(); err != nil {
		return fmt.Errorf("restoring state: %w", err)
	}
	if a.cfg.Trading.SyncBalances {
		if err := a.manager.SyncBalances(ctx); err != nil {
			logger.Warnf("app: balance sync failed, using snapshot/initial balances: %v", err)
		}
	}

	a.sendStartupNotice()

	interval := time.Duration(a.cfg.Trading.CheckIntervalSeconds) * time.Second
	sched := scheduler.NewIntervalScheduler(ctx, "trading", interval)
	sched.RunImmediately = true

	group, ctx := errgroup.WithContext(ctx)
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		sched.Start(a.tick)
		return nil
	})
	if a.cfgPath != "" {
		group.Go(func() error {
			if err := config.Watch(ctx, a.cfgPath, a.onConfigReload); err != nil {
				logger.Warnf("app: config watcher stopped: %v", err)
			}
			return nil
		})
	}

	err := group.Wait()
	a.shutdown()
	return err
}

func (a *App) onConfigReload(cfg *config.Config) {
	a.setTunables(tunablesFrom(cfg))
	logger.Infof("app: runtime parameters updated (amount=%.2f tp=%.2f%% sl=%.2f%% confidence>=%.0f%%)",
		cfg.Trading.TradeAmountUSD, cfg.Trading.TakeProfitPct, cfg.Trading.StopLossPct, cfg.Trading.ConfidenceThreshold)
}

func (a *App) sendStartupNotice() {
	symbols := make([]string, 0, len(a.pairs))
	for _, p := range a.pairs {
		symbols = append(symbols, p.Symbol)
	}
	t := a.Tunables()
	a.send(notifier.StartupMessage(notifier.StartupInfo{
		TradingAmount:   t.TradeAmountUSD,
		TakeProfitPct:   t.TakeProfitPct,
		StopLossPct:     t.StopLossPct,
		ConfidenceMin:   t.ConfidenceThreshold,
		IntervalMinutes: float64(a.cfg.Trading.CheckIntervalSeconds) / 60,
		Symbols:         symbols,
		InitialBalance:  a.manager.Balances(),
	}))
}

func (a *App) shutdown() {
	if err := a.manager.Persist(); err != nil {
		logger.Errorf("app: final snapshot failed: %v", err)
	}
	a.send(notifier.ShutdownMessage("shutdown signal received"))
	if a.signals != nil {
		if err := a.signals.Close(); err != nil {
			logger.Warnf("app: closing signal log: %v", err)
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warnf("app: closing trade journal: %v", err)
		}
	}
	logger.Infof("app: shutdown complete")
}

func (a *App) send(text string) {
	if err := a.notify.SendText(text); err != nil {
		logger.Warnf("app: notification failed: %v", err)
	}
}
