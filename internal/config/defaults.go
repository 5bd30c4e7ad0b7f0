package config

import "strings"

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogPath      = "data/logs/mako.log"
	defaultAppHTTPAddr     = ":9980"
	defaultExchangeREST    = "https://api.binance.com"
	defaultExchangeTimeout = 15
	defaultPairsFile       = "configs/pairs.yaml"
	defaultTradeAmountUSD  = 100
	defaultTakeProfitPct   = 2.5
	defaultStopLossPct     = 1.5
	defaultConfidence      = 60
	defaultCheckInterval   = 60
	defaultKlineInterval   = "15m"
	defaultKlineLimit      = 100
	defaultSnapshotPath    = "data/state/trading_status.json"
	defaultJournalPath     = "data/db/trades.db"
	defaultSignalLogPath   = "data/db/signals.db"
	defaultSignalLogRetain = 5000
	defaultHistoryLimit    = 100
	defaultReportHours     = 6
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.State.applyDefaults(keys)
	c.Report.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.rest_base_url", &e.RESTBaseURL, defaultExchangeREST),
		fieldDefault{
			key:   "exchange.timeout_seconds",
			need:  func() bool { return e.TimeoutSeconds <= 0 },
			apply: func() { e.TimeoutSeconds = defaultExchangeTimeout },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trading.pairs_file", &t.PairsFile, defaultPairsFile),
		stringFieldDefault("trading.kline_interval", &t.KlineInterval, defaultKlineInterval),
		fieldDefault{
			key:   "trading.trade_amount_usd",
			need:  func() bool { return t.TradeAmountUSD <= 0 },
			apply: func() { t.TradeAmountUSD = defaultTradeAmountUSD },
		},
		fieldDefault{
			key:   "trading.take_profit_pct",
			need:  func() bool { return t.TakeProfitPct <= 0 },
			apply: func() { t.TakeProfitPct = defaultTakeProfitPct },
		},
		fieldDefault{
			key:   "trading.stop_loss_pct",
			need:  func() bool { return t.StopLossPct <= 0 },
			apply: func() { t.StopLossPct = defaultStopLossPct },
		},
		fieldDefault{
			key:   "trading.confidence_threshold",
			need:  func() bool { return t.ConfidenceThreshold <= 0 },
			apply: func() { t.ConfidenceThreshold = defaultConfidence },
		},
		fieldDefault{
			key:   "trading.check_interval_seconds",
			need:  func() bool { return t.CheckIntervalSeconds <= 0 },
			apply: func() { t.CheckIntervalSeconds = defaultCheckInterval },
		},
		fieldDefault{
			key:   "trading.kline_limit",
			need:  func() bool { return t.KlineLimit <= 0 },
			apply: func() { t.KlineLimit = defaultKlineLimit },
		},
	)
}

func (s *StateConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("state.snapshot_path", &s.SnapshotPath, defaultSnapshotPath),
		stringFieldDefault("state.journal_path", &s.JournalPath, defaultJournalPath),
		stringFieldDefault("state.signal_log_path", &s.SignalLogPath, defaultSignalLogPath),
		fieldDefault{
			key:   "state.signal_log_retain",
			need:  func() bool { return s.SignalLogRetain <= 0 },
			apply: func() { s.SignalLogRetain = defaultSignalLogRetain },
		},
		fieldDefault{
			key:   "state.history_limit",
			need:  func() bool { return s.HistoryLimit <= 0 },
			apply: func() { s.HistoryLimit = defaultHistoryLimit },
		},
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "report.interval_hours",
			need:  func() bool { return r.IntervalHours <= 0 },
			apply: func() { r.IntervalHours = defaultReportHours },
		},
	)
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
