package config

import "strings"

// Config is mako's main configuration carrier. Credentials come from the
// environment (see Load); everything else lives in the YAML file.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Signal   SignalConfig   `mapstructure:"signal"`
	State    StateConfig    `mapstructure:"state"`
	Report   ReportConfig   `mapstructure:"report"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	HTTPAddr string `mapstructure:"http_addr"`
}

type ExchangeConfig struct {
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	APIKey         string `mapstructure:"api_key"`
	SecretKey      string `mapstructure:"secret_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// TradingConfig controls the trading loop: which pairs, how much per
// trade, and when to enter and exit.
type TradingConfig struct {
	PairsFile            string             `mapstructure:"pairs_file"`
	TradeAmountUSD       float64            `mapstructure:"trade_amount_usd"`
	TakeProfitPct        float64            `mapstructure:"take_profit_pct"`
	StopLossPct          float64            `mapstructure:"stop_loss_pct"`
	ConfidenceThreshold  float64            `mapstructure:"confidence_threshold"`
	CheckIntervalSeconds int                `mapstructure:"check_interval_seconds"`
	KlineInterval        string             `mapstructure:"kline_interval"`
	KlineLimit           int                `mapstructure:"kline_limit"`
	InitialBalances      map[string]float64 `mapstructure:"initial_balances"`
	// SyncBalances pulls real account balances into the ledger at startup
	// instead of seeding from initial_balances.
	SyncBalances bool `mapstructure:"sync_balances"`
}

type SignalConfig struct {
	RSIPeriod    int     `mapstructure:"rsi_period"`
	SMAPeriod    int     `mapstructure:"sma_period"`
	EMAShort     int     `mapstructure:"ema_short"`
	EMALong      int     `mapstructure:"ema_long"`
	BollPeriod   int     `mapstructure:"boll_period"`
	BollMult     float64 `mapstructure:"boll_mult"`
	StochPeriod  int     `mapstructure:"stoch_period"`
	VolumeWindow int     `mapstructure:"volume_window"`
}

type StateConfig struct {
	SnapshotPath    string `mapstructure:"snapshot_path"`
	JournalPath     string `mapstructure:"journal_path"`
	SignalLogPath   string `mapstructure:"signal_log_path"`
	SignalLogRetain int    `mapstructure:"signal_log_retain"`
	HistoryLimit    int    `mapstructure:"history_limit"`
}

type ReportConfig struct {
	IntervalHours int `mapstructure:"interval_hours"`
}

// keySet tracks field paths explicitly set in the config file, so defaults
// never clobber a deliberate zero value.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}
