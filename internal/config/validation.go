package config

import (
	"fmt"
	"strings"

	"mako/internal/scheduler"
)

func validate(c *Config) error {
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Telegram.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Report.validate(); err != nil {
		return err
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if strings.TrimSpace(e.RESTBaseURL) == "" {
		return fmt.Errorf("exchange.rest_base_url cannot be empty")
	}
	if strings.TrimSpace(e.APIKey) == "" {
		return fmt.Errorf("exchange api key missing (set %s or exchange.api_key)", EnvBinanceAPIKey)
	}
	if strings.TrimSpace(e.SecretKey) == "" {
		return fmt.Errorf("exchange secret key missing (set %s or exchange.secret_key)", EnvBinanceSecretKey)
	}
	return nil
}

func (t *TelegramConfig) validate() error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.BotToken) == "" {
		return fmt.Errorf("telegram enabled but bot token missing (set %s)", EnvTelegramBotToken)
	}
	if strings.TrimSpace(t.ChatID) == "" {
		return fmt.Errorf("telegram enabled but chat id missing (set %s)", EnvTelegramChatID)
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.TakeProfitPct <= 0 || t.TakeProfitPct >= 100 {
		return fmt.Errorf("trading.take_profit_pct must be in (0, 100)")
	}
	if t.StopLossPct <= 0 || t.StopLossPct >= 100 {
		return fmt.Errorf("trading.stop_loss_pct must be in (0, 100)")
	}
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold > 100 {
		return fmt.Errorf("trading.confidence_threshold must be in [0, 100]")
	}
	if t.CheckIntervalSeconds < 5 {
		return fmt.Errorf("trading.check_interval_seconds must be at least 5")
	}
	if t.KlineLimit < 30 {
		return fmt.Errorf("trading.kline_limit must be at least 30 for a full indicator window")
	}
	if _, ok := scheduler.ParseIntervalDuration(t.KlineInterval); !ok {
		return fmt.Errorf("trading.kline_interval %q is not a valid kline interval", t.KlineInterval)
	}
	for asset, amount := range t.InitialBalances {
		if amount < 0 {
			return fmt.Errorf("trading.initial_balances.%s must not be negative", asset)
		}
	}
	return nil
}

func (r *ReportConfig) validate() error {
	if r.IntervalHours <= 0 {
		return fmt.Errorf("report.interval_hours must be positive")
	}
	return nil
}
