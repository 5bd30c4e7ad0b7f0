package binance

import (
	"strings"
	"time"
)

// Endpoint keys used with the request layer. Intervals mirror the per-path
// spacing Binance tolerates for a single bot.
const (
	EndpointTicker  = "binance.ticker"
	EndpointKlines  = "binance.klines"
	EndpointAccount = "binance.account"
	EndpointOrder   = "binance.order"
)

func EndpointIntervals() map[string]time.Duration {
	return map[string]time.Duration{
		EndpointTicker:  500 * time.Millisecond,
		EndpointKlines:  300 * time.Millisecond,
		EndpointAccount: time.Second,
		EndpointOrder:   time.Second,
	}
}

type Config struct {
	RESTBaseURL string
	APIKey      string
	SecretKey   string
	HTTPTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://api.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	return out
}
