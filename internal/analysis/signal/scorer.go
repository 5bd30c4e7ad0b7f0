// Package signal turns an indicator snapshot into a weighted BUY/SELL/HOLD
// decision with a confidence percentage.
package signal

import (
	"mako/internal/analysis/indicator"
	"mako/internal/market"
)

type Decision string

const (
	Buy  Decision = "BUY"
	Sell Decision = "SELL"
	Hold Decision = "HOLD"
)

// minCandles gates scoring: with fewer candles the scorer returns a flat
// HOLD instead of a partial signal.
const minCandles = 30

// Weights of the six evidence rows. Each row contributes its weight to at
// most one side; the total is fixed at 11.0.
const (
	weightRSI        = 2.0
	weightEMACross   = 3.0
	weightMACD       = 2.5
	weightVolume     = 1.5
	weightBollinger  = 2.0
	weightStochastic = 2.0

	totalWeight = weightRSI + weightEMACross + weightMACD + weightVolume + weightBollinger + weightStochastic
)

// Config carries the exit levels applied to BUY signals.
type Config struct {
	Indicator     indicator.Settings
	TakeProfitPct float64
	StopLossPct   float64
}

// Signal is the scored outcome for one symbol on one tick. TakeProfitPrice
// and StopLossPrice are set only for BUY decisions.
type Signal struct {
	Symbol          string             `json:"symbol"`
	Decision        Decision           `json:"decision"`
	Confidence      float64            `json:"confidence"`
	CurrentPrice    float64            `json:"current_price"`
	TakeProfitPrice float64            `json:"take_profit_price,omitempty"`
	StopLossPrice   float64            `json:"stop_loss_price,omitempty"`
	Indicators      indicator.Snapshot `json:"indicators"`
}

// Score computes indicators over the candle series and weighs them.
// Under minCandles the scorer returns a flat HOLD instead of a partial
// signal.
func Score(symbol string, candles market.Candles, cfg Config) Signal {
	if len(candles) < minCandles {
		return Signal{Symbol: symbol, Decision: Hold, CurrentPrice: candles.Last().Close}
	}
	return Evaluate(symbol, candles.Last().Close, indicator.Compute(candles, cfg.Indicator), cfg)
}

// Evaluate applies the weighted evidence table to an indicator snapshot.
// Deterministic: equal bullish and bearish scores resolve to HOLD with
// confidence 0.
func Evaluate(symbol string, price float64, snap indicator.Snapshot, cfg Config) Signal {
	var bullish, bearish float64

	// RSI extremes.
	switch {
	case snap.RSI < 30:
		bullish += weightRSI
	case snap.RSI > 70:
		bearish += weightRSI
	}

	// EMA cross.
	switch {
	case snap.EMAShort > snap.EMALong:
		bullish += weightEMACross
	case snap.EMAShort < snap.EMALong:
		bearish += weightEMACross
	}

	// MACD histogram momentum.
	switch {
	case snap.MACD.Histogram > 0 && snap.MACD.Histogram > snap.MACD.PreviousHistogram:
		bullish += weightMACD
	case snap.MACD.Histogram < 0 && snap.MACD.Histogram < snap.MACD.PreviousHistogram:
		bearish += weightMACD
	}

	// Rising volume confirms whichever side of the SMA price is on.
	if snap.Volume.Trend == indicator.VolumeIncreasing {
		switch {
		case price > snap.SMA:
			bullish += weightVolume
		case price < snap.SMA:
			bearish += weightVolume
		}
	}

	// Bollinger band breach.
	switch {
	case price < snap.Bollinger.Lower:
		bullish += weightBollinger
	case price > snap.Bollinger.Upper:
		bearish += weightBollinger
	}

	// Stochastic cross at the extremes.
	switch {
	case snap.Stochastic.K < 20 && snap.Stochastic.K > snap.Stochastic.D:
		bullish += weightStochastic
	case snap.Stochastic.K > 80 && snap.Stochastic.K < snap.Stochastic.D:
		bearish += weightStochastic
	}

	sig := Signal{
		Symbol:       symbol,
		Decision:     Hold,
		CurrentPrice: price,
		Indicators:   snap,
	}
	switch {
	case bullish > bearish:
		sig.Decision = Buy
		sig.Confidence = bullish / totalWeight * 100
		sig.TakeProfitPrice = price * (1 + cfg.TakeProfitPct/100)
		sig.StopLossPrice = price * (1 - cfg.StopLossPct/100)
	case bearish > bullish:
		sig.Decision = Sell
		sig.Confidence = bearish / totalWeight * 100
	}
	return sig
}
