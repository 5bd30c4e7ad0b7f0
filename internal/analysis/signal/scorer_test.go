package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/internal/analysis/indicator"
	"mako/internal/market"
)

var exitCfg = Config{TakeProfitPct: 2.5, StopLossPct: 1.5}

// allBullish trips every evidence row on the bullish side.
func allBullish(price float64) indicator.Snapshot {
	return indicator.Snapshot{
		RSI:      25,
		SMA:      price - 10,
		EMAShort: 102,
		EMALong:  100,
		MACD: indicator.MACD{
			Histogram:         1.5,
			PreviousHistogram: 1.0,
		},
		Bollinger:  indicator.Bollinger{Upper: price + 30, Middle: price + 15, Lower: price + 5},
		Stochastic: indicator.Stochastic{K: 15, D: 12},
		Volume:     indicator.VolumeProfile{Trend: indicator.VolumeIncreasing, ChangePct: 40},
	}
}

func allBearish(price float64) indicator.Snapshot {
	return indicator.Snapshot{
		RSI:      78,
		SMA:      price + 10,
		EMAShort: 100,
		EMALong:  102,
		MACD: indicator.MACD{
			Histogram:         -1.5,
			PreviousHistogram: -1.0,
		},
		Bollinger:  indicator.Bollinger{Upper: price - 5, Middle: price - 15, Lower: price - 30},
		Stochastic: indicator.Stochastic{K: 85, D: 90},
		Volume:     indicator.VolumeProfile{Trend: indicator.VolumeIncreasing, ChangePct: 40},
	}
}

func TestEvaluateAllBullishIsFullConfidenceBuy(t *testing.T) {
	sig := Evaluate("BNBUSDT", 620, allBullish(620), exitCfg)

	assert.Equal(t, Buy, sig.Decision)
	assert.InDelta(t, 100, sig.Confidence, 1e-9)
	assert.InDelta(t, 635.5, sig.TakeProfitPrice, 1e-9) // 620 * 1.025
	assert.InDelta(t, 610.7, sig.StopLossPrice, 1e-9)   // 620 * 0.985
}

func TestEvaluateAllBearishIsFullConfidenceSell(t *testing.T) {
	sig := Evaluate("BNBUSDT", 620, allBearish(620), exitCfg)

	assert.Equal(t, Sell, sig.Decision)
	assert.InDelta(t, 100, sig.Confidence, 1e-9)
	assert.Zero(t, sig.TakeProfitPrice, "exit levels only apply to BUY")
	assert.Zero(t, sig.StopLossPrice)
}

func TestEvaluateNoEvidenceHolds(t *testing.T) {
	// Everything inside neutral bands: no row fires on either side.
	snap := indicator.Snapshot{
		RSI:        50,
		SMA:        100,
		EMAShort:   100,
		EMALong:    100,
		Bollinger:  indicator.Bollinger{Upper: 110, Middle: 100, Lower: 90},
		Stochastic: indicator.Stochastic{K: 50, D: 50},
		Volume:     indicator.VolumeProfile{Trend: indicator.VolumeNeutral},
	}
	sig := Evaluate("BNBUSDT", 100, snap, exitCfg)
	assert.Equal(t, Hold, sig.Decision)
	assert.Zero(t, sig.Confidence)
}

func TestEvaluateTieResolvesToHold(t *testing.T) {
	// Bullish: RSI oversold (2.0) + price under the lower band (2.0).
	// Bearish: falling MACD histogram (2.5) + rising volume under the
	// SMA (1.5). Both sides total 4.0.
	price := 95.0
	snap := indicator.Snapshot{
		RSI:      25,
		SMA:      100,
		EMAShort: 98,
		EMALong:  98,
		MACD: indicator.MACD{
			Histogram:         -0.8,
			PreviousHistogram: -0.5,
		},
		Bollinger:  indicator.Bollinger{Upper: 108, Middle: 102, Lower: 96},
		Stochastic: indicator.Stochastic{K: 50, D: 50},
		Volume:     indicator.VolumeProfile{Trend: indicator.VolumeIncreasing, ChangePct: 20},
	}
	sig := Evaluate("BNBUSDT", price, snap, exitCfg)
	assert.Equal(t, Hold, sig.Decision)
	assert.Zero(t, sig.Confidence)
}

func TestEvaluatePartialEvidenceConfidence(t *testing.T) {
	// Only the EMA cross fires: 3.0 of 11.0 total weight.
	snap := indicator.Snapshot{
		RSI:        50,
		SMA:        100,
		EMAShort:   103,
		EMALong:    100,
		Bollinger:  indicator.Bollinger{Upper: 110, Middle: 100, Lower: 90},
		Stochastic: indicator.Stochastic{K: 50, D: 50},
	}
	sig := Evaluate("BNBUSDT", 100, snap, exitCfg)
	assert.Equal(t, Buy, sig.Decision)
	assert.InDelta(t, 3.0/11.0*100, sig.Confidence, 1e-9)
}

func TestEvaluateMACDNeedsMomentum(t *testing.T) {
	// A positive but shrinking histogram must not count as bullish.
	snap := indicator.Snapshot{
		RSI:      50,
		EMAShort: 100,
		EMALong:  100,
		MACD: indicator.MACD{
			Histogram:         0.5,
			PreviousHistogram: 0.9,
		},
		Bollinger:  indicator.Bollinger{Upper: 110, Middle: 100, Lower: 90},
		Stochastic: indicator.Stochastic{K: 50, D: 50},
	}
	sig := Evaluate("BNBUSDT", 100, snap, exitCfg)
	assert.Equal(t, Hold, sig.Decision)
}

func TestScoreGatesOnSeriesLength(t *testing.T) {
	candles := make(market.Candles, 29)
	for i := range candles {
		candles[i] = market.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 10}
	}
	sig := Score("BNBUSDT", candles, exitCfg)
	assert.Equal(t, Hold, sig.Decision)
	assert.Zero(t, sig.Confidence)
	assert.Equal(t, 100.0, sig.CurrentPrice)
}

func TestScoreUptrendBreakout(t *testing.T) {
	// Long flat base, a volume-backed jump on the last candle: EMA cross,
	// MACD momentum and volume side with the bulls; overbought RSI and the
	// upper-band breach push back, so the verdict is a moderate BUY.
	candles := make(market.Candles, 35)
	for i := range candles {
		vol := 10.0
		if i >= len(candles)-5 {
			vol = 20
		}
		candles[i] = market.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: vol}
	}
	candles[len(candles)-1] = market.Candle{Open: 100, High: 121, Low: 99, Close: 120, Volume: 20}

	sig := Score("BNBUSDT", candles, exitCfg)
	require.Equal(t, Buy, sig.Decision)
	assert.InDelta(t, 7.0/11.0*100, sig.Confidence, 1e-9)
	assert.InDelta(t, 120*1.025, sig.TakeProfitPrice, 1e-9)
	assert.InDelta(t, 120*0.985, sig.StopLossPrice, 1e-9)
}

func TestScoreSharpBreakdown(t *testing.T) {
	// Flat base with a hard drop on the last candle: oversold RSI and the
	// lower-band breach argue for a bounce, but the EMA cross and falling
	// MACD histogram outweigh them.
	candles := make(market.Candles, 35)
	for i := range candles {
		candles[i] = market.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 10}
	}
	candles[len(candles)-1] = market.Candle{Open: 100, High: 101, Low: 79, Close: 80, Volume: 10}

	sig := Score("BNBUSDT", candles, exitCfg)
	require.Equal(t, Sell, sig.Decision)
	assert.InDelta(t, 5.5/11.0*100, sig.Confidence, 1e-9)
}

func TestScoreIsDeterministic(t *testing.T) {
	candles := make(market.Candles, 40)
	for i := range candles {
		c := 100 + float64(i%7)
		candles[i] = market.Candle{Open: c, High: c + 2, Low: c - 2, Close: c, Volume: float64(5 + i%3)}
	}
	first := Score("BNBUSDT", candles, exitCfg)
	second := Score("BNBUSDT", candles, exitCfg)
	assert.Equal(t, first, second)
}
