package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/internal/market"
)

// series builds candles from closes with a small high/low band and flat
// volume.
func series(closes ...float64) market.Candles {
	out := make(market.Candles, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
	}
	return out
}

func flatSeries(n int, close float64) market.Candles {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = close
	}
	return series(closes...)
}

func risingSeries(n int, start, step float64) market.Candles {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return series(closes...)
}

func TestRSI(t *testing.T) {
	t.Run("short series is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI(series(1, 2, 3), 14))
	})

	t.Run("all gains saturate at 100", func(t *testing.T) {
		assert.Equal(t, 100.0, RSI(risingSeries(20, 100, 1), 14))
	})

	t.Run("known window", func(t *testing.T) {
		// Changes +1, -1, +2 over the last 3 candles: gains 3, losses 1,
		// RS = 3, RSI = 100 - 100/4 = 75.
		c := series(10, 11, 10, 12)
		assert.InDelta(t, 75.0, RSI(c, 3), 1e-9)
	})

	t.Run("all losses are zero", func(t *testing.T) {
		c := series(10, 12, 14, 16)
		assert.Equal(t, 100.0, RSI(c, 3))
	})
}

func TestSMA(t *testing.T) {
	c := series(1, 2, 3, 4, 5, 6)
	assert.InDelta(t, 5.0, SMA(c, 3), 1e-9) // (4+5+6)/3

	short := series(7, 9)
	assert.Equal(t, 9.0, SMA(short, 20), "short series falls back to last close")
}

func TestEMA(t *testing.T) {
	t.Run("period equals length gives the SMA seed", func(t *testing.T) {
		c := series(2, 4, 6)
		assert.InDelta(t, 4.0, EMA(c, 3), 1e-9)
	})

	t.Run("recurrence", func(t *testing.T) {
		// Seed SMA(2,4,6)=4, k=0.5: after 10 → 7, after 8 → 7.5.
		c := series(2, 4, 6, 10, 8)
		assert.InDelta(t, 7.5, EMA(c, 3), 1e-9)
	})

	t.Run("short series falls back to last close", func(t *testing.T) {
		assert.Equal(t, 6.0, EMA(series(2, 6), 3))
	})
}

func TestComputeMACD(t *testing.T) {
	t.Run("under 26 candles everything is zero", func(t *testing.T) {
		assert.Equal(t, MACD{}, ComputeMACD(flatSeries(25, 100)))
	})

	t.Run("flat series is zero", func(t *testing.T) {
		got := ComputeMACD(flatSeries(40, 100))
		assert.InDelta(t, 0, got.Value, 1e-9)
		assert.InDelta(t, 0, got.Signal, 1e-9)
		assert.InDelta(t, 0, got.Histogram, 1e-9)
		assert.InDelta(t, 0, got.PreviousHistogram, 1e-9)
	})

	t.Run("sustained rise turns the histogram positive", func(t *testing.T) {
		got := ComputeMACD(risingSeries(60, 100, 1))
		assert.Greater(t, got.Value, 0.0)
		assert.Greater(t, got.Histogram, 0.0)
	})

	t.Run("value is short minus long EMA", func(t *testing.T) {
		c := risingSeries(60, 100, 0.5)
		got := ComputeMACD(c)
		want := EMA(c, 12) - EMA(c, 26)
		assert.InDelta(t, want, got.Value, 1e-9)
	})
}

func TestComputeBollinger(t *testing.T) {
	t.Run("short series is zero", func(t *testing.T) {
		assert.Equal(t, Bollinger{}, ComputeBollinger(flatSeries(10, 100), 20, 2))
	})

	t.Run("flat series collapses the bands", func(t *testing.T) {
		got := ComputeBollinger(flatSeries(30, 100), 20, 2)
		assert.InDelta(t, 100, got.Upper, 1e-9)
		assert.InDelta(t, 100, got.Middle, 1e-9)
		assert.InDelta(t, 100, got.Lower, 1e-9)
	})

	t.Run("known window", func(t *testing.T) {
		// Closes 98 and 102 alternating over 20: mean 100, stddev 2.
		closes := make([]float64, 20)
		for i := range closes {
			if i%2 == 0 {
				closes[i] = 98
			} else {
				closes[i] = 102
			}
		}
		got := ComputeBollinger(series(closes...), 20, 2)
		assert.InDelta(t, 100, got.Middle, 1e-9)
		assert.InDelta(t, 104, got.Upper, 1e-9)
		assert.InDelta(t, 96, got.Lower, 1e-9)
	})
}

func TestComputeStochastic(t *testing.T) {
	t.Run("short series is neutral", func(t *testing.T) {
		assert.Equal(t, Stochastic{K: 50, D: 50}, ComputeStochastic(flatSeries(5, 100), 14, 3, 3))
	})

	t.Run("flat window is neutral", func(t *testing.T) {
		c := make(market.Candles, 20)
		for i := range c {
			c[i] = market.Candle{Open: 100, High: 100, Low: 100, Close: 100, Volume: 10}
		}
		assert.Equal(t, Stochastic{K: 50, D: 50}, ComputeStochastic(c, 14, 3, 3))
	})

	t.Run("close at the window high maxes K", func(t *testing.T) {
		// Window spans low 90, high 110, close pinned to the high for the
		// last several candles so every smoothing slice reads 100.
		c := make(market.Candles, 20)
		for i := range c {
			c[i] = market.Candle{Open: 100, High: 110, Low: 90, Close: 110, Volume: 10}
		}
		got := ComputeStochastic(c, 14, 3, 3)
		assert.InDelta(t, 100, got.K, 1e-9)
		assert.InDelta(t, 100, got.D, 1e-9)
	})

	t.Run("values stay within 0..100", func(t *testing.T) {
		got := ComputeStochastic(risingSeries(40, 100, 2), 14, 3, 3)
		assert.GreaterOrEqual(t, got.K, 0.0)
		assert.LessOrEqual(t, got.K, 100.0)
		assert.GreaterOrEqual(t, got.D, 0.0)
		assert.LessOrEqual(t, got.D, 100.0)
	})
}

func TestAnalyzeVolume(t *testing.T) {
	withVolumes := func(volumes ...float64) market.Candles {
		out := make(market.Candles, len(volumes))
		for i, v := range volumes {
			out[i] = market.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: v}
		}
		return out
	}

	t.Run("short series is neutral", func(t *testing.T) {
		got := AnalyzeVolume(withVolumes(1, 2, 3), 5)
		assert.Equal(t, VolumeNeutral, got.Trend)
	})

	t.Run("doubled volume is +100 percent", func(t *testing.T) {
		got := AnalyzeVolume(withVolumes(10, 10, 10, 10, 10, 20, 20, 20, 20, 20), 5)
		assert.Equal(t, VolumeIncreasing, got.Trend)
		assert.InDelta(t, 100, got.ChangePct, 1e-9)
	})

	t.Run("falling volume", func(t *testing.T) {
		got := AnalyzeVolume(withVolumes(20, 20, 20, 20, 20, 10, 10, 10, 10, 10), 5)
		assert.Equal(t, VolumeDecreasing, got.Trend)
		assert.InDelta(t, -50, got.ChangePct, 1e-9)
	})

	t.Run("zero prior volume is neutral", func(t *testing.T) {
		got := AnalyzeVolume(withVolumes(0, 0, 0, 0, 0, 10, 10, 10, 10, 10), 5)
		assert.Equal(t, VolumeNeutral, got.Trend)
	})
}

func TestComputeIsPureAndTotal(t *testing.T) {
	c := risingSeries(40, 100, 1)
	before := make(market.Candles, len(c))
	copy(before, c)

	first := Compute(c, Settings{})
	second := Compute(c, Settings{})

	assert.Equal(t, first, second, "same candles, same snapshot")
	assert.Equal(t, before, c, "input must not be mutated")

	// A minimal series still yields a full snapshot with fallbacks.
	require.NotPanics(t, func() { Compute(series(100, 101), Settings{}) })
	short := Compute(series(100, 101), Settings{})
	assert.Equal(t, 50.0, short.RSI)
	assert.Equal(t, 101.0, short.SMA)
	assert.Equal(t, MACD{}, short.MACD)
}
