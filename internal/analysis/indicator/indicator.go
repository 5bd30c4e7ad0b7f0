// Package indicator computes technical indicators over a candle series.
// Every function is pure and total: the same candles always produce the
// same output, and short series fall back to a defined default instead of
// failing. Nothing here mutates the input.
package indicator

import (
	"math"

	"mako/internal/market"
)

// Settings carries the indicator periods. Zero fields take the defaults
// below.
type Settings struct {
	RSIPeriod    int
	SMAPeriod    int
	EMAShort     int
	EMALong      int
	BollPeriod   int
	BollMult     float64
	StochPeriod  int
	StochSmoothK int
	StochSmoothD int
	VolumeWindow int
}

func (s Settings) withDefaults() Settings {
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.SMAPeriod <= 0 {
		s.SMAPeriod = 20
	}
	if s.EMAShort <= 0 {
		s.EMAShort = 9
	}
	if s.EMALong <= 0 {
		s.EMALong = 21
	}
	if s.BollPeriod <= 0 {
		s.BollPeriod = 20
	}
	if s.BollMult <= 0 {
		s.BollMult = 2
	}
	if s.StochPeriod <= 0 {
		s.StochPeriod = 14
	}
	if s.StochSmoothK <= 0 {
		s.StochSmoothK = 3
	}
	if s.StochSmoothD <= 0 {
		s.StochSmoothD = 3
	}
	if s.VolumeWindow <= 0 {
		s.VolumeWindow = 5
	}
	return s
}

type MACD struct {
	Value             float64 `json:"value"`
	Signal            float64 `json:"signal"`
	Histogram         float64 `json:"histogram"`
	PreviousHistogram float64 `json:"previous_histogram"`
}

type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

type Stochastic struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeDecreasing VolumeTrend = "decreasing"
	VolumeNeutral    VolumeTrend = "neutral"
)

type VolumeProfile struct {
	Trend     VolumeTrend `json:"trend"`
	ChangePct float64     `json:"change_pct"`
}

// Snapshot bundles all indicator outputs for one evaluation. It is
// recomputed from scratch every tick and never persisted.
type Snapshot struct {
	RSI        float64       `json:"rsi"`
	SMA        float64       `json:"sma"`
	EMAShort   float64       `json:"ema_short"`
	EMALong    float64       `json:"ema_long"`
	MACD       MACD          `json:"macd"`
	Bollinger  Bollinger     `json:"bollinger"`
	Stochastic Stochastic    `json:"stochastic"`
	Volume     VolumeProfile `json:"volume"`
}

// Compute evaluates every indicator over candles with the given settings.
func Compute(candles market.Candles, cfg Settings) Snapshot {
	cfg = cfg.withDefaults()
	return Snapshot{
		RSI:        RSI(candles, cfg.RSIPeriod),
		SMA:        SMA(candles, cfg.SMAPeriod),
		EMAShort:   EMA(candles, cfg.EMAShort),
		EMALong:    EMA(candles, cfg.EMALong),
		MACD:       ComputeMACD(candles),
		Bollinger:  ComputeBollinger(candles, cfg.BollPeriod, cfg.BollMult),
		Stochastic: ComputeStochastic(candles, cfg.StochPeriod, cfg.StochSmoothK, cfg.StochSmoothD),
		Volume:     AnalyzeVolume(candles, cfg.VolumeWindow),
	}
}

// RSI over the trailing window of `period` changes. Needs period+1 candles;
// otherwise returns the neutral 50. All losses zero yields 100.
func RSI(candles market.Candles, period int) float64 {
	if len(candles) < period+1 {
		return 50
	}
	var gains, losses float64
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change >= 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// SMA of the trailing `period` closes, or the last close when the series is
// too short.
func SMA(candles market.Candles, period int) float64 {
	if len(candles) < period {
		return candles.Last().Close
	}
	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// EMA seeded with the SMA of the first `period` closes, then carried
// forward with k = 2/(period+1). Falls back to the last close when the
// series is shorter than the period.
func EMA(candles market.Candles, period int) float64 {
	if len(candles) < period {
		return candles.Last().Close
	}
	return emaSeries(candles.Closes(), period)
}

func emaSeries(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) < period {
		return values[len(values)-1]
	}
	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)
	k := 2 / float64(period+1)
	for _, v := range values[period:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

const (
	macdShortPeriod  = 12
	macdLongPeriod   = 26
	macdSignalPeriod = 9
)

// ComputeMACD returns MACD(12,26) with a 9-period signal line. The MACD
// series is carried forward incrementally: one pass over the closes keeps
// both EMAs updated and records a MACD point once the long EMA is seeded.
// PreviousHistogram is the histogram of the series truncated by one point,
// giving the slope check a stable reference. Under 26 candles everything
// is zero.
func ComputeMACD(candles market.Candles) MACD {
	if len(candles) < macdLongPeriod {
		return MACD{}
	}
	closes := candles.Closes()
	macdSeries := macdLine(closes)

	value := macdSeries[len(macdSeries)-1]
	signal := emaSeries(macdSeries, macdSignalPeriod)
	histogram := value - signal

	var previous float64
	if len(macdSeries) >= 2 {
		truncated := macdSeries[:len(macdSeries)-1]
		previous = truncated[len(truncated)-1] - emaSeries(truncated, macdSignalPeriod)
	}
	return MACD{
		Value:             value,
		Signal:            signal,
		Histogram:         histogram,
		PreviousHistogram: previous,
	}
}

// macdLine walks the closes once, keeping the short and long EMA updated in
// lockstep and emitting short−long from the first index where the long EMA
// is seeded.
func macdLine(closes []float64) []float64 {
	kShort := 2 / float64(macdShortPeriod+1)
	kLong := 2 / float64(macdLongPeriod+1)

	var sumShort, sumLong float64
	var emaShort, emaLong float64
	out := make([]float64, 0, len(closes)-macdLongPeriod+1)

	for i, c := range closes {
		if i < macdShortPeriod {
			sumShort += c
			if i == macdShortPeriod-1 {
				emaShort = sumShort / macdShortPeriod
			}
		} else {
			emaShort = c*kShort + emaShort*(1-kShort)
		}
		if i < macdLongPeriod {
			sumLong += c
			if i == macdLongPeriod-1 {
				emaLong = sumLong / macdLongPeriod
			}
		} else {
			emaLong = c*kLong + emaLong*(1-kLong)
		}
		if i >= macdLongPeriod-1 {
			out = append(out, emaShort-emaLong)
		}
	}
	return out
}

// ComputeBollinger returns middle = SMA(period) with bands at
// ±mult·stddev. Under `period` candles the whole struct is zero.
func ComputeBollinger(candles market.Candles, period int, mult float64) Bollinger {
	if len(candles) < period {
		return Bollinger{}
	}
	window := candles[len(candles)-period:]
	var sum float64
	for _, c := range window {
		sum += c.Close
	}
	mean := sum / float64(period)

	var variance float64
	for _, c := range window {
		d := c.Close - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(period))

	return Bollinger{
		Upper:  mean + stddev*mult,
		Middle: mean,
		Lower:  mean - stddev*mult,
	}
}

// ComputeStochastic returns smoothed %K and %D. Raw %K values are taken
// over the trailing window with the series truncated by 0..smoothK-1
// candles; a flat window (high == low) contributes the neutral 50.
func ComputeStochastic(candles market.Candles, period, smoothK, smoothD int) Stochastic {
	if len(candles) < period {
		return Stochastic{K: 50, D: 50}
	}
	if high, low := windowHighLow(candles, period); high == low {
		return Stochastic{K: 50, D: 50}
	}

	kValues := make([]float64, 0, smoothK)
	for i := 0; i < smoothK; i++ {
		if len(candles) > period+i {
			slice := candles[:len(candles)-i]
			high, low := windowHighLow(slice, period)
			close := slice[len(slice)-1].Close
			if high != low {
				kValues = append(kValues, (close-low)/(high-low)*100)
			} else {
				kValues = append(kValues, 50)
			}
		} else {
			kValues = append(kValues, 50)
		}
	}
	k := mean(kValues)

	dValues := make([]float64, 0, smoothD)
	for i := 0; i < smoothD; i++ {
		if i < len(kValues) {
			dValues = append(dValues, kValues[i])
		} else {
			dValues = append(dValues, 50)
		}
	}
	return Stochastic{K: k, D: mean(dValues)}
}

func windowHighLow(candles market.Candles, period int) (high, low float64) {
	window := candles[len(candles)-period:]
	high = window[0].High
	low = window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

// AnalyzeVolume compares the mean volume of the last `window` candles with
// the `window` before it. Under 2·window candles the trend is neutral.
func AnalyzeVolume(candles market.Candles, window int) VolumeProfile {
	if len(candles) < 2*window {
		return VolumeProfile{Trend: VolumeNeutral}
	}
	recent := mean(candles.Volumes()[len(candles)-window:])
	previous := mean(candles.Volumes()[len(candles)-2*window : len(candles)-window])
	if previous == 0 {
		return VolumeProfile{Trend: VolumeNeutral}
	}
	trend := VolumeDecreasing
	if recent > previous {
		trend = VolumeIncreasing
	}
	return VolumeProfile{
		Trend:     trend,
		ChangePct: (recent - previous) / previous * 100,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
