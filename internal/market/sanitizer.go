package market

import "time"

// DefaultKlineGrace absorbs exchange clock skew when deciding whether the
// last kline has actually closed.
const DefaultKlineGrace = 10 * time.Second

// DropUnclosed drops the last candle if it is still forming. Binance style:
// the last kline of a fetch may be the current, not-yet-closed bucket, and
// indicators over it flap on every tick.
func DropUnclosed(candles Candles, interval time.Duration) Candles {
	return dropUnclosedAt(candles, interval, time.Now().UTC(), DefaultKlineGrace)
}

func dropUnclosedAt(candles Candles, interval time.Duration, now time.Time, grace time.Duration) Candles {
	if len(candles) == 0 || interval <= 0 {
		return candles
	}
	if grace < 0 {
		grace = 0
	}
	last := candles[len(candles)-1]
	if last.OpenTime <= 0 {
		return candles
	}
	closeTimeMs := last.OpenTime + interval.Milliseconds()
	cutoffMs := closeTimeMs + grace.Milliseconds()
	if now.UnixMilli() < cutoffMs {
		return candles[:len(candles)-1]
	}
	return candles
}
