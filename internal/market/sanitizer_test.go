package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDropUnclosed(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 30, 0, time.UTC)
	interval := time.Minute

	closed := Candle{OpenTime: now.Add(-2 * time.Minute).UnixMilli(), Close: 100}
	forming := Candle{OpenTime: now.Add(-30 * time.Second).UnixMilli(), Close: 101}

	t.Run("drops the forming candle", func(t *testing.T) {
		got := dropUnclosedAt(Candles{closed, forming}, interval, now, 0)
		assert.Equal(t, Candles{closed}, got)
	})

	t.Run("keeps fully closed series", func(t *testing.T) {
		got := dropUnclosedAt(Candles{closed}, interval, now, 0)
		assert.Equal(t, Candles{closed}, got)
	})

	t.Run("grace keeps a just-closed candle out", func(t *testing.T) {
		justClosed := Candle{OpenTime: now.Add(-65 * time.Second).UnixMilli()}
		got := dropUnclosedAt(Candles{closed, justClosed}, interval, now, 10*time.Second)
		assert.Equal(t, Candles{closed}, got)
	})

	t.Run("empty and zero-interval are passthrough", func(t *testing.T) {
		assert.Empty(t, dropUnclosedAt(nil, interval, now, 0))
		got := dropUnclosedAt(Candles{forming}, 0, now, 0)
		assert.Equal(t, Candles{forming}, got)
	})
}
