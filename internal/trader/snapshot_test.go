package trader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mako/internal/gateway/exchange"
)

func snapshotManager(t *testing.T, fake *fakeExchange, initial map[string]float64) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "trading_status.json")
	return NewManager(
		Config{SnapshotPath: path, InitialBalances: initial, HistoryLimit: 10},
		Deps{Orders: fake, Source: fake, Account: fake},
	)
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeExchange()
	m := snapshotManager(t, fake, map[string]float64{"USDT": 1000})

	// One completed trade, one still-active position.
	done, err := m.OpenPosition(ctx, OpenRequest{
		Symbol: "BNBUSDT", BaseAsset: "BNB", QuoteAsset: "USDT",
		Side: exchange.SideBuy, Quantity: 1, Price: 100,
		TakeProfit: 102.5, StopLoss: 98.5,
	})
	require.NoError(t, err)
	fake.markFilled(done.OrderID)
	m.ReconcileOrders(ctx)
	fake.prices["BNBUSDT"] = 103
	m.CheckExits(ctx)

	live, err := m.OpenPosition(ctx, OpenRequest{
		Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT",
		Side: exchange.SideBuy, Quantity: 0.5, Price: 400,
		TakeProfit: 410, StopLoss: 394,
	})
	require.NoError(t, err)
	fake.markFilled(live.OrderID)
	m.ReconcileOrders(ctx)

	require.NoError(t, m.Persist())

	restored := NewManager(
		Config{SnapshotPath: m.cfg.SnapshotPath, HistoryLimit: 10},
		Deps{Orders: fake, Source: fake, Account: fake},
	)
	require.NoError(t, restored.Restore())

	assert.Equal(t, m.Balances(), restored.Balances())
	assert.Equal(t, m.Stats(), restored.Stats())
	require.Len(t, restored.OpenPositions(), 1)
	assert.Equal(t, "ETHUSDT", restored.OpenPositions()[0].Symbol)
	assert.Equal(t, StatusActive, restored.OpenPositions()[0].Status)
	require.Len(t, restored.History(), 1)
	assert.InDelta(t, 3.0, restored.History()[0].RealizedPnL, 1e-9)
}

func TestRestoreMissingSnapshotStartsFresh(t *testing.T) {
	fake := newFakeExchange()
	m := snapshotManager(t, fake, map[string]float64{"USDT": 500})

	require.NoError(t, m.Restore())
	assert.Equal(t, 500.0, m.Balance("USDT"))
	assert.Empty(t, m.OpenPositions())
	assert.Zero(t, m.Stats().TotalTrades)
}

func TestRestoreCorruptSnapshotFallsBack(t *testing.T) {
	cases := map[string]string{
		"truncated json":   `{"open_positions": [`,
		"wrong shape":      `{"balances": "not an object"}`,
		"negative balance": `{"open_positions": [], "history": [], "balances": {"USDT": -5}, "performance": {"total_trades": 0, "profitable_trades": 0, "total_profit_loss": 0, "win_rate": 0}}`,
		"bad status": `{"open_positions": [{"id": "x", "symbol": "BNBUSDT", "side": "BUY", "quantity": 1, "entry_price": 100, "status": "LIMBO"}],
			"history": [], "balances": {}, "performance": {"total_trades": 0, "profitable_trades": 0, "total_profit_loss": 0, "win_rate": 0}}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			fake := newFakeExchange()
			m := snapshotManager(t, fake, map[string]float64{"USDT": 500})
			require.NoError(t, os.MkdirAll(filepath.Dir(m.cfg.SnapshotPath), 0o755))
			require.NoError(t, os.WriteFile(m.cfg.SnapshotPath, []byte(payload), 0o644))

			require.NoError(t, m.Restore(), "a bad snapshot must never fail startup")
			assert.Equal(t, 500.0, m.Balance("USDT"), "initial balances kept")
			assert.Empty(t, m.OpenPositions())
		})
	}
}

func TestRestoreRecomputesWinRate(t *testing.T) {
	fake := newFakeExchange()
	m := snapshotManager(t, fake, nil)

	m.RestoreState(State{
		Balances: map[string]float64{"USDT": 100},
		Performance: Performance{
			TotalTrades:      4,
			ProfitableTrades: 3,
			TotalProfitLoss:  12,
			WinRate:          1, // stale on disk, must be recomputed
		},
	})
	assert.InDelta(t, 75.0, m.Stats().WinRate, 1e-9)
}

func TestRestoreStateFiltersByStatus(t *testing.T) {
	fake := newFakeExchange()
	m := snapshotManager(t, fake, nil)

	m.RestoreState(State{
		OpenPositions: []Position{
			{ID: "a", Symbol: "BNBUSDT", Status: StatusPending},
			{ID: "b", Symbol: "BNBUSDT", Status: StatusCompleted}, // does not belong here
		},
		History: []Position{
			{ID: "c", Symbol: "BNBUSDT", Status: StatusCompleted},
			{ID: "d", Symbol: "BNBUSDT", Status: StatusActive}, // nor here
		},
		Balances: map[string]float64{},
	})

	require.Len(t, m.OpenPositions(), 1)
	assert.Equal(t, "a", m.OpenPositions()[0].ID)
	require.Len(t, m.History(), 1)
	assert.Equal(t, "c", m.History()[0].ID)
}

func TestPersistIsAtomic(t *testing.T) {
	fake := newFakeExchange()
	m := snapshotManager(t, fake, map[string]float64{"USDT": 100})

	require.NoError(t, m.Persist())
	_, err := os.Stat(m.cfg.SnapshotPath + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

	data, err := os.ReadFile(m.cfg.SnapshotPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"balances"`)
}
