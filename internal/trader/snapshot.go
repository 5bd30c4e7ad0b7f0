package trader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"mako/internal/logger"
)

// State is the durable snapshot of the manager: open positions, bounded
// trade history, the balance ledger and the performance counters.
type State struct {
	OpenPositions []Position         `json:"open_positions"`
	History       []Position         `json:"history"`
	Balances      map[string]float64 `json:"balances"`
	Performance   Performance        `json:"performance"`
	LastReportAt  time.Time          `json:"last_report_at,omitempty"`
	SavedAt       time.Time          `json:"saved_at"`
}

// stateSchema rejects snapshots whose shape has drifted (truncated writes,
// foreign files) before any field is trusted.
const stateSchema = `{
  "type": "object",
  "required": ["open_positions", "history", "balances", "performance"],
  "properties": {
    "open_positions": {"type": "array", "items": {"$ref": "#/$defs/position"}},
    "history": {"type": "array", "items": {"$ref": "#/$defs/position"}},
    "balances": {"type": "object", "additionalProperties": {"type": "number", "minimum": 0}},
    "performance": {
      "type": "object",
      "required": ["total_trades", "profitable_trades", "total_profit_loss", "win_rate"],
      "properties": {
        "total_trades": {"type": "integer", "minimum": 0},
        "profitable_trades": {"type": "integer", "minimum": 0},
        "total_profit_loss": {"type": "number"},
        "win_rate": {"type": "number", "minimum": 0, "maximum": 100}
      }
    }
  },
  "$defs": {
    "position": {
      "type": "object",
      "required": ["id", "symbol", "side", "quantity", "entry_price", "status"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "symbol": {"type": "string", "minLength": 1},
        "side": {"enum": ["BUY", "SELL"]},
        "quantity": {"type": "number", "exclusiveMinimum": 0},
        "entry_price": {"type": "number", "exclusiveMinimum": 0},
        "status": {"enum": ["PENDING", "ACTIVE", "COMPLETED"]}
      }
    }
  }
}`

var compiledStateSchema = jsonschema.MustCompileString("state.json", stateSchema)

// Snapshot captures the full manager state under the lock.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	open := make([]Position, len(m.open))
	for i, p := range m.open {
		open[i] = *p
	}
	history := make([]Position, len(m.history))
	copy(history, m.history)
	return State{
		OpenPositions: open,
		History:       history,
		Balances:      m.ledger.Snapshot(),
		Performance:   m.perf,
		LastReportAt:  m.lastReportAt,
		SavedAt:       time.Now().UTC(),
	}
}

// RestoreState replaces the manager state wholesale. History entries keep
// only COMPLETED positions and open entries only PENDING/ACTIVE ones, so a
// hand-edited snapshot cannot break the set invariant.
func (m *Manager) RestoreState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = m.open[:0]
	for _, p := range state.OpenPositions {
		if p.Status == StatusPending || p.Status == StatusActive {
			pos := p
			m.open = append(m.open, &pos)
		}
	}
	m.history = m.history[:0]
	for _, p := range state.History {
		if p.Status == StatusCompleted {
			m.history = append(m.history, p)
		}
	}
	if len(m.history) > m.cfg.HistoryLimit {
		m.history = m.history[len(m.history)-m.cfg.HistoryLimit:]
	}
	m.ledger = NewLedger(state.Balances)
	m.perf = state.Performance
	m.perf.recomputeWinRate()
	m.lastReportAt = state.LastReportAt
}

// Persist writes the snapshot atomically (temp file then rename), so a
// crash mid-write can never corrupt the previous snapshot.
func (m *Manager) Persist() error {
	path := strings.TrimSpace(m.cfg.SnapshotPath)
	if path == "" {
		return nil
	}
	state := m.Snapshot()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Restore loads the snapshot if one exists. A missing, unreadable or
// schema-invalid snapshot falls back to the initial state and never fails
// startup.
func (m *Manager) Restore() error {
	path := strings.TrimSpace(m.cfg.SnapshotPath)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Infof("trader: no snapshot at %s, starting fresh", path)
			return nil
		}
		logger.Warnf("trader: snapshot unreadable (%v), starting fresh", err)
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warnf("trader: snapshot is not valid JSON (%v), starting fresh", err)
		return nil
	}
	if err := compiledStateSchema.Validate(raw); err != nil {
		logger.Warnf("trader: snapshot failed schema validation (%v), starting fresh", err)
		return nil
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		logger.Warnf("trader: snapshot decode failed (%v), starting fresh", err)
		return nil
	}
	m.RestoreState(state)
	logger.Infof("trader: restored snapshot from %s (open=%d history=%d)", path, len(state.OpenPositions), len(state.History))
	return nil
}
