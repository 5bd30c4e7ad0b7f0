// Package signallog keeps a bounded SQLite log of every scored signal, one
// row per symbol per tick, for later inspection of why the bot traded or
// held.
package signallog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mako/internal/analysis/signal"
)

const defaultRetain = 5000

// Store manages the signal log database.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	retain int
}

// Record is one scored signal as stored.
type Record struct {
	ID         int64   `json:"id"`
	Timestamp  int64   `json:"ts"`
	Symbol     string  `json:"symbol"`
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Price      float64 `json:"price"`
	Indicators string  `json:"indicators"`
}

func NewStore(path string, retain int) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("signallog: database path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	if retain <= 0 {
		retain = defaultRetain
	}
	return &Store{db: db, retain: retain}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		decision TEXT NOT NULL,
		confidence REAL NOT NULL,
		price REAL NOT NULL,
		indicators TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, ts DESC);`)
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores one signal and prunes rows beyond the retention cap.
func (s *Store) Append(ctx context.Context, sig signal.Signal) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("signallog: store not initialized")
	}
	indicators, err := json.Marshal(sig.Indicators)
	if err != nil {
		indicators = []byte("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signals (ts, symbol, decision, confidence, price, indicators) VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), sig.Symbol, string(sig.Decision), sig.Confidence, sig.CurrentPrice, string(indicators),
	)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM signals WHERE id <= (SELECT MAX(id) FROM signals) - ?`, s.retain,
	)
	return err
}

// Recent returns the latest records for a symbol, newest first. An empty
// symbol matches everything.
func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("signallog: store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, ts, symbol, decision, confidence, price, indicators FROM signals`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Symbol, &rec.Decision, &rec.Confidence, &rec.Price, &rec.Indicators); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
