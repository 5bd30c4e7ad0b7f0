// Package trader owns the position lifecycle: the open position set, the
// balance ledger and the performance counters. All three are guarded by a
// single mutex; network calls are never made while it is held. State
// survives restarts through the JSON snapshot in snapshot.go.
package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mako/internal/gateway/exchange"
	"mako/internal/gateway/notifier"
	"mako/internal/logger"
)

const defaultHistoryLimit = 100

// TradeJournal receives closed trades for durable bookkeeping. Appends are
// best-effort: a journal failure never blocks the lifecycle.
type TradeJournal interface {
	AppendClosed(ctx context.Context, trade ClosedTrade) error
}

type Config struct {
	SnapshotPath string
	HistoryLimit int
	// InitialBalances seeds the ledger when no snapshot exists.
	InitialBalances map[string]float64
}

type Deps struct {
	Orders  exchange.OrderGateway
	Source  exchange.MarketSource
	Account exchange.Account
	Notify  notifier.TextNotifier
	Journal TradeJournal
}

type Manager struct {
	cfg  Config
	deps Deps

	mu           sync.Mutex
	open         []*Position
	history      []Position
	ledger       *Ledger
	perf         Performance
	lastReportAt time.Time
}

func NewManager(cfg Config, deps Deps) *Manager {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if deps.Notify == nil {
		deps.Notify = notifier.Noop{}
	}
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		ledger: NewLedger(cfg.InitialBalances),
	}
}

// OpenRequest describes an entry order to submit.
type OpenRequest struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	Side       exchange.Side
	Quantity   float64
	Price      float64
	TakeProfit float64
	StopLoss   float64
}

func (r OpenRequest) validate() error {
	if r.Symbol == "" || r.BaseAsset == "" || r.QuoteAsset == "" {
		return fmt.Errorf("symbol, base asset and quote asset are required")
	}
	if r.Side != exchange.SideBuy && r.Side != exchange.SideSell {
		return fmt.Errorf("invalid side %q", r.Side)
	}
	if r.Quantity <= 0 || r.Price <= 0 {
		return fmt.Errorf("quantity and price must be positive")
	}
	return nil
}

// OpenPosition verifies the ledger covers the order notional (a reservation
// check, not a transfer), submits the order, and on acknowledgement appends
// a PENDING position and counts the trade. A failed submission mutates
// nothing.
func (m *Manager) OpenPosition(ctx context.Context, req OpenRequest) (*Position, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	var reserveErr error
	switch req.Side {
	case exchange.SideBuy:
		reserveErr = m.ledger.Check(req.QuoteAsset, req.Quantity*req.Price)
	case exchange.SideSell:
		reserveErr = m.ledger.Check(req.BaseAsset, req.Quantity)
	}
	m.mu.Unlock()
	if reserveErr != nil {
		return nil, reserveErr
	}

	ack, err := m.deps.Orders.PlaceOrder(ctx, req.Symbol, req.Side, req.Quantity, req.Price)
	if err != nil {
		return nil, fmt.Errorf("placing %s order for %s: %w", req.Side, req.Symbol, err)
	}

	pos := &Position{
		ID:         uuid.NewString(),
		OrderID:    ack.OrderID,
		Symbol:     req.Symbol,
		BaseAsset:  req.BaseAsset,
		QuoteAsset: req.QuoteAsset,
		Side:       req.Side,
		Quantity:   req.Quantity,
		EntryPrice: req.Price,
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		Status:     StatusPending,
		OpenedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	m.open = append(m.open, pos)
	m.perf.recordOpen()
	m.mu.Unlock()

	logger.Infof("trader: %s order %d accepted for %s qty=%.6f price=%.8f",
		req.Side, ack.OrderID, req.Symbol, req.Quantity, req.Price)
	out := *pos
	return &out, nil
}

type pendingOrder struct {
	id      string
	symbol  string
	orderID int64
}

// ReconcileOrders queries the exchange for every PENDING position and
// applies confirmed fills to the ledger and state machine. Applying the
// same FILLED observation twice is a no-op. Query failures are logged and
// retried on the next tick; a position is never advanced without a
// verified exchange response.
func (m *Manager) ReconcileOrders(ctx context.Context) {
	m.mu.Lock()
	pending := make([]pendingOrder, 0, len(m.open))
	for _, p := range m.open {
		if p.Status == StatusPending {
			pending = append(pending, pendingOrder{id: p.ID, symbol: p.Symbol, orderID: p.OrderID})
		}
	}
	m.mu.Unlock()

	for _, po := range pending {
		state, err := m.deps.Orders.OrderStatus(ctx, po.symbol, po.orderID)
		if err != nil {
			logger.Warnf("trader: order status query failed for %s #%d: %v", po.symbol, po.orderID, err)
			continue
		}
		switch state.Status {
		case exchange.OrderStatusFilled:
			m.applyEntryFill(ctx, po.id)
		case exchange.OrderStatusCanceled, exchange.OrderStatusRejected, exchange.OrderStatusExpired:
			m.dropPending(po.id, state.Status)
		}
	}
}

// applyEntryFill moves a PENDING position forward: BUY turns ACTIVE with
// base credited and quote debited; SELL completes immediately with the
// inverse ledger movement. Non-PENDING positions are left untouched.
func (m *Manager) applyEntryFill(ctx context.Context, id string) {
	m.mu.Lock()
	pos := m.findOpen(id)
	if pos == nil || pos.Status != StatusPending {
		m.mu.Unlock()
		return
	}

	notional := pos.Quantity * pos.EntryPrice
	var completed *Position
	switch pos.Side {
	case exchange.SideBuy:
		if err := m.ledger.Debit(pos.QuoteAsset, notional); err != nil {
			m.mu.Unlock()
			logger.Warnf("trader: cannot settle BUY fill for %s: %v", pos.Symbol, err)
			return
		}
		m.ledger.Credit(pos.BaseAsset, pos.Quantity)
		pos.Status = StatusActive
	case exchange.SideSell:
		if err := m.ledger.Debit(pos.BaseAsset, pos.Quantity); err != nil {
			m.mu.Unlock()
			logger.Warnf("trader: cannot settle SELL fill for %s: %v", pos.Symbol, err)
			return
		}
		m.ledger.Credit(pos.QuoteAsset, notional)
		m.complete(pos, pos.EntryPrice, 0, false)
		completed = pos
	}
	snapshot := *pos
	m.mu.Unlock()

	logger.Infof("trader: order %d filled for %s (%s)", snapshot.OrderID, snapshot.Symbol, snapshot.Side)
	m.notify(notifier.OrderCompletedMessage(snapshot.Symbol, string(snapshot.Side), snapshot.Quantity, snapshot.EntryPrice))
	if completed != nil {
		m.journal(ctx, snapshot, ExitReasonEntryFill)
	}
}

func (m *Manager) dropPending(id string, status exchange.OrderStatus) {
	m.mu.Lock()
	pos := m.findOpen(id)
	if pos == nil || pos.Status != StatusPending {
		m.mu.Unlock()
		return
	}
	m.removeOpen(id)
	m.mu.Unlock()
	logger.Warnf("trader: order %d for %s ended %s without fill, dropping position", pos.OrderID, pos.Symbol, status)
	m.notify(notifier.ErrorMessage(fmt.Sprintf("order for %s not filled", pos.Symbol), fmt.Errorf("exchange status %s", status)))
}

type exitCandidate struct {
	id         string
	symbol     string
	baseAsset  string
	quantity   float64
	takeProfit float64
	stopLoss   float64
}

// CheckExits watches every ACTIVE BUY position and closes it once the
// current price crosses its take-profit or stop-loss level. An exit that
// the ledger cannot cover is deferred to the next tick, never forced.
func (m *Manager) CheckExits(ctx context.Context) {
	m.mu.Lock()
	candidates := make([]exitCandidate, 0, len(m.open))
	for _, p := range m.open {
		if p.Status == StatusActive && p.Side == exchange.SideBuy {
			candidates = append(candidates, exitCandidate{
				id:         p.ID,
				symbol:     p.Symbol,
				baseAsset:  p.BaseAsset,
				quantity:   p.Quantity,
				takeProfit: p.TakeProfit,
				stopLoss:   p.StopLoss,
			})
		}
	}
	m.mu.Unlock()

	for _, cand := range candidates {
		price, err := m.deps.Source.CurrentPrice(ctx, cand.symbol)
		if err != nil {
			logger.Warnf("trader: price fetch failed for %s: %v", cand.symbol, err)
			continue
		}
		if price < cand.takeProfit && price > cand.stopLoss {
			continue
		}
		reason := ExitReasonTakeProfit
		if price <= cand.stopLoss {
			reason = ExitReasonStopLoss
		}
		m.closePosition(ctx, cand, price, reason)
	}
}

func (m *Manager) closePosition(ctx context.Context, cand exitCandidate, price float64, reason string) {
	m.mu.Lock()
	if pos := m.findOpen(cand.id); pos == nil || pos.Status != StatusActive {
		m.mu.Unlock()
		return
	}
	if err := m.ledger.Check(cand.baseAsset, cand.quantity); err != nil {
		m.mu.Unlock()
		logger.Warnf("trader: exit deferred for %s (%s): %v", cand.symbol, reason, err)
		m.notify(notifier.InsufficientBalanceMessage(cand.symbol, cand.baseAsset, cand.quantity, m.Balance(cand.baseAsset)))
		return
	}
	m.mu.Unlock()

	ack, err := m.deps.Orders.PlaceOrder(ctx, cand.symbol, exchange.SideSell, cand.quantity, price)
	if err != nil {
		logger.Errorf("trader: exit order failed for %s: %v", cand.symbol, err)
		m.notify(notifier.ErrorMessage(fmt.Sprintf("placing exit SELL for %s", cand.symbol), err))
		return
	}

	m.mu.Lock()
	pos := m.findOpen(cand.id)
	if pos == nil || pos.Status != StatusActive {
		m.mu.Unlock()
		return
	}
	if err := m.ledger.Debit(pos.BaseAsset, pos.Quantity); err != nil {
		m.mu.Unlock()
		logger.Errorf("trader: exit fill for %s could not settle: %v", cand.symbol, err)
		return
	}
	m.ledger.Credit(pos.QuoteAsset, pos.Quantity*price)
	pos.ExitOrderID = ack.OrderID
	m.complete(pos, price, (price-pos.EntryPrice)*pos.Quantity, true)
	snapshot := *pos
	perf := m.perf
	m.mu.Unlock()

	logger.Infof("trader: %s for %s at %.8f (entry %.8f, pnl %.4f)",
		reason, snapshot.Symbol, price, snapshot.EntryPrice, snapshot.RealizedPnL)
	m.notify(notifier.ExitMessage(notifier.ExitInfo{
		Symbol:      snapshot.Symbol,
		Quantity:    snapshot.Quantity,
		EntryPrice:  snapshot.EntryPrice,
		ExitPrice:   price,
		Profit:      snapshot.RealizedPnL,
		TotalTrades: perf.TotalTrades,
		WinRate:     perf.WinRate,
		TotalPnL:    perf.TotalProfitLoss,
	}))
	m.journal(ctx, snapshot, reason)
}

// complete finalizes a position under the caller's lock: stamps the close,
// optionally realizes pnl into the counters, and moves the position from
// the open set into bounded history.
func (m *Manager) complete(pos *Position, exitPrice, pnl float64, realize bool) {
	now := time.Now().UTC()
	pos.Status = StatusCompleted
	pos.ExitPrice = exitPrice
	pos.RealizedPnL = pnl
	pos.ClosedAt = &now
	if realize {
		m.perf.recordRealized(pnl)
	}
	m.removeOpen(pos.ID)
	m.history = append(m.history, *pos)
	if len(m.history) > m.cfg.HistoryLimit {
		m.history = m.history[len(m.history)-m.cfg.HistoryLimit:]
	}
}

// SyncBalances pulls account balances from the exchange into the ledger
// (free plus locked, matching how the exchange reports holdings).
func (m *Manager) SyncBalances(ctx context.Context) error {
	balances, err := m.deps.Account.Balances(ctx)
	if err != nil {
		return fmt.Errorf("fetching account balances: %w", err)
	}
	m.mu.Lock()
	for asset, bal := range balances {
		m.ledger.Set(asset, bal.Total())
	}
	m.mu.Unlock()
	logger.Infof("trader: ledger synced with exchange (%d assets)", len(balances))
	return nil
}

func (m *Manager) findOpen(id string) *Position {
	for _, p := range m.open {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Manager) removeOpen(id string) {
	for i, p := range m.open {
		if p.ID == id {
			m.open = append(m.open[:i], m.open[i+1:]...)
			return
		}
	}
}

func (m *Manager) notify(text string) {
	if err := m.deps.Notify.SendText(text); err != nil {
		logger.Warnf("trader: notification failed: %v", err)
	}
}

func (m *Manager) journal(ctx context.Context, pos Position, reason string) {
	if m.deps.Journal == nil {
		return
	}
	closedAt := time.Now().UTC()
	if pos.ClosedAt != nil {
		closedAt = *pos.ClosedAt
	}
	err := m.deps.Journal.AppendClosed(ctx, ClosedTrade{
		PositionID: pos.ID,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  pos.ExitPrice,
		PnL:        pos.RealizedPnL,
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   closedAt,

		OrderID:     pos.OrderID,
		ExitOrderID: pos.ExitOrderID,
		TakeProfit:  pos.TakeProfit,
		StopLoss:    pos.StopLoss,
	})
	if err != nil {
		logger.Warnf("trader: journal append failed for %s: %v", pos.Symbol, err)
	}
}

// Accessors below return copies; callers never see live state.

func (m *Manager) OpenPositions() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, len(m.open))
	for i, p := range m.open {
		out[i] = *p
	}
	return out
}

func (m *Manager) History() []Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Position, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Manager) Balance(asset string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Get(asset)
}

func (m *Manager) Balances() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Snapshot()
}

func (m *Manager) Stats() Performance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perf
}

func (m *Manager) LastReportAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReportAt
}

func (m *Manager) MarkReported(at time.Time) {
	m.mu.Lock()
	m.lastReportAt = at
	m.mu.Unlock()
}

// HasOpenPosition reports whether any open (PENDING or ACTIVE) position
// exists for the symbol, preventing duplicate entries from one signal.
func (m *Manager) HasOpenPosition(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.open {
		if p.Symbol == symbol {
			return true
		}
	}
	return false
}
