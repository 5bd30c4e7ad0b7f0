package trader

import (
	"errors"
	"fmt"
)

// ErrInsufficientBalance is returned whenever a mutation or reservation
// check would drive an asset balance negative. Balances are never clamped.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger maps asset symbol to available quantity. It is not safe for
// concurrent use on its own; the Manager's mutex serializes access.
type Ledger struct {
	balances map[string]float64
}

func NewLedger(initial map[string]float64) *Ledger {
	balances := make(map[string]float64, len(initial))
	for asset, amount := range initial {
		if amount > 0 {
			balances[asset] = amount
		}
	}
	return &Ledger{balances: balances}
}

func (l *Ledger) Get(asset string) float64 { return l.balances[asset] }

// Check verifies that `amount` of `asset` is available without mutating.
func (l *Ledger) Check(asset string, amount float64) error {
	if l.balances[asset] < amount {
		return fmt.Errorf("%w: need %.8f %s, have %.8f", ErrInsufficientBalance, amount, asset, l.balances[asset])
	}
	return nil
}

// Credit adds to an asset balance.
func (l *Ledger) Credit(asset string, amount float64) {
	if amount == 0 {
		return
	}
	l.balances[asset] += amount
}

// Debit subtracts from an asset balance, rejecting any mutation that would
// go negative.
func (l *Ledger) Debit(asset string, amount float64) error {
	if err := l.Check(asset, amount); err != nil {
		return err
	}
	l.balances[asset] -= amount
	return nil
}

// Set overwrites one asset balance, used when reconciling against the
// exchange account.
func (l *Ledger) Set(asset string, amount float64) {
	if amount <= 0 {
		delete(l.balances, asset)
		return
	}
	l.balances[asset] = amount
}

// Snapshot returns a copy of all balances.
func (l *Ledger) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(l.balances))
	for asset, amount := range l.balances {
		out[asset] = amount
	}
	return out
}
