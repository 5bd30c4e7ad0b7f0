package trader

// Performance accumulates realized trade outcomes. WinRate is always
// recomputed from the counters, never incremented, so a zero trade count
// can never divide by zero.
type Performance struct {
	TotalTrades      int     `json:"total_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
	TotalProfitLoss  float64 `json:"total_profit_loss"`
	WinRate          float64 `json:"win_rate"`
}

func (p *Performance) recordOpen() {
	p.TotalTrades++
	p.recomputeWinRate()
}

func (p *Performance) recordRealized(pnl float64) {
	p.TotalProfitLoss += pnl
	if pnl > 0 {
		p.ProfitableTrades++
	}
	p.recomputeWinRate()
}

func (p *Performance) recomputeWinRate() {
	if p.TotalTrades == 0 {
		p.WinRate = 0
		return
	}
	p.WinRate = float64(p.ProfitableTrades) / float64(p.TotalTrades) * 100
}
