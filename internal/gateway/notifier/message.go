package notifier

import (
	"fmt"
	"sort"
	"strings"

	"mako/internal/analysis/signal"
)

// Message builders for the bot's notification set. Formatting is Telegram
// HTML, matching the parse mode the Telegram notifier sends with.

type StartupInfo struct {
	TradingAmount   float64
	TakeProfitPct   float64
	StopLossPct     float64
	ConfidenceMin   float64
	IntervalMinutes float64
	Symbols         []string
	InitialBalance  map[string]float64
}

func StartupMessage(info StartupInfo) string {
	var b strings.Builder
	b.WriteString("🤖 <b>Trading Bot Started</b>\n\n")
	b.WriteString("<b>Trading Settings:</b>\n")
	fmt.Fprintf(&b, "Trading Amount: %g\n", info.TradingAmount)
	fmt.Fprintf(&b, "Take Profit: %g%%\n", info.TakeProfitPct)
	fmt.Fprintf(&b, "Stop Loss: %g%%\n", info.StopLossPct)
	fmt.Fprintf(&b, "Confidence Threshold: %g%%\n", info.ConfidenceMin)
	fmt.Fprintf(&b, "Check Interval: %g minutes\n\n", info.IntervalMinutes)
	fmt.Fprintf(&b, "<b>Trading Pairs:</b>\n%s\n\n", strings.Join(info.Symbols, ", "))
	b.WriteString("<b>Initial Balance:</b>\n")
	b.WriteString(formatBalances(info.InitialBalance))
	return b.String()
}

func PredictionMessage(sig signal.Signal) string {
	icon := "⚪ HOLD"
	switch sig.Decision {
	case signal.Buy:
		icon = "🟢 BUY"
	case signal.Sell:
		icon = "🔴 SELL"
	}
	ind := sig.Indicators
	var b strings.Builder
	fmt.Fprintf(&b, "🔮 <b>%s Prediction Update</b>\n", sig.Symbol)
	fmt.Fprintf(&b, "Current Price: $%.8g\n", sig.CurrentPrice)
	fmt.Fprintf(&b, "Signal: %s\n", icon)
	fmt.Fprintf(&b, "Confidence: %.2f%%\n\n", sig.Confidence)
	b.WriteString("<b>Indicators:</b>\n")
	fmt.Fprintf(&b, "RSI: %.2f\n", ind.RSI)
	fmt.Fprintf(&b, "SMA: $%.2f\n", ind.SMA)
	fmt.Fprintf(&b, "EMA: short $%.2f, long $%.2f\n", ind.EMAShort, ind.EMALong)
	fmt.Fprintf(&b, "MACD histogram: %.4f\n", ind.MACD.Histogram)
	fmt.Fprintf(&b, "Volume: %s\n", ind.Volume.Trend)
	fmt.Fprintf(&b, "Bollinger: upper $%.2f / middle $%.2f / lower $%.2f\n",
		ind.Bollinger.Upper, ind.Bollinger.Middle, ind.Bollinger.Lower)
	fmt.Fprintf(&b, "Stochastic: %%K %.2f, %%D %.2f\n", ind.Stochastic.K, ind.Stochastic.D)
	if sig.Decision == signal.Buy {
		fmt.Fprintf(&b, "\n<b>Entry Plan:</b>\nTake Profit: $%.2f\nStop Loss: $%.2f\n",
			sig.TakeProfitPrice, sig.StopLossPrice)
	}
	return b.String()
}

func OrderExecutedMessage(side, symbol string, quantity, price, takeProfit, stopLoss float64, orderID int64) string {
	icon := "🟢"
	if side == "SELL" {
		icon = "🔴"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s Order Executed</b>\n", icon, side)
	fmt.Fprintf(&b, "Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "Amount: %.6f\n", quantity)
	fmt.Fprintf(&b, "Price: $%.8g\n", price)
	fmt.Fprintf(&b, "Total: $%.2f\n", quantity*price)
	if side == "BUY" && takeProfit > 0 {
		fmt.Fprintf(&b, "\nTake Profit: $%.2f\nStop Loss: $%.2f\n", takeProfit, stopLoss)
	}
	fmt.Fprintf(&b, "\nOrder ID: %d", orderID)
	return b.String()
}

func OrderCompletedMessage(symbol, side string, quantity, price float64) string {
	var b strings.Builder
	b.WriteString("🔄 <b>Order Completed</b>\n")
	fmt.Fprintf(&b, "Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "Side: %s\n", side)
	fmt.Fprintf(&b, "Quantity: %.6f\n", quantity)
	fmt.Fprintf(&b, "Price: $%.8g\n", price)
	fmt.Fprintf(&b, "Total: $%.2f", quantity*price)
	return b.String()
}

type ExitInfo struct {
	Symbol     string
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	Profit     float64

	TotalTrades int
	WinRate     float64
	TotalPnL    float64
}

func ExitMessage(info ExitInfo) string {
	title := "💰 <b>Take Profit Executed</b>"
	label := "Profit"
	if info.Profit < 0 {
		title = "🛑 <b>Stop Loss Triggered</b>"
		label = "Loss"
	}
	pct := 0.0
	if info.EntryPrice != 0 {
		pct = (info.ExitPrice - info.EntryPrice) / info.EntryPrice * 100
	}
	var b strings.Builder
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "Symbol: %s\n", info.Symbol)
	fmt.Fprintf(&b, "Quantity: %.6f\n", info.Quantity)
	fmt.Fprintf(&b, "Entry Price: $%.8g\n", info.EntryPrice)
	fmt.Fprintf(&b, "Exit Price: $%.8g\n", info.ExitPrice)
	fmt.Fprintf(&b, "%s: $%.2f (%.2f%%)\n\n", label, info.Profit, pct)
	b.WriteString("<b>Performance Summary:</b>\n")
	fmt.Fprintf(&b, "Total Trades: %d\n", info.TotalTrades)
	fmt.Fprintf(&b, "Win Rate: %.2f%%\n", info.WinRate)
	fmt.Fprintf(&b, "Total P/L: $%.2f", info.TotalPnL)
	return b.String()
}

func InsufficientBalanceMessage(symbol, asset string, required, available float64) string {
	return fmt.Sprintf("⚠️ <b>Insufficient Balance</b>\nCannot trade %s: need %.6f %s, have %.6f %s",
		symbol, required, asset, available, asset)
}

type ReportInfo struct {
	Balances    map[string]float64
	ValuesUSD   map[string]float64
	TotalUSD    float64
	TotalTrades int
	Profitable  int
	WinRate     float64
	TotalPnL    float64
	OpenCount   int
	ClosedCount int
}

func PerformanceReportMessage(info ReportInfo) string {
	var b strings.Builder
	b.WriteString("📊 <b>Performance Report</b>\n\n")
	b.WriteString("<b>Current Balance:</b>\n")
	for _, asset := range sortedKeys(info.Balances) {
		fmt.Fprintf(&b, "%s: %.6f (≈$%.2f)\n", asset, info.Balances[asset], info.ValuesUSD[asset])
	}
	fmt.Fprintf(&b, "Total Value: $%.2f\n\n", info.TotalUSD)
	b.WriteString("<b>Trading Performance:</b>\n")
	fmt.Fprintf(&b, "Total Trades: %d\n", info.TotalTrades)
	fmt.Fprintf(&b, "Profitable Trades: %d\n", info.Profitable)
	fmt.Fprintf(&b, "Win Rate: %.2f%%\n", info.WinRate)
	fmt.Fprintf(&b, "Total Profit/Loss: $%.2f\n\n", info.TotalPnL)
	fmt.Fprintf(&b, "<b>Open Positions:</b> %d\n", info.OpenCount)
	fmt.Fprintf(&b, "<b>Completed Trades:</b> %d", info.ClosedCount)
	return b.String()
}

func ErrorMessage(context string, err error) string {
	return fmt.Sprintf("❌ <b>Error</b>\n%s: %v", context, err)
}

func ShutdownMessage(reason string) string {
	return fmt.Sprintf("🛑 <b>Bot shutting down</b>\nReason: %s", reason)
}

func formatBalances(balances map[string]float64) string {
	parts := make([]string, 0, len(balances))
	for _, asset := range sortedKeys(balances) {
		parts = append(parts, fmt.Sprintf("%s: %g", asset, balances[asset]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
