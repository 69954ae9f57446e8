package notifier

import (
	"fmt"
	"strings"

	"TradePilot/internal/model"
	"TradePilot/internal/recorder"
)

// Notifier pushes human-readable alerts. Implementations must be safe to
// call from the scheduler goroutine; failures are logged, never fatal.
type Notifier interface {
	Send(text string) error
}

// NoopNotifier is used when no Telegram credentials are configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

func (n *NoopNotifier) Send(_ string) error { return nil }

// FormatTrade renders an order confirmation message.
func FormatTrade(evt *recorder.TradeEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s %s</b>\n", evt.Action, evt.Symbol)
	fmt.Fprintf(&b, "qty %d @ $%.2f\n", evt.Qty, evt.Price)
	fmt.Fprintf(&b, "tp $%.2f / sl $%.2f\n", evt.TakeProfit, evt.StopLoss)
	fmt.Fprintf(&b, "confidence %.2f", evt.Confidence)
	return b.String()
}

// FormatExit renders a position-close message.
func FormatExit(evt *recorder.ExitEvent) string {
	return fmt.Sprintf("<b>EXIT %s</b>\nqty %.0f, gain %+.2f%%\nreason: %s",
		evt.Symbol, evt.Qty, evt.Gain*100, evt.Reason)
}

// FormatCycle renders the end-of-cycle summary.
func FormatCycle(evt *recorder.CycleEvent, macro model.MacroState) string {
	var b strings.Builder
	b.WriteString("<b>Cycle complete</b>\n")
	fmt.Fprintf(&b, "scanned %d, signals %d, trades %d, exits %d\n",
		evt.SymbolsScanned, evt.Signals, evt.Trades, evt.Exits)
	fmt.Fprintf(&b, "size factor %.2f", macro.SizeFactor)
	if len(macro.Reasons) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(macro.Reasons, ", "))
	}
	if macro.CrashMode {
		b.WriteString("\n⚠️ CRASH MODE ACTIVE")
	}
	return b.String()
}
