package model

// Action is the trade direction a strategy proposes.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is one strategy's proposal for one symbol in one cycle.
// HOLD signals carry confidence 0.
type Signal struct {
	Symbol     string
	Action     Action
	Confidence float64 // [0,1]
	Label      string  // strategy that produced it
	TPMultiple float64 // ATR multiple for the take-profit leg
	SLMultiple float64 // ATR multiple for the stop-loss leg
}

// Hold returns the canonical HOLD signal for a strategy label.
func Hold(symbol, label string) Signal {
	return Signal{Symbol: symbol, Action: ActionHold, Confidence: 0, Label: label}
}

// Decision is the single merged action chosen for a symbol after comparing
// all strategy signals. Exactly one per symbol per cycle.
type Decision struct {
	Symbol     string
	Action     Action
	Confidence float64
	Label      string
	EntryPrice float64
	TakeProfit float64
	StopLoss   float64
	ATR        float64
	MLScore    float64 // classifier probability behind the decision
}

// MacroState is the per-cycle global risk posture. Recomputed every cycle,
// never persisted.
type MacroState struct {
	SizeFactor float64 // (0,1]
	MinFactor  float64
	Reasons    []string
	CrashMode  bool // short-horizon index drop tripped
}

// AllowTrades reports whether order submission is permitted this cycle.
func (m MacroState) AllowTrades() bool {
	return m.SizeFactor >= m.MinFactor
}
