package recorder

// DecisionEvent is one non-HOLD decision emitted by the signal router,
// recorded before execution so skipped trades remain auditable.
type DecisionEvent struct {
	Symbol     string
	Action     string
	Label      string
	Confidence float64
	MLScore    float64
	EntryPrice float64
	TakeProfit float64
	StopLoss   float64
	ATR        float64
	CrashMode  bool
	Rejection  string // empty when the decision went to execution
}

// TradeEvent records an accepted order submission.
type TradeEvent struct {
	Symbol        string
	Action        string
	Qty           int
	Price         float64
	TakeProfit    float64
	StopLoss      float64
	Confidence    float64
	OrderID       string
	ClientOrderID string
}

// ExitEvent records a forced position close.
type ExitEvent struct {
	Symbol    string
	Qty       float64
	Gain      float64
	Reason    string
	CrashMode bool
}

// CycleEvent summarizes one completed pipeline run.
type CycleEvent struct {
	SymbolsScanned int
	Signals        int
	Trades         int
	Exits          int
	SizeFactor     float64
	CrashMode      bool
	DurationMS     int64
}

// Recorder persists pipeline history for analysis.
type Recorder interface {
	RecordDecision(evt *DecisionEvent) error
	RecordTrade(evt *TradeEvent) error
	RecordExit(evt *ExitEvent) error
	RecordCycle(evt *CycleEvent) error
	Close() error
}
