package model

import "time"

// TradeRecord is one executed entry. Append-only within a trading day.
type TradeRecord struct {
	Symbol     string    `json:"symbol"`
	Action     Action    `json:"action"`
	Qty        int       `json:"qty"`
	Price      float64   `json:"price"`
	TakeProfit float64   `json:"tp"`
	StopLoss   float64   `json:"sl"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// PortfolioState is the persisted daily ledger. The date always equals
// "today" on read; a stale record is reset with equity carried over.
type PortfolioState struct {
	Date       string        `json:"date"` // YYYY-MM-DD
	Equity     float64       `json:"equity"`
	DailyPnL   float64       `json:"daily_pnl"`
	BudgetUsed float64       `json:"budget_used"`
	Positions  []TradeRecord `json:"positions"`
}

// Position is an open position as reported by the brokerage.
type Position struct {
	Symbol       string
	Qty          float64
	AvailableQty float64 // qty not reserved by pending orders
	EntryPrice   float64
	CurrentPrice float64
	EnteredAt    time.Time
}

// Gain returns the fractional P&L of the position. Short positions are
// reported with a negative Qty; their gain is the mirror of the price move.
func (p Position) Gain() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	move := (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
	if p.Qty < 0 {
		return -move
	}
	return move
}
