package strategy

import (
	"TradePilot/internal/calculator"
	"TradePilot/internal/model"
)

const exitRSIMin = 75

// PassesExitFilter reports whether the latest bars argue for closing a
// position: overbought RSI, negative MACD histogram, or price losing its
// 20-bar SMA or VWAP. Missing or short data exits defensively.
func PassesExitFilter(bars []model.Bar) bool {
	if len(bars) < 20 {
		return true // exit defensively on missing data
	}
	closes := model.Closes(bars)
	price := closes[len(closes)-1]

	rsi, err := calculator.CalculateRSI(closes, 14)
	if err != nil {
		return true
	}
	sma20, err := calculator.CalculateSMA(closes, 20)
	if err != nil {
		return true
	}
	vwap, err := calculator.CalculateVWAP(bars)
	if err != nil {
		return true
	}
	macdHist := 0.0
	if h, err := calculator.CalculateMACDHist(closes); err == nil {
		macdHist = h
	}
	return rsi > exitRSIMin || macdHist < 0 || price < sma20 || price < vwap
}
