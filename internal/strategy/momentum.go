package strategy

import (
	"math"

	"TradePilot/internal/calculator"
	"TradePilot/internal/model"
)

// Momentum buys strength: price above its 20-bar SMA, RSI in bullish
// territory, fast EMA above slow EMA, gated by a minimum ML probability.
type Momentum struct {
	MinMLScore   float64 // acceptance cutoff, lowered by CrashMLDelta in crash mode
	CrashMLDelta float64
	RSIBullish   float64
}

func NewMomentum(minMLScore, crashMLDelta float64) *Momentum {
	return &Momentum{MinMLScore: minMLScore, CrashMLDelta: crashMLDelta, RSIBullish: 55}
}

func (s *Momentum) Name() string { return "momentum" }

func (s *Momentum) Evaluate(symbol string, bars []model.Bar, _ Features, mlScore float64, crashMode bool) model.Signal {
	if len(bars) < 30 {
		return model.Hold(symbol, s.Name())
	}
	closes := model.Closes(bars)
	price := closes[len(closes)-1]

	sma20, err := calculator.CalculateSMA(closes, 20)
	if err != nil {
		return model.Hold(symbol, s.Name())
	}
	rsi, err := calculator.CalculateRSI(closes, 14)
	if err != nil {
		return model.Hold(symbol, s.Name())
	}
	emaFast, errFast := calculator.CalculateEMA(closes, 12)
	emaSlow, errSlow := calculator.CalculateEMA(closes, 26)
	if errFast != nil || errSlow != nil {
		return model.Hold(symbol, s.Name())
	}

	cutoff := s.MinMLScore
	if crashMode {
		cutoff -= s.CrashMLDelta
	}
	if price > sma20 && rsi > s.RSIBullish && emaFast > emaSlow && mlScore >= cutoff {
		confidence := math.Min(0.95, math.Max(mlScore, s.MinMLScore))
		return model.Signal{
			Symbol:     symbol,
			Action:     model.ActionBuy,
			Confidence: confidence,
			Label:      s.Name(),
			TPMultiple: 3.0,
			SLMultiple: 1.5,
		}
	}
	return model.Hold(symbol, s.Name())
}
