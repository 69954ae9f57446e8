package strategy

import (
	"math"

	"TradePilot/internal/calculator"
	"TradePilot/internal/model"
)

// MeanReversion buys washed-out names: RSI below the bearish threshold and
// price under a volatility-adjusted VWAP band, gated by the ML probability.
type MeanReversion struct {
	MinMLScore   float64
	CrashMLDelta float64
	RSIBearish   float64
	BandStdDevs  float64
}

func NewMeanReversion(minMLScore, crashMLDelta float64) *MeanReversion {
	return &MeanReversion{MinMLScore: minMLScore, CrashMLDelta: crashMLDelta, RSIBearish: 32, BandStdDevs: 2}
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) Evaluate(symbol string, bars []model.Bar, _ Features, mlScore float64, crashMode bool) model.Signal {
	if len(bars) < 30 {
		return model.Hold(symbol, s.Name())
	}
	closes := model.Closes(bars)
	price := closes[len(closes)-1]

	rsi, err := calculator.CalculateRSI(closes, 14)
	if err != nil {
		return model.Hold(symbol, s.Name())
	}
	std, err := calculator.CalculateStdDev(closes, 20)
	if err != nil {
		return model.Hold(symbol, s.Name())
	}
	vwap, err := calculator.CalculateVWAP(bars)
	if err != nil {
		return model.Hold(symbol, s.Name())
	}
	band := vwap - s.BandStdDevs*std

	cutoff := s.MinMLScore
	if crashMode {
		cutoff -= s.CrashMLDelta
	}
	if rsi < s.RSIBearish && price < band && mlScore >= cutoff {
		confidence := math.Min(0.85, 0.5+(0.5-rsi/100))
		return model.Signal{
			Symbol:     symbol,
			Action:     model.ActionBuy,
			Confidence: confidence,
			Label:      s.Name(),
			TPMultiple: 2.0,
			SLMultiple: 1.0,
		}
	}
	return model.Hold(symbol, s.Name())
}
