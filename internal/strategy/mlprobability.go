package strategy

import "TradePilot/internal/model"

// MLProbability is the classifier acting as its own voter: a BUY whenever the
// predicted probability clears a high bar, with the probability itself as
// confidence.
type MLProbability struct {
	Threshold    float64
	CrashMLDelta float64
}

func NewMLProbability(crashMLDelta float64) *MLProbability {
	return &MLProbability{Threshold: 0.75, CrashMLDelta: crashMLDelta}
}

func (s *MLProbability) Name() string { return "ml_probability" }

func (s *MLProbability) Evaluate(symbol string, bars []model.Bar, _ Features, mlScore float64, crashMode bool) model.Signal {
	if len(bars) < 30 {
		return model.Hold(symbol, s.Name())
	}
	cutoff := s.Threshold
	if crashMode {
		cutoff -= s.CrashMLDelta
	}
	if mlScore >= cutoff {
		return model.Signal{
			Symbol:     symbol,
			Action:     model.ActionBuy,
			Confidence: mlScore,
			Label:      s.Name(),
			TPMultiple: 2.5,
			SLMultiple: 1.25,
		}
	}
	return model.Hold(symbol, s.Name())
}
