package strategy

import (
	"sync"

	"github.com/rs/zerolog/log"

	"TradePilot/internal/model"
	"TradePilot/internal/risk"
)

// Router runs every strategy for a symbol and merges their signals into the
// cycle's single Decision via confidence tie-break (ties keep the first-seen
// signal, in strategy registration order).
type Router struct {
	classifier Classifier
	strategies []Strategy
	crashCap   int

	mu       sync.Mutex
	accepted int
}

func NewRouter(classifier Classifier, crashCap int, strategies ...Strategy) *Router {
	return &Router{classifier: classifier, strategies: strategies, crashCap: crashCap}
}

// BeginCycle resets the per-cycle acceptance counter.
func (r *Router) BeginCycle() {
	r.mu.Lock()
	r.accepted = 0
	r.mu.Unlock()
}

// CapReached reports whether crash mode has accepted its quota of signals for
// this cycle. Callers stop evaluating further symbols once it returns true.
func (r *Router) CapReached(crashMode bool) bool {
	if !crashMode {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accepted >= r.crashCap
}

// Evaluate merges all strategy outputs for one symbol into a Decision.
func (r *Router) Evaluate(symbol string, bars, etfBars []model.Bar, sentiments map[string]float64, liquidityHint float64, macro model.MacroState) model.Decision {
	features := BuildFeatures(bars, etfBars, sentiments, liquidityHint)
	mlScore := r.classifier.Predict(features)

	best := model.Hold(symbol, "none")
	for _, s := range r.strategies {
		sig := s.Evaluate(symbol, bars, features, mlScore, macro.CrashMode)
		if sig.Action == model.ActionHold {
			continue
		}
		if sig.Confidence > best.Confidence {
			best = sig
		}
	}

	price := 0.0
	if len(bars) > 0 {
		price = bars[len(bars)-1].Close
	}
	atr := features["atr"]
	if atr == 0 {
		atr = price * 0.02
	}

	if best.Action == model.ActionHold || price <= 0 {
		return model.Decision{
			Symbol: symbol, Action: model.ActionHold, Label: best.Label,
			EntryPrice: price, TakeProfit: price, StopLoss: price, ATR: atr,
			MLScore: mlScore,
		}
	}

	tp, sl := risk.ATRTargets(price, atr, best.Action, best.TPMultiple, best.SLMultiple)
	decision := model.Decision{
		Symbol:     symbol,
		Action:     best.Action,
		Confidence: best.Confidence,
		Label:      best.Label,
		EntryPrice: price,
		TakeProfit: tp,
		StopLoss:   sl,
		ATR:        atr,
		MLScore:    mlScore,
	}

	r.mu.Lock()
	r.accepted++
	accepted := r.accepted
	r.mu.Unlock()
	log.Debug().Str("symbol", symbol).Str("label", best.Label).
		Float64("confidence", best.Confidence).Int("accepted", accepted).
		Msg("signal accepted")
	return decision
}
