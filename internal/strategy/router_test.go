package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/model"
)

type stubStrategy struct {
	name   string
	signal model.Signal
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Evaluate(symbol string, _ []model.Bar, _ Features, _ float64, _ bool) model.Signal {
	sig := s.signal
	sig.Symbol = symbol
	return sig
}

type stubClassifier struct{ score float64 }

func (c *stubClassifier) Predict(_ Features) float64 { return c.score }

func buySignal(label string, confidence float64) model.Signal {
	return model.Signal{Action: model.ActionBuy, Confidence: confidence, Label: label, TPMultiple: 3, SLMultiple: 1.5}
}

func TestRouterPicksHighestConfidence(t *testing.T) {
	r := NewRouter(&stubClassifier{0.5}, 3,
		&stubStrategy{name: "low", signal: buySignal("low", 0.6)},
		&stubStrategy{name: "high", signal: buySignal("high", 0.8)},
	)
	r.BeginCycle()

	d := r.Evaluate("AAPL", barsFromCloses(risingCloses(40)), nil, nil, 0, model.MacroState{SizeFactor: 1, MinFactor: 0.2})
	assert.Equal(t, model.ActionBuy, d.Action)
	assert.Equal(t, "high", d.Label)
	assert.Equal(t, 0.8, d.Confidence)
	assert.Equal(t, 0.5, d.MLScore, "decision must carry the classifier score")
}

func TestRouterTieKeepsFirstSeen(t *testing.T) {
	r := NewRouter(&stubClassifier{0.5}, 3,
		&stubStrategy{name: "first", signal: buySignal("first", 0.7)},
		&stubStrategy{name: "second", signal: buySignal("second", 0.7)},
	)
	r.BeginCycle()

	d := r.Evaluate("AAPL", barsFromCloses(risingCloses(40)), nil, nil, 0, model.MacroState{SizeFactor: 1, MinFactor: 0.2})
	assert.Equal(t, "first", d.Label)
}

func TestRouterAllHoldYieldsHold(t *testing.T) {
	r := NewRouter(&stubClassifier{0.5}, 3,
		&stubStrategy{name: "a", signal: model.Hold("", "a")},
	)
	r.BeginCycle()

	d := r.Evaluate("AAPL", barsFromCloses(risingCloses(40)), nil, nil, 0, model.MacroState{SizeFactor: 1, MinFactor: 0.2})
	assert.Equal(t, model.ActionHold, d.Action)
	assert.Equal(t, 0.5, d.MLScore)
	assert.False(t, r.CapReached(true))
}

func TestRouterBracketTargets(t *testing.T) {
	r := NewRouter(&stubClassifier{0.5}, 3,
		&stubStrategy{name: "a", signal: buySignal("a", 0.9)},
	)
	r.BeginCycle()

	// Flat bars have zero ATR, so targets fall back to 2% of price.
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 100
	}
	d := r.Evaluate("AAPL", barsFromCloses(flat), nil, nil, 0, model.MacroState{SizeFactor: 1, MinFactor: 0.2})
	assert.Equal(t, 106.0, d.TakeProfit)
	assert.Equal(t, 97.0, d.StopLoss)
}

func TestRouterCrashCapEndsCycle(t *testing.T) {
	r := NewRouter(&stubClassifier{0.5}, 3,
		&stubStrategy{name: "a", signal: buySignal("a", 0.9)},
	)
	r.BeginCycle()
	crash := model.MacroState{SizeFactor: 1, MinFactor: 0.2, CrashMode: true}

	bars := barsFromCloses(risingCloses(40))
	for i, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		assert.False(t, r.CapReached(true), "cap hit early at %d", i)
		r.Evaluate(sym, bars, nil, nil, 0, crash)
	}
	assert.True(t, r.CapReached(true))

	// Outside crash mode the cap never binds.
	assert.False(t, r.CapReached(false))

	// A new cycle clears the counter.
	r.BeginCycle()
	assert.False(t, r.CapReached(true))
}

func TestETFArbitrageSpreadSignals(t *testing.T) {
	arb := NewETFArbitrage("1day")
	arb.Pairs = []Pair{{Long: "IWM", Short: "URTY"}}

	longCloses := make([]float64, 30)
	shortCloses := make([]float64, 30)
	for i := range longCloses {
		longCloses[i] = 100
		shortCloses[i] = 50
	}
	longCloses[29] = 110 // spread blows out on the last bar

	fetch := func(_ context.Context, symbol, _ string, _ int) ([]model.Bar, error) {
		if symbol == "IWM" {
			return barsFromCloses(longCloses), nil
		}
		return barsFromCloses(shortCloses), nil
	}
	arb.Refresh(context.Background(), fetch)

	sig := arb.Evaluate("IWM", nil, nil, 0, false)
	require.Equal(t, model.ActionSell, sig.Action)
	assert.InDelta(t, 0.9, sig.Confidence, 1e-9)

	sig = arb.Evaluate("URTY", nil, nil, 0, false)
	assert.Equal(t, model.ActionBuy, sig.Action)

	// Unknown symbols hold.
	sig = arb.Evaluate("AAPL", nil, nil, 0, false)
	assert.Equal(t, model.ActionHold, sig.Action)
}

func TestETFArbitrageRefreshClearsStaleSignals(t *testing.T) {
	arb := NewETFArbitrage("1day")
	arb.Pairs = []Pair{{Long: "IWM", Short: "URTY"}}
	arb.signals = map[string]model.Signal{"IWM": buySignal("etf_arbitrage", 0.9)}

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 100
	}
	fetch := func(_ context.Context, _, _ string, _ int) ([]model.Bar, error) {
		return barsFromCloses(flat), nil
	}
	arb.Refresh(context.Background(), fetch)

	sig := arb.Evaluate("IWM", nil, nil, 0, false)
	assert.Equal(t, model.ActionHold, sig.Action)
}
