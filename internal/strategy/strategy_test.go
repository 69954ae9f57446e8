package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TradePilot/internal/model"
)

func barsFromCloses(closes []float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.Bar{
			Time:   base.Add(time.Duration(i) * 24 * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

// zigzagCloses trends up two steps forward, one step back, keeping RSI out of
// overbought territory.
func zigzagCloses(n int) []float64 {
	closes := make([]float64, n)
	v := 100.0
	for i := range closes {
		if i%2 == 1 {
			v += 2
		} else if i > 0 {
			v -= 1
		}
		closes[i] = v
	}
	return closes
}

func washedOutCloses() []float64 {
	closes := make([]float64, 0, 30)
	for i := 0; i < 20; i++ {
		closes = append(closes, 100)
	}
	for v := 97.0; v >= 70; v -= 3 {
		closes = append(closes, v)
	}
	return closes
}

func TestMomentumBuysStrength(t *testing.T) {
	s := NewMomentum(0.60, 0.10)
	sig := s.Evaluate("AAPL", barsFromCloses(risingCloses(40)), nil, 0.70, false)
	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.InDelta(t, 0.70, sig.Confidence, 1e-9)
	assert.Equal(t, 3.0, sig.TPMultiple)
	assert.Equal(t, 1.5, sig.SLMultiple)
}

func TestMomentumHoldsOnWeakMLScore(t *testing.T) {
	s := NewMomentum(0.60, 0.10)
	sig := s.Evaluate("AAPL", barsFromCloses(risingCloses(40)), nil, 0.55, false)
	assert.Equal(t, model.ActionHold, sig.Action)

	// Crash mode lowers the cutoff by the delta.
	sig = s.Evaluate("AAPL", barsFromCloses(risingCloses(40)), nil, 0.55, true)
	assert.Equal(t, model.ActionBuy, sig.Action)
}

func TestMomentumHoldsOnDowntrend(t *testing.T) {
	s := NewMomentum(0.60, 0.10)
	falling := make([]float64, 40)
	for i := range falling {
		falling[i] = 140 - float64(i)
	}
	sig := s.Evaluate("AAPL", barsFromCloses(falling), nil, 0.90, false)
	assert.Equal(t, model.ActionHold, sig.Action)
}

func TestMomentumHoldsOnShortSeries(t *testing.T) {
	s := NewMomentum(0.60, 0.10)
	sig := s.Evaluate("AAPL", barsFromCloses(risingCloses(10)), nil, 0.90, false)
	assert.Equal(t, model.ActionHold, sig.Action)
}

func TestMeanReversionBuysWashout(t *testing.T) {
	s := NewMeanReversion(0.50, 0.10)
	sig := s.Evaluate("AAPL", barsFromCloses(washedOutCloses()), nil, 0.60, false)
	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.InDelta(t, 0.85, sig.Confidence, 1e-9)
	assert.Equal(t, 2.0, sig.TPMultiple)
}

func TestMeanReversionHoldsOnCalmMarket(t *testing.T) {
	s := NewMeanReversion(0.50, 0.10)
	sig := s.Evaluate("AAPL", barsFromCloses(zigzagCloses(40)), nil, 0.60, false)
	assert.Equal(t, model.ActionHold, sig.Action)
}

func TestMLProbabilityThreshold(t *testing.T) {
	s := NewMLProbability(0.10)
	bars := barsFromCloses(risingCloses(40))

	sig := s.Evaluate("AAPL", bars, nil, 0.80, false)
	assert.Equal(t, model.ActionBuy, sig.Action)
	assert.Equal(t, 0.80, sig.Confidence)

	sig = s.Evaluate("AAPL", bars, nil, 0.70, false)
	assert.Equal(t, model.ActionHold, sig.Action)

	// Crash mode lowers the bar to 0.65.
	sig = s.Evaluate("AAPL", bars, nil, 0.70, true)
	assert.Equal(t, model.ActionBuy, sig.Action)
}

func TestPassesExitFilter(t *testing.T) {
	// Healthy uptrend with modest RSI holds.
	assert.False(t, PassesExitFilter(barsFromCloses(zigzagCloses(40))))

	// Straight-line rally is overbought.
	assert.True(t, PassesExitFilter(barsFromCloses(risingCloses(40))))

	// Price under its moving averages exits.
	assert.True(t, PassesExitFilter(barsFromCloses(washedOutCloses())))

	// Short data exits defensively.
	assert.True(t, PassesExitFilter(barsFromCloses(risingCloses(5))))
	assert.True(t, PassesExitFilter(nil))
}

func TestLogisticClassifierRange(t *testing.T) {
	c := NewLogisticClassifier()
	empty := c.Predict(Features{})
	assert.Greater(t, empty, 0.0)
	assert.Less(t, empty, 1.0)

	bullish := c.Predict(Features{"return_5d": 0.10, "return_10d": 0.15, "etf_relative_strength": 0.05})
	assert.Greater(t, bullish, empty)

	bearish := c.Predict(Features{"return_5d": -0.10, "volatility_20d": 0.08})
	assert.Less(t, bearish, empty)
}

func TestBuildFeatures(t *testing.T) {
	bars := barsFromCloses(risingCloses(40))
	etf := barsFromCloses([]float64{100, 100, 100})
	f := BuildFeatures(bars, etf, map[string]float64{"finnhub": 0.4}, 0)

	for _, col := range FeatureColumns {
		_, ok := f[col]
		assert.True(t, ok, "missing feature %s", col)
	}
	// last close 139 over a start of 134 five bars back
	assert.InDelta(t, 139.0/134.0-1, f["return_5d"], 1e-9)
	assert.InDelta(t, 0.4, f["finnhub_sentiment"], 1e-9)
	assert.InDelta(t, 139.0/100.0-1, f["etf_relative_strength"], 1e-9)
}

func TestBuildFeaturesEmptyBars(t *testing.T) {
	f := BuildFeatures(nil, nil, nil, 0)
	for _, col := range FeatureColumns {
		assert.Zero(t, f[col])
	}
}
