package strategy

import "math"

// LogisticClassifier is the default probability scorer: a fixed-weight
// logistic model over the feature columns. It stands in for an externally
// trained model behind the same Predict contract.
type LogisticClassifier struct {
	Weights map[string]float64
	Bias    float64
}

// NewLogisticClassifier returns a classifier with hand-tuned weights that
// reward recent momentum, volume expansion and positive sentiment, and
// penalize high volatility.
func NewLogisticClassifier() *LogisticClassifier {
	return &LogisticClassifier{
		Weights: map[string]float64{
			"return_5d":             4.0,
			"return_10d":            2.0,
			"return_20d":            1.0,
			"volatility_20d":        -6.0,
			"relative_volume":       0.30,
			"atr_pct":               -3.0,
			"finnhub_sentiment":     0.80,
			"newsapi_sentiment":     0.60,
			"etf_relative_strength": 1.5,
			"liquidity_bucket":      0.15,
		},
		Bias: -0.25,
	}
}

// Predict returns the probability in [0,1] that the symbol outperforms.
func (c *LogisticClassifier) Predict(features Features) float64 {
	z := c.Bias
	for col, w := range c.Weights {
		z += w * features[col]
	}
	p := 1.0 / (1.0 + math.Exp(-z))
	return math.Max(0, math.Min(1, p))
}
