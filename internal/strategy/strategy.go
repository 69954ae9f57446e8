package strategy

import "TradePilot/internal/model"

// Features is the auxiliary feature vector shared by the strategies and the
// ML classifier. Keys follow the classifier's training columns.
type Features map[string]float64

// Strategy produces zero-or-one signal for a symbol from its bar series and
// auxiliary features. Implementations are pure: no I/O, no shared state
// mutation during Evaluate.
type Strategy interface {
	Name() string
	Evaluate(symbol string, bars []model.Bar, features Features, mlScore float64, crashMode bool) model.Signal
}

// Classifier scores a feature vector with the probability that the symbol
// outperforms. Implementations must return a value in [0,1].
type Classifier interface {
	Predict(features Features) float64
}
