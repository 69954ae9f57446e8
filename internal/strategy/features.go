package strategy

import (
	"math"

	"TradePilot/internal/calculator"
	"TradePilot/internal/model"
)

// FeatureColumns lists every feature the classifier consumes, in training
// order. BuildFeatures fills absent inputs with zero.
var FeatureColumns = []string{
	"return_5d",
	"return_10d",
	"return_20d",
	"volatility_20d",
	"relative_volume",
	"atr",
	"atr_pct",
	"finnhub_sentiment",
	"newsapi_sentiment",
	"etf_relative_strength",
	"liquidity_bucket",
}

// BuildFeatures derives the feature vector for one symbol from its bar
// series, a reference ETF series, sentiment scores and a liquidity hint.
func BuildFeatures(bars, etfBars []model.Bar, sentiments map[string]float64, liquidityHint float64) Features {
	features := Features{}
	for _, col := range FeatureColumns {
		features[col] = 0.0
	}
	if len(bars) == 0 {
		return features
	}

	closes := model.Closes(bars)
	last := closes[len(closes)-1]

	features["return_5d"] = trailingReturn(closes, 5)
	features["return_10d"] = trailingReturn(closes, 10)
	features["return_20d"] = trailingReturn(closes, 20)

	if returns := dailyReturns(closes); len(returns) >= 2 {
		window := 20
		if len(returns) < window {
			window = len(returns)
		}
		if std, err := calculator.CalculateStdDev(returns, window); err == nil {
			features["volatility_20d"] = std
		}
	}

	features["relative_volume"] = relativeVolume(bars, 20)

	if atr, err := calculator.CalculateATR(bars, 14); err == nil {
		features["atr"] = atr
		if last > 0 {
			features["atr_pct"] = atr / last
		}
	}

	features["finnhub_sentiment"] = sentiments["finnhub"]
	features["newsapi_sentiment"] = sentiments["newsapi"]

	if len(etfBars) > 0 {
		etfLast := etfBars[len(etfBars)-1].Close
		if etfLast != 0 {
			features["etf_relative_strength"] = last/etfLast - 1
		}
	}

	features["liquidity_bucket"] = liquidityBucket(bars, 20) + liquidityHint
	return features
}

func trailingReturn(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 0
	}
	start := closes[len(closes)-period-1]
	if start == 0 {
		return 0
	}
	return closes[len(closes)-1]/start - 1
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

func relativeVolume(bars []model.Bar, window int) float64 {
	if len(bars) == 0 {
		return 0
	}
	n := len(bars)
	start := n - window
	if start < 0 {
		start = 0
	}
	var sum float64
	for i := start; i < n; i++ {
		sum += bars[i].Volume
	}
	avg := sum / float64(n-start)
	if avg == 0 {
		return 0
	}
	return bars[n-1].Volume / avg
}

// liquidityBucket maps 20-bar average dollar volume to a coarse 0/1/2 tier.
func liquidityBucket(bars []model.Bar, window int) float64 {
	n := len(bars)
	start := n - window
	if start < 0 {
		start = 0
	}
	var sum float64
	for i := start; i < n; i++ {
		sum += bars[i].Close * bars[i].Volume
	}
	avgDollarVolume := sum / math.Max(float64(n-start), 1)
	switch {
	case avgDollarVolume < 2_000_000:
		return 0
	case avgDollarVolume < 10_000_000:
		return 1
	default:
		return 2
	}
}
