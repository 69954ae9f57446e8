package calculator

import "errors"

// CalculateMACDHist computes the latest MACD histogram value (MACD line minus
// its 9-period signal line) using the standard 12/26 EMAs.
func CalculateMACDHist(closes []float64) (float64, error) {
	if len(closes) < 35 {
		return 0, errors.New("not enough data for MACD calculation")
	}
	macdLine := make([]float64, 0, len(closes))
	fast := emaSeries(closes, 12)
	slow := emaSeries(closes, 26)
	for i := range closes {
		macdLine = append(macdLine, fast[i]-slow[i])
	}
	signal := emaSeries(macdLine, 9)
	last := len(closes) - 1
	return macdLine[last] - signal[last], nil
}

// emaSeries returns the full EMA series; entries before the seed window repeat
// the running average so the slice aligns index-for-index with the input.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	k := 2.0 / float64(period+1)
	sum := 0.0
	for i, v := range values {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}
