package model

import "time"

// Bar is a single OHLCV candlestick for one symbol and one time bucket.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Price is an ephemeral last-trade quote. Never persisted.
type Price struct {
	Symbol string
	Value  float64
	AsOf   time.Time
}

// Closes extracts the close column from a bar series.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
