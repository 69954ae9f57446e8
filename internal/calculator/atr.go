package calculator

import (
	"errors"
	"math"

	"TradePilot/internal/model"
)

// CalculateATR computes the Average True Range over the given window using a
// simple moving average of true ranges. Requires at least window+1 bars.
func CalculateATR(bars []model.Bar, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(bars) < window+1 {
		return 0, errors.New("not enough data for ATR calculation")
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		trs = append(trs, math.Max(hl, math.Max(hc, lc)))
	}
	sum := 0.0
	for i := len(trs) - window; i < len(trs); i++ {
		sum += trs[i]
	}
	return sum / float64(window), nil
}

// CalculateVWAP computes the running volume-weighted average price of the
// series. Bars with zero volume are counted with volume 1 so a quiet series
// still yields a price.
func CalculateVWAP(bars []model.Bar) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no bars provided")
	}
	var dollarVolume, totalVolume float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		vol := b.Volume
		if vol == 0 {
			vol = 1
		}
		dollarVolume += typical * vol
		totalVolume += vol
	}
	return dollarVolume / totalVolume, nil
}
