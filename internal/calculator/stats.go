package calculator

import (
	"errors"
	"math"
)

// CalculateStdDev computes the sample standard deviation of the last `window`
// values.
func CalculateStdDev(values []float64, window int) (float64, error) {
	if window <= 1 {
		return 0, errors.New("window must be greater than one")
	}
	if len(values) < window {
		return 0, errors.New("not enough data for stddev calculation")
	}
	tail := values[len(values)-window:]
	mean := 0.0
	for _, v := range tail {
		mean += v
	}
	mean /= float64(window)
	var ss float64
	for _, v := range tail {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(window-1)), nil
}

// CalculateZScore returns how many standard deviations the last value sits
// from the mean of the series.
func CalculateZScore(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, errors.New("not enough data for z-score calculation")
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(values)-1))
	if std == 0 {
		return 0, errors.New("zero variance")
	}
	return (values[len(values)-1] - mean) / std, nil
}
