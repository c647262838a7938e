package stats

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a series is too short for the requested statistic.
var ErrInsufficientData = errors.New("insufficient data")

// Mean returns the arithmetic mean of series, 0 for an empty series.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

// SampleStdDev returns the sample standard deviation (n-1 denominator).
func SampleStdDev(series []float64) (float64, error) {
	if len(series) < 2 {
		return 0, ErrInsufficientData
	}
	mean := Mean(series)
	acc := 0.0
	for _, v := range series {
		d := v - mean
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(series)-1)), nil
}

// ZScore returns how many sample standard deviations value sits from the mean of series.
// A flat series yields 0.
func ZScore(value float64, series []float64) (float64, error) {
	sd, err := SampleStdDev(series)
	if err != nil {
		return 0, err
	}
	if sd == 0 {
		return 0, nil
	}
	return (value - Mean(series)) / sd, nil
}

// Ratio divides a by b, returning 0 when b is zero.
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Max returns the largest element, 0 for an empty series.
func Max(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	m := series[0]
	for _, v := range series[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Tail returns the last n elements of series (all of them if shorter).
func Tail(series []float64, n int) []float64 {
	if n >= len(series) {
		return series
	}
	return series[len(series)-n:]
}
