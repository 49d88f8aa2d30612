// Package calculator computes indicators over closed candles.
package calculator

import (
	"errors"

	"PriceActionBot/internal/model"
)

// SMA computes the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	return Mean(values[len(values)-period:]), nil
}

// EMA returns the exponential moving average series with smoothing
// 2/(period+1), seeded with the first value.
func EMA(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}
	alpha := 2 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// Mean is the arithmetic mean, zero for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func Closes(bars []model.Bar) []float64 {
	return extract(bars, func(b model.Bar) float64 { return b.Close })
}

func Volumes(bars []model.Bar) []float64 {
	return extract(bars, func(b model.Bar) float64 { return b.Volume })
}

func Ranges(bars []model.Bar) []float64 {
	return extract(bars, model.Bar.Range)
}

func extract(bars []model.Bar, f func(model.Bar) float64) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = f(b)
	}
	return out
}
