package calculator

import (
	"errors"
	"math"

	"PriceActionBot/internal/model"
)

// HighLow returns the highest high and lowest low of the last lookback bars.
func HighLow(bars []model.Bar, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	start := max(0, len(bars)-lookback)
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars[start:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low, nil
}

// Position returns where current sits within [low, high], clamped to 0..1.
func Position(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return math.Min(math.Max((current-low)/(high-low), 0), 1), nil
}
