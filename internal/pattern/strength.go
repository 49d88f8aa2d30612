package pattern

import (
	"math"

	"PriceActionBot/internal/calculator"
	"PriceActionBot/internal/model"
)

const baseStrength = 0.5

func engulfingStrength(prev, cur model.Bar) float64 {
	s := baseStrength
	if cur.Volume > prev.Volume*1.5 {
		s += 0.2
	}
	if pb := prev.Body(); pb > 0 {
		switch ratio := cur.Body() / pb; {
		case ratio > 2:
			s += 0.2
		case ratio > 1.5:
			s += 0.1
		}
	}
	return math.Min(s, 1)
}

// pinBarStrength scores hammers and shooting stars. longShadow is the
// lower shadow for a hammer and the upper shadow for a shooting star.
func pinBarStrength(bars []model.Bar, longShadow float64, dir model.Direction) float64 {
	s := baseStrength
	n := len(bars)
	cur := bars[n-1]

	// Reversal context: the four bars before the signal trend into it.
	if n >= 5 {
		window := bars[n-5 : n-1]
		mean := calculator.Mean(calculator.Closes(window))
		first := window[0].Close
		if (dir == model.Bullish && mean < first) || (dir == model.Bearish && mean > first) {
			s += 0.2
		}
	}
	if n >= 2 && cur.Volume > bars[n-2].Volume*1.2 {
		s += 0.1
	}
	if body := cur.Body(); body > 0 {
		switch ratio := longShadow / body; {
		case ratio > 3:
			s += 0.2
		case ratio > 2.5:
			s += 0.1
		}
	}
	return math.Min(s, 1)
}

func dojiStrength(bars []model.Bar, dt model.DojiType) float64 {
	s := baseStrength
	n := len(bars)
	cur := bars[n-1]

	if n >= 2 {
		start := max(0, n-6)
		if cur.Volume > calculator.Mean(calculator.Volumes(bars[start:n-1]))*1.5 {
			s += 0.2
		}
	}
	// A doji after a strong move carries more weight.
	if n >= 5 {
		move := math.Abs(bars[n-5].Close - bars[n-2].Close)
		if move > calculator.Mean(calculator.Ranges(bars[n-5:]))*3 {
			s += 0.2
		}
	}
	if dt == model.DojiDragonfly || dt == model.DojiGravestone {
		s += 0.1
	}
	return math.Min(s, 1)
}
