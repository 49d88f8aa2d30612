package calculator

import (
	"math"

	"PriceActionBot/internal/model"
)

const (
	fastEMA         = 20
	slowEMA         = 50
	rsiPeriod       = 14
	rangeLookback   = 20
	structureWindow = 10
	slopeThreshold  = 0.0001

	emaWeight       = 0.7
	structureWeight = 0.3
)

// Analyze builds the market context of the last bar. Trend needs at least
// 50 bars and is TrendUnknown otherwise. Returns nil for no bars.
func Analyze(bars []model.Bar) *model.MarketContext {
	if len(bars) == 0 {
		return nil
	}
	closes := Closes(bars)
	last := closes[len(closes)-1]

	ctx := &model.MarketContext{Trend: model.TrendUnknown}
	ctx.RSI, _ = RSI(closes, rsiPeriod)
	ctx.RangeHigh, ctx.RangeLow, _ = HighLow(bars, rangeLookback)
	ctx.RangePosition, _ = Position(last, ctx.RangeHigh, ctx.RangeLow)

	if len(bars) < slowEMA {
		return ctx
	}
	fast, slow := EMA(closes, fastEMA), EMA(closes, slowEMA)
	n := len(closes)
	ctx.EMAFast, ctx.EMASlow = fast[n-1], slow[n-1]

	emaDir, emaStrength := emaTrend(last, fast[n-1], slow[n-1], fast[n-2])
	structDir, structStrength := structureTrend(bars[n-structureWindow:])

	combined := trendValue(emaDir)*emaWeight + trendValue(structDir)*structureWeight
	switch {
	case combined > 0.3:
		ctx.Trend = model.Uptrend
	case combined < -0.3:
		ctx.Trend = model.Downtrend
	default:
		ctx.Trend = model.Sideways
	}
	ctx.TrendStrength = emaStrength*emaWeight + structStrength*structureWeight
	return ctx
}

// emaTrend reads the trend from the fast/slow EMA stack and the fast slope.
func emaTrend(last, fast, slow, prevFast float64) (model.Trend, float64) {
	var slope float64
	if prevFast != 0 {
		slope = (fast - prevFast) / prevFast
	}
	switch {
	case fast > slow && last > fast:
		if slope > slopeThreshold {
			return model.Uptrend, math.Min(math.Abs(slope)*1000, 1)
		}
		return model.Sideways, 0.3
	case fast < slow && last < fast:
		if slope < -slopeThreshold {
			return model.Downtrend, math.Min(math.Abs(slope)*1000, 1)
		}
		return model.Sideways, 0.3
	default:
		return model.Sideways, 0.2
	}
}

// structureTrend counts runs of higher highs/lows against lower highs/lows.
func structureTrend(bars []model.Bar) (model.Trend, float64) {
	var up, down int
	for i := 2; i < len(bars); i++ {
		h0, h1, h2 := bars[i-2].High, bars[i-1].High, bars[i].High
		l0, l1, l2 := bars[i-2].Low, bars[i-1].Low, bars[i].Low
		switch {
		case h2 > h1 && h1 > h0:
			up++
		case h2 < h1 && h1 < h0:
			down++
		}
		switch {
		case l2 > l1 && l1 > l0:
			up++
		case l2 < l1 && l1 < l0:
			down++
		}
	}
	half := float64(len(bars)) / 2
	switch {
	case up > down:
		return model.Uptrend, math.Min(float64(up)/half, 1)
	case down > up:
		return model.Downtrend, math.Min(float64(down)/half, 1)
	default:
		return model.Sideways, 0.2
	}
}

func trendValue(t model.Trend) float64 {
	switch t {
	case model.Uptrend:
		return 1
	case model.Downtrend:
		return -1
	default:
		return 0
	}
}
