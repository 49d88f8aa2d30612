package model

// Trend is the prevailing market direction before a signal.
type Trend string

const (
	Uptrend      Trend = "uptrend"
	Downtrend    Trend = "downtrend"
	Sideways     Trend = "sideways"
	TrendUnknown Trend = "unknown"
)

// Setup relates a pattern's direction to the prevailing trend.
type Setup string

const (
	Continuation Setup = "trend_continuation"
	Reversal     Setup = "trend_reversal"
	RangeBound   Setup = "range_bound"
	NoSetup      Setup = "neutral"
)

// MarketContext describes the bars leading into a detection.
type MarketContext struct {
	Trend         Trend
	TrendStrength float64 // 0..1
	EMAFast       float64
	EMASlow       float64
	RSI           float64
	RangeHigh     float64
	RangeLow      float64
	RangePosition float64 // close within [RangeLow, RangeHigh], 0..1
}

// Setup classifies a pattern of direction d against the context.
func (c MarketContext) Setup(d Direction) Setup {
	switch {
	case c.Trend == Sideways:
		return RangeBound
	case d == Bullish && c.Trend == Uptrend, d == Bearish && c.Trend == Downtrend:
		return Continuation
	case d == Bullish && c.Trend == Downtrend, d == Bearish && c.Trend == Uptrend:
		return Reversal
	default:
		return NoSetup
	}
}
