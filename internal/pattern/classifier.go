// Package pattern recognizes single- and two-bar candlestick patterns.
//
// The classifier is a pure function of its inputs: it keeps no state
// between calls and may be used from any number of goroutines.
package pattern

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"

	"PriceActionBot/internal/model"
)

// Config holds the thresholds used by every rule.
type Config struct {
	// DojiEpsilon is the largest body, as a fraction of range, still called a doji.
	DojiEpsilon float64
	// ShadowRatio is the minimum long-shadow to body multiple for hammer and shooting star.
	ShadowRatio float64
	// MaxBodyRatio is the largest body, as a fraction of range, for hammer and shooting star.
	MaxBodyRatio float64
	// MaxOppositeShadowRatio caps the short shadow as a fraction of range.
	MaxOppositeShadowRatio float64
	// ZeroBodyShadowRatio replaces ShadowRatio when the body is exactly zero.
	ZeroBodyShadowRatio float64
	// Enabled limits which kinds Classify reports.
	Enabled model.KindSet
}

// DefaultConfig returns the thresholds the bot ships with.
func DefaultConfig() Config {
	return Config{
		DojiEpsilon:            0.1,
		ShadowRatio:            2.0,
		MaxBodyRatio:           0.25,
		MaxOppositeShadowRatio: 0.1,
		ZeroBodyShadowRatio:    0.6,
		Enabled:                model.AllKinds,
	}
}

// Validate rejects thresholds that would make rules meaningless.
func (c Config) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"doji_epsilon", c.DojiEpsilon},
		{"shadow_ratio", c.ShadowRatio},
		{"max_body_ratio", c.MaxBodyRatio},
		{"max_opposite_shadow_ratio", c.MaxOppositeShadowRatio},
		{"zero_body_shadow_ratio", c.ZeroBodyShadowRatio},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v", f.name, f.v)
		}
	}
	return nil
}

// ErrMalformedBar is matched by every MalformedBarError.
var ErrMalformedBar = errors.New("malformed bar")

// MalformedBarError reports a bar whose prices violate
// high >= max(open, close) >= min(open, close) >= low.
type MalformedBarError struct {
	Index int
	Bar   model.Bar
	Cause string
}

func (e *MalformedBarError) Error() string {
	b := e.Bar
	return fmt.Sprintf("malformed bar %d (%s %s %s): %s [o=%g h=%g l=%g c=%g]",
		e.Index, b.Symbol, b.Timeframe, b.Time.Format("2006-01-02 15:04"), e.Cause,
		b.Open, b.High, b.Low, b.Close)
}

func (e *MalformedBarError) Is(target error) bool { return target == ErrMalformedBar }

// ValidateBar checks the OHLC ordering invariant for a single bar.
func ValidateBar(b model.Bar) error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &MalformedBarError{Bar: b, Cause: "non-finite price"}
		}
	}
	switch {
	case b.High < math.Max(b.Open, b.Close):
		return &MalformedBarError{Bar: b, Cause: "high below body"}
	case b.Low > math.Min(b.Open, b.Close):
		return &MalformedBarError{Bar: b, Cause: "low above body"}
	}
	return nil
}

// rule evaluates one kind against bars that already passed validation.
// It reports false when the pattern is absent or there are too few bars.
type rule func(bars []model.Bar, cfg Config) (model.Match, bool)

var rules = map[model.Kind]rule{
	model.BullishEngulfing: bullishEngulfing,
	model.BearishEngulfing: bearishEngulfing,
	model.Hammer:           hammer,
	model.ShootingStar:     shootingStar,
	model.Doji:             doji,
}

// Classify validates bars (oldest first) and returns the patterns completed
// on the newest bar. The sequence is evaluated lazily, one enabled kind at
// a time. Too few bars is not an error: the affected kinds simply yield
// nothing.
func Classify(bars []model.Bar, cfg Config) (iter.Seq[model.Match], error) {
	for i, b := range bars {
		if err := ValidateBar(b); err != nil {
			var mbe *MalformedBarError
			if errors.As(err, &mbe) {
				mbe.Index = i
			}
			return nil, err
		}
	}
	kinds := cfg.Enabled.Kinds()
	return func(yield func(model.Match) bool) {
		if len(bars) == 0 {
			return
		}
		for _, k := range kinds {
			m, ok := rules[k](bars, cfg)
			if !ok {
				continue
			}
			m.Confidence = confidence(m.Strength)
			if !yield(m) {
				return
			}
		}
	}, nil
}

// Detect is Classify collected into a slice.
func Detect(bars []model.Bar, cfg Config) ([]model.Match, error) {
	seq, err := Classify(bars, cfg)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// ConfidenceTiers maps strength scores to labels, highest first.
var ConfidenceTiers = []struct {
	MinStrength float64
	Confidence  model.Confidence
}{
	{0.8, model.Strong},
	{0.6, model.Moderate},
}

func confidence(strength float64) model.Confidence {
	for _, t := range ConfidenceTiers {
		if strength >= t.MinStrength {
			return t.Confidence
		}
	}
	return model.Weak
}
