package model

import (
	"fmt"
	"strings"
)

// Kind identifies a recognized candlestick pattern.
type Kind uint8

const (
	BullishEngulfing Kind = iota
	BearishEngulfing
	Hammer
	ShootingStar
	Doji
	numKinds
)

var kindNames = [numKinds]struct{ id, name string }{
	BullishEngulfing: {"bullish_engulfing", "Bullish Engulfing"},
	BearishEngulfing: {"bearish_engulfing", "Bearish Engulfing"},
	Hammer:           {"hammer", "Hammer"},
	ShootingStar:     {"shooting_star", "Shooting Star"},
	Doji:             {"doji", "Doji"},
}

// Kinds lists every pattern kind in evaluation order.
func Kinds() []Kind {
	out := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k].name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ID is the identifier used in configuration and storage.
func (k Kind) ID() string {
	if k < numKinds {
		return kindNames[k].id
	}
	return ""
}

// ParseKind maps a configuration identifier such as "shooting_star" to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := Kind(0); k < numKinds; k++ {
		if kindNames[k].id == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

// KindSet is a set of pattern kinds.
type KindSet uint8

// AllKinds contains every known kind.
const AllKinds = KindSet(1<<numKinds - 1)

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.With(k)
	}
	return s
}

func (s KindSet) Has(k Kind) bool     { return k < numKinds && s&(1<<k) != 0 }
func (s KindSet) With(k Kind) KindSet { return s | 1<<k }

func (s KindSet) Without(k Kind) KindSet { return s &^ (1 << k) }

// Kinds returns the members in evaluation order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s KindSet) String() string {
	ids := make([]string, 0, numKinds)
	for _, k := range s.Kinds() {
		ids = append(ids, k.ID())
	}
	return strings.Join(ids, ",")
}

// Direction is the bias a pattern suggests.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// Direction returns the bias implied by the kind itself.
func (k Kind) Direction() Direction {
	switch k {
	case BullishEngulfing, Hammer:
		return Bullish
	case BearishEngulfing, ShootingStar:
		return Bearish
	default:
		return Neutral
	}
}

// Confidence buckets a strength score.
type Confidence string

const (
	Weak     Confidence = "weak"
	Moderate Confidence = "moderate"
	Strong   Confidence = "strong"
)

// DojiType sub-classifies a doji by where its shadows sit.
type DojiType string

const (
	DojiStandard   DojiType = "standard"
	DojiDragonfly  DojiType = "dragonfly"
	DojiGravestone DojiType = "gravestone"
	DojiLongLegged DojiType = "long_legged"
)

// Match is a single pattern detection.
type Match struct {
	Kind       Kind
	Direction  Direction
	Bars       []Bar // oldest first; the last one is the signal bar
	Strength   float64
	Confidence Confidence
	DojiType   DojiType // set only for Doji

	BodyRatio   float64
	UpperShadow float64
	LowerShadow float64

	// Context is attached by the scanner; nil when not analyzed.
	Context *MarketContext
}

// Signal returns the bar the pattern completed on.
func (m Match) Signal() Bar {
	return m.Bars[len(m.Bars)-1]
}
