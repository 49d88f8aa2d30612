package pattern

import (
	"math"

	"PriceActionBot/internal/model"
)

func last(bars []model.Bar) model.Bar { return bars[len(bars)-1] }

// doji: body <= epsilon * range. A zero-range bar never qualifies.
func doji(bars []model.Bar, cfg Config) (model.Match, bool) {
	b := last(bars)
	rng := b.Range()
	if rng <= 0 {
		return model.Match{}, false
	}
	body := b.Body()
	if body > cfg.DojiEpsilon*rng {
		return model.Match{}, false
	}
	upper, lower := b.UpperShadow(), b.LowerShadow()
	dt := classifyDoji(upper, lower, rng)
	return model.Match{
		Kind:        model.Doji,
		Direction:   model.Neutral,
		Bars:        []model.Bar{b},
		Strength:    dojiStrength(bars, dt),
		DojiType:    dt,
		BodyRatio:   body / rng,
		UpperShadow: upper,
		LowerShadow: lower,
	}, true
}

func classifyDoji(upper, lower, rng float64) model.DojiType {
	up, lo := upper/rng, lower/rng
	switch {
	case up < 0.1 && lo > 0.6:
		return model.DojiDragonfly
	case lo < 0.1 && up > 0.6:
		return model.DojiGravestone
	case up > 0.3 && lo > 0.3:
		return model.DojiLongLegged
	default:
		return model.DojiStandard
	}
}

// pinBar checks the shared hammer / shooting-star geometry: small body,
// one long shadow, one short shadow.
func pinBar(b model.Bar, long, short float64, cfg Config) bool {
	rng := b.Range()
	if rng <= 0 {
		return false
	}
	body := b.Body()
	if body > cfg.MaxBodyRatio*rng {
		return false
	}
	if body == 0 {
		if long < cfg.ZeroBodyShadowRatio*rng {
			return false
		}
	} else if long < cfg.ShadowRatio*body {
		return false
	}
	return short <= cfg.MaxOppositeShadowRatio*rng
}

// hammer: long lower shadow, body near the top of the range.
func hammer(bars []model.Bar, cfg Config) (model.Match, bool) {
	b := last(bars)
	upper, lower := b.UpperShadow(), b.LowerShadow()
	if !pinBar(b, lower, upper, cfg) {
		return model.Match{}, false
	}
	return model.Match{
		Kind:        model.Hammer,
		Direction:   model.Bullish,
		Bars:        []model.Bar{b},
		Strength:    pinBarStrength(bars, lower, model.Bullish),
		BodyRatio:   b.Body() / b.Range(),
		UpperShadow: upper,
		LowerShadow: lower,
	}, true
}

// shootingStar: long upper shadow, body near the bottom of the range.
func shootingStar(bars []model.Bar, cfg Config) (model.Match, bool) {
	b := last(bars)
	upper, lower := b.UpperShadow(), b.LowerShadow()
	if !pinBar(b, upper, lower, cfg) {
		return model.Match{}, false
	}
	return model.Match{
		Kind:        model.ShootingStar,
		Direction:   model.Bearish,
		Bars:        []model.Bar{b},
		Strength:    pinBarStrength(bars, upper, model.Bearish),
		BodyRatio:   b.Body() / b.Range(),
		UpperShadow: upper,
		LowerShadow: lower,
	}, true
}

func bullishEngulfing(bars []model.Bar, _ Config) (model.Match, bool) {
	return engulfing(bars, model.BullishEngulfing)
}

func bearishEngulfing(bars []model.Bar, _ Config) (model.Match, bool) {
	return engulfing(bars, model.BearishEngulfing)
}

// engulfing needs the last two bars of opposite color where the newer body
// contains the older one and is strictly larger.
func engulfing(bars []model.Bar, kind model.Kind) (model.Match, bool) {
	if len(bars) < 2 {
		return model.Match{}, false
	}
	prev, cur := bars[len(bars)-2], bars[len(bars)-1]

	if kind == model.BullishEngulfing && !(prev.Bearish() && cur.Bullish()) {
		return model.Match{}, false
	}
	if kind == model.BearishEngulfing && !(prev.Bullish() && cur.Bearish()) {
		return model.Match{}, false
	}

	prevHigh, prevLow := math.Max(prev.Open, prev.Close), math.Min(prev.Open, prev.Close)
	curHigh, curLow := math.Max(cur.Open, cur.Close), math.Min(cur.Open, cur.Close)
	if curHigh < prevHigh || curLow > prevLow || cur.Body() <= prev.Body() {
		return model.Match{}, false
	}

	m := model.Match{
		Kind:        kind,
		Direction:   kind.Direction(),
		Bars:        []model.Bar{prev, cur},
		Strength:    engulfingStrength(prev, cur),
		UpperShadow: cur.UpperShadow(),
		LowerShadow: cur.LowerShadow(),
	}
	if r := cur.Range(); r > 0 {
		m.BodyRatio = cur.Body() / r
	}
	return m, true
}
