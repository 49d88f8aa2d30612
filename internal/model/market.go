package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Timeframe is a candle period as named by the trading terminal.
type Timeframe string

const (
	M1  Timeframe = "M1"
	M5  Timeframe = "M5"
	M15 Timeframe = "M15"
	M30 Timeframe = "M30"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
	W1  Timeframe = "W1"
	MN1 Timeframe = "MN1"
)

var timeframes = map[Timeframe]struct {
	dur  time.Duration
	cron string
	desc string
}{
	M1:  {time.Minute, "5 * * * * *", "1 minute"},
	M5:  {5 * time.Minute, "5 */5 * * * *", "5 minutes"},
	M15: {15 * time.Minute, "5 */15 * * * *", "15 minutes"},
	M30: {30 * time.Minute, "5 */30 * * * *", "30 minutes"},
	H1:  {time.Hour, "5 0 * * * *", "1 hour"},
	H4:  {4 * time.Hour, "5 0 */4 * * *", "4 hours"},
	D1:  {24 * time.Hour, "5 0 0 * * *", "1 day"},
	W1:  {7 * 24 * time.Hour, "5 0 0 * * 1", "1 week"},
	MN1: {30 * 24 * time.Hour, "5 0 0 1 * *", "1 month"},
}

// ParseTimeframe accepts terminal names case-insensitively ("h1", "M15").
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := timeframes[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Duration returns the nominal candle length. MN1 is approximated as 30
// days; use Bar.CloseTime for the calendar-exact close.
func (tf Timeframe) Duration() time.Duration {
	return timeframes[tf].dur
}

// CronSpec returns a seconds-field cron expression that fires five seconds
// after each candle of this timeframe closes.
func (tf Timeframe) CronSpec() string {
	return timeframes[tf].cron
}

// Label is a human-readable period, e.g. "15 minutes".
func (tf Timeframe) Label() string {
	if d, ok := timeframes[tf]; ok {
		return d.desc
	}
	return string(tf)
}

// Bar represents a single OHLC candle for a symbol and timeframe.
// Time is the candle's open time.
type Bar struct {
	Symbol    string
	Timeframe Timeframe
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Body is |close - open|.
func (b Bar) Body() float64 { return math.Abs(b.Close - b.Open) }

// Range is high - low.
func (b Bar) Range() float64 { return b.High - b.Low }

// UpperShadow is high - max(open, close).
func (b Bar) UpperShadow() float64 { return b.High - math.Max(b.Open, b.Close) }

// LowerShadow is min(open, close) - low.
func (b Bar) LowerShadow() float64 { return math.Min(b.Open, b.Close) - b.Low }

func (b Bar) Bullish() bool { return b.Close > b.Open }
func (b Bar) Bearish() bool { return b.Close < b.Open }

// CloseTime is when the candle stops forming. Monthly candles close at
// the start of the next calendar month.
func (b Bar) CloseTime() time.Time {
	if b.Timeframe == MN1 {
		return b.Time.AddDate(0, 1, 0)
	}
	return b.Time.Add(b.Timeframe.Duration())
}
