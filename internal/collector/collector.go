package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PriceActionBot/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.Bar // keyed by symbol
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) > count {
			bars = bars[len(bars)-count:]
		}
		return bars, nil
	}
	return generateMockBars(symbol, tf, m.Price, count, time.Now()), nil
}

func generateMockBars(symbol string, tf model.Timeframe, basePrice float64, count int, now time.Time) []model.Bar {
	bars := make([]model.Bar, count)
	start := now.Truncate(tf.Duration()).Add(-time.Duration(count-1) * tf.Duration())
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Symbol:    symbol,
			Timeframe: tf,
			Time:      start.Add(time.Duration(i) * tf.Duration()),
			Open:      p * 0.999,
			High:      p * 1.005,
			Low:       p * 0.995,
			Close:     p,
			Volume:    1000,
		}
	}
	return bars
}

type pairKey struct {
	symbol string
	tf     model.Timeframe
}

// Collector fetches closed candles and remembers the newest one seen for
// every (symbol, timeframe) pair.
type Collector struct {
	Fetcher Fetcher
	Now     func() time.Time

	mu       sync.Mutex
	lastSeen map[pairKey]time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{
		Fetcher:  fetcher,
		Now:      time.Now,
		lastSeen: make(map[pairKey]time.Time),
	}
}

// Closed returns up to count fully closed bars, oldest first. The candle
// still forming at the time of the call is dropped.
func (c *Collector) Closed(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	bars, err := c.Fetcher.FetchBars(ctx, symbol, tf, count+1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Fetcher.Name(), err)
	}
	now := c.Now()
	closed := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		b.Symbol = symbol
		b.Timeframe = tf
		if b.CloseTime().After(now) {
			continue
		}
		closed = append(closed, b)
	}
	if len(closed) > count {
		closed = closed[len(closed)-count:]
	}
	return closed, nil
}

// NewClosed is Closed plus a report of whether the newest closed bar has
// not been seen before for this pair. The first observation of a pair
// always counts as new.
func (c *Collector) NewClosed(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, bool, error) {
	bars, err := c.Closed(ctx, symbol, tf, count)
	if err != nil || len(bars) == 0 {
		return bars, false, err
	}
	newest := bars[len(bars)-1].Time
	key := pairKey{symbol, tf}

	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.lastSeen[key]; ok && !newest.After(last) {
		return bars, false, nil
	}
	c.lastSeen[key] = newest
	return bars, true, nil
}

// Reset forgets every tracked pair so the next scan treats all of them as new.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = make(map[pairKey]time.Time)
}
