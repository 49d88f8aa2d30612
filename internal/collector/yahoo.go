package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"PriceActionBot/internal/model"
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
// It serves as a fallback when no terminal bridge is configured.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps terminal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  newHTTPClient(proxyURL),
		SymbolMap: map[string]string{
			"EURUSD": "EURUSD=X",
			"GBPUSD": "GBPUSD=X",
			"USDJPY": "JPY=X",
			"AUDUSD": "AUDUSD=X",
			"XAUUSD": "GC=F",
			"US500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooIntervals maps timeframes to chart intervals. H4 is built from 60m bars.
var yahooIntervals = map[model.Timeframe]string{
	model.M1:  "1m",
	model.M5:  "5m",
	model.M15: "15m",
	model.M30: "30m",
	model.H1:  "60m",
	model.H4:  "60m",
	model.D1:  "1d",
	model.W1:  "1wk",
	model.MN1: "1mo",
}

var yahooRanges = []struct {
	name string
	span time.Duration
}{
	{"1d", 24 * time.Hour},
	{"5d", 5 * 24 * time.Hour},
	{"1mo", 30 * 24 * time.Hour},
	{"3mo", 90 * 24 * time.Hour},
	{"6mo", 180 * 24 * time.Hour},
	{"1y", 365 * 24 * time.Hour},
	{"2y", 730 * 24 * time.Hour},
	{"10y", 3650 * 24 * time.Hour},
}

// yahooRange picks the shortest range covering count candles. Markets are
// not open around the clock, so the span is doubled.
func yahooRange(tf model.Timeframe, count int) string {
	need := 2 * time.Duration(count) * tf.Duration()
	for _, r := range yahooRanges {
		if r.span >= need {
			return r.name
		}
	}
	return "max"
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// at returns vs[i] and whether it holds a value.
func at(vs []*float64, i int) (float64, bool) {
	if i >= len(vs) || vs[i] == nil {
		return 0, false
	}
	return *vs[i], true
}

func (f *YahooFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	interval, ok := yahooIntervals[tf]
	if !ok {
		return nil, fmt.Errorf("yahoo: unsupported timeframe %q", tf)
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), interval, yahooRange(tf, count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := sonic.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		c, okC := at(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			continue // incomplete quote (holidays, halted feed)
		}
		vol, _ := at(quote.Volume, i)
		bars = append(bars, model.Bar{
			Symbol:    symbol,
			Timeframe: tf,
			Time:      time.Unix(ts, 0).UTC(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    vol,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	if tf == model.H4 {
		bars = aggregate(bars, model.H4)
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

// aggregate folds consecutive bars into buckets of tf aligned to UTC.
func aggregate(bars []model.Bar, tf model.Timeframe) []model.Bar {
	if len(bars) == 0 {
		return nil
	}
	var out []model.Bar
	cur := bars[0]
	cur.Timeframe = tf
	cur.Time = cur.Time.Truncate(tf.Duration())
	for _, b := range bars[1:] {
		bucket := b.Time.Truncate(tf.Duration())
		if !bucket.Equal(cur.Time) {
			out = append(out, cur)
			cur = b
			cur.Timeframe = tf
			cur.Time = bucket
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	return append(out, cur)
}
