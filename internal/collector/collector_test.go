package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"PriceActionBot/internal/model"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func hourly(n int) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		p := 1.1 + float64(i)*0.001
		bars[i] = model.Bar{Time: t0.Add(time.Duration(i) * time.Hour), Open: p, High: p + 0.002, Low: p - 0.002, Close: p + 0.001}
	}
	return bars
}

func TestCollector_ClosedDropsFormingCandle(t *testing.T) {
	c := NewCollector(&MockFetcher{Bars: map[string][]model.Bar{"EURUSD": hourly(3)}})
	c.Now = func() time.Time { return t0.Add(2*time.Hour + 30*time.Minute) }

	bars, err := c.Closed(context.Background(), "EURUSD", model.H1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 closed bars, got %d", len(bars))
	}
	if !bars[1].Time.Equal(t0.Add(time.Hour)) {
		t.Errorf("expected newest closed bar at 11:00, got %s", bars[1].Time)
	}
	if bars[0].Symbol != "EURUSD" || bars[0].Timeframe != model.H1 {
		t.Errorf("bars should be stamped with symbol and timeframe, got %+v", bars[0])
	}
}

func TestCollector_ClosedMonthly(t *testing.T) {
	month := func(m time.Month) model.Bar {
		return model.Bar{Time: time.Date(2026, m, 1, 0, 0, 0, 0, time.UTC), Open: 1.1, High: 1.2, Low: 1.0, Close: 1.15}
	}
	tests := []struct {
		name   string
		bars   []model.Bar
		now    time.Time
		newest time.Time
	}{
		{
			name:   "february closes on march 1st",
			bars:   []model.Bar{month(time.January), month(time.February), month(time.March)},
			now:    time.Date(2026, 3, 1, 0, 0, 5, 0, time.UTC),
			newest: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "january still forming on the 31st",
			bars:   []model.Bar{month(time.January)},
			now:    time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC),
			newest: time.Time{},
		},
		{
			name:   "january closes on february 1st",
			bars:   []model.Bar{month(time.January), month(time.February)},
			now:    time.Date(2026, 2, 1, 0, 0, 5, 0, time.UTC),
			newest: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		c := NewCollector(&MockFetcher{Bars: map[string][]model.Bar{"EURUSD": tt.bars}})
		c.Now = func() time.Time { return tt.now }
		bars, err := c.Closed(context.Background(), "EURUSD", model.MN1, 10)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if tt.newest.IsZero() {
			if len(bars) != 0 {
				t.Errorf("%s: expected no closed bars, got %+v", tt.name, bars)
			}
			continue
		}
		if len(bars) == 0 || !bars[len(bars)-1].Time.Equal(tt.newest) {
			t.Errorf("%s: expected newest closed bar %s, got %+v", tt.name, tt.newest, bars)
		}
	}
}

func TestCollector_ClosedTrimsToCount(t *testing.T) {
	c := NewCollector(&MockFetcher{Bars: map[string][]model.Bar{"EURUSD": hourly(10)}})
	c.Now = func() time.Time { return t0.Add(24 * time.Hour) }
	bars, err := c.Closed(context.Background(), "EURUSD", model.H1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 4 || !bars[3].Time.Equal(t0.Add(9*time.Hour)) {
		t.Fatalf("expected the last 4 bars, got %d ending %s", len(bars), bars[len(bars)-1].Time)
	}
}

func TestCollector_NewClosed(t *testing.T) {
	mf := &MockFetcher{Bars: map[string][]model.Bar{"EURUSD": hourly(3)}}
	c := NewCollector(mf)
	now := t0.Add(3 * time.Hour)
	c.Now = func() time.Time { return now }
	ctx := context.Background()

	if _, isNew, err := c.NewClosed(ctx, "EURUSD", model.H1, 5); err != nil || !isNew {
		t.Fatalf("first observation should be new (err=%v)", err)
	}
	if _, isNew, _ := c.NewClosed(ctx, "EURUSD", model.H1, 5); isNew {
		t.Fatal("same candle should not be new twice")
	}
	now = t0.Add(24 * time.Hour)
	if _, isNew, _ := c.NewClosed(ctx, "EURUSD", model.H4, 5); !isNew {
		t.Fatal("a different timeframe is tracked separately")
	}

	mf.Bars["EURUSD"] = hourly(4)
	now = t0.Add(4 * time.Hour)
	if _, isNew, _ := c.NewClosed(ctx, "EURUSD", model.H1, 5); !isNew {
		t.Fatal("a newly closed candle should be new")
	}

	c.Reset()
	if _, isNew, _ := c.NewClosed(ctx, "EURUSD", model.H1, 5); !isNew {
		t.Fatal("reset should make the pair new again")
	}
}

func TestCollector_FetchError(t *testing.T) {
	c := NewCollector(&MockFetcher{Err: errors.New("terminal offline")})
	if _, _, err := c.NewClosed(context.Background(), "EURUSD", model.H1, 5); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestMockFetcher_GeneratesValidBars(t *testing.T) {
	bars, err := (&MockFetcher{Price: 2000}).FetchBars(context.Background(), "XAUUSD", model.M15, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 20 {
		t.Fatalf("expected 20 bars, got %d", len(bars))
	}
	for i, b := range bars {
		if b.High < b.Open || b.High < b.Close || b.Low > b.Open || b.Low > b.Close {
			t.Fatalf("bar %d violates OHLC ordering: %+v", i, b)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			t.Fatalf("bar %d out of order", i)
		}
	}
}

func TestBridgeFetcher_FetchBars(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		q := r.URL.Query()
		if r.URL.Path != "/api/v1/bars" || q.Get("symbol") != "XAUUSD" || q.Get("timeframe") != "H1" || q.Get("limit") != "3" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if calls.Load() == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `[
			{"time": %d, "open": 2001, "high": 2003, "low": 2000, "close": 2002, "tick_volume": 50},
			{"time": %d, "open": 2000, "high": 2002, "low": 1999, "close": 2001, "tick_volume": 40}
		]`, t0.Add(time.Hour).Unix(), t0.Unix())
	}))
	defer srv.Close()

	f := NewBridgeFetcher(srv.URL, "secret", "", 0)
	bars, err := f.FetchBars(context.Background(), "XAUUSD", model.H1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected one retry after 503, got %d calls", calls.Load())
	}
	if len(bars) != 2 || !bars[0].Time.Equal(t0) || bars[1].Volume != 50 {
		t.Fatalf("expected bars sorted oldest first, got %+v", bars)
	}
	if bars[0].Symbol != "XAUUSD" || bars[0].Timeframe != model.H1 {
		t.Errorf("bars not stamped: %+v", bars[0])
	}
}

func TestBridgeFetcher_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown symbol", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewBridgeFetcher(srv.URL, "", "", 0).FetchBars(context.Background(), "NOPE", model.H1, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestYahooFetcher_AggregatesH4(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "60m" {
			t.Errorf("expected 60m interval, got %s", r.URL.RawQuery)
		}
		base := t0.Add(-2 * time.Hour).Unix() // 08:00 UTC
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d,%d,%d,%d,%d],
			"indicators":{"quote":[{
				"open":[1,2,3,4,5],"high":[2,3,5,4.5,6],"low":[0.5,1.5,2.5,3.5,4.5],
				"close":[2,3,4,4.2,5.5],"volume":[10,10,10,10,null]}]}}],"error":null}}`,
			base, base+3600, base+7200, base+10800, base+14400)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "EURUSD", model.H4, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 four-hour bars, got %d: %+v", len(bars), bars)
	}
	first := bars[0]
	if first.Open != 1 || first.High != 5 || first.Low != 0.5 || first.Close != 4.2 || first.Volume != 40 {
		t.Errorf("unexpected aggregate %+v", first)
	}
	if !first.Time.Equal(t0.Add(-2*time.Hour)) || first.Timeframe != model.H4 {
		t.Errorf("unexpected bucket %s %s", first.Time, first.Timeframe)
	}
}

func TestYahooFetcher_SkipsIncompleteQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base := t0.Unix()
		fmt.Fprintf(w, `{"chart":{"result":[{"timestamp":[%d,%d,%d,%d],
			"indicators":{"quote":[{
				"open":[1,2,null,4],"high":[2,3,null,5],"low":[0.5,1.5,null,3.5],
				"close":[1.5,null,null,4.5],"volume":[10,10,null,null]}]}}],"error":null}}`,
			base, base+3600, base+7200, base+10800)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "EURUSD", model.H1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected bars with a null price to be dropped, got %d: %+v", len(bars), bars)
	}
	if !bars[0].Time.Equal(t0) || !bars[1].Time.Equal(t0.Add(3*time.Hour)) {
		t.Errorf("unexpected bars kept: %s, %s", bars[0].Time, bars[1].Time)
	}
	if bars[1].Volume != 0 || bars[1].Close != 4.5 {
		t.Errorf("a missing volume should read as zero, got %+v", bars[1])
	}
}

func TestYahooRange(t *testing.T) {
	tests := []struct {
		tf    model.Timeframe
		count int
		want  string
	}{
		{model.M15, 100, "5d"},
		{model.H1, 100, "1mo"},
		{model.D1, 100, "1y"},
		{model.W1, 100, "10y"},
	}
	for _, tt := range tests {
		if got := yahooRange(tt.tf, tt.count); got != tt.want {
			t.Errorf("%s x%d: expected %s, got %s", tt.tf, tt.count, tt.want, got)
		}
	}
}
