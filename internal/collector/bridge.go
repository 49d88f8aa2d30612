package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"PriceActionBot/internal/model"
)

// BridgeFetcher implements Fetcher against the trading terminal's REST bridge.
type BridgeFetcher struct {
	BaseURL    string
	APIKey     string
	Client     *http.Client
	Limiter    *rate.Limiter
	MaxRetries uint64
}

// NewBridgeFetcher creates a fetcher with optional proxy support.
// requestsPerSecond <= 0 disables rate limiting.
func NewBridgeFetcher(baseURL, apiKey, proxyURL string, requestsPerSecond float64) *BridgeFetcher {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &BridgeFetcher{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Client:     newHTTPClient(proxyURL),
		Limiter:    rate.NewLimiter(limit, burst),
		MaxRetries: 3,
	}
}

func (f *BridgeFetcher) Name() string { return "bridge" }

// bridgeBar is the JSON shape returned by the bridge.
type bridgeBar struct {
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	TickVolume float64 `json:"tick_volume"`
}

// statusError is a non-200 reply from the bridge.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.Code, e.Body)
}

func (f *BridgeFetcher) FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	q.Set("limit", strconv.Itoa(count))
	endpoint := f.BaseURL + "/api/v1/bars?" + q.Encode()

	var body []byte
	op := func() error {
		if err := f.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		b, err := f.get(ctx, endpoint)
		if err != nil {
			if se, ok := err.(*statusError); ok && se.Code < 500 && se.Code != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, f.MaxRetries), ctx)); err != nil {
		return nil, fmt.Errorf("fetch bars %s %s: %w", symbol, tf, err)
	}

	var raw []bridgeBar
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.Bar, len(raw))
	for i, rb := range raw {
		bars[i] = model.Bar{
			Symbol:    symbol,
			Timeframe: tf,
			Time:      time.Unix(rb.Time, 0).UTC(),
			Open:      rb.Open,
			High:      rb.High,
			Low:       rb.Low,
			Close:     rb.Close,
			Volume:    rb.TickVolume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *BridgeFetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
