package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"PriceActionBot/internal/model"
)

// Fetcher defines the interface for fetching market data.
// Bars are returned oldest first; the newest bar may still be forming.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, tf model.Timeframe, count int) ([]model.Bar, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
