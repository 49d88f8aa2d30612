package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"PriceActionBot/internal/model"
)

func TestSQLiteRecorder_DetectionsSince(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "history.db"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	bar := model.Bar{Symbol: "XAUUSD", Timeframe: model.H1, Time: now.Add(-time.Hour), Open: 2000, High: 2001, Low: 1990, Close: 2000.2, Volume: 12}

	old := &Detection{DetectedAt: now.Add(-48 * time.Hour), Match: model.Match{Kind: model.Hammer, Bars: []model.Bar{bar}}}
	recent := &Detection{
		DetectedAt: now,
		Alerted:    true,
		Match: model.Match{
			Kind: model.Doji, Direction: model.Neutral, Strength: 0.75, Confidence: model.Moderate,
			DojiType: model.DojiDragonfly, Bars: []model.Bar{bar},
			Context: &model.MarketContext{Trend: model.Downtrend, RSI: 28},
		},
	}
	for _, d := range []*Detection{old, recent} {
		if err := r.RecordDetection(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	if recent.ID == "" || recent.ID == old.ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", old.ID, recent.ID)
	}

	got, err := r.DetectionsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 recent detection, got %d", len(got))
	}
	m := got[0]
	if m.Kind != model.Doji || m.DojiType != model.DojiDragonfly || m.Confidence != model.Moderate || m.Strength != 0.75 {
		t.Errorf("unexpected match %+v", m)
	}
	if m.Context == nil || m.Context.Trend != model.Downtrend || m.Context.RSI != 28 {
		t.Errorf("expected market context to round-trip, got %+v", m.Context)
	}
	sig := m.Signal()
	if sig.Symbol != "XAUUSD" || sig.Timeframe != model.H1 || !sig.Time.Equal(bar.Time) || sig.Close != 2000.2 {
		t.Errorf("unexpected bar %+v", sig)
	}
}

func TestSQLiteRecorder_RecordScan(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	evt := &ScanEvent{Timeframe: model.M15, StartedAt: time.Now(), Duration: 1500 * time.Millisecond, Symbols: 3, Detections: 2, Alerts: 1}
	if err := r.RecordScan(context.Background(), evt); err != nil {
		t.Fatal(err)
	}
	var n, ms int64
	if err := r.db.QueryRow(`SELECT COUNT(*), MAX(duration_ms) FROM scans`).Scan(&n, &ms); err != nil {
		t.Fatal(err)
	}
	if n != 1 || ms != 1500 {
		t.Errorf("expected one scan of 1500ms, got %d rows, %dms", n, ms)
	}
}
