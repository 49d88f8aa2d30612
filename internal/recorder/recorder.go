package recorder

import (
	"context"
	"time"

	"PriceActionBot/internal/model"
)

// Detection is one classified pattern together with its alert outcome.
type Detection struct {
	ID         string // assigned on insert when empty
	DetectedAt time.Time
	Match      model.Match
	Alerted    bool
}

// ScanEvent summarizes one scheduled scan of a timeframe.
type ScanEvent struct {
	Timeframe  model.Timeframe
	StartedAt  time.Time
	Duration   time.Duration
	Symbols    int
	Detections int
	Alerts     int
	Errors     int
}

// Recorder persists detection history for statistics and later analysis.
type Recorder interface {
	RecordDetection(ctx context.Context, d *Detection) error
	RecordScan(ctx context.Context, evt *ScanEvent) error
	// DetectionsSince returns matches detected at or after since, oldest first.
	// Each match carries only its signal bar.
	DetectionsSince(ctx context.Context, since time.Time) ([]model.Match, error)
	Close() error
}
