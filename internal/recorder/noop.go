package recorder

import (
	"context"
	"time"

	"PriceActionBot/internal/model"
)

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordDetection(context.Context, *Detection) error { return nil }
func (n *NoopRecorder) RecordScan(context.Context, *ScanEvent) error      { return nil }
func (n *NoopRecorder) Close() error                                      { return nil }

func (n *NoopRecorder) DetectionsSince(context.Context, time.Time) ([]model.Match, error) {
	return nil, nil
}
