package model

import "time"

// RunStats counts the bot's activity since it started.
type RunStats struct {
	StartedAt  time.Time
	Scans      int
	Detections int
	Alerts     int
	Errors     int
	LastScanAt time.Time
}
