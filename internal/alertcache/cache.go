// Package alertcache suppresses repeated alerts for the same signal candle.
package alertcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"PriceActionBot/internal/model"
)

// Cache remembers which detections were already alerted.
type Cache interface {
	// Seen reports whether m was marked within the cooldown.
	Seen(ctx context.Context, m model.Match) (bool, error)
	Mark(ctx context.Context, m model.Match) error
	Close() error
}

// Key identifies a detection by symbol, timeframe, kind and signal close.
func Key(m model.Match) string {
	sig := m.Signal()
	raw := sig.Symbol + "|" + string(sig.Timeframe) + "|" + m.Kind.ID() + "|" +
		strconv.FormatFloat(sig.Close, 'f', -1, 64)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
