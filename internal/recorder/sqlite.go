package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"PriceActionBot/internal/model"
)

// SQLiteRecorder persists detections and scans to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS detections (
			id          TEXT PRIMARY KEY,
			detected_at INTEGER NOT NULL,
			bar_time    INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			direction   TEXT,
			strength    REAL,
			confidence  TEXT,
			doji_type   TEXT,
			open        REAL,
			high        REAL,
			low         REAL,
			close       REAL,
			volume      REAL,
			trend       TEXT,
			setup       TEXT,
			rsi         REAL,
			alerted     INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_ts ON detections(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_symbol ON detections(symbol, timeframe)`,

		`CREATE TABLE IF NOT EXISTS scans (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  INTEGER NOT NULL,
			timeframe   TEXT NOT NULL,
			duration_ms INTEGER,
			symbols     INTEGER,
			detections  INTEGER,
			alerts      INTEGER,
			errors      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(started_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordDetection(ctx context.Context, d *Detection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.DetectedAt.IsZero() {
		d.DetectedAt = time.Now()
	}
	m := d.Match
	sig := m.Signal()
	var (
		trend, setup sql.NullString
		rsi          sql.NullFloat64
	)
	if c := m.Context; c != nil {
		trend = sql.NullString{String: string(c.Trend), Valid: true}
		setup = sql.NullString{String: string(c.Setup(m.Direction)), Valid: true}
		rsi = sql.NullFloat64{Float64: c.RSI, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO detections
		(id, detected_at, bar_time, symbol, timeframe, kind, direction, strength,
		 confidence, doji_type, open, high, low, close, volume, trend, setup, rsi, alerted)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.DetectedAt.Unix(), sig.Time.Unix(), sig.Symbol, string(sig.Timeframe),
		m.Kind.ID(), string(m.Direction), m.Strength, string(m.Confidence), string(m.DojiType),
		sig.Open, sig.High, sig.Low, sig.Close, sig.Volume, trend, setup, rsi, d.Alerted,
	)
	if err != nil {
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(ctx context.Context, evt *ScanEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO scans
		(started_at, timeframe, duration_ms, symbols, detections, alerts, errors)
		VALUES (?,?,?,?,?,?,?)`,
		evt.StartedAt.Unix(), string(evt.Timeframe), evt.Duration.Milliseconds(),
		evt.Symbols, evt.Detections, evt.Alerts, evt.Errors,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) DetectionsSince(ctx context.Context, since time.Time) ([]model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT bar_time, symbol, timeframe, kind, direction,
		strength, confidence, doji_type, open, high, low, close, volume, trend, rsi
		FROM detections WHERE detected_at >= ? ORDER BY detected_at, bar_time`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var out []model.Match
	for rows.Next() {
		var (
			barTime                         int64
			kindID, tf, dir, conf, dojiType string
			trend                           sql.NullString
			rsi                             sql.NullFloat64
			m                               model.Match
			bar                             model.Bar
		)
		if err := rows.Scan(&barTime, &bar.Symbol, &tf, &kindID, &dir, &m.Strength, &conf, &dojiType,
			&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &trend, &rsi); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		kind, err := model.ParseKind(kindID)
		if err != nil {
			r.log.Warn().Str("kind", kindID).Msg("skipping detection with unknown kind")
			continue
		}
		bar.Time = time.Unix(barTime, 0).UTC()
		bar.Timeframe = model.Timeframe(tf)
		m.Kind = kind
		m.Direction = model.Direction(dir)
		m.Confidence = model.Confidence(conf)
		m.DojiType = model.DojiType(dojiType)
		m.Bars = []model.Bar{bar}
		if trend.Valid {
			m.Context = &model.MarketContext{Trend: model.Trend(trend.String), RSI: rsi.Float64}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
