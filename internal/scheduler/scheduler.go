package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"PriceActionBot/internal/alertcache"
	"PriceActionBot/internal/calculator"
	"PriceActionBot/internal/collector"
	"PriceActionBot/internal/model"
	"PriceActionBot/internal/notifier"
	"PriceActionBot/internal/pattern"
	"PriceActionBot/internal/recorder"
)

// ErrScanInProgress is returned by ScanNow while another manual scan runs.
var ErrScanInProgress = errors.New("scan already in progress")

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

const (
	sendRetries   = 3
	statsLogEvery = 10
)

// Notifier delivers formatted messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options controls what is scanned and when.
type Options struct {
	Symbols     []string
	Timeframes  []model.Timeframe
	Patterns    pattern.Config
	MinStrength float64
	BarCount    int
	Concurrency int
	SummaryCron string
	Location    *time.Location
}

// Scheduler runs one scan job per timeframe shortly after each candle closes.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  Notifier
	Cache     alertcache.Cache
	Recorder  recorder.Recorder
	Ctx       context.Context

	opts     Options
	log      zerolog.Logger
	scanning atomic.Bool

	mu    sync.Mutex
	stats model.RunStats

	// tfLocks serializes scans of the same timeframe so a manual scan and a
	// cron job never race between the cache lookup and the mark.
	tfLocks map[model.Timeframe]*sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, n Notifier, cache alertcache.Cache,
	rec recorder.Recorder, opts Options, log zerolog.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	cl := cronLogger{log}
	tfLocks := make(map[model.Timeframe]*sync.Mutex, len(opts.Timeframes))
	for _, tf := range opts.Timeframes {
		tfLocks[tf] = &sync.Mutex{}
	}
	return &Scheduler{
		// Candle boundaries are UTC; the summary job carries its own location.
		Cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
		Collector: col,
		Notifier:  n,
		Cache:     cache,
		Recorder:  rec,
		Ctx:       ctx,
		opts:      opts,
		log:       log,
		stats:     model.RunStats{StartedAt: time.Now()},
		tfLocks:   tfLocks,
	}
}

// RegisterAll registers a scan job per timeframe and the optional summary job.
func (s *Scheduler) RegisterAll() error {
	for _, tf := range s.opts.Timeframes {
		spec := tf.CronSpec()
		if spec == "" {
			return fmt.Errorf("no schedule for timeframe %q", tf)
		}
		if _, err := s.Cron.AddFunc(spec, func() { s.scanTimeframe(s.Ctx, tf) }); err != nil {
			return fmt.Errorf("register %s scan: %w", tf, err)
		}
		s.log.Info().Str("timeframe", string(tf)).Str("cron", spec).Msg("scan job registered")
	}
	if s.opts.SummaryCron != "" {
		sched, err := cronParser.Parse(s.opts.SummaryCron)
		if err != nil {
			return fmt.Errorf("parse summary cron: %w", err)
		}
		// Without an explicit CRON_TZ the summary follows the alert timezone.
		if ss, ok := sched.(*cron.SpecSchedule); ok && ss.Location == time.Local {
			ss.Location = s.opts.Location
		}
		s.Cron.Schedule(sched, cron.FuncJob(s.summaryTask))
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running scans.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Stats returns a copy of the running counters.
func (s *Scheduler) Stats() model.RunStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ScanNow forgets which candles were already processed and scans every
// timeframe once.
func (s *Scheduler) ScanNow(ctx context.Context) ([]recorder.ScanEvent, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.scanning.Store(false)

	s.log.Info().Msg("running manual scan")
	s.Collector.Reset()
	events := make([]recorder.ScanEvent, 0, len(s.opts.Timeframes))
	for _, tf := range s.opts.Timeframes {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		events = append(events, s.scanTimeframe(ctx, tf))
	}
	return events, nil
}

type symbolResult struct {
	detections int
	alerts     int
}

func (s *Scheduler) scanTimeframe(ctx context.Context, tf model.Timeframe) recorder.ScanEvent {
	if l, ok := s.tfLocks[tf]; ok {
		l.Lock()
		defer l.Unlock()
	}
	evt := recorder.ScanEvent{Timeframe: tf, StartedAt: time.Now(), Symbols: len(s.opts.Symbols)}
	log := s.log.With().Str("timeframe", string(tf)).Logger()
	log.Debug().Int("symbols", len(s.opts.Symbols)).Msg("scan started")

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.opts.Concurrency)
	for _, symbol := range s.opts.Symbols {
		g.Go(func() error {
			res, err := s.scanSymbol(ctx, symbol, tf)
			mu.Lock()
			defer mu.Unlock()
			evt.Detections += res.detections
			evt.Alerts += res.alerts
			if err != nil {
				evt.Errors++
				ev := log.Error()
				if errors.Is(err, pattern.ErrMalformedBar) {
					ev = log.Warn()
				}
				ev.Err(err).Str("symbol", symbol).Msg("scan symbol")
			}
			return nil
		})
	}
	_ = g.Wait()
	evt.Duration = time.Since(evt.StartedAt)

	s.mu.Lock()
	s.stats.Scans++
	s.stats.Detections += evt.Detections
	s.stats.Alerts += evt.Alerts
	s.stats.Errors += evt.Errors
	s.stats.LastScanAt = evt.StartedAt
	run := s.stats
	s.mu.Unlock()

	log.Info().Int("detections", evt.Detections).Int("alerts", evt.Alerts).Int("errors", evt.Errors).
		Dur("took", evt.Duration).Msg("scan finished")
	if run.Scans%statsLogEvery == 0 {
		s.log.Info().Int("scans", run.Scans).Int("detections", run.Detections).Int("alerts", run.Alerts).
			Int("errors", run.Errors).Msg("running totals")
	}
	if err := s.Recorder.RecordScan(ctx, &evt); err != nil {
		log.Error().Err(err).Msg("record scan")
	}
	return evt
}

func (s *Scheduler) scanSymbol(ctx context.Context, symbol string, tf model.Timeframe) (symbolResult, error) {
	var res symbolResult
	bars, isNew, err := s.Collector.NewClosed(ctx, symbol, tf, s.opts.BarCount)
	if err != nil {
		return res, fmt.Errorf("fetch bars: %w", err)
	}
	if !isNew {
		s.log.Debug().Str("symbol", symbol).Str("timeframe", string(tf)).Msg("no new closed candle")
		return res, nil
	}

	matches, err := pattern.Detect(bars, s.opts.Patterns)
	if err != nil {
		return res, err
	}
	res.detections = len(matches)
	if len(matches) == 0 {
		return res, nil
	}
	mctx := calculator.Analyze(bars)
	for i := range matches {
		matches[i].Context = mctx
	}

	alerted := make(map[string]bool)
	for _, m := range pattern.Filter(matches, s.opts.MinStrength) {
		if s.alert(ctx, m) {
			alerted[alertcache.Key(m)] = true
			res.alerts++
		}
	}
	for _, m := range matches {
		s.log.Info().Str("symbol", symbol).Str("timeframe", string(tf)).Str("pattern", m.Kind.ID()).
			Float64("strength", m.Strength).Msg("pattern detected")
		d := &recorder.Detection{DetectedAt: time.Now(), Match: m, Alerted: alerted[alertcache.Key(m)]}
		if err := s.Recorder.RecordDetection(ctx, d); err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("record detection")
		}
	}
	return res, nil
}

// alert sends m unless it was already alerted within the cooldown. A cache
// failure does not block delivery.
func (s *Scheduler) alert(ctx context.Context, m model.Match) bool {
	seen, err := s.Cache.Seen(ctx, m)
	if err != nil {
		s.log.Warn().Err(err).Msg("alert cache lookup")
	}
	if seen {
		s.log.Debug().Str("symbol", m.Signal().Symbol).Str("pattern", m.Kind.ID()).Msg("duplicate alert suppressed")
		return false
	}
	if err := s.Notifier.SendWithRetry(ctx, notifier.FormatAlert(m, s.opts.Location), sendRetries); err != nil {
		s.log.Error().Err(err).Str("symbol", m.Signal().Symbol).Msg("send alert")
		return false
	}
	if err := s.Cache.Mark(ctx, m); err != nil {
		s.log.Warn().Err(err).Msg("alert cache mark")
	}
	return true
}

func (s *Scheduler) summaryTask() {
	s.trySend(s.summaryText("Daily summary"))
}

func (s *Scheduler) summaryText(title string) string {
	matches, err := s.Recorder.DetectionsSince(s.Ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		s.log.Error().Err(err).Msg("load detections")
	}
	return notifier.FormatSummary(pattern.Summarize(matches), s.Stats(), title)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch strings.ToLower(command) {
	case "/status":
		return notifier.FormatStatus(s.opts.Symbols, s.opts.Timeframes, s.opts.Patterns.Enabled, s.Stats(), s.opts.Location)
	case "/stats":
		return s.summaryText("Last 24 hours")
	case "/scan":
		if s.scanning.Load() {
			return "⏳ A scan is already running."
		}
		go func() {
			events, err := s.ScanNow(s.Ctx)
			if err != nil {
				s.trySend(fmt.Sprintf("❌ Scan failed: %v", err))
				return
			}
			var detections, alerts int
			for _, e := range events {
				detections += e.Detections
				alerts += e.Alerts
			}
			s.trySend(fmt.Sprintf("✅ Scan finished: %d pattern(s), %d alert(s).", detections, alerts))
		}()
		return "🔍 Scanning all symbols..."
	default:
		return "Available commands:\n• /status - watch list and counters\n• /stats - patterns in the last 24h\n• /scan - scan now"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger routes cron's internal logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
