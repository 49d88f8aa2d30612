package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"PriceActionBot/internal/model"
	"PriceActionBot/internal/pattern"
)

var directionHeaders = map[model.Direction]struct{ header, note string }{
	model.Bullish: {"🟢📈 <b>BULLISH SIGNAL</b>", "Possible bullish reversal"},
	model.Bearish: {"🔴📉 <b>BEARISH SIGNAL</b>", "Possible bearish reversal"},
	model.Neutral: {"⚪️ <b>NEUTRAL SIGNAL</b>", "Market is undecided"},
}

var dojiLabels = map[model.DojiType]string{
	model.DojiStandard:   "Standard",
	model.DojiDragonfly:  "Dragonfly",
	model.DojiGravestone: "Gravestone",
	model.DojiLongLegged: "Long-legged",
}

var setupLabels = map[model.Setup]string{
	model.Continuation: "continuation",
	model.Reversal:     "reversal",
	model.RangeBound:   "range",
	model.NoSetup:      "no bias",
}

// FormatPrice renders a price with the precision usual for the symbol.
func FormatPrice(symbol string, price float64) string {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "XAU") || strings.Contains(s, "GOLD"):
		return fmt.Sprintf("%.2f", price)
	case strings.Contains(s, "JPY"):
		return fmt.Sprintf("%.3f", price)
	default:
		return fmt.Sprintf("%.5f", price)
	}
}

// FormatAlert formats a pattern detection into a Telegram message.
func FormatAlert(m model.Match, loc *time.Location) string {
	sig := m.Signal()
	dir := directionHeaders[m.Direction]
	name := m.Kind.String()
	if m.Kind == model.Doji && m.DojiType != "" {
		name += " - " + dojiLabels[m.DojiType]
	}
	symbol := strings.TrimSuffix(sig.Symbol, ".s")

	var b strings.Builder
	b.WriteString("🚨 <b>PRICE ACTION ALERT</b> 🚨\n\n")
	b.WriteString(dir.header + "\n\n")
	b.WriteString(fmt.Sprintf("📊 <b>Symbol:</b> %s\n", html.EscapeString(symbol)))
	b.WriteString(fmt.Sprintf("⏰ <b>Timeframe:</b> %s\n", sig.Timeframe.Label()))
	b.WriteString(fmt.Sprintf("🎯 <b>Pattern:</b> %s\n", name))
	b.WriteString(fmt.Sprintf("💰 <b>Close:</b> %s\n", FormatPrice(sig.Symbol, sig.Close)))
	b.WriteString(fmt.Sprintf("💪 <b>Strength:</b> %.0f%% (%s)\n\n", m.Strength*100, m.Confidence))
	if c := m.Context; c != nil {
		if c.Trend != model.TrendUnknown {
			b.WriteString(fmt.Sprintf("📈 <b>Trend:</b> %s (%s)\n", c.Trend, setupLabels[c.Setup(m.Direction)]))
		}
		b.WriteString(fmt.Sprintf("📉 <b>RSI(14):</b> %.0f | <b>Range:</b> %.0f%%\n\n", c.RSI, c.RangePosition*100))
	}
	b.WriteString(fmt.Sprintf("📝 <b>Note:</b> %s\n", dir.note))
	b.WriteString(fmt.Sprintf("⏱ <b>Candle closed:</b> %s\n\n", sig.CloseTime().In(loc).Format("15:04 02/01/2006")))
	b.WriteString("✅ <i>Candle closed - signal confirmed</i>")
	return b.String()
}

// FormatSummary formats detection statistics and running counters.
func FormatSummary(st pattern.Stats, run model.RunStats, title string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", title, time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Scans: %d | Detections: %d | Alerts: %d | Errors: %d\n",
		run.Scans, run.Detections, run.Alerts, run.Errors))
	if !run.StartedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Uptime: %s\n", time.Since(run.StartedAt).Truncate(time.Minute)))
	}
	if st.Total == 0 {
		b.WriteString("\nNo patterns detected.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("\n<b>Patterns (%d, avg strength %.0f%%):</b>\n", st.Total, st.MeanStrength*100))
	for _, k := range model.Kinds() {
		if n := st.ByKind[k]; n > 0 {
			b.WriteString(fmt.Sprintf("  • %s: %d\n", k, n))
		}
	}
	b.WriteString(fmt.Sprintf("🟢 %d | 🔴 %d | ⚪️ %d\n",
		st.ByDirection[model.Bullish], st.ByDirection[model.Bearish], st.ByDirection[model.Neutral]))

	symbols := make([]string, 0, len(st.BySymbol))
	for s := range st.BySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	b.WriteString("\n<b>By symbol:</b>\n")
	for _, s := range symbols {
		b.WriteString(fmt.Sprintf("  • %s: %d\n", html.EscapeString(s), st.BySymbol[s]))
	}
	return b.String()
}

// FormatStartup announces what the bot is watching.
func FormatStartup(symbols []string, tfs []model.Timeframe, enabled model.KindSet) string {
	return "🤖 <b>Price action bot started</b>\n\n" + watchList(symbols, tfs, enabled)
}

// FormatStatus reports the watch list and running counters.
func FormatStatus(symbols []string, tfs []model.Timeframe, enabled model.KindSet, run model.RunStats, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📡 <b>Status</b>\n\n")
	b.WriteString(watchList(symbols, tfs, enabled))
	b.WriteString(fmt.Sprintf("\nScans: %d | Detections: %d | Alerts: %d | Errors: %d\n",
		run.Scans, run.Detections, run.Alerts, run.Errors))
	if !run.LastScanAt.IsZero() {
		b.WriteString(fmt.Sprintf("Last scan: %s\n", run.LastScanAt.In(loc).Format("15:04:05 02/01/2006")))
	}
	return b.String()
}

func watchList(symbols []string, tfs []model.Timeframe, enabled model.KindSet) string {
	names := make([]string, 0, len(tfs))
	for _, tf := range tfs {
		names = append(names, string(tf))
	}
	kinds := make([]string, 0)
	for _, k := range enabled.Kinds() {
		kinds = append(kinds, k.String())
	}
	return fmt.Sprintf("Symbols: %s\nTimeframes: %s\nPatterns: %s\n",
		html.EscapeString(strings.Join(symbols, ", ")), strings.Join(names, ", "), strings.Join(kinds, ", "))
}

// FormatShutdown reports the counters at exit.
func FormatShutdown(run model.RunStats) string {
	return fmt.Sprintf("🛑 <b>Price action bot stopped</b>\n\nScans: %d | Detections: %d | Alerts: %d",
		run.Scans, run.Detections, run.Alerts)
}
