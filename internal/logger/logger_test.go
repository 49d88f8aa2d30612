package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_JSONLevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, "warn", "json"), "scheduler")

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"scheduler"`) || !strings.Contains(out, "shown") {
		t.Errorf("expected warn line with component field, got %s", out)
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "loud", "json")
	l.Debug().Msg("debug")
	l.Info().Msg("info")
	if strings.Contains(buf.String(), `"debug"`) || !strings.Contains(buf.String(), "info") {
		t.Errorf("expected info level, got %s", buf.String())
	}
}
