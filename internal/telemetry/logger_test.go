package telemetry

import (
	"log/slog"
	"testing"
)

func TestNewLogger_LevelParsing(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, c := range cases {
		logger := NewLogger("json", c.level)
		if !logger.Enabled(nil, c.want) {
			t.Errorf("level %q: logger not enabled for %v", c.level, c.want)
		}
		below := c.want - 1
		if logger.Enabled(nil, below) && c.want != slog.LevelDebug {
			t.Errorf("level %q: logger unexpectedly enabled for %v", c.level, below)
		}
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	logger := NewLogger("text", "info")
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}
}

func TestNewMetricsRegistry_RegistersExtraCollectors(t *testing.T) {
	reg := NewMetricsRegistry(All()...)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if len(mfs) == 0 {
		t.Error("expected at least the Go/process collector metrics, got none")
	}
}
