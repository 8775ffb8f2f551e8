package notify

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestIsEnabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	cases := []struct {
		name    string
		token   string
		channel string
		want    bool
	}{
		{"no token", "", "#alerts", false},
		{"no channel", "xoxb-test", "", false},
		{"both set", "xoxb-test", "#alerts", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n := NewSlackNotifier(c.token, c.channel, logger)
			if got := n.IsEnabled(); got != c.want {
				t.Errorf("IsEnabled() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestNotify_DisabledIsNoop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	n := NewSlackNotifier("", "", logger)

	if err := n.Notify(context.Background(), uuid.New(), "hello"); err != nil {
		t.Errorf("Notify() on disabled notifier returned error: %v", err)
	}
}
