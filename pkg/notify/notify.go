// Package notify implements the SEND_NOTIFICATION automation action's
// delivery sink. Grounded on the teacher's pkg/slack/notifier.go — the bot
// token/channel-gated PostMessageContext wrapper is kept verbatim in shape,
// generalized from a fixed alert-severity payload (AlertInfo,
// AlertNotificationBlocks) to a plain automation-authored message string,
// since automations produce arbitrary free-text notifications rather than
// structured alert data.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goslack "github.com/slack-go/slack"
)

// SlackNotifier implements internal/automation.Notifier by posting to a
// single configured Slack channel. If botToken is empty, it logs instead of
// sending — matching the teacher's IsEnabled()-gated noop pattern.
type SlackNotifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

func NewSlackNotifier(botToken, channel string, logger *slog.Logger) *SlackNotifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &SlackNotifier{client: client, channel: channel, logger: logger}
}

func (n *SlackNotifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// Notify posts message to the configured channel, prefixed with the
// originating org id so operators watching a shared channel across
// multiple organizations can tell deliveries apart.
func (n *SlackNotifier) Notify(ctx context.Context, orgID uuid.UUID, message string) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping automation notification", "org", orgID, "message", message)
		return nil
	}
	text := fmt.Sprintf("[%s] %s", orgID, message)
	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting automation notification to slack: %w", err)
	}
	return nil
}
