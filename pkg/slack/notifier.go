// Package slack posts roster updates to a Slack channel. When no bot token
// is configured the notifier degrades to logging only.
package slack

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/wisbric/gieplan/pkg/roster"
)

// Notifier sends messages to the configured Slack channel.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a Slack Notifier. If botToken is empty, the notifier
// will be a noop (logging only).
func NewNotifier(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// IsEnabled returns true if the notifier has a valid Slack client.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// PostRoster announces a freshly generated roster in the configured
// channel. Implements roster.Notifier.
func (n *Notifier) PostRoster(ctx context.Context, r roster.Response, warnings []string) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping roster post",
			"roster_id", r.ID,
			"weeks", r.Weeks,
		)
		return nil
	}

	blocks := RosterBlocks(r, warnings)
	opts := []goslack.MsgOption{
		goslack.MsgOptionBlocks(blocks...),
		goslack.MsgOptionText(fmt.Sprintf("🪴 Watering roster: %d weeks from %s", r.Weeks, r.StartDate), false),
	}

	channelID, ts, err := n.client.PostMessageContext(ctx, n.channel, opts...)
	if err != nil {
		return fmt.Errorf("posting roster to slack: %w", err)
	}

	n.logger.Info("posted roster to slack",
		"roster_id", r.ID,
		"channel", channelID,
		"ts", ts,
	)
	return nil
}
