package config

import (
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds change notification configuration
type Slack struct {
	Token     string `masq:"secret"`
	ChannelID string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-token",
			Usage:       "Slack bot token for change notifications",
			Destination: &c.Token,
			Sources:     cli.EnvVars("TIDEPOOL_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel receiving change notifications",
			Destination: &c.ChannelID,
			Sources:     cli.EnvVars("TIDEPOOL_SLACK_CHANNEL_ID"),
		},
	}
}

// Enabled reports whether both token and channel are set
func (c *Slack) Enabled() bool {
	return c.Token != "" && c.ChannelID != ""
}

// NewNotifier returns the Slack notifier, or nil when Slack is not configured
func (c *Slack) NewNotifier() interfaces.Notifier {
	if !c.Enabled() {
		return nil
	}
	return slack.NewNotifier(c.Token, c.ChannelID)
}
