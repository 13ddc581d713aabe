package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Notifier posts content change announcements to a Slack channel
type Notifier struct {
	client    *slack.Client
	channelID string
}

// NewNotifier creates a new Slack notifier. opts are passed to the Slack client.
func NewNotifier(token, channelID string, opts ...slack.Option) *Notifier {
	return &Notifier{
		client:    slack.New(token, opts...),
		channelID: channelID,
	}
}

// Notify posts a one-line message describing event
func (n *Notifier) Notify(ctx context.Context, event *model.ChangeEvent) error {
	if _, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(formatEvent(event), false),
	); err != nil {
		return goerr.Wrap(err, "failed to post Slack message",
			goerr.V("channel", n.channelID),
			goerr.V("path", event.Path),
		)
	}
	return nil
}

func formatEvent(event *model.ChangeEvent) string {
	var action string
	switch event.Kind {
	case model.ChangeKindPageUpdated:
		action = "updated page"
	case model.ChangeKindImageUploaded:
		action = "uploaded image"
	default:
		action = string(event.Kind)
	}

	msg := fmt.Sprintf("%s %s `%s`", event.Actor, action, event.Path)
	if event.CommitSHA != "" {
		msg += fmt.Sprintf(" (commit %.7s)", event.CommitSHA)
	}
	return msg
}
