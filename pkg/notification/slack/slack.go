// Package slack posts SLA alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/slack-go/slack"
)

var ErrWebhookRequired = errors.New("slack webhook url is required")

// Alerter implements protocol.AlertSender.
type Alerter struct {
	webhookURL string
	channel    string
}

type Option func(*Alerter)

// WithChannel overrides the webhook's default channel.
func WithChannel(channel string) Option {
	return func(a *Alerter) {
		a.channel = channel
	}
}

func New(webhookURL string, opts ...Option) (*Alerter, error) {
	if webhookURL == "" {
		return nil, ErrWebhookRequired
	}

	a := &Alerter{webhookURL: webhookURL}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

func (a *Alerter) SendAlert(ctx context.Context, recipients []string, violation *models.Violation) error {
	return a.post(ctx, ":warning: SLA violated", recipients, violation)
}

func (a *Alerter) SendEscalation(ctx context.Context, recipients []string, violation *models.Violation) error {
	return a.post(ctx, ":rotating_light: SLA violation escalated", recipients, violation)
}

func (a *Alerter) post(ctx context.Context, title string, recipients []string, violation *models.Violation) error {
	msg := buildMessage(title, recipients, violation)
	msg.Channel = a.channel

	err := slack.PostWebhookContext(ctx, a.webhookURL, msg)
	if err != nil {
		return fmt.Errorf("failed to post slack alert for violation %s: %w", violation.ID, err)
	}

	return nil
}

func buildMessage(title string, recipients []string, violation *models.Violation) *slack.WebhookMessage {
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Entity*\n"+string(violation.EntityType)+" `"+violation.EntityID+"`", false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Elapsed*\n%.2fh", violation.ActualHours), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Rule*\n`"+violation.RuleID+"`", false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Due*\n"+violation.ExpectedAt.UTC().Format("2006-01-02 15:04 MST"), false, false),
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}

	if len(recipients) > 0 {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "Notified: "+strings.Join(recipients, ", "), false, false),
		))
	}

	return &slack.WebhookMessage{
		Text:   fmt.Sprintf("%s: %s %s", title, violation.EntityType, violation.EntityID),
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}
