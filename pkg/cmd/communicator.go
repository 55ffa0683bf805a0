package cmd

import (
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/notification"
	"github.com/atsflow/atsflow/pkg/notification/slack"
	"github.com/atsflow/atsflow/pkg/protocol"
)

type CommunicatorConfig struct {
	SlackWebhookURL string
	SlackChannel    string
	Timeout         time.Duration
	Retries         int
}

// NewCommunicator logs every alert, posts it to Slack when a webhook is
// configured and routes workflow emails to sender. Delivery is retried with
// backoff under a per-attempt timeout.
func NewCommunicator(logger *slog.Logger, sender protocol.EmailSender, config CommunicatorConfig) (protocol.Communicator, error) {
	alerts := []protocol.AlertSender{notification.NewLogCommunicator(logger)}

	if config.SlackWebhookURL != "" {
		var opts []slack.Option
		if config.SlackChannel != "" {
			opts = append(opts, slack.WithChannel(config.SlackChannel))
		}

		alerter, err := slack.New(config.SlackWebhookURL, opts...)
		if err != nil {
			return nil, err
		}

		alerts = append(alerts, alerter)
	}

	return notification.NewResilient(
		notification.NewFanout(sender, alerts...),
		logger,
		notification.WithTimeout(config.Timeout),
		notification.WithMaxRetries(config.Retries),
	), nil
}
