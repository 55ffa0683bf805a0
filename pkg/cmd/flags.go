package cmd

import (
	"github.com/atsflow/atsflow/pkg/notification"
	"github.com/atsflow/atsflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// RuntimeFlags are accepted by every atsflow binary.
func RuntimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (postgres://... or memory://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for delayed workflow steps (defaults to the database)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.DurationFlag{
			Name:    "action-timeout",
			Usage:   "Maximum duration of a single workflow action",
			Value:   workflow.DefaultActionTimeout,
			Sources: cli.EnvVars("ACTION_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    "notify-timeout",
			Usage:   "Timeout of a single notification attempt",
			Value:   notification.DefaultTimeout,
			Sources: cli.EnvVars("NOTIFY_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "notify-retries",
			Usage:   "Retries for failed notifications",
			Value:   notification.DefaultMaxRetries,
			Sources: cli.EnvVars("NOTIFY_RETRIES"),
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "Slack incoming webhook for SLA alerts",
			Sources: cli.EnvVars("SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:    "slack-channel",
			Usage:   "Slack channel override for SLA alerts",
			Sources: cli.EnvVars("SLACK_CHANNEL"),
		},
		&cli.BoolFlag{
			Name:    "otel-enabled",
			Usage:   "Export traces over OTLP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// RuntimeConfigFrom reads the values of RuntimeFlags from command.
func RuntimeConfigFrom(command *cli.Command, serviceName string) RuntimeConfig {
	return RuntimeConfig{
		ServiceName: serviceName,
		DatabaseURL: command.String("database-url"),
		RedisURL:    command.String("redis-url"),
		EventBus: EventBusConfig{
			Provider: command.String("event-bus"),
			Brokers:  command.String("kafka-brokers"),
		},
		Communicator: CommunicatorConfig{
			SlackWebhookURL: command.String("slack-webhook-url"),
			SlackChannel:    command.String("slack-channel"),
			Timeout:         command.Duration("notify-timeout"),
			Retries:         command.Int("notify-retries"),
		},
		ActionTimeout: command.Duration("action-timeout"),
		OTELEnabled:   command.Bool("otel-enabled"),
	}
}
