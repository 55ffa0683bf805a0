package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/atsflow/atsflow/pkg/channels/gochannel"
	"github.com/atsflow/atsflow/pkg/channels/kafka"
	"github.com/atsflow/atsflow/pkg/eventbus"
)

// EventBusConfig selects and configures the broker behind the event bus.
type EventBusConfig struct {
	Provider    string // "gochannel" or "kafka"
	Brokers     string // comma separated kafka brokers
	ServiceName string
	OTELEnabled bool
}

func NewEventBus(config EventBusConfig, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch config.Provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, splitList(config.Brokers), config.ServiceName, config.OTELEnabled)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", config.Provider)
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
