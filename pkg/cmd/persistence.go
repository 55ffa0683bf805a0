package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atsflow/atsflow/pkg/persistence"
	"github.com/atsflow/atsflow/pkg/persistence/memory"
	"github.com/atsflow/atsflow/pkg/persistence/postgresql"
	"github.com/atsflow/atsflow/pkg/persistence/redisstep"
)

var supportedPersistenceProviders = []string{"memory", "postgres", "postgresql"}

// NewPersistence opens the store named by the scheme of databaseURL.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	case "memory":
		logger.WarnContext(ctx, "Using in-memory persistence, data is lost on restart")

		return memory.NewPersistence(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider %q, supported: %s",
			provider, strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	return provider
}

// NewStepStore returns a Redis backed scheduled step store, or nil when
// redisURL is empty and the persistence layer should keep the steps.
func NewStepStore(ctx context.Context, logger *slog.Logger, redisURL string) (*redisstep.Store, error) {
	if redisURL == "" {
		return nil, nil
	}

	store, err := redisstep.New(ctx, logger, redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect scheduled step store: %w", err)
	}

	return store, nil
}
