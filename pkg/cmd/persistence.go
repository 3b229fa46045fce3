package cmd

import (
	"fmt"
	"strings"

	"github.com/canvasflow/canvasflow/pkg/persistence"
	"github.com/canvasflow/canvasflow/pkg/persistence/memory"
	"github.com/canvasflow/canvasflow/pkg/persistence/redis"
)

// NewRunRepository picks the run store from the database URL scheme. An empty
// URL or an unrecognized scheme falls back to the in-memory store.
func NewRunRepository(databaseURL string) persistence.RunRepository {
	switch parsePersistenceProvider(databaseURL) {
	case "redis", "rediss":
		repository, err := redis.NewRepository(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to connect to redis: %w", err))
		}

		return repository
	default:
		return memory.NewRepository()
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "memory"
	}

	return provider
}
