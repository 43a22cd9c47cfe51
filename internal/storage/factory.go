// Package storage selects and opens the configured document store.
package storage

import (
	"fmt"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/storage/badger"
	"github.com/bobmcallan/stockdesk/internal/storage/memory"
	"github.com/bobmcallan/stockdesk/internal/storage/mongo"
	"github.com/bobmcallan/stockdesk/internal/storage/surrealdb"
)

// NewStorageManager creates a StorageManager based on the configuration.
// Supported backends: "surrealdb" (default), "badger", "mongo", "memory".
func NewStorageManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = common.BackendSurrealDB
	}

	switch backend {
	case common.BackendSurrealDB:
		return surrealdb.NewManager(logger, config)

	case common.BackendBadger:
		return badger.NewManager(logger, config.Storage.Badger.Path)

	case common.BackendMongo:
		return mongo.NewManager(logger, config)

	case common.BackendMemory:
		logger.Warn().Msg("Using in-memory storage; data is lost on restart")
		return memory.NewManager(logger), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: surrealdb, badger, mongo, memory)", backend)
	}
}
