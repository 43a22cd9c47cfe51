// Package mongo provides the MongoDB-backed document store, using the
// account, portfolio and watchlist collections.
package mongo

import (
	"context"
	"fmt"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	collAccount   = "account"
	collPortfolio = "portfolio"
	collWatchlist = "watchlist"
)

// Manager implements interfaces.StorageManager using MongoDB.
type Manager struct {
	client *mongo.Client
	logger *common.Logger

	portfolioStore *PortfolioStore
	watchlistStore *WatchlistStore
}

// NewManager connects to MongoDB and verifies the server is reachable.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	cfg := config.Storage.Mongo
	timeout := cfg.GetTimeout()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := newManager(client, client.Database(cfg.Database), logger)

	logger.Info().
		Str("uri", cfg.URI).
		Str("database", cfg.Database).
		Msg("MongoDB storage manager initialized")

	return m, nil
}

func newManager(client *mongo.Client, db *mongo.Database, logger *common.Logger) *Manager {
	return &Manager{
		client:         client,
		logger:         logger,
		portfolioStore: NewPortfolioStore(db, logger),
		watchlistStore: NewWatchlistStore(db, logger),
	}
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolioStore
}

func (m *Manager) WatchlistStore() interfaces.WatchlistStore {
	return m.watchlistStore
}

func (m *Manager) Backend() string {
	return common.BackendMongo
}

func (m *Manager) Close() error {
	return m.client.Disconnect(context.Background())
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
