// Package surrealdb provides the SurrealDB-backed document store.
package surrealdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// Table names
const (
	tableAccount   = "account"
	tablePortfolio = "portfolio"
	tableWatchlist = "watchlist"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	portfolioStore *PortfolioStore
	watchlistStore *WatchlistStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()
	cfg := config.Storage.SurrealDB

	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManager(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// newManager defines the tables on an already selected database.
func newManager(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	// SurrealDB v3 errors on querying non-existent tables
	for _, table := range []string{tableAccount, tablePortfolio, tableWatchlist} {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	return &Manager{
		db:             db,
		logger:         logger,
		portfolioStore: NewPortfolioStore(db, logger),
		watchlistStore: NewWatchlistStore(db, logger),
	}, nil
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.portfolioStore
}

func (m *Manager) WatchlistStore() interfaces.WatchlistStore {
	return m.watchlistStore
}

func (m *Manager) Backend() string {
	return common.BackendSurrealDB
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// isNotFoundError matches the driver's errors for absent records.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
