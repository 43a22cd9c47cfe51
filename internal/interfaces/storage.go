// Package interfaces defines service contracts for stockdesk
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/shopspring/decimal"
)

// StorageManager coordinates the document store backing the app
type StorageManager interface {
	PortfolioStore() PortfolioStore
	WatchlistStore() WatchlistStore

	// Backend returns the configured backend name (surrealdb, badger, mongo, memory).
	Backend() string

	// Lifecycle
	Close() error
}

// PortfolioStore persists holdings and the cash account.
type PortfolioStore interface {
	// EnsureAccount seeds the account with initial when none exists and
	// returns the current account either way.
	EnsureAccount(ctx context.Context, initial decimal.Decimal) (*models.Account, error)

	// GetAccount returns models.ErrNotFound before EnsureAccount has run.
	GetAccount(ctx context.Context) (*models.Account, error)

	// GetHolding returns models.ErrNotFound when the symbol is not held.
	GetHolding(ctx context.Context, symbol string) (*models.Holding, error)

	// ListHoldings returns positions in insertion order.
	ListHoldings(ctx context.Context) ([]*models.Holding, error)

	// ApplyMutation writes the holding and balance change atomically.
	// Returns models.ErrConflict when either document moved past the expected version.
	ApplyMutation(ctx context.Context, m *models.LedgerMutation) error
}

// WatchlistStore persists the watchlist set.
type WatchlistStore interface {
	// AddEntry inserts the entry; returns false when the symbol was already present.
	AddEntry(ctx context.Context, entry *models.WatchlistEntry) (bool, error)

	// RemoveEntry deletes the symbol; returns false when it was absent.
	RemoveEntry(ctx context.Context, symbol string) (bool, error)

	// GetEntry returns models.ErrNotFound when absent.
	GetEntry(ctx context.Context, symbol string) (*models.WatchlistEntry, error)

	ListEntries(ctx context.Context) ([]*models.WatchlistEntry, error)
}
