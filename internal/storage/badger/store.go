// Package badger provides the BadgerHold-backed embedded document store.
package badger

import (
	"errors"
	"fmt"
	"os"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

// Store wraps a BadgerHold database connection.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a new BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("BadgerHold store opened")

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// DB returns the underlying badgerhold store.
func (s *Store) DB() *badgerhold.Store {
	return s.db
}

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// update runs fn in one read-write badger transaction. Badger aborts the
// commit when another transaction wrote a key this one read.
func (s *Store) update(fn func(tx *badger.Txn) error) error {
	err := s.db.Badger().Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("badger transaction: %w", models.ErrConflict)
	}
	return err
}

// Manager implements interfaces.StorageManager on a single badger directory.
type Manager struct {
	store     *Store
	portfolio *portfolioStorage
	watchlist *watchlistStorage
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager opens the store at path and builds the collection stores on it.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	store, err := NewStore(logger, path)
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:     store,
		portfolio: NewPortfolioStorage(store, logger),
		watchlist: NewWatchlistStorage(store, logger),
	}, nil
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore { return m.portfolio }
func (m *Manager) WatchlistStore() interfaces.WatchlistStore { return m.watchlist }
func (m *Manager) Backend() string                           { return common.BackendBadger }

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.store.Close()
}
