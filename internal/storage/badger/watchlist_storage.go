package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type watchlistStorage struct {
	store  *Store
	logger *common.Logger
}

var _ interfaces.WatchlistStore = (*watchlistStorage)(nil)

// NewWatchlistStorage creates a WatchlistStore backed by BadgerHold.
func NewWatchlistStorage(store *Store, logger *common.Logger) *watchlistStorage {
	return &watchlistStorage{store: store, logger: logger}
}

func (s *watchlistStorage) AddEntry(_ context.Context, entry *models.WatchlistEntry) (bool, error) {
	err := s.store.db.Insert(entry.Symbol, entry)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to add %s to watchlist: %w", entry.Symbol, err)
	}
	s.logger.Debug().Str("symbol", entry.Symbol).Msg("Watchlist entry added")
	return true, nil
}

func (s *watchlistStorage) RemoveEntry(_ context.Context, symbol string) (bool, error) {
	err := s.store.db.Delete(symbol, models.WatchlistEntry{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	s.logger.Debug().Str("symbol", symbol).Msg("Watchlist entry removed")
	return true, nil
}

func (s *watchlistStorage) GetEntry(_ context.Context, symbol string) (*models.WatchlistEntry, error) {
	var entry models.WatchlistEntry
	if err := s.store.db.Get(symbol, &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("watchlist entry %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get watchlist entry %s: %w", symbol, err)
	}
	return &entry, nil
}

func (s *watchlistStorage) ListEntries(_ context.Context) ([]*models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	if err := s.store.db.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	out := make([]*models.WatchlistEntry, len(entries))
	for i := range entries {
		out[i] = &entries[i]
	}
	return out, nil
}
