// Package watchlist provides watchlist management services
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
)

// Compile-time interface check
var _ interfaces.WatchlistService = (*Service)(nil)

// Service implements WatchlistService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a new watchlist service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Add puts symbol on the watchlist. Adding a watched symbol is a no-op.
func (s *Service) Add(ctx context.Context, symbol string) error {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	added, err := s.storage.WatchlistStore().AddEntry(ctx, &models.WatchlistEntry{Symbol: sym, AddedAt: s.now().UTC()})
	if err != nil {
		return storeErr("add to watchlist", err)
	}
	if added {
		s.logger.Info().Str("symbol", sym).Msg("Added to watchlist")
	}
	return nil
}

// Remove takes symbol off the watchlist; models.ErrNotFound when absent
func (s *Service) Remove(ctx context.Context, symbol string) error {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	removed, err := s.storage.WatchlistStore().RemoveEntry(ctx, sym)
	if err != nil {
		return storeErr("remove from watchlist", err)
	}
	if !removed {
		return fmt.Errorf("%s is not on the watchlist: %w", sym, models.ErrNotFound)
	}
	s.logger.Info().Str("symbol", sym).Msg("Removed from watchlist")
	return nil
}

// Contains reports whether symbol is watched
func (s *Service) Contains(ctx context.Context, symbol string) (bool, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return false, err
	}

	_, err = s.storage.WatchlistStore().GetEntry(ctx, sym)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return false, storeErr("check watchlist", err)
}

// List returns the watched symbols sorted alphabetically
func (s *Service) List(ctx context.Context) ([]string, error) {
	entries, err := s.storage.WatchlistStore().ListEntries(ctx)
	if err != nil {
		return nil, storeErr("list watchlist", err)
	}
	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		symbols = append(symbols, e.Symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func storeErr(op string, err error) error {
	if models.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}
