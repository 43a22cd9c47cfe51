package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

type watchlistRecord struct {
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"added_at"`
}

// WatchlistStore keeps one record per symbol in the watchlist table.
type WatchlistStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

var _ interfaces.WatchlistStore = (*WatchlistStore)(nil)

func NewWatchlistStore(db *surrealdb.DB, logger *common.Logger) *WatchlistStore {
	return &WatchlistStore{
		db:     db,
		logger: logger,
	}
}

func watchlistRID(symbol string) surrealmodels.RecordID {
	return surrealmodels.NewRecordID(tableWatchlist, symbol)
}

func (s *WatchlistStore) AddEntry(ctx context.Context, entry *models.WatchlistEntry) (bool, error) {
	sql := "CREATE $rid CONTENT $entry"
	vars := map[string]any{
		"rid":   watchlistRID(entry.Symbol),
		"entry": watchlistRecord{Symbol: entry.Symbol, AddedAt: entry.AddedAt.UTC()},
	}

	exists, err := s.has(ctx, entry.Symbol)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		// A concurrent add won the race; the set semantics still hold.
		if exists, herr := s.has(ctx, entry.Symbol); herr == nil && exists {
			return false, nil
		}
		return false, fmt.Errorf("failed to add %s to watchlist: %w", entry.Symbol, err)
	}
	s.logger.Debug().Str("symbol", entry.Symbol).Msg("Watchlist entry added")
	return true, nil
}

func (s *WatchlistStore) RemoveEntry(ctx context.Context, symbol string) (bool, error) {
	deleted, err := surrealdb.Delete[watchlistRecord](ctx, s.db, watchlistRID(symbol))
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	if deleted == nil || deleted.Symbol == "" {
		return false, nil
	}
	s.logger.Debug().Str("symbol", symbol).Msg("Watchlist entry removed")
	return true, nil
}

func (s *WatchlistStore) GetEntry(ctx context.Context, symbol string) (*models.WatchlistEntry, error) {
	rec, err := surrealdb.Select[watchlistRecord](ctx, s.db, watchlistRID(symbol))
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("watchlist entry %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select watchlist entry %s: %w", symbol, err)
	}
	if rec == nil || rec.Symbol == "" {
		return nil, fmt.Errorf("watchlist entry %s: %w", symbol, models.ErrNotFound)
	}
	return &models.WatchlistEntry{Symbol: rec.Symbol, AddedAt: rec.AddedAt}, nil
}

func (s *WatchlistStore) ListEntries(ctx context.Context) ([]*models.WatchlistEntry, error) {
	results, err := surrealdb.Query[[]watchlistRecord](ctx, s.db, "SELECT * FROM watchlist", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}

	var entries []*models.WatchlistEntry
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			entries = append(entries, &models.WatchlistEntry{Symbol: r.Symbol, AddedAt: r.AddedAt})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
	return entries, nil
}

func (s *WatchlistStore) has(ctx context.Context, symbol string) (bool, error) {
	_, err := s.GetEntry(ctx, symbol)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return false, err
}
