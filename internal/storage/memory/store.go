// Package memory provides an in-process StorageManager used for tests and
// throwaway local runs. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/shopspring/decimal"
)

// Manager implements interfaces.StorageManager over guarded maps.
type Manager struct {
	portfolio *portfolioStore
	watchlist *watchlistStore
	logger    *common.Logger
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager creates an empty in-memory store.
func NewManager(logger *common.Logger) *Manager {
	return &Manager{
		portfolio: &portfolioStore{holdings: make(map[string]*models.Holding)},
		watchlist: &watchlistStore{entries: make(map[string]*models.WatchlistEntry)},
		logger:    logger,
	}
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore { return m.portfolio }
func (m *Manager) WatchlistStore() interfaces.WatchlistStore { return m.watchlist }
func (m *Manager) Backend() string                           { return common.BackendMemory }
func (m *Manager) Close() error                              { return nil }

type portfolioStore struct {
	mu       sync.RWMutex
	account  *models.Account
	holdings map[string]*models.Holding
}

var _ interfaces.PortfolioStore = (*portfolioStore)(nil)

func (s *portfolioStore) EnsureAccount(_ context.Context, initial decimal.Decimal) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		s.account = &models.Account{ID: models.AccountID, Balance: initial, Version: 1}
	}
	a := *s.account
	return &a, nil
}

func (s *portfolioStore) GetAccount(_ context.Context) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return nil, fmt.Errorf("account: %w", models.ErrNotFound)
	}
	a := *s.account
	return &a, nil
}

func (s *portfolioStore) GetHolding(_ context.Context, symbol string) (*models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holdings[symbol]
	if !ok {
		return nil, fmt.Errorf("holding %s: %w", symbol, models.ErrNotFound)
	}
	return h.Clone(), nil
}

func (s *portfolioStore) ListHoldings(_ context.Context) ([]*models.Holding, error) {
	s.mu.RLock()
	out := make([]*models.Holding, 0, len(s.holdings))
	for _, h := range s.holdings {
		out = append(out, h.Clone())
	}
	s.mu.RUnlock()
	models.SortHoldings(out)
	return out, nil
}

func (s *portfolioStore) ApplyMutation(_ context.Context, m *models.LedgerMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.account == nil || s.account.Version != m.AccountVersion {
		return fmt.Errorf("account version: %w", models.ErrConflict)
	}
	var current int64
	if h, ok := s.holdings[m.Symbol]; ok {
		current = h.Version
	}
	if current != m.HoldingVersion {
		return fmt.Errorf("holding %s version: %w", m.Symbol, models.ErrConflict)
	}

	if m.Holding == nil {
		delete(s.holdings, m.Symbol)
	} else {
		h := m.Holding.Clone()
		h.Version = m.HoldingVersion + 1
		s.holdings[m.Symbol] = h
	}
	s.account = &models.Account{
		ID:        models.AccountID,
		Balance:   m.Balance,
		Version:   m.AccountVersion + 1,
		UpdatedAt: m.At,
	}
	return nil
}

type watchlistStore struct {
	mu      sync.RWMutex
	entries map[string]*models.WatchlistEntry
}

var _ interfaces.WatchlistStore = (*watchlistStore)(nil)

func (s *watchlistStore) AddEntry(_ context.Context, entry *models.WatchlistEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Symbol]; ok {
		return false, nil
	}
	e := *entry
	s.entries[entry.Symbol] = &e
	return true, nil
}

func (s *watchlistStore) RemoveEntry(_ context.Context, symbol string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[symbol]; !ok {
		return false, nil
	}
	delete(s.entries, symbol)
	return true, nil
}

func (s *watchlistStore) GetEntry(_ context.Context, symbol string) (*models.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[symbol]
	if !ok {
		return nil, fmt.Errorf("watchlist entry %s: %w", symbol, models.ErrNotFound)
	}
	c := *e
	return &c, nil
}

func (s *watchlistStore) ListEntries(_ context.Context) ([]*models.WatchlistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.WatchlistEntry, 0, len(s.entries))
	for _, e := range s.entries {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
