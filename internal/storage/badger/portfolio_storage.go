package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"
	"github.com/timshannon/badgerhold/v4"
)

type portfolioStorage struct {
	store  *Store
	logger *common.Logger
}

var _ interfaces.PortfolioStore = (*portfolioStorage)(nil)

// NewPortfolioStorage creates a PortfolioStore backed by BadgerHold.
func NewPortfolioStorage(store *Store, logger *common.Logger) *portfolioStorage {
	return &portfolioStorage{store: store, logger: logger}
}

func (s *portfolioStorage) EnsureAccount(_ context.Context, initial decimal.Decimal) (*models.Account, error) {
	var acct models.Account
	err := s.store.update(func(tx *badger.Txn) error {
		err := s.store.db.TxGet(tx, models.AccountID, &acct)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
		acct = models.Account{ID: models.AccountID, Balance: initial, Version: 1}
		return s.store.db.TxInsert(tx, models.AccountID, &acct)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}
	return &acct, nil
}

func (s *portfolioStorage) GetAccount(_ context.Context) (*models.Account, error) {
	var acct models.Account
	if err := s.store.db.Get(models.AccountID, &acct); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("account: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acct, nil
}

func (s *portfolioStorage) GetHolding(_ context.Context, symbol string) (*models.Holding, error) {
	var h models.Holding
	if err := s.store.db.Get(symbol, &h); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("holding %s: %w", symbol, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get holding %s: %w", symbol, err)
	}
	return &h, nil
}

func (s *portfolioStorage) ListHoldings(_ context.Context) ([]*models.Holding, error) {
	var holdings []models.Holding
	if err := s.store.db.Find(&holdings, nil); err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	out := make([]*models.Holding, len(holdings))
	for i := range holdings {
		out[i] = &holdings[i]
	}
	models.SortHoldings(out)
	return out, nil
}

func (s *portfolioStorage) ApplyMutation(_ context.Context, m *models.LedgerMutation) error {
	err := s.store.update(func(tx *badger.Txn) error {
		var acct models.Account
		if err := s.store.db.TxGet(tx, models.AccountID, &acct); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return fmt.Errorf("account missing: %w", models.ErrConflict)
			}
			return err
		}
		if acct.Version != m.AccountVersion {
			return fmt.Errorf("account at version %d, expected %d: %w", acct.Version, m.AccountVersion, models.ErrConflict)
		}

		var current int64
		var existing models.Holding
		switch err := s.store.db.TxGet(tx, m.Symbol, &existing); {
		case err == nil:
			current = existing.Version
		case errors.Is(err, badgerhold.ErrNotFound):
		default:
			return err
		}
		if current != m.HoldingVersion {
			return fmt.Errorf("holding %s at version %d, expected %d: %w", m.Symbol, current, m.HoldingVersion, models.ErrConflict)
		}

		if m.Holding == nil {
			if err := s.store.db.TxDelete(tx, m.Symbol, models.Holding{}); err != nil {
				return err
			}
		} else {
			h := *m.Holding
			h.Version = current + 1
			if err := s.store.db.TxUpsert(tx, m.Symbol, &h); err != nil {
				return err
			}
		}

		acct.Balance = m.Balance
		acct.Version++
		acct.UpdatedAt = m.At
		return s.store.db.TxUpsert(tx, models.AccountID, &acct)
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to apply ledger mutation for %s: %w", m.Symbol, err)
	}

	s.logger.Debug().Str("symbol", m.Symbol).Str("balance", m.Balance.StringFixed(2)).Bool("deleted", m.Holding == nil).Msg("Ledger mutation applied")
	return nil
}
