// Package portfolio provides the mock trading ledger
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/shopspring/decimal"
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// maxAttempts bounds the re-read loop when another process moved the
// account or holding between our read and our write.
const maxAttempts = 3

// Service implements PortfolioService.
//
// Every trade touches the shared account, so trades inside the process are
// serialized by mu. Across processes each write is a version compare-and-swap
// and a lost race is recomputed from fresh state.
type Service struct {
	storage        interfaces.StorageManager
	logger         *common.Logger
	initialBalance decimal.Decimal
	now            func() time.Time // injectable clock for testing

	mu sync.Mutex
}

// NewService creates a new ledger seeded with initialBalance on first use
func NewService(storage interfaces.StorageManager, initialBalance decimal.Decimal, logger *common.Logger) *Service {
	return &Service{
		storage:        storage,
		logger:         logger,
		initialBalance: models.Round2(initialBalance),
		now:            time.Now,
	}
}

// Buy adds quantity at unitPrice to the holding and debits the balance
func (s *Service) Buy(ctx context.Context, symbol string, quantity, unitPrice decimal.Decimal) (*models.TradeResult, error) {
	sym, err := validateTrade(symbol, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	cost := models.Round2(quantity.Mul(unitPrice))

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *models.TradeResult
	err = s.withRetry(ctx, sym, func() error {
		acct, existing, err := s.load(ctx, sym)
		if err != nil {
			return err
		}
		if cost.GreaterThan(acct.Balance) {
			return fmt.Errorf("buy %s costs %s, balance is %s: %w", sym, cost.StringFixed(2), acct.Balance.StringFixed(2), models.ErrInsufficientFunds)
		}

		now := s.now().UTC()
		next := &models.Holding{
			Symbol:    sym,
			Quantity:  quantity,
			TotalCost: cost,
			Seq:       acct.Version,
			CreatedAt: now,
			UpdatedAt: now,
		}
		var holdingVersion int64
		if existing != nil {
			next.Quantity = existing.Quantity.Add(quantity)
			next.TotalCost = existing.TotalCost.Add(cost)
			next.Seq = existing.Seq
			next.CreatedAt = existing.CreatedAt
			holdingVersion = existing.Version
		}

		balance := acct.Balance.Sub(cost)
		if err := s.storage.PortfolioStore().ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         sym,
			Holding:        next,
			HoldingVersion: holdingVersion,
			Balance:        balance,
			AccountVersion: acct.Version,
			At:             now,
		}); err != nil {
			return err
		}

		next.Version = holdingVersion + 1
		result = &models.TradeResult{
			Symbol:   sym,
			Holding:  next,
			Amount:   cost,
			Balance:  balance,
			Created:  existing == nil,
			Quantity: next.Quantity,
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", sym).Str("quantity", quantity.String()).Msg("Buy rejected")
		return nil, err
	}

	s.logger.Info().
		Str("symbol", sym).
		Str("quantity", quantity.String()).
		Str("cost", cost.StringFixed(2)).
		Str("balance", result.Balance.StringFixed(2)).
		Bool("new_holding", result.Created).
		Msg("Buy executed")
	return result, nil
}

// Sell removes quantity at unitPrice from the holding and credits the balance.
// The cost basis shrinks in proportion to the quantity sold.
func (s *Service) Sell(ctx context.Context, symbol string, quantity, unitPrice decimal.Decimal) (*models.TradeResult, error) {
	sym, err := validateTrade(symbol, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	proceeds := models.Round2(quantity.Mul(unitPrice))

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *models.TradeResult
	err = s.withRetry(ctx, sym, func() error {
		acct, existing, err := s.load(ctx, sym)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("sell %s: no holding: %w", sym, models.ErrNotFound)
		}
		if quantity.GreaterThan(existing.Quantity) {
			return fmt.Errorf("sell %s %s, holding %s: %w", sym, quantity, existing.Quantity, models.ErrInsufficientQuantity)
		}

		now := s.now().UTC()
		remaining := existing.Quantity.Sub(quantity)
		var next *models.Holding
		if !remaining.IsZero() {
			next = &models.Holding{
				Symbol:    sym,
				Quantity:  remaining,
				TotalCost: models.Round2(existing.TotalCost.Mul(remaining).Div(existing.Quantity)),
				Seq:       existing.Seq,
				CreatedAt: existing.CreatedAt,
				UpdatedAt: now,
			}
		}

		balance := acct.Balance.Add(proceeds)
		if err := s.storage.PortfolioStore().ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         sym,
			Holding:        next,
			HoldingVersion: existing.Version,
			Balance:        balance,
			AccountVersion: acct.Version,
			At:             now,
		}); err != nil {
			return err
		}

		if next != nil {
			next.Version = existing.Version + 1
		}
		result = &models.TradeResult{
			Symbol:   sym,
			Holding:  next,
			Amount:   proceeds,
			Balance:  balance,
			Removed:  next == nil,
			Quantity: remaining,
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", sym).Str("quantity", quantity.String()).Msg("Sell rejected")
		return nil, err
	}

	s.logger.Info().
		Str("symbol", sym).
		Str("quantity", quantity.String()).
		Str("proceeds", proceeds.StringFixed(2)).
		Str("balance", result.Balance.StringFixed(2)).
		Bool("closed", result.Removed).
		Msg("Sell executed")
	return result, nil
}

// CheckHolding returns the held quantity, and false when the symbol is not held
func (s *Service) CheckHolding(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return decimal.Zero, false, err
	}
	h, err := s.storage.PortfolioStore().GetHolding(ctx, sym)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, storeErr("check holding", err)
	}
	return h.Quantity, true, nil
}

// GetBalance returns the cash balance, seeding the account on first use
func (s *Service) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	acct, err := s.storage.PortfolioStore().EnsureAccount(ctx, s.initialBalance)
	if err != nil {
		return decimal.Zero, storeErr("get balance", err)
	}
	return acct.Balance, nil
}

// ListHoldings returns all positions in insertion order
func (s *Service) ListHoldings(ctx context.Context) ([]*models.Holding, error) {
	holdings, err := s.storage.PortfolioStore().ListHoldings(ctx)
	if err != nil {
		return nil, storeErr("list holdings", err)
	}
	return holdings, nil
}

// load reads the account and the holding for sym; the holding is nil when not held.
func (s *Service) load(ctx context.Context, sym string) (*models.Account, *models.Holding, error) {
	store := s.storage.PortfolioStore()

	acct, err := store.EnsureAccount(ctx, s.initialBalance)
	if err != nil {
		return nil, nil, storeErr("load account", err)
	}

	h, err := store.GetHolding(ctx, sym)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return acct, nil, nil
		}
		return nil, nil, storeErr("load holding", err)
	}
	return acct, h, nil
}

// withRetry re-runs op while it loses version races, up to maxAttempts.
func (s *Service) withRetry(ctx context.Context, sym string, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, models.ErrConflict) {
			return storeErr("ledger", err)
		}
		if ctx.Err() != nil {
			return storeErr("ledger", ctx.Err())
		}
		s.logger.Debug().Str("symbol", sym).Int("attempt", attempt).Msg("Ledger version conflict, re-reading")
	}
	return fmt.Errorf("ledger %s: gave up after %d attempts: %w", sym, maxAttempts, err)
}

func validateTrade(symbol string, quantity, unitPrice decimal.Decimal) (string, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return "", err
	}
	if !quantity.IsPositive() {
		return "", fmt.Errorf("quantity must be positive, got %s: %w", quantity, models.ErrInvalidArgument)
	}
	if !unitPrice.IsPositive() {
		return "", fmt.Errorf("price must be positive, got %s: %w", unitPrice, models.ErrInvalidArgument)
	}
	return sym, nil
}

// storeErr keeps domain errors as they are and marks anything else as a store failure.
func storeErr(op string, err error) error {
	if err == nil || models.IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
}
