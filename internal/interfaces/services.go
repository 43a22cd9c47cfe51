// Package interfaces defines service contracts for stockdesk
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/shopspring/decimal"
)

// PortfolioService is the mock trading ledger
type PortfolioService interface {
	// Buy adds quantity at unitPrice to the holding and debits the balance
	Buy(ctx context.Context, symbol string, quantity, unitPrice decimal.Decimal) (*models.TradeResult, error)

	// Sell removes quantity at unitPrice from the holding and credits the balance
	Sell(ctx context.Context, symbol string, quantity, unitPrice decimal.Decimal) (*models.TradeResult, error)

	// CheckHolding returns the held quantity, and false when not held
	CheckHolding(ctx context.Context, symbol string) (decimal.Decimal, bool, error)

	// GetBalance returns the cash balance
	GetBalance(ctx context.Context) (decimal.Decimal, error)

	// ListHoldings returns all positions in insertion order
	ListHoldings(ctx context.Context) ([]*models.Holding, error)
}

// WatchlistService manages the watchlist set
type WatchlistService interface {
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, symbol string) error
	Contains(ctx context.Context, symbol string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// MarketService resolves validated market data for a symbol
type MarketService interface {
	GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}
