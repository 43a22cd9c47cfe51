// Package interfaces defines service contracts for stockdesk
package interfaces

import (
	"context"

	"github.com/bobmcallan/stockdesk/internal/models"
)

// FinnhubClient provides access to the Finnhub market data API
type FinnhubClient interface {
	// GetProfile retrieves the company profile (/stock/profile2)
	GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error)

	// GetQuote retrieves the latest quote (/quote)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}
