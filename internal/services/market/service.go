// Package market resolves validated company profiles and quotes from Finnhub
package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/bobmcallan/stockdesk/internal/clients/finnhub"
	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
)

// Compile-time interface check
var _ interfaces.MarketService = (*Service)(nil)

// Service implements MarketService. Every failure, including a payload that
// does not describe a real listing, surfaces as models.ErrUpstreamUnavailable.
type Service struct {
	client interfaces.FinnhubClient
	logger *common.Logger
}

// NewService creates a new market service
func NewService(client interfaces.FinnhubClient, logger *common.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// GetProfile returns the company profile for symbol
func (s *Service) GetProfile(ctx context.Context, symbol string) (*models.CompanyProfile, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	profile, err := s.client.GetProfile(ctx, sym)
	if err != nil {
		s.logUpstream(err, sym, "profile")
		return nil, fmt.Errorf("profile %s: %w: %w", sym, models.ErrUpstreamUnavailable, err)
	}
	if !profile.Valid() {
		s.logger.Debug().Str("symbol", sym).Msg("Profile payload has no ticker")
		return nil, fmt.Errorf("profile %s: no data: %w", sym, models.ErrUpstreamUnavailable)
	}
	return profile, nil
}

// GetQuote returns the latest quote for symbol
func (s *Service) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	quote, err := s.client.GetQuote(ctx, sym)
	if err != nil {
		s.logUpstream(err, sym, "quote")
		return nil, fmt.Errorf("quote %s: %w: %w", sym, models.ErrUpstreamUnavailable, err)
	}
	if !quote.Valid() {
		s.logger.Debug().Str("symbol", sym).Msg("Quote payload has no current price")
		return nil, fmt.Errorf("quote %s: no data: %w", sym, models.ErrUpstreamUnavailable)
	}
	return quote, nil
}

func (s *Service) logUpstream(err error, symbol, kind string) {
	if errors.Is(err, context.Canceled) {
		return
	}
	event := s.logger.Warn().Err(err).Str("symbol", symbol).Str("kind", kind)
	var apiErr *finnhub.APIError
	if errors.As(err, &apiErr) {
		event = event.Int("status", apiErr.StatusCode).Bool("rate_limited", apiErr.RateLimited())
	}
	event.Msg("Finnhub request failed")
}
