package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bobmcallan/stockdesk/internal/models"
)

type watchlistResponse struct {
	Symbol      string `json:"symbol"`
	InWatchlist bool   `json:"inWatchlist"`
	Message     string `json:"message"`
}

// handleWatchlistAdd handles POST /api/watchlist.
func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		Symbol string `json:"symbol"`
	}
	if !DecodeJSON(w, r, &body) {
		return
	}

	sym, err := models.NormalizeSymbol(body.Symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.app.WatchlistService.Add(r.Context(), sym); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, watchlistResponse{
		Symbol:      sym,
		InWatchlist: true,
		Message:     fmt.Sprintf("%s added to watchlist.", sym),
	})
}

// handleWatchlistRemove handles DELETE /api/watchlist/{symbol}.
func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	symbol := PathParam(r, "/api/watchlist/", "")
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.app.WatchlistService.Remove(r.Context(), sym); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, watchlistResponse{
		Symbol:  sym,
		Message: fmt.Sprintf("%s removed from watchlist.", sym),
	})
}

// handleWatchlistList handles GET /api/stocks-watchlist.
func (s *Server) handleWatchlistList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbols, err := s.app.WatchlistService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	WriteJSON(w, http.StatusOK, symbols)
}

// handleStockStatus handles GET /api/stock-status/{symbol}.
func (s *Server) handleStockStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := strings.TrimPrefix(r.URL.Path, "/api/stock-status/")
	in, err := s.app.WatchlistService.Contains(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"inWatchlist": in})
}
