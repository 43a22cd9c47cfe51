package server

import (
	"net/http"
)

// handleDescription handles GET /api/description/{symbol}.
func (s *Server) handleDescription(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	profile, err := s.app.MarketService.GetProfile(r.Context(), PathParam(r, "/api/description/", ""))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// handleQuote handles GET /api/quote/{symbol}.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	quote, err := s.app.MarketService.GetQuote(r.Context(), PathParam(r, "/api/quote/", ""))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}
