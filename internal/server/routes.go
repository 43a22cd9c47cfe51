package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/stockdesk/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Ledger
	mux.HandleFunc("/api/buy", s.handleBuy)
	mux.HandleFunc("/api/sell", s.handleSell)
	mux.HandleFunc("/api/portfolio/check", s.handlePortfolioCheck)
	mux.HandleFunc("/api/portfolio/balance", s.handlePortfolioBalance)
	mux.HandleFunc("/api/portfolio", s.handlePortfolioList)

	// Watchlist
	mux.HandleFunc("/api/watchlist/", s.handleWatchlistRemove)
	mux.HandleFunc("/api/watchlist", s.handleWatchlistAdd)
	mux.HandleFunc("/api/stocks-watchlist", s.handleWatchlistList)
	mux.HandleFunc("/api/stock-status/", s.handleStockStatus)

	// Market data
	mux.HandleFunc("/api/description/", s.handleDescription)
	mux.HandleFunc("/api/quote/", s.handleQuote)

	// Market sessions
	mux.HandleFunc("/api/sessions/", s.routeSessions)
	mux.HandleFunc("/api/sessions", s.handleSessionCreate)
}

// routeSessions dispatches /api/sessions/{id}[/action] to the appropriate handler.
func (s *Server) routeSessions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "session id is required in path")
		return
	}

	id, action, _ := strings.Cut(path, "/")

	switch action {
	case "":
		s.handleSession(w, r, id)
	case "select":
		s.handleSessionSelect(w, r, id)
	case "clear":
		s.handleSessionClear(w, r, id)
	case "ws":
		s.handleSessionStream(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.app.Storage.Backend(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}
