package server

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/stockdesk/internal/models"
)

// tradeRequest is the body of /api/buy and /api/sell. Either the unit price or
// the total for the whole order is given; the browser client sends totalCost.
type tradeRequest struct {
	Symbol    string           `json:"symbol"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	TotalCost *decimal.Decimal `json:"totalCost,omitempty"`
}

// unitPrice resolves the per-share price of the order.
func (t *tradeRequest) unitPrice() (decimal.Decimal, error) {
	switch {
	case t.Price != nil:
		return *t.Price, nil
	case t.TotalCost != nil:
		if !t.Quantity.IsPositive() {
			return decimal.Zero, fmt.Errorf("quantity must be positive, got %s: %w", t.Quantity, models.ErrInvalidArgument)
		}
		return t.TotalCost.Div(t.Quantity), nil
	default:
		return decimal.Zero, fmt.Errorf("price or totalCost is required: %w", models.ErrInvalidArgument)
	}
}

type tradeResponse struct {
	*models.TradeResult
	Message string `json:"message"`
}

type holdingView struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

type checkResponse struct {
	Symbol   string           `json:"symbol"`
	Held     bool             `json:"held"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// handleBuy handles POST /api/buy.
func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req tradeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	price, err := req.unitPrice()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.app.PortfolioService.Buy(r.Context(), req.Symbol, req.Quantity, price)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if result.Created {
		WriteJSON(w, http.StatusCreated, tradeResponse{TradeResult: result, Message: "Stock purchased successfully"})
		return
	}
	WriteJSON(w, http.StatusOK, tradeResponse{TradeResult: result, Message: "Stock updated successfully"})
}

// handleSell handles POST /api/sell.
func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req tradeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	price, err := req.unitPrice()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	result, err := s.app.PortfolioService.Sell(r.Context(), req.Symbol, req.Quantity, price)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, tradeResponse{TradeResult: result, Message: "Stock sold successfully"})
}

// handlePortfolioCheck handles GET /api/portfolio/check?symbol= and POST /api/portfolio/check.
func (s *Server) handlePortfolioCheck(w http.ResponseWriter, r *http.Request) {
	var symbol string
	switch r.Method {
	case http.MethodGet:
		symbol = r.URL.Query().Get("symbol")
	case http.MethodPost:
		var body struct {
			Symbol string `json:"symbol"`
		}
		if !DecodeJSON(w, r, &body) {
			return
		}
		symbol = body.Symbol
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
		return
	}

	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	qty, held, err := s.app.PortfolioService.CheckHolding(r.Context(), sym)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if !held {
		WriteJSON(w, http.StatusOK, checkResponse{
			Symbol:  sym,
			Message: "Stock symbol not found in the portfolio",
		})
		return
	}
	WriteJSON(w, http.StatusOK, checkResponse{Symbol: sym, Held: true, Quantity: &qty})
}

// handlePortfolioList handles GET /api/portfolio.
func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	holdings, err := s.app.PortfolioService.ListHoldings(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	views := make([]holdingView, 0, len(holdings))
	for _, h := range holdings {
		views = append(views, holdingView{Symbol: h.Symbol, Quantity: h.Quantity, TotalCost: h.TotalCost})
	}
	WriteJSON(w, http.StatusOK, views)
}

// handlePortfolioBalance handles GET /api/portfolio/balance.
func (s *Server) handlePortfolioBalance(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	balance, err := s.app.PortfolioService.GetBalance(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]decimal.Decimal{"balance": balance})
}
