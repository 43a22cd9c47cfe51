package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/stockdesk/internal/app"
	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/bobmcallan/stockdesk/internal/services/market"
	"github.com/bobmcallan/stockdesk/internal/services/portfolio"
	"github.com/bobmcallan/stockdesk/internal/services/session"
	"github.com/bobmcallan/stockdesk/internal/services/watchlist"
	"github.com/bobmcallan/stockdesk/internal/storage/memory"
)

// fakeFinnhub implements interfaces.FinnhubClient from in-memory fixtures.
// Unknown symbols get the empty payloads Finnhub sends for them.
type fakeFinnhub struct {
	mu       sync.Mutex
	profiles map[string]*models.CompanyProfile
	quotes   map[string]*models.Quote
	err      error
}

func newFakeFinnhub() *fakeFinnhub {
	return &fakeFinnhub{
		profiles: make(map[string]*models.CompanyProfile),
		quotes:   make(map[string]*models.Quote),
	}
}

func (f *fakeFinnhub) add(symbol, name string, price float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[symbol] = &models.CompanyProfile{Ticker: symbol, Name: name, Exchange: "NASDAQ NMS - GLOBAL MARKET"}
	f.quotes[symbol] = &models.Quote{Current: price, PreviousClose: price - 1, Timestamp: at.Unix()}
}

func (f *fakeFinnhub) GetProfile(_ context.Context, symbol string) (*models.CompanyProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.profiles[symbol]; ok {
		cp := *p
		return &cp, nil
	}
	return &models.CompanyProfile{}, nil
}

func (f *fakeFinnhub) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if q, ok := f.quotes[symbol]; ok {
		cp := *q
		return &cp, nil
	}
	return &models.Quote{}, nil
}

// newTestServer builds a server over the memory store and a fake Finnhub.
func newTestServer(t *testing.T) (*Server, *fakeFinnhub) {
	t.Helper()

	logger := common.NewLoggerFromConfig(common.LoggingConfig{Level: "disabled"})
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = common.BackendMemory

	store := memory.NewManager(logger)
	fh := newFakeFinnhub()
	marketSvc := market.NewService(fh, logger)

	a := &app.App{
		Config:           cfg,
		Logger:           logger,
		Storage:          store,
		FinnhubClient:    fh,
		MarketService:    marketSvc,
		PortfolioService: portfolio.NewService(store, decimal.NewFromInt(25000), logger),
		WatchlistService: watchlist.NewService(store, logger),
		Sessions:         session.NewRegistry(marketSvc, session.Options{}, time.Hour, logger),
		StartupTime:      time.Now(),
	}
	t.Cleanup(a.Close)

	s := &Server{app: a, logger: logger}
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.server = &http.Server{Handler: applyMiddleware(mux, logger)}
	return s, fh
}

// do sends a request through the full middleware stack.
func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	decodeBody(t, rec, &m)
	return m
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}
