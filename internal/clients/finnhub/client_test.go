package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile_ParsesResponse(t *testing.T) {
	mockResp := map[string]interface{}{
		"country":              "US",
		"currency":             "USD",
		"exchange":             "NASDAQ NMS - GLOBAL MARKET",
		"finnhubIndustry":      "Technology",
		"ipo":                  "1980-12-12",
		"logo":                 "https://static2.finnhub.io/file/publicdatany/finnhubimage/stock_logo/AAPL.png",
		"marketCapitalization": 2900000.5,
		"name":                 "Apple Inc",
		"ticker":               "AAPL",
		"weburl":               "https://www.apple.com/",
	}

	var capturedPath, capturedSymbol, capturedToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedSymbol = r.URL.Query().Get("symbol")
		capturedToken = r.URL.Query().Get("token")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockResp)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	profile, err := client.GetProfile(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "/stock/profile2", capturedPath)
	assert.Equal(t, "AAPL", capturedSymbol)
	assert.Equal(t, "test-key", capturedToken)
	assert.Equal(t, "AAPL", profile.Ticker)
	assert.Equal(t, "Apple Inc", profile.Name)
	assert.Equal(t, "Technology", profile.Industry)
	assert.Equal(t, "1980-12-12", profile.IPO)
	assert.Equal(t, 2900000.5, profile.MarketCapitalization)
	assert.True(t, profile.Valid())
}

func TestGetProfile_UnknownSymbolIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	profile, err := client.GetProfile(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.False(t, profile.Valid())
}

func TestGetQuote_ParsesResponse(t *testing.T) {
	ts := int64(1709395200)
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{
			"c": 150.25, "d": 1.5, "dp": 1.0084, "h": 151, "l": 148.9, "o": 149, "pc": 148.75, "t": ts,
		})
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL+"/"))
	quote, err := client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "/quote", capturedPath)
	assert.Equal(t, 150.25, quote.Current)
	assert.Equal(t, 1.5, quote.Change)
	assert.Equal(t, 148.75, quote.PreviousClose)
	assert.True(t, quote.Time().Equal(time.Unix(ts, 0)))
}

func TestGet_NonOKReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"API limit reached. Please try again later."}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.GetQuote(context.Background(), "AAPL")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "/quote", apiErr.Endpoint)
	assert.True(t, apiErr.RateLimited())
	assert.Contains(t, apiErr.Error(), "API limit reached")
}

func TestGet_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.GetProfile(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestGet_TimeoutHonoured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := client.GetQuote(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGet_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.GetProfile(ctx, "AAPL")
	assert.Error(t, err)
}
