package server

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestHandleDescription_ReturnsProfile(t *testing.T) {
	srv, fh := newTestServer(t)
	fh.add("AAPL", "Apple Inc", 189.5, time.Now())

	rec := do(t, srv, http.MethodGet, "/api/description/aapl", "")
	expectStatus(t, rec, http.StatusOK)

	body := decodeMap(t, rec)
	if body["ticker"] != "AAPL" || body["name"] != "Apple Inc" {
		t.Errorf("profile = %v", body)
	}
}

func TestHandleQuote_ReturnsFinnhubFields(t *testing.T) {
	srv, fh := newTestServer(t)
	at := time.Unix(1700000000, 0)
	fh.add("AAPL", "Apple Inc", 189.5, at)

	rec := do(t, srv, http.MethodGet, "/api/quote/AAPL", "")
	expectStatus(t, rec, http.StatusOK)

	body := decodeMap(t, rec)
	if body["c"] != 189.5 {
		t.Errorf("c = %v, want 189.5", body["c"])
	}
	if body["pc"] != 188.5 {
		t.Errorf("pc = %v, want 188.5", body["pc"])
	}
	if body["t"] != 1700000000.0 {
		t.Errorf("t = %v, want 1700000000", body["t"])
	}
}

func TestHandleMarket_UnknownSymbolIsUpstreamError(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/api/description/ZZZZ", "/api/quote/ZZZZ"} {
		rec := do(t, srv, http.MethodGet, path, "")
		expectStatus(t, rec, http.StatusInternalServerError)

		var resp ErrorResponse
		decodeBody(t, rec, &resp)
		if resp.Code != codeUpstreamUnavailable {
			t.Errorf("%s: code = %q, want %q", path, resp.Code, codeUpstreamUnavailable)
		}
	}
}

func TestHandleMarket_TransportErrorHidesCause(t *testing.T) {
	srv, fh := newTestServer(t)
	fh.err = errors.New("dial tcp: connection refused")

	rec := do(t, srv, http.MethodGet, "/api/quote/AAPL", "")
	expectStatus(t, rec, http.StatusInternalServerError)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Error != "Market data unavailable" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestHandleMarket_InvalidSymbol(t *testing.T) {
	srv, _ := newTestServer(t)

	expectStatus(t, do(t, srv, http.MethodGet, "/api/description/", ""), http.StatusBadRequest)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/quote/$$$", ""), http.StatusBadRequest)
}
