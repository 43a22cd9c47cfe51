package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/stockdesk/internal/app"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/bobmcallan/stockdesk/internal/server"
	"github.com/bobmcallan/stockdesk/tests/common"
)

// FinnhubStub answers /stock/profile2 and /quote from fixtures. Unknown
// symbols get an empty object, as the real API does.
type FinnhubStub struct {
	*httptest.Server

	mu       sync.Mutex
	profiles map[string]models.CompanyProfile
	quotes   map[string]models.Quote
	calls    int
}

func newFinnhubStub() *FinnhubStub {
	f := &FinnhubStub{
		profiles: make(map[string]models.CompanyProfile),
		quotes:   make(map[string]models.Quote),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// Add registers a listing whose quote is stamped at.
func (f *FinnhubStub) Add(symbol, name string, price float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[symbol] = models.CompanyProfile{Ticker: symbol, Name: name, Currency: "USD"}
	f.quotes[symbol] = models.Quote{Current: price, Open: price, High: price, Low: price, PreviousClose: price, Timestamp: at.Unix()}
}

// Calls returns the number of upstream requests served.
func (f *FinnhubStub) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FinnhubStub) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if r.URL.Query().Get("token") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"Please use an API key."}`)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/stock/profile2":
		if p, ok := f.profiles[symbol]; ok {
			json.NewEncoder(w).Encode(p)
			return
		}
	case "/quote":
		if q, ok := f.quotes[symbol]; ok {
			json.NewEncoder(w).Encode(q)
			return
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
	io.WriteString(w, "{}")
}

// Env is a running stockdesk server on a real store, backed by a Finnhub stub.
type Env struct {
	t       *testing.T
	App     *app.App
	Server  *httptest.Server
	Finnhub *FinnhubStub
}

// newEnv starts a server on the given storage backend. Container backends
// share one container per test binary and get a fresh database per Env.
func newEnv(t *testing.T, backend string) *Env {
	t.Helper()

	dir := t.TempDir()
	dbName := "api_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]

	var storage string
	switch backend {
	case "surrealdb":
		sc := common.StartSurrealDB(t)
		storage = fmt.Sprintf(`
[storage.surrealdb]
address = %q
username = "root"
password = "root"
namespace = "stockdesk_test"
database = %q
`, sc.Address(), dbName)
	case "mongo":
		mc := common.StartMongo(t)
		storage = fmt.Sprintf(`
[storage.mongo]
uri = %q
database = %q
`, mc.URI(), dbName)
	case "badger":
		storage = fmt.Sprintf(`
[storage.badger]
path = %q
`, filepath.ToSlash(filepath.Join(dir, "badger")))
	}

	stub := newFinnhubStub()
	config := fmt.Sprintf(`
[storage]
backend = %q
%s
[clients.finnhub]
base_url = %q
api_key = "test-token"

[logging]
level = "error"
`, backend, storage, stub.URL)

	configPath := filepath.Join(dir, "stockdesk.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		stub.Close()
		t.Fatalf("write config: %v", err)
	}

	a, err := app.NewApp(configPath)
	if err != nil {
		stub.Close()
		t.Fatalf("NewApp(%s) failed: %v", backend, err)
	}

	return &Env{
		t:       t,
		App:     a,
		Server:  httptest.NewServer(server.NewServer(a).Handler()),
		Finnhub: stub,
	}
}

// Cleanup stops the server, the app and the stub.
func (e *Env) Cleanup() {
	e.Server.Close()
	e.App.Close()
	e.Finnhub.Close()
}

// URL returns the absolute URL for path.
func (e *Env) URL(path string) string {
	return e.Server.URL + path
}

// HTTPGet issues a GET against the server.
func (e *Env) HTTPGet(path string) (*http.Response, error) {
	return http.Get(e.URL(path))
}

// HTTPPost issues a JSON POST against the server.
func (e *Env) HTTPPost(path, body string) (*http.Response, error) {
	return http.Post(e.URL(path), "application/json", strings.NewReader(body))
}

// HTTPDelete issues a DELETE against the server.
func (e *Env) HTTPDelete(path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodDelete, e.URL(path), nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

// DecodeJSON decodes and closes the response body.
func (e *Env) DecodeJSON(resp *http.Response, v interface{}) {
	e.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		e.t.Fatalf("decode %s response: %v", resp.Request.URL.Path, err)
	}
}
