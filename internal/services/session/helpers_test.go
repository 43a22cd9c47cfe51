package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/models"
)

// --- Fakes ---

type fakeMarket struct {
	mu       sync.Mutex
	profiles map[string]*models.CompanyProfile
	quotes   map[string]*models.Quote
	fail     bool

	// Quotes for gateSymbol block until a value is sent on gate or the
	// context ends.
	gateSymbol string
	gate       chan struct{}

	profileCalls atomic.Int32
	quoteCalls   atomic.Int32
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		profiles: make(map[string]*models.CompanyProfile),
		quotes:   make(map[string]*models.Quote),
		gate:     make(chan struct{}),
	}
}

func (f *fakeMarket) set(symbol string, price float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[symbol] = &models.CompanyProfile{Ticker: symbol, Name: symbol + " Corp", Exchange: "NASDAQ"}
	f.quotes[symbol] = &models.Quote{Current: price, Timestamp: at.Unix()}
}

func (f *fakeMarket) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeMarket) GetProfile(_ context.Context, symbol string) (*models.CompanyProfile, error) {
	f.profileCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, models.ErrUpstreamUnavailable
	}
	p, ok := f.profiles[symbol]
	if !ok {
		return &models.CompanyProfile{}, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeMarket) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.quoteCalls.Add(1)

	f.mu.Lock()
	gated := f.gateSymbol != "" && f.gateSymbol == symbol
	f.mu.Unlock()
	if gated {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, models.ErrUpstreamUnavailable
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return &models.Quote{}, nil
	}
	cp := *q
	return &cp, nil
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

// tick delivers a tick without blocking when one is already pending.
func (m *manualTicker) tick() {
	select {
	case m.ch <- time.Now():
	default:
	}
}

type tickerFactory struct {
	created chan *manualTicker
	count   atomic.Int32
}

func newTickerFactory() *tickerFactory {
	return &tickerFactory{created: make(chan *manualTicker, 16)}
}

func (f *tickerFactory) New(time.Duration) Ticker {
	f.count.Add(1)
	t := &manualTicker{ch: make(chan time.Time, 1)}
	f.created <- t
	return t
}

func (f *tickerFactory) next(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-f.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("refresh loop did not create a ticker")
		return nil
	}
}

type harness struct {
	market  *fakeMarket
	clock   *manualClock
	tickers *tickerFactory
	cache   *Cache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		market:  newFakeMarket(),
		clock:   newManualClock(),
		tickers: newTickerFactory(),
	}
	h.cache = NewCache(h.market, h.options(), common.NewSilentLogger())
	t.Cleanup(h.cache.Close)
	return h
}

func (h *harness) options() Options {
	return Options{
		RefreshInterval:  15 * time.Second,
		MarketOpenWindow: 5 * time.Minute,
		NoticeDuration:   5 * time.Second,
		Now:              h.clock.Now,
		NewTicker:        h.tickers.New,
	}
}

// waitFor reads snapshots until match returns true.
func waitFor(t *testing.T, ch <-chan Snapshot, match func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed")
			}
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}
