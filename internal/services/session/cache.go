package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
)

// ErrClosed is returned by Select on a cache that has been closed.
var ErrClosed = fmt.Errorf("session closed: %w", models.ErrNotFound)

// Cache is one client's market view.
//
// Select, Clear and Close are serialized by opMu and each stops the refresh
// loop, waiting for its goroutine to exit, before touching state. The loop
// only writes state while its generation is current.
type Cache struct {
	market interfaces.MarketService
	logger *common.Logger
	opts   Options

	opMu sync.Mutex

	mu          sync.Mutex
	state       Snapshot
	noticeUntil time.Time
	noticeTimer *time.Timer
	generation  uint64
	closed      bool
	subs        map[int]chan Snapshot
	nextSub     int
	cancelLoop  context.CancelFunc
	loopDone    chan struct{}
}

// NewCache creates an empty cache resolving data through market.
func NewCache(market interfaces.MarketService, opts Options, logger *common.Logger) *Cache {
	opts = opts.withDefaults()
	return &Cache{
		market: market,
		logger: logger,
		opts:   opts,
		state:  Snapshot{Status: StatusEmpty, UpdatedAt: opts.Now().UTC()},
		subs:   make(map[int]chan Snapshot),
	}
}

// Select makes symbol the active symbol and loads its profile and quote.
// Fetch failures do not return an error: the cache moves to StatusFailed and
// shows NoDataNotice. A fresh quote starts the refresh loop. If ctx ends
// before the data arrives the cache is left empty and ctx.Err() is returned.
func (c *Cache) Select(ctx context.Context, symbol string) (Snapshot, error) {
	sym, err := models.NormalizeSymbol(symbol)
	if err != nil {
		return c.Snapshot(), err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopLoop()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	c.generation++
	gen := c.generation
	c.resetLocked(Snapshot{Symbol: sym, Status: StatusLoading})
	c.mu.Unlock()

	profile, quote, ok := c.fetch(ctx, sym)

	c.mu.Lock()
	if !ok && ctx.Err() != nil {
		// The caller gave up, which says nothing about the symbol.
		c.resetLocked(Snapshot{Status: StatusEmpty})
		snap := c.snapshotLocked(c.opts.Now())
		c.mu.Unlock()
		c.logger.Debug().Str("symbol", sym).Msg("Symbol select abandoned")
		return snap, ctx.Err()
	}
	now := c.opts.Now()
	open := false
	if ok {
		open = c.applyLoadedLocked(profile, quote, now)
		c.state.Refreshing = open
		c.logger.Info().Str("symbol", sym).Bool("market_open", open).Msg("Symbol selected")
	} else {
		c.applyFailedLocked(gen, now)
		c.logger.Info().Str("symbol", sym).Msg("Symbol selected, no data")
	}
	c.publishLocked(now)
	snap := c.snapshotLocked(now)
	if open {
		c.startLoopLocked(sym, gen)
	}
	c.mu.Unlock()

	return snap, nil
}

// Clear stops any refresh and resets the cache to StatusEmpty.
func (c *Cache) Clear() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopLoop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.generation++
	c.resetLocked(Snapshot{Status: StatusEmpty})
	c.publishLocked(c.opts.Now())
}

// Close stops the cache for good and ends every subscription.
func (c *Cache) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stopLoop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.stopNoticeLocked()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// Snapshot returns the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.opts.Now())
}

// Subscribe returns a channel that receives the current snapshot and then
// every change. Slow readers only see the latest state. The returned func
// ends the subscription and closes the channel.
func (c *Cache) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked(c.opts.Now())
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
}

// fetch loads profile and quote concurrently. ok is false unless both arrive
// and describe a real listing.
func (c *Cache) fetch(ctx context.Context, sym string) (*models.CompanyProfile, *models.Quote, bool) {
	var (
		g       errgroup.Group
		profile *models.CompanyProfile
		quote   *models.Quote
	)
	g.Go(func() error {
		p, err := c.market.GetProfile(ctx, sym)
		profile = p
		return err
	})
	g.Go(func() error {
		q, err := c.market.GetQuote(ctx, sym)
		quote = q
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Debug().Err(err).Str("symbol", sym).Msg("Market data fetch failed")
		}
		return nil, nil, false
	}
	if !profile.Valid() || !quote.Valid() {
		return nil, nil, false
	}
	return profile, quote, true
}

// refresh runs one tick. It returns false when the loop should end.
func (c *Cache) refresh(ctx context.Context, sym string, gen uint64) bool {
	c.mu.Lock()
	if c.generation != gen || ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	c.state.Status = StatusLoading
	c.publishLocked(c.opts.Now())
	c.mu.Unlock()

	profile, quote, ok := c.fetch(ctx, sym)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A stopped loop leaves state to whoever stopped it.
	if c.generation != gen || ctx.Err() != nil {
		return false
	}

	now := c.opts.Now()
	if !ok {
		c.applyFailedLocked(gen, now)
		c.publishLocked(now)
		c.logger.Info().Str("symbol", sym).Msg("Quote refresh failed, auto refresh stopped")
		return false
	}

	open := c.applyLoadedLocked(profile, quote, now)
	c.state.Refreshing = open
	c.publishLocked(now)
	if !open {
		c.logger.Info().Str("symbol", sym).Msg("Quote no longer fresh, auto refresh stopped")
	}
	return open
}

func (c *Cache) refreshLoop(ctx context.Context, sym string, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := c.opts.NewTicker(c.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !c.refresh(ctx, sym, gen) {
				return
			}
			// Drop a tick that arrived while the refresh was in flight.
			select {
			case <-ticker.C():
			default:
			}
		}
	}
}

// startLoopLocked launches the refresh goroutine. Caller holds mu and opMu.
func (c *Cache) startLoopLocked(sym string, gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancelLoop = cancel
	c.loopDone = done
	go c.refreshLoop(ctx, sym, gen, done)
}

// stopLoop cancels the refresh goroutine and waits for it. Caller holds opMu
// but not mu.
func (c *Cache) stopLoop() {
	c.mu.Lock()
	cancel, done := c.cancelLoop, c.loopDone
	c.cancelLoop, c.loopDone = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (c *Cache) resetLocked(s Snapshot) {
	c.stopNoticeLocked()
	version := c.state.Version
	c.state = s
	c.state.Version = version
	c.publishLocked(c.opts.Now())
}

func (c *Cache) applyLoadedLocked(profile *models.CompanyProfile, quote *models.Quote, now time.Time) bool {
	open := common.IsFreshAt(quote.Time(), c.opts.MarketOpenWindow, now)
	c.state.Status = StatusLoaded
	c.state.Profile = profile
	c.state.Quote = quote
	c.state.LastAPISuccess = true
	c.state.MarketOpen = open
	c.state.Notice = ""
	return open
}

func (c *Cache) applyFailedLocked(gen uint64, now time.Time) {
	c.state.Status = StatusFailed
	c.state.Profile = nil
	c.state.Quote = nil
	c.state.LastAPISuccess = false
	c.state.MarketOpen = false
	c.state.Refreshing = false
	c.state.Notice = NoDataNotice
	c.noticeUntil = now.Add(c.opts.NoticeDuration)

	// Push the hide to subscribers; Snapshot also hides it by clock.
	c.stopNoticeLocked()
	c.noticeTimer = time.AfterFunc(c.opts.NoticeDuration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == gen && c.state.Notice != "" {
			c.state.Notice = ""
			c.publishLocked(c.opts.Now())
		}
	})
}

func (c *Cache) stopNoticeLocked() {
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
		c.noticeTimer = nil
	}
}

func (c *Cache) snapshotLocked(now time.Time) Snapshot {
	s := c.state
	if s.Notice != "" && !now.Before(c.noticeUntil) {
		s.Notice = ""
	}
	return s
}

// publishLocked bumps the version and hands the new state to subscribers.
func (c *Cache) publishLocked(now time.Time) {
	c.state.Version++
	c.state.UpdatedAt = now.UTC()
	snap := c.snapshotLocked(now)
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
