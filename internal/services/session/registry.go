package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
)

type entry struct {
	cache    *Cache
	lastUsed time.Time
}

// Registry owns the live caches, one per client session, and closes those
// left idle past the timeout.
type Registry struct {
	market      interfaces.MarketService
	opts        Options
	idleTimeout time.Duration
	logger      *common.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewRegistry creates an empty registry. A non-positive idleTimeout uses
// common.SessionIdleTimeout.
func NewRegistry(market interfaces.MarketService, opts Options, idleTimeout time.Duration, logger *common.Logger) *Registry {
	opts = opts.withDefaults()
	if idleTimeout <= 0 {
		idleTimeout = common.SessionIdleTimeout
	}
	return &Registry{
		market:      market,
		opts:        opts,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         opts.Now,
		sessions:    make(map[string]*entry),
		stop:        make(chan struct{}),
	}
}

// Create opens a new session and returns its id (a random UUID).
func (r *Registry) Create() (string, *Cache) {
	id := uuid.New().String()
	c := NewCache(r.market, r.opts, r.logger)

	r.mu.Lock()
	r.sessions[id] = &entry{cache: c, lastUsed: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.logger.Debug().Str("session", id).Int("open", n).Msg("Session created")
	return id, c
}

// Get returns the session and marks it as used.
func (r *Registry) Get(id string) (*Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	e.lastUsed = r.now()
	return e.cache, nil
}

// Close removes the session and stops its refresh loop.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return models.ErrNotFound
	}
	e.cache.Close()
	r.logger.Debug().Str("session", id).Msg("Session closed")
	return nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// evictIdle closes every session unused since now minus the idle timeout
// and returns how many were closed.
func (r *Registry) evictIdle(now time.Time) int {
	r.mu.Lock()
	var idle []*Cache
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) >= r.idleTimeout {
			idle = append(idle, e.cache)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		r.logger.Info().Int("count", len(idle)).Msg("Evicted idle sessions")
	}
	return len(idle)
}

// Start runs the idle janitor until CloseAll.
func (r *Registry) Start() {
	interval := r.idleTimeout / 2
	if interval > time.Minute {
		interval = time.Minute
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.evictIdle(r.now())
			}
		}
	}()
}

// CloseAll stops the janitor and closes every session.
func (r *Registry) CloseAll() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range all {
		e.cache.Close()
	}
}
