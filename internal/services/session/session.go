// Package session holds per-client market view state: the selected symbol,
// its profile and quote, and a refresh loop that keeps the quote current
// while the market is open.
package session

import (
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/models"
)

// Status is the lifecycle stage of a cache.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusFailed  Status = "failed"
)

// NoDataNotice is shown after a lookup that produced no usable data.
const NoDataNotice = "No data found"

// Snapshot is a point-in-time copy of a cache.
type Snapshot struct {
	Symbol         string                 `json:"symbol"`
	Status         Status                 `json:"status"`
	Profile        *models.CompanyProfile `json:"profile,omitempty"`
	Quote          *models.Quote          `json:"quote,omitempty"`
	LastAPISuccess bool                   `json:"lastApiSuccess"`
	MarketOpen     bool                   `json:"marketOpen"`
	// Refreshing is true while the refresh loop is scheduled for Symbol.
	Refreshing bool      `json:"refreshing"`
	Notice     string    `json:"notice,omitempty"`
	Version    uint64    `json:"version"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Ticker is the part of time.Ticker the refresh loop uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Options tune a cache. Zero fields fall back to the package defaults.
type Options struct {
	RefreshInterval  time.Duration
	MarketOpenWindow time.Duration
	NoticeDuration   time.Duration
	Now              func() time.Time
	NewTicker        TickerFunc
}

// OptionsFromConfig builds Options from the session config section.
func OptionsFromConfig(cfg *common.SessionConfig) Options {
	return Options{
		RefreshInterval:  cfg.GetRefreshInterval(),
		MarketOpenWindow: cfg.GetMarketOpenWindow(),
		NoticeDuration:   cfg.GetNoticeDuration(),
	}
}

func (o Options) withDefaults() Options {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = common.QuoteRefreshInterval
	}
	if o.MarketOpenWindow <= 0 {
		o.MarketOpenWindow = common.MarketOpenWindow
	}
	if o.NoticeDuration <= 0 {
		o.NoticeDuration = common.NoticeDuration
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewTicker == nil {
		o.NewTicker = NewRealTicker
	}
	return o
}
