package common

import "time"

// Market data timing defaults
const (
	// MarketOpenWindow is how recent a quote must be for the market to count as open.
	MarketOpenWindow = 5 * time.Minute
	// QuoteRefreshInterval is the polling period for the active symbol while the market is open.
	QuoteRefreshInterval = 15 * time.Second
	// NoticeDuration is how long a "no data found" notice stays visible.
	NoticeDuration = 5 * time.Second
	// SessionIdleTimeout is how long an untouched session survives.
	SessionIdleTimeout = 30 * time.Minute
)

// IsFreshAt returns true if updated is within ttl of now.
func IsFreshAt(updated time.Time, ttl time.Duration, now time.Time) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
