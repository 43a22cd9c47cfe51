package models

import "time"

// WatchlistEntry is a symbol the user keeps an eye on.
type WatchlistEntry struct {
	Symbol  string    `json:"symbol"`
	AddedAt time.Time `json:"addedAt"`
}
