// Package models defines data structures for stockdesk
package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AccountID is the key of the singleton cash account.
const AccountID = "main"

// Holding is an open position in one symbol.
type Holding struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"totalCost"`
	Version   int64           `json:"version"`
	// Seq is the account version at which the position was opened. It only
	// grows, so it orders positions by insertion even when CreatedAt ties.
	Seq       int64           `json:"seq"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Clone returns a copy safe to hand out of a store.
func (h *Holding) Clone() *Holding {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

// Account is the mock cash wallet.
type Account struct {
	ID        string          `json:"id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// LedgerMutation is a holding change plus the matching balance change.
// Stores apply it all-or-nothing, and only when both documents are still at
// the expected versions.
type LedgerMutation struct {
	Symbol string
	// Holding is the new state of the position; nil deletes it.
	Holding *Holding
	// HoldingVersion is the version the holding must currently have (0 = absent).
	HoldingVersion int64
	Balance        decimal.Decimal
	AccountVersion int64
	At             time.Time
}

// TradeResult describes the outcome of a buy or sell.
type TradeResult struct {
	Symbol   string          `json:"symbol"`
	Holding  *Holding        `json:"holding,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Balance  decimal.Decimal `json:"balance"`
	Created  bool            `json:"created"`
	Removed  bool            `json:"removed"`
	Quantity decimal.Decimal `json:"quantity"`
}

// SortHoldings orders positions by insertion: Seq, then creation time, then symbol.
func SortHoldings(hs []*Holding) {
	sort.SliceStable(hs, func(i, j int) bool {
		if hs[i].Seq != hs[j].Seq {
			return hs[i].Seq < hs[j].Seq
		}
		if !hs[i].CreatedAt.Equal(hs[j].CreatedAt) {
			return hs[i].CreatedAt.Before(hs[j].CreatedAt)
		}
		return hs[i].Symbol < hs[j].Symbol
	})
}
