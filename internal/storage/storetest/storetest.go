// Package storetest holds the behaviour every storage backend must share.
// Backend packages call the Run functions from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewManagerFunc returns an empty store for a single test.
type NewManagerFunc func(t *testing.T) interfaces.StorageManager

var base = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func holding(symbol, qty, cost string, at time.Time) *models.Holding {
	return &models.Holding{
		Symbol:    symbol,
		Quantity:  dec(qty),
		TotalCost: dec(cost),
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// RunPortfolioStore exercises the account and holding contract.
func RunPortfolioStore(t *testing.T, newManager NewManagerFunc) {
	t.Run("AccountMissingBeforeSeed", func(t *testing.T) {
		store := newManager(t).PortfolioStore()
		_, err := store.GetAccount(context.Background())
		assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
	})

	t.Run("EnsureAccountSeedsOnce", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()

		acct, err := store.EnsureAccount(ctx, dec("25000.00"))
		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(dec("25000")), "balance %s", acct.Balance)
		assert.Equal(t, int64(1), acct.Version)

		again, err := store.EnsureAccount(ctx, dec("10"))
		require.NoError(t, err)
		assert.True(t, again.Balance.Equal(dec("25000")), "second seed must not overwrite, got %s", again.Balance)
		assert.Equal(t, acct.Version, again.Version)
	})

	t.Run("HoldingMissing", func(t *testing.T) {
		store := newManager(t).PortfolioStore()
		_, err := store.GetHolding(context.Background(), "AAPL")
		assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
	})

	t.Run("ApplyMutationCreatesHolding", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()
		acct, err := store.EnsureAccount(ctx, dec("25000"))
		require.NoError(t, err)

		err = store.ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         "AAPL",
			Holding:        holding("AAPL", "10", "1500", base),
			HoldingVersion: 0,
			Balance:        dec("23500"),
			AccountVersion: acct.Version,
			At:             base,
		})
		require.NoError(t, err)

		h, err := store.GetHolding(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, h.Quantity.Equal(dec("10")))
		assert.True(t, h.TotalCost.Equal(dec("1500")))
		assert.Equal(t, int64(1), h.Version)
		assert.True(t, h.CreatedAt.Equal(base))

		got, err := store.GetAccount(ctx)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(dec("23500")))
		assert.Equal(t, acct.Version+1, got.Version)
	})

	t.Run("ApplyMutationKeepsCents", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()
		acct, err := store.EnsureAccount(ctx, dec("100"))
		require.NoError(t, err)

		require.NoError(t, store.ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         "BRK.B",
			Holding:        holding("BRK.B", "0.5", "0.01", base),
			Balance:        dec("99.99"),
			AccountVersion: acct.Version,
			At:             base,
		}))

		h, err := store.GetHolding(ctx, "BRK.B")
		require.NoError(t, err)
		assert.Equal(t, "0.5", h.Quantity.String())
		assert.Equal(t, "0.01", h.TotalCost.String())

		got, err := store.GetAccount(ctx)
		require.NoError(t, err)
		assert.Equal(t, "99.99", got.Balance.String())
	})

	t.Run("StaleAccountVersionConflicts", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()
		acct, err := store.EnsureAccount(ctx, dec("25000"))
		require.NoError(t, err)

		err = store.ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         "AAPL",
			Holding:        holding("AAPL", "1", "150", base),
			Balance:        dec("24850"),
			AccountVersion: acct.Version + 7,
			At:             base,
		})
		assert.True(t, errors.Is(err, models.ErrConflict), "got %v", err)

		_, err = store.GetHolding(ctx, "AAPL")
		assert.True(t, errors.Is(err, models.ErrNotFound), "holding must not be written on conflict")
		got, err := store.GetAccount(ctx)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(dec("25000")))
		assert.Equal(t, acct.Version, got.Version)
	})

	t.Run("StaleHoldingVersionLeavesAccount", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()
		acct, err := store.EnsureAccount(ctx, dec("25000"))
		require.NoError(t, err)
		require.NoError(t, store.ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         "AAPL",
			Holding:        holding("AAPL", "10", "1500", base),
			Balance:        dec("23500"),
			AccountVersion: acct.Version,
			At:             base,
		}))

		// Claims the holding is absent while it exists at version 1.
		err = store.ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         "AAPL",
			Holding:        holding("AAPL", "5", "750", base),
			HoldingVersion: 0,
			Balance:        dec("22750"),
			AccountVersion: acct.Version + 1,
			At:             base,
		})
		assert.True(t, errors.Is(err, models.ErrConflict), "got %v", err)

		h, err := store.GetHolding(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, h.Quantity.Equal(dec("10")))
		got, err := store.GetAccount(ctx)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(dec("23500")), "account must be unchanged, got %s", got.Balance)
		assert.Equal(t, acct.Version+1, got.Version)
	})

	t.Run("NilHoldingDeletes", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()
		acct, err := store.EnsureAccount(ctx, dec("25000"))
		require.NoError(t, err)
		require.NoError(t, store.ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         "AAPL",
			Holding:        holding("AAPL", "10", "1500", base),
			Balance:        dec("23500"),
			AccountVersion: acct.Version,
			At:             base,
		}))

		require.NoError(t, store.ApplyMutation(ctx, &models.LedgerMutation{
			Symbol:         "AAPL",
			Holding:        nil,
			HoldingVersion: 1,
			Balance:        dec("25200"),
			AccountVersion: acct.Version + 1,
			At:             base.Add(time.Minute),
		}))

		_, err = store.GetHolding(ctx, "AAPL")
		assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
		holdings, err := store.ListHoldings(ctx)
		require.NoError(t, err)
		assert.Empty(t, holdings)
		got, err := store.GetAccount(ctx)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(dec("25200")))
	})

	t.Run("ListHoldingsInsertionOrder", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()
		acct, err := store.EnsureAccount(ctx, dec("25000"))
		require.NoError(t, err)

		version := acct.Version
		for i, sym := range []string{"TSLA", "AAPL", "MSFT"} {
			at := base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, store.ApplyMutation(ctx, &models.LedgerMutation{
				Symbol:         sym,
				Holding:        holding(sym, "1", "100", at),
				Balance:        dec("25000").Sub(decimal.NewFromInt(int64(100 * (i + 1)))),
				AccountVersion: version,
				At:             at,
			}))
			version++
		}

		holdings, err := store.ListHoldings(ctx)
		require.NoError(t, err)
		require.Len(t, holdings, 3)
		assert.Equal(t, "TSLA", holdings[0].Symbol)
		assert.Equal(t, "AAPL", holdings[1].Symbol)
		assert.Equal(t, "MSFT", holdings[2].Symbol)
	})

	t.Run("ListHoldingsSameInstantKeepsSeqOrder", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).PortfolioStore()
		acct, err := store.EnsureAccount(ctx, dec("25000"))
		require.NoError(t, err)

		version := acct.Version
		for i, sym := range []string{"MSFT", "AAPL", "BRK.B"} {
			h := holding(sym, "1", "100", base)
			h.Seq = version
			require.NoError(t, store.ApplyMutation(ctx, &models.LedgerMutation{
				Symbol:         sym,
				Holding:        h,
				Balance:        dec("25000").Sub(decimal.NewFromInt(int64(100 * (i + 1)))),
				AccountVersion: version,
				At:             base,
			}))
			version++
		}

		holdings, err := store.ListHoldings(ctx)
		require.NoError(t, err)
		require.Len(t, holdings, 3)
		assert.Equal(t, []string{"MSFT", "AAPL", "BRK.B"}, []string{holdings[0].Symbol, holdings[1].Symbol, holdings[2].Symbol})
		assert.Equal(t, acct.Version, holdings[0].Seq)
	})
}

// RunWatchlistStore exercises the watchlist set contract.
func RunWatchlistStore(t *testing.T, newManager NewManagerFunc) {
	t.Run("AddIsIdempotent", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).WatchlistStore()

		added, err := store.AddEntry(ctx, &models.WatchlistEntry{Symbol: "AAPL", AddedAt: base})
		require.NoError(t, err)
		assert.True(t, added)

		added, err = store.AddEntry(ctx, &models.WatchlistEntry{Symbol: "AAPL", AddedAt: base.Add(time.Hour)})
		require.NoError(t, err)
		assert.False(t, added)

		e, err := store.GetEntry(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, e.AddedAt.Equal(base), "first add wins")

		entries, err := store.ListEntries(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("RemoveReportsPresence", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).WatchlistStore()

		removed, err := store.RemoveEntry(ctx, "AAPL")
		require.NoError(t, err)
		assert.False(t, removed)

		_, err = store.AddEntry(ctx, &models.WatchlistEntry{Symbol: "AAPL", AddedAt: base})
		require.NoError(t, err)
		removed, err = store.RemoveEntry(ctx, "AAPL")
		require.NoError(t, err)
		assert.True(t, removed)

		_, err = store.GetEntry(ctx, "AAPL")
		assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)
	})

	t.Run("ListEntries", func(t *testing.T) {
		ctx := context.Background()
		store := newManager(t).WatchlistStore()
		for _, sym := range []string{"MSFT", "AAPL", "TSLA"} {
			_, err := store.AddEntry(ctx, &models.WatchlistEntry{Symbol: sym, AddedAt: base})
			require.NoError(t, err)
		}

		entries, err := store.ListEntries(ctx)
		require.NoError(t, err)
		symbols := make([]string, 0, len(entries))
		for _, e := range entries {
			symbols = append(symbols, e.Symbol)
		}
		assert.ElementsMatch(t, []string{"AAPL", "MSFT", "TSLA"}, symbols)
	})
}
