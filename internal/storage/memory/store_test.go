package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/bobmcallan/stockdesk/internal/storage/storetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	return NewManager(common.NewSilentLogger())
}

func TestPortfolioStore(t *testing.T) {
	storetest.RunPortfolioStore(t, newManager)
}

func TestWatchlistStore(t *testing.T) {
	storetest.RunWatchlistStore(t, newManager)
}

func TestApplyMutation_OnlyOneWriterWinsPerVersion(t *testing.T) {
	ctx := context.Background()
	store := NewManager(common.NewSilentLogger()).PortfolioStore()
	acct, err := store.EnsureAccount(ctx, decimal.NewFromInt(1000))
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.ApplyMutation(ctx, &models.LedgerMutation{
				Symbol:         "AAPL",
				Holding:        &models.Holding{Symbol: "AAPL", Quantity: decimal.NewFromInt(1), TotalCost: decimal.NewFromInt(10)},
				Balance:        decimal.NewFromInt(990),
				AccountVersion: acct.Version,
			})
		}()
	}
	wg.Wait()
	close(results)

	ok := 0
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, models.ErrConflict)
		}
	}
	assert.Equal(t, 1, ok)
}
