package surrealdb

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/bobmcallan/stockdesk/internal/storage/storetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	m, err := newManager(context.Background(), testDB(t), testLogger())
	require.NoError(t, err)
	return m
}

func TestPortfolioStore(t *testing.T) {
	storetest.RunPortfolioStore(t, newTestManager)
}

func TestWatchlistStore(t *testing.T) {
	storetest.RunWatchlistStore(t, newTestManager)
}

func TestManager_DefinesTablesIdempotently(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := newManager(ctx, db, testLogger())
	require.NoError(t, err)
	m, err := newManager(ctx, db, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "surrealdb", m.Backend())

	holdings, err := m.PortfolioStore().ListHoldings(ctx)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestPortfolioStore_ConcurrentMutationsSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := newTestManager(t).PortfolioStore()
	acct, err := store.EnsureAccount(ctx, decimal.NewFromInt(1000))
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.ApplyMutation(ctx, &models.LedgerMutation{
				Symbol: "AAPL",
				Holding: &models.Holding{
					Symbol:    "AAPL",
					Quantity:  decimal.NewFromInt(1),
					TotalCost: decimal.NewFromInt(100),
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				},
				Balance:        decimal.NewFromInt(900),
				AccountVersion: acct.Version,
				At:             time.Now(),
			})
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one writer may move the account past its version")

	got, err := store.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "900", got.Balance.String())
	assert.Equal(t, acct.Version+1, got.Version)
}

func TestPortfolioStore_SeedLogsOnlyWhenCreated(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	store := NewPortfolioStore(testDB(t), common.NewLoggerWithOutput("info", &buf))

	created, err := store.seedAccount(ctx, decimal.NewFromInt(25000))
	require.NoError(t, err)
	assert.True(t, created)

	// A second seeder loses the CREATE and must not report a seed
	created, err = store.seedAccount(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.False(t, created)

	buf.Reset()
	acct, err := store.EnsureAccount(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(decimal.NewFromInt(25000)))
	assert.NotContains(t, buf.String(), "Account seeded")
}

func TestPortfolioStore_EnsureAccountLogsSeed(t *testing.T) {
	var buf bytes.Buffer
	store := NewPortfolioStore(testDB(t), common.NewLoggerWithOutput("info", &buf))

	_, err := store.EnsureAccount(context.Background(), decimal.NewFromInt(25000))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(buf.String(), "Account seeded"))
}
