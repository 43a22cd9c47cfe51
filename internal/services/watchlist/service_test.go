package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/models"
	"github.com/bobmcallan/stockdesk/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(memory.NewManager(common.NewSilentLogger()), common.NewSilentLogger())
}

func TestAdd_Idempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "AAPL"))
	once, err := svc.List(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Add(ctx, "aapl"))
	twice, err := svc.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, once)
	assert.Equal(t, once, twice)
}

func TestRemove_Absent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, "MSFT"))

	err := svc.Remove(ctx, "AAPL")
	assert.True(t, errors.Is(err, models.ErrNotFound), "got %v", err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, list)
}

func TestRemove_Present(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, "MSFT"))

	require.NoError(t, svc.Remove(ctx, "msft"))

	ok, err := svc.Contains(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	err = svc.Remove(ctx, "MSFT")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestContains(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, "TSLA"))

	ok, err := svc.Contains(ctx, " tsla")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Contains(ctx, "NFLX")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList_Sorted(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	for _, sym := range []string{"TSLA", "AAPL", "MSFT"} {
		require.NoError(t, svc.Add(ctx, sym))
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, list)
}

func TestInvalidSymbol(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	assert.True(t, errors.Is(svc.Add(ctx, ""), models.ErrInvalidArgument))
	assert.True(t, errors.Is(svc.Remove(ctx, "!!"), models.ErrInvalidArgument))
	_, err := svc.Contains(ctx, "A B")
	assert.True(t, errors.Is(err, models.ErrInvalidArgument))
}

type brokenWatchlistStore struct {
	interfaces.WatchlistStore
}

func (brokenWatchlistStore) ListEntries(context.Context) ([]*models.WatchlistEntry, error) {
	return nil, errors.New("i/o timeout")
}

type brokenStorage struct {
	interfaces.StorageManager
}

func (brokenStorage) WatchlistStore() interfaces.WatchlistStore { return brokenWatchlistStore{} }

func TestList_StoreFailure(t *testing.T) {
	svc := NewService(brokenStorage{StorageManager: memory.NewManager(common.NewSilentLogger())}, common.NewSilentLogger())

	_, err := svc.List(context.Background())
	assert.True(t, errors.Is(err, models.ErrStoreUnavailable), "got %v", err)
}
