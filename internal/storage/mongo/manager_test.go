package mongo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/storage/storetest"
	tcommon "github.com/bobmcallan/stockdesk/tests/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager connects to the shared container with a database per test.
func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()

	mc := tcommon.StartMongo(t)
	cfg := common.NewDefaultConfig()
	cfg.Storage.Mongo.URI = mc.URI()
	sanitized := strings.NewReplacer("/", "_", " ", "_", ".", "_").Replace(t.Name())
	if len(sanitized) > 40 {
		sanitized = sanitized[len(sanitized)-40:]
	}
	cfg.Storage.Mongo.Database = fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)

	m, err := NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		m.client.Database(cfg.Storage.Mongo.Database).Drop(context.Background())
		m.Close()
	})
	return m
}

func TestPortfolioStore(t *testing.T) {
	storetest.RunPortfolioStore(t, newTestManager)
}

func TestWatchlistStore(t *testing.T) {
	storetest.RunWatchlistStore(t, newTestManager)
}

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.01", "25000", "24999.99", "1350.5", "-0.13", "0.333333"} {
		d := decimal.RequireFromString(s)
		v, err := toDecimal128(d)
		require.NoError(t, err)
		back, err := fromDecimal128(v)
		require.NoError(t, err)
		assert.True(t, d.Equal(back), "%s round-tripped to %s", s, back)
	}
}

func TestNewManager_Unreachable(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Mongo.URI = "mongodb://127.0.0.1:1"
	cfg.Storage.Mongo.Timeout = "300ms"

	_, err := NewManager(common.NewSilentLogger(), cfg)
	assert.Error(t, err)
}
