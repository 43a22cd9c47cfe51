package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/stockdesk/internal/common"
)

// TestNewApp_InitializesAllServices verifies that NewApp wires every service
// against an embedded store.
func TestNewApp_InitializesAllServices(t *testing.T) {
	configPath := writeTestConfig(t, common.BackendBadger)

	a, err := NewApp(configPath)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Logger)
	require.NotNil(t, a.Storage)
	assert.Equal(t, common.BackendBadger, a.Storage.Backend())
	assert.NotNil(t, a.FinnhubClient)
	assert.NotNil(t, a.MarketService)
	assert.NotNil(t, a.PortfolioService)
	assert.NotNil(t, a.WatchlistService)
	assert.NotNil(t, a.Sessions)
	assert.False(t, a.StartupTime.IsZero())
}

func TestNewApp_MemoryBackend(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, common.BackendMemory))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, common.BackendMemory, a.Storage.Backend())
}

func TestNewApp_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stockdesk.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbackend = \"postgres\"\n"), 0644))

	_, err := NewApp(path)
	assert.Error(t, err)
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	a, err := NewApp(writeTestConfig(t, common.BackendMemory))
	require.NoError(t, err)

	a.Close()
	a.Close()
	assert.Nil(t, a.Storage)
	assert.Nil(t, a.Sessions)
}

func TestResolveConfigPath(t *testing.T) {
	binDir := t.TempDir()

	assert.Equal(t, "explicit.toml", resolveConfigPath("explicit.toml", binDir))

	t.Setenv("STOCKDESK_CONFIG", "/etc/stockdesk.toml")
	assert.Equal(t, "/etc/stockdesk.toml", resolveConfigPath("", binDir))

	t.Setenv("STOCKDESK_CONFIG", "")
	assert.Equal(t, "config/stockdesk.toml", resolveConfigPath("", binDir))

	beside := filepath.Join(binDir, "stockdesk.toml")
	require.NoError(t, os.WriteFile(beside, []byte(""), 0644))
	assert.Equal(t, beside, resolveConfigPath("", binDir))
}

// writeTestConfig creates a minimal config file in a temp directory.
func writeTestConfig(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()

	config := `
[storage]
backend = "` + backend + `"

[storage.badger]
path = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[clients.finnhub]
api_key = "test-key"

[logging]
level = "disabled"
`
	configPath := filepath.Join(dir, "stockdesk.toml")
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}
