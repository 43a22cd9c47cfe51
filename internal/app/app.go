package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/stockdesk/internal/clients/finnhub"
	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/interfaces"
	"github.com/bobmcallan/stockdesk/internal/services/market"
	"github.com/bobmcallan/stockdesk/internal/services/portfolio"
	"github.com/bobmcallan/stockdesk/internal/services/session"
	"github.com/bobmcallan/stockdesk/internal/services/watchlist"
	"github.com/bobmcallan/stockdesk/internal/storage"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	FinnhubClient    interfaces.FinnhubClient
	MarketService    interfaces.MarketService
	PortfolioService interfaces.PortfolioService
	WatchlistService interfaces.WatchlistService
	Sessions         *session.Registry
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath picks the config file: explicit path, STOCKDESK_CONFIG,
// stockdesk.toml next to the binary, then config/stockdesk.toml.
func resolveConfigPath(configPath, binDir string) string {
	if configPath == "" {
		configPath = os.Getenv("STOCKDESK_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "stockdesk.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/stockdesk.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp initializes config, logging, storage, the Finnhub client and all
// services. configPath may be empty, in which case the default resolution
// logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	configPath = resolveConfigPath(configPath, binDir)

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative badger path to binary directory
	if p := config.Storage.Badger.Path; p != "" && !filepath.IsAbs(p) {
		config.Storage.Badger.Path = filepath.Join(binDir, p)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	fh := config.Clients.Finnhub
	if fh.APIKey == "" {
		logger.Warn().Msg("Finnhub API key not configured - market lookups will fail")
	}
	finnhubClient := finnhub.NewClient(fh.APIKey,
		finnhub.WithBaseURL(fh.BaseURL),
		finnhub.WithLogger(logger),
		finnhub.WithRateLimit(fh.RateLimit),
		finnhub.WithTimeout(fh.GetTimeout()),
	)

	marketService := market.NewService(finnhubClient, logger)
	portfolioService := portfolio.NewService(storageManager, config.Portfolio.GetInitialBalance(), logger)
	watchlistService := watchlist.NewService(storageManager, logger)

	sessions := session.NewRegistry(marketService,
		session.OptionsFromConfig(&config.Session),
		config.Session.GetIdleTimeout(),
		logger,
	)
	sessions.Start()

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		FinnhubClient:    finnhubClient,
		MarketService:    marketService,
		PortfolioService: portfolioService,
		WatchlistService: watchlistService,
		Sessions:         sessions,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("environment", config.Environment).
		Str("backend", storageManager.Backend()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
// Shutdown order: close sessions (stops refresh loops), then storage.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.CloseAll()
		a.Sessions = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}
