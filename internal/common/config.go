// Package common provides shared utilities for stockdesk
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Storage backend names
const (
	BackendSurrealDB = "surrealdb"
	BackendBadger    = "badger"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

// Config holds all configuration for stockdesk
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Portfolio   PortfolioConfig `toml:"portfolio"`
	Session     SessionConfig   `toml:"session"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	Backend   string          `toml:"backend"` // surrealdb | badger | mongo | memory
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
	Badger    BadgerConfig    `toml:"badger"`
	Mongo     MongoConfig     `toml:"mongo"`
}

// SurrealDBConfig holds SurrealDB connection settings
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// BadgerConfig holds the embedded store location
type BadgerConfig struct {
	Path string `toml:"path"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Timeout  string `toml:"timeout"`
}

// GetTimeout parses and returns the connect/operation timeout
func (c *MongoConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Finnhub FinnhubConfig `toml:"finnhub"`
}

// FinnhubConfig holds Finnhub API configuration
type FinnhubConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *FinnhubConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// PortfolioConfig holds mock trading settings
type PortfolioConfig struct {
	InitialBalance string `toml:"initial_balance"`
}

// GetInitialBalance returns the starting wallet as a decimal, rounded to cents.
func (c *PortfolioConfig) GetInitialBalance() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.InitialBalance))
	if err != nil {
		return decimal.NewFromInt(25000)
	}
	return d.Round(2)
}

// SessionConfig holds market session cache timings
type SessionConfig struct {
	RefreshInterval  string `toml:"refresh_interval"`
	MarketOpenWindow string `toml:"market_open_window"`
	NoticeDuration   string `toml:"notice_duration"`
	IdleTimeout      string `toml:"idle_timeout"`
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetRefreshInterval returns the polling period while the market is open
func (c *SessionConfig) GetRefreshInterval() time.Duration {
	return parseDurationOr(c.RefreshInterval, QuoteRefreshInterval)
}

// GetMarketOpenWindow returns the quote age under which the market counts as open
func (c *SessionConfig) GetMarketOpenWindow() time.Duration {
	return parseDurationOr(c.MarketOpenWindow, MarketOpenWindow)
}

// GetNoticeDuration returns how long failure notices stay visible
func (c *SessionConfig) GetNoticeDuration() time.Duration {
	return parseDurationOr(c.NoticeDuration, NoticeDuration)
}

// GetIdleTimeout returns how long an unused session is kept
func (c *SessionConfig) GetIdleTimeout() time.Duration {
	return parseDurationOr(c.IdleTimeout, SessionIdleTimeout)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console | json
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3001,
		},
		Storage: StorageConfig{
			Backend: BackendSurrealDB,
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Username:  "root",
				Password:  "root",
				Namespace: "stockdesk",
				Database:  "stockdesk",
			},
			Badger: BadgerConfig{Path: "data/badger"},
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "stockdesk",
				Timeout:  "10s",
			},
		},
		Clients: ClientsConfig{
			Finnhub: FinnhubConfig{
				BaseURL:   "https://finnhub.io/api/v1",
				RateLimit: 30,
				Timeout:   "10s",
			},
		},
		Portfolio: PortfolioConfig{
			InitialBalance: "25000.00",
		},
		Session: SessionConfig{
			RefreshInterval:  "15s",
			MarketOpenWindow: "5m",
			NoticeDuration:   "5s",
			IdleTimeout:      "30m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKDESK_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("STOCKDESK_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("STOCKDESK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("STOCKDESK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("STOCKDESK_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if path := os.Getenv("STOCKDESK_DATA_PATH"); path != "" {
		config.Storage.Badger.Path = filepath.Join(path, "badger")
	}

	if addr := os.Getenv("STOCKDESK_SURREALDB_ADDRESS"); addr != "" {
		config.Storage.SurrealDB.Address = addr
	}

	if uri := os.Getenv("STOCKDESK_MONGO_URI"); uri != "" {
		config.Storage.Mongo.URI = uri
	}

	for _, name := range []string{"FINNHUB_API_KEY", "STOCKDESK_FINNHUB_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			config.Clients.Finnhub.APIKey = key
			break
		}
	}

	if bal := os.Getenv("STOCKDESK_INITIAL_BALANCE"); bal != "" {
		config.Portfolio.InitialBalance = bal
	}
}

// Validate rejects settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSurrealDB, BackendBadger, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend: %s (supported: surrealdb, badger, mongo, memory)", c.Storage.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	bal, err := decimal.NewFromString(strings.TrimSpace(c.Portfolio.InitialBalance))
	if err != nil {
		return fmt.Errorf("invalid portfolio.initial_balance %q: %w", c.Portfolio.InitialBalance, err)
	}
	if bal.IsNegative() {
		return fmt.Errorf("portfolio.initial_balance must not be negative")
	}

	durations := map[string]string{
		"session.refresh_interval":   c.Session.RefreshInterval,
		"session.market_open_window": c.Session.MarketOpenWindow,
		"session.notice_duration":    c.Session.NoticeDuration,
		"session.idle_timeout":       c.Session.IdleTimeout,
		"clients.finnhub.timeout":    c.Clients.Finnhub.Timeout,
	}
	for key, val := range durations {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}

	return nil
}

// StorageAddress returns a printable description of the configured store.
func (c *Config) StorageAddress() string {
	switch c.Storage.Backend {
	case BackendSurrealDB:
		return c.Storage.SurrealDB.Address
	case BackendBadger:
		return c.Storage.Badger.Path
	case BackendMongo:
		return c.Storage.Mongo.URI
	default:
		return c.Storage.Backend
	}
}
