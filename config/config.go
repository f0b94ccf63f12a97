package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"stockwatch/models"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the env var pointing at an optional YAML config file.
// Values from the file are applied first; env vars override them.
const ConfigFileEnv = "STOCKWATCH_CONFIG"

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `yaml:"database"`

	// Upstream provider configurations
	Yahoo        YahooConfig        `yaml:"yahoo"`
	AlphaVantage AlphaVantageConfig `yaml:"alphavantage"`
	FMP          FMPConfig          `yaml:"fmp"`

	// Resolution pipeline configuration
	Resolver ResolverConfig `yaml:"resolver"`

	// Watchlist storage configuration
	Watchlist WatchlistConfig `yaml:"watchlist"`

	// Scheduler configuration
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// HTTP configuration
	HTTP HTTPConfig `yaml:"http"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// YahooConfig holds the base URLs of the Yahoo finance endpoints
type YahooConfig struct {
	ChartURL   string `yaml:"chart_url"`
	SummaryURL string `yaml:"summary_url"`
	QuotePage  string `yaml:"quote_page_url"`
	SearchURL  string `yaml:"search_url"`
	UserAgent  string `yaml:"user_agent"`
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ResolverConfig holds resolution pipeline settings
type ResolverConfig struct {
	ProviderTimeoutSeconds int    `yaml:"provider_timeout_seconds"`
	CacheTTLSeconds        int    `yaml:"cache_ttl_seconds"`
	EnrichmentOrder        string `yaml:"enrichment_order"` // comma-separated provider names
	ChartRange             string `yaml:"chart_range"`
	SummaryPoints          int    `yaml:"summary_points"`
	DetailPoints           int    `yaml:"detail_points"`
	PrimaryRetries         int    `yaml:"primary_retries"`
	BatchConcurrency       int    `yaml:"batch_concurrency"`
}

// WatchlistConfig holds file-store settings used when no database is configured
type WatchlistConfig struct {
	FilePath string `yaml:"file_path"`
}

// SchedulerConfig holds refresh scheduler settings. An empty spec disables it.
type SchedulerConfig struct {
	RefreshSpec string `yaml:"refresh_spec"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port                  int    `yaml:"port"`
	CORSAllowedOrigins    string `yaml:"cors_allowed_origins"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// Load loads configuration from the optional YAML file and environment variables
func Load() (*Config, error) {
	cfg := NewDefaultConfig()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.URL = getEnvString("DATABASE_URL", c.Database.URL)

	c.Yahoo.ChartURL = getEnvString("YAHOO_CHART_URL", c.Yahoo.ChartURL)
	c.Yahoo.SummaryURL = getEnvString("YAHOO_SUMMARY_URL", c.Yahoo.SummaryURL)
	c.Yahoo.QuotePage = getEnvString("YAHOO_QUOTE_PAGE_URL", c.Yahoo.QuotePage)
	c.Yahoo.SearchURL = getEnvString("YAHOO_SEARCH_URL", c.Yahoo.SearchURL)
	c.Yahoo.UserAgent = getEnvString("YAHOO_USER_AGENT", c.Yahoo.UserAgent)

	c.AlphaVantage.APIKey = getEnvString("ALPHA_VANTAGE_API_KEY", c.AlphaVantage.APIKey)
	c.AlphaVantage.BaseURL = getEnvString("ALPHA_VANTAGE_BASE_URL", c.AlphaVantage.BaseURL)
	c.AlphaVantage.RequestsPerMinute = getEnvInt("ALPHA_VANTAGE_REQUESTS_PER_MINUTE", c.AlphaVantage.RequestsPerMinute)

	c.FMP.APIKey = getEnvString("FMP_API_KEY", c.FMP.APIKey)
	c.FMP.BaseURL = getEnvString("FMP_BASE_URL", c.FMP.BaseURL)

	c.Resolver.ProviderTimeoutSeconds = getEnvInt("RESOLVER_PROVIDER_TIMEOUT_SECONDS", c.Resolver.ProviderTimeoutSeconds)
	c.Resolver.CacheTTLSeconds = getEnvInt("RESOLVER_CACHE_TTL_SECONDS", c.Resolver.CacheTTLSeconds)
	c.Resolver.EnrichmentOrder = getEnvString("RESOLVER_ENRICHMENT_ORDER", c.Resolver.EnrichmentOrder)
	c.Resolver.ChartRange = getEnvString("RESOLVER_CHART_RANGE", c.Resolver.ChartRange)
	c.Resolver.SummaryPoints = getEnvInt("RESOLVER_SUMMARY_POINTS", c.Resolver.SummaryPoints)
	c.Resolver.DetailPoints = getEnvInt("RESOLVER_DETAIL_POINTS", c.Resolver.DetailPoints)
	c.Resolver.PrimaryRetries = getEnvNonNegativeInt("RESOLVER_PRIMARY_RETRIES", c.Resolver.PrimaryRetries)
	c.Resolver.BatchConcurrency = getEnvInt("RESOLVER_BATCH_CONCURRENCY", c.Resolver.BatchConcurrency)

	c.Watchlist.FilePath = getEnvString("WATCHLIST_FILE", c.Watchlist.FilePath)
	c.Scheduler.RefreshSpec = getEnvString("REFRESH_SCHEDULE", c.Scheduler.RefreshSpec)

	c.HTTP.Port = getEnvInt("PORT", c.HTTP.Port)
	c.HTTP.CORSAllowedOrigins = getEnvString("CORS_ALLOWED_ORIGINS", c.HTTP.CORSAllowedOrigins)
	c.HTTP.RequestTimeoutSeconds = getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", c.HTTP.RequestTimeoutSeconds)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Production = getEnvBool("LOG_PRODUCTION", c.Log.Production)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Resolver.ProviderTimeoutSeconds <= 0 {
		return fmt.Errorf("RESOLVER_PROVIDER_TIMEOUT_SECONDS must be positive, got %d", c.Resolver.ProviderTimeoutSeconds)
	}
	if c.Resolver.CacheTTLSeconds <= 0 {
		return fmt.Errorf("RESOLVER_CACHE_TTL_SECONDS must be positive, got %d", c.Resolver.CacheTTLSeconds)
	}
	if c.Resolver.SummaryPoints <= 0 {
		return fmt.Errorf("RESOLVER_SUMMARY_POINTS must be positive, got %d", c.Resolver.SummaryPoints)
	}
	if c.Resolver.DetailPoints < c.Resolver.SummaryPoints {
		return fmt.Errorf("RESOLVER_DETAIL_POINTS (%d) must not be smaller than RESOLVER_SUMMARY_POINTS (%d)",
			c.Resolver.DetailPoints, c.Resolver.SummaryPoints)
	}
	if c.Resolver.PrimaryRetries < 0 {
		return fmt.Errorf("RESOLVER_PRIMARY_RETRIES must not be negative, got %d", c.Resolver.PrimaryRetries)
	}
	if c.Resolver.BatchConcurrency <= 0 {
		return fmt.Errorf("RESOLVER_BATCH_CONCURRENCY must be positive, got %d", c.Resolver.BatchConcurrency)
	}
	if c.AlphaVantage.RequestsPerMinute <= 0 {
		return fmt.Errorf("ALPHA_VANTAGE_REQUESTS_PER_MINUTE must be positive, got %d", c.AlphaVantage.RequestsPerMinute)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.RequestTimeoutSeconds)
	}

	if _, err := models.ParseRange(c.Resolver.ChartRange); err != nil {
		return fmt.Errorf("RESOLVER_CHART_RANGE: %w", err)
	}

	for _, name := range c.EnrichmentOrder() {
		if !knownEnrichers[name] {
			return fmt.Errorf("RESOLVER_ENRICHMENT_ORDER: unknown provider %q", name)
		}
	}

	return nil
}

var knownEnrichers = map[string]bool{
	"quotesummary": true,
	"scrape":       true,
	"alphavantage": true,
	"fmp":          true,
}

// EnrichmentOrder returns the enrichment provider names in precedence order
func (c *Config) EnrichmentOrder() []string {
	var names []string
	for _, part := range strings.Split(c.Resolver.EnrichmentOrder, ",") {
		if name := strings.ToLower(strings.TrimSpace(part)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

// HasScheduler returns true if scheduled refreshes are enabled
func (c *Config) HasScheduler() bool {
	return c.Scheduler.RefreshSpec != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvNonNegativeInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewDefaultConfig returns the configuration used when nothing is overridden
func NewDefaultConfig() *Config {
	return &Config{
		Yahoo: YahooConfig{
			ChartURL:   "https://query1.finance.yahoo.com/v8/finance/chart",
			SummaryURL: "https://query2.finance.yahoo.com/v10/finance/quoteSummary",
			QuotePage:  "https://finance.yahoo.com/quote",
			SearchURL:  "https://query1.finance.yahoo.com/v1/finance/search",
			UserAgent:  "Mozilla/5.0 (compatible; stockwatch/1.0)",
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL:           "https://www.alphavantage.co/query",
			RequestsPerMinute: 5,
		},
		FMP: FMPConfig{
			BaseURL: "https://financialmodelingprep.com/api/v3",
		},
		Resolver: ResolverConfig{
			ProviderTimeoutSeconds: 10,
			CacheTTLSeconds:        300,
			EnrichmentOrder:        "quotesummary,scrape,alphavantage,fmp",
			ChartRange:             "3mo",
			SummaryPoints:          30,
			DetailPoints:           365,
			PrimaryRetries:         1,
			BatchConcurrency:       8,
		},
		Watchlist: WatchlistConfig{
			FilePath: "watchlists.json",
		},
		HTTP: HTTPConfig{
			Port:                  10000,
			CORSAllowedOrigins:    "*",
			RequestTimeoutSeconds: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Resolver.PrimaryRetries = 0
	cfg.Watchlist.FilePath = ""
	return cfg
}
