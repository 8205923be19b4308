package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/welda-labs/compintel/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Watchlist WatchlistConfig `yaml:"watchlist" mapstructure:"watchlist"`
	Websearch WebsearchConfig `yaml:"websearch" mapstructure:"websearch"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Dart      DartConfig      `yaml:"dart" mapstructure:"dart"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the record store backend.
type StoreConfig struct {
	Backend string           `yaml:"backend" mapstructure:"backend"`
	DSN     string           `yaml:"dsn" mapstructure:"dsn"`
	Pool    store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// WatchlistConfig points at the competitor watchlist file.
type WatchlistConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// WebsearchConfig holds news search API settings.
type WebsearchConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DartConfig holds DART registry API settings.
type DartConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	CachePath     string `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// CrawlConfig configures the crawl stage.
type CrawlConfig struct {
	ResultsPerQuery  int     `yaml:"results_per_query" mapstructure:"results_per_query"`
	MinBodyChars     int     `yaml:"min_body_chars" mapstructure:"min_body_chars"`
	FetchConcurrency int     `yaml:"fetch_concurrency" mapstructure:"fetch_concurrency"`
	FetchRPS         float64 `yaml:"fetch_rps" mapstructure:"fetch_rps"`
	FetchTimeoutSecs int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
}

// ExtractConfig configures the LLM extraction stage.
type ExtractConfig struct {
	ArticlesPerCall     int `yaml:"articles_per_call" mapstructure:"articles_per_call"`
	BodyCharLimit       int `yaml:"body_char_limit" mapstructure:"body_char_limit"`
	BatchDelaySecs      int `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
	CompetitorDelaySecs int `yaml:"competitor_delay_secs" mapstructure:"competitor_delay_secs"`
}

// ResolveConfig configures the resolution stage.
type ResolveConfig struct {
	ReviewThreshold int `yaml:"review_threshold" mapstructure:"review_threshold"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DartCacheTTL returns the configured cache TTL as a duration.
func (d DartConfig) DartCacheTTL() time.Duration {
	return time.Duration(d.CacheTTLHours) * time.Hour
}

// FetchTimeout returns the configured per-article fetch timeout.
func (c CrawlConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// BatchDelay returns the pause between LLM calls.
func (e ExtractConfig) BatchDelay() time.Duration {
	return time.Duration(e.BatchDelaySecs) * time.Second
}

// CompetitorDelay returns the pause between competitor groups.
func (e ExtractConfig) CompetitorDelay() time.Duration {
	return time.Duration(e.CompetitorDelaySecs) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COMPINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.backend", store.BackendSQLite)
	v.SetDefault("store.dsn", "compintel.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("watchlist.path", "watchlist.yaml")
	v.SetDefault("websearch.base_url", "https://s.jina.ai")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("dart.base_url", "https://opendart.fss.or.kr")
	v.SetDefault("dart.cache_path", "corp_codes.csv")
	v.SetDefault("dart.cache_ttl_hours", 24)
	v.SetDefault("crawl.results_per_query", 20)
	v.SetDefault("crawl.min_body_chars", 200)
	v.SetDefault("crawl.fetch_concurrency", 4)
	v.SetDefault("crawl.fetch_rps", 2.0)
	v.SetDefault("crawl.fetch_timeout_secs", 20)
	v.SetDefault("extract.articles_per_call", 5)
	v.SetDefault("extract.body_char_limit", 6000)
	v.SetDefault("extract.batch_delay_secs", 2)
	v.SetDefault("extract.competitor_delay_secs", 5)
	v.SetDefault("resolve.review_threshold", 90)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
