// Package config loads layered configuration: built-in defaults, then an
// optional config.yaml in the working directory, then SIGNALS_-prefixed
// environment variables. Validate checks the result against what a given
// command actually needs.
package config

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the root of the configuration tree.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Newsfeed   NewsfeedConfig   `yaml:"newsfeed" mapstructure:"newsfeed"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Evidence   EvidenceConfig   `yaml:"evidence" mapstructure:"evidence"`
	Plan       PlanConfig       `yaml:"plan" mapstructure:"plan"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Signals    SignalsConfig    `yaml:"signals" mapstructure:"signals"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and connects the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig tunes the Postgres connection pool.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	StructuredRetries int     `yaml:"structured_retries" mapstructure:"structured_retries"`
}

// JinaConfig holds Jina Reader/Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// NewsfeedConfig configures the Google News RSS supplement used in watch mode.
type NewsfeedConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Language string `yaml:"language" mapstructure:"language"`
	Country  string `yaml:"country" mapstructure:"country"`
	MaxItems int    `yaml:"max_items" mapstructure:"max_items"`
}

// SearchConfig configures the retrieval stage.
type SearchConfig struct {
	Concurrency        int `yaml:"concurrency" mapstructure:"concurrency"`
	BatchDelayMs       int `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	MaxResultsPerQuery int `yaml:"max_results_per_query" mapstructure:"max_results_per_query"`
}

// ExtractConfig configures candidate extraction.
type ExtractConfig struct {
	ChunkSize       int      `yaml:"chunk_size" mapstructure:"chunk_size"`
	MinConfidence   float64  `yaml:"min_confidence" mapstructure:"min_confidence"`
	ExcludedDomains []string `yaml:"excluded_domains" mapstructure:"excluded_domains"`
}

// EvidenceConfig configures evidence gathering.
type EvidenceConfig struct {
	Concurrency         int  `yaml:"concurrency" mapstructure:"concurrency"`
	BatchDelayMs        int  `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
	FetchTimeoutSecs    int  `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	FetchRetries        int  `yaml:"fetch_retries" mapstructure:"fetch_retries"`
	RetryBackoffMs      int  `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	MaxContentBytes     int  `yaml:"max_content_bytes" mapstructure:"max_content_bytes"`
	MaxSourcesPerDomain int  `yaml:"max_sources_per_domain" mapstructure:"max_sources_per_domain"`
	MinSnippetChars     int  `yaml:"min_snippet_chars" mapstructure:"min_snippet_chars"`
	UseReaderFallback   bool `yaml:"use_reader_fallback" mapstructure:"use_reader_fallback"`
}

// PlanConfig bounds the query planner output.
type PlanConfig struct {
	MinQueries int `yaml:"min_queries" mapstructure:"min_queries"`
	MaxQueries int `yaml:"max_queries" mapstructure:"max_queries"`
}

// PipelineConfig configures run-level behavior.
type PipelineConfig struct {
	DefaultLimit       int `yaml:"default_limit" mapstructure:"default_limit"`
	SeenDomainTTLHours int `yaml:"seen_domain_ttl_hours" mapstructure:"seen_domain_ttl_hours"`
}

// SignalsConfig points at the signal registry and ICP profile files.
// Empty paths fall back to the embedded defaults.
type SignalsConfig struct {
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`
	ProfilePath  string `yaml:"profile_path" mapstructure:"profile_path"`
}

// NotionConfig holds Notion API credentials and the leads database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce client-credentials auth settings.
type SalesforceConfig struct {
	Domain         string `yaml:"domain" mapstructure:"domain"`
	ConsumerKey    string `yaml:"consumer_key" mapstructure:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret" mapstructure:"consumer_secret"`
}

// PricingConfig overrides the built-in cost rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaPricing             `yaml:"jina" mapstructure:"jina"`
}

// ModelPricing is USD per million input/output tokens for one model.
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// JinaPricing holds Jina pricing: searches per query, reader usage per
// million tokens.
type JinaPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
	PerMTok  float64 `yaml:"per_mtok" mapstructure:"per_mtok"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultExcludedDomains is the built-in exclusion set for candidate
// extraction: job boards, aggregators, social platforms, and other hosts
// that are never the candidate company itself. Overridable via
// extract.excluded_domains.
var DefaultExcludedDomains = []string{
	"linkedin.com", "indeed.com", "glassdoor.com", "ziprecruiter.com",
	"monster.com", "greenhouse.io", "lever.co", "workable.com",
	"ashbyhq.com", "wellfound.com", "builtin.com", "dice.com",
	"crunchbase.com", "pitchbook.com", "zoominfo.com", "apollo.io",
	"owler.com", "g2.com", "capterra.com", "clutch.co",
	"facebook.com", "twitter.com", "x.com", "instagram.com",
	"youtube.com", "tiktok.com", "reddit.com", "medium.com",
	"substack.com", "github.com", "wikipedia.org", "quora.com",
	"news.ycombinator.com", "techcrunch.com", "forbes.com",
	"bloomberg.com", "reuters.com", "businessinsider.com",
	"prnewswire.com", "businesswire.com", "globenewswire.com",
	"sec.gov", "yelp.com", "bbb.org", "google.com",
}

// Load builds a Config from defaults, config.yaml, and environment.
// A missing config file is fine; a malformed one is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SIGNALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "signals.db")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.temperature", 0.2)
	v.SetDefault("anthropic.structured_retries", 2)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("newsfeed.enabled", true)
	v.SetDefault("newsfeed.language", "en-US")
	v.SetDefault("newsfeed.country", "US")
	v.SetDefault("newsfeed.max_items", 10)
	v.SetDefault("search.concurrency", 3)
	v.SetDefault("search.batch_delay_ms", 1000)
	v.SetDefault("search.max_results_per_query", 10)
	v.SetDefault("extract.chunk_size", 20)
	v.SetDefault("extract.min_confidence", 0.6)
	v.SetDefault("extract.excluded_domains", DefaultExcludedDomains)
	v.SetDefault("evidence.concurrency", 5)
	v.SetDefault("evidence.batch_delay_ms", 500)
	v.SetDefault("evidence.fetch_timeout_secs", 10)
	v.SetDefault("evidence.fetch_retries", 2)
	v.SetDefault("evidence.retry_backoff_ms", 500)
	v.SetDefault("evidence.max_content_bytes", 262144)
	v.SetDefault("evidence.max_sources_per_domain", 5)
	v.SetDefault("evidence.min_snippet_chars", 30)
	v.SetDefault("evidence.use_reader_fallback", false)
	v.SetDefault("plan.min_queries", 20)
	v.SetDefault("plan.max_queries", 40)
	v.SetDefault("pipeline.default_limit", 20)
	v.SetDefault("pipeline.seen_domain_ttl_hours", 720)
	v.SetDefault("pricing.anthropic", map[string]map[string]float64{
		"claude-haiku-4-5-20251001":  {"input": 0.80, "output": 4.00},
		"claude-sonnet-4-5-20250929": {"input": 3.00, "output": 15.00},
	})
	v.SetDefault("pricing.jina.per_query", 0.005)
	v.SetDefault("pricing.jina.per_mtok", 0.02)
}

// InitLogger replaces the zap global logger per the log config.
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
