package model

import "time"

// Config is the complete GrantAxiom configuration.
// Loaded by viper from flags, GRANTAXIOM_* env vars and ~/.grantaxiom/config.yaml.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Audit      AuditConfig      `yaml:"audit" mapstructure:"audit"`
	Chat       ChatConfig       `yaml:"chat" mapstructure:"chat"`
	Simulation SimulationConfig `yaml:"simulation" mapstructure:"simulation"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Session    SessionConfig    `yaml:"session" mapstructure:"session"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// LLMConfig selects and configures the oracle provider
type LLMConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // gemini, openai, anthropic, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds, 0 = no timeout
	MaxTokens  int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// AuditConfig controls the audit call
type AuditConfig struct {
	ReasoningBudget int    `yaml:"reasoning_budget" mapstructure:"reasoning_budget"`
	RangePolicy     string `yaml:"range_policy" mapstructure:"range_policy"` // reject, clamp, passthrough
}

// ChatConfig controls the assistant call
type ChatConfig struct {
	EnableSearch bool `yaml:"enable_search" mapstructure:"enable_search"`
}

// SimulationConfig controls the simulation generation call
type SimulationConfig struct {
	ReasoningBudget int `yaml:"reasoning_budget" mapstructure:"reasoning_budget"`
	ProposalChars   int `yaml:"proposal_chars" mapstructure:"proposal_chars"`
	MaxReferences   int `yaml:"max_references" mapstructure:"max_references"`
	SnippetChars    int `yaml:"snippet_chars" mapstructure:"snippet_chars"`
}

// IngestConfig controls reference ingestion
type IngestConfig struct {
	SnippetChars  int           `yaml:"snippet_chars" mapstructure:"snippet_chars"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// CacheConfig controls the optional oracle response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig throttles outbound oracle calls (0 = unlimited)
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// SessionConfig controls workbench sessions
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	SeedSample bool          `yaml:"seed_sample" mapstructure:"seed_sample"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	JSON       bool   `yaml:"json" mapstructure:"json"`
	File       string `yaml:"file,omitempty" mapstructure:"file"` // Rotated log file (optional)
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-2.5-flash",
			Timeout:   120,
			MaxTokens: 8192,
		},
		Audit: AuditConfig{
			ReasoningBudget: 2048,
			RangePolicy:     "reject",
		},
		Chat: ChatConfig{
			EnableSearch: true,
		},
		Simulation: SimulationConfig{
			ReasoningBudget: 4096,
			ProposalChars:   5000,
			MaxReferences:   5,
			SnippetChars:    200,
		},
		Ingest: IngestConfig{
			SnippetChars:  300,
			Timeout:       30 * time.Second,
			UserAgent:     "GrantAxiom/0.1 (+https://github.com/ppiankov/grantaxiom)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".grantaxiom/cache",
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             1,
		},
		Session: SessionConfig{
			TTL:        2 * time.Hour,
			SeedSample: false,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			ReadTimeout:    30 * time.Second,
			MaxUploadBytes: 10 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  15,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
