package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Fetcher     FetcherConfig   `toml:"fetcher"`
	Assembler   AssemblerConfig `toml:"assembler"`
	Auth        AuthConfig      `toml:"auth"`
	Retention   RetentionConfig `toml:"retention"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// FetcherConfig controls source link retrieval
type FetcherConfig struct {
	UserAgent      string        `toml:"user_agent"`       // User agent sent with fetch requests
	RequestTimeout time.Duration `toml:"request_timeout"`  // Per-link HTTP timeout
	MaxBodySize    int64         `toml:"max_body_size"`    // Maximum response body size in bytes
	AllowTestURLs  bool          `toml:"allow_test_urls"`  // Permit localhost/127.0.0.1 links (tests)
}

// AssemblerConfig controls report generation behavior
type AssemblerConfig struct {
	Concurrency      int `toml:"concurrency"`       // Fetch+summarize workers per section
	SummaryLength    int `toml:"summary_length"`    // Target length for the overall summary
	SectionCountMin  int `toml:"section_count_min"` // Minimum sections proposed by recommendation
	SectionCountMax  int `toml:"section_count_max"` // Maximum sections proposed by recommendation
}

// AuthConfig contains JWT settings
type AuthConfig struct {
	SecretKey     string        `toml:"secret_key"`     // HS256 signing key
	TokenLifetime time.Duration `toml:"token_lifetime"` // Access token expiry
}

// RetentionConfig controls the anonymous session sweep
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"`  // Cron schedule for the sweep
	MaxIdle  string `toml:"max_idle"`  // Duration string; anonymous reports idle longer are deleted
}

// OpenAIConfig contains OpenAI / Azure OpenAI configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`      // OpenAI API key
	AzureKey    string  `toml:"azure_key"`    // Azure OpenAI key (requires azure_base)
	AzureBase   string  `toml:"azure_base"`   // Azure OpenAI endpoint
	Model       string  `toml:"model"`        // Model for completions (default: "gpt-4o")
	Temperature float32 `toml:"temperature"`  // Completion temperature (default: 0.7)
	RateLimit   string  `toml:"rate_limit"`   // Minimum interval between calls (default: "1s")
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "claude-haiku-3-5-20241022"
	MaxTokens   int     `toml:"max_tokens"`  // default: 8192
	Temperature float32 `toml:"temperature"` // default: 0.7
	RateLimit   string  `toml:"rate_limit"`  // default: "1s"
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "gemini-3-flash-preview"
	Temperature float32 `toml:"temperature"` // default: 0.7
	RateLimit   string  `toml:"rate_limit"`  // default: "4s" (15 RPM free tier)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderOpenAI uses the OpenAI (or Azure OpenAI) API
	LLMProviderOpenAI LLMProvider = "openai"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig contains provider-independent settings
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "openai", "claude" or "gemini"
	Timeout         string      `toml:"timeout"`          // Per-call timeout as duration string (default: "5m")
	MaxRetries      int         `toml:"max_retries"`      // Retry attempts on rate-limit errors
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Fetcher: FetcherConfig{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
			AllowTestURLs:  false,
		},
		Assembler: AssemblerConfig{
			Concurrency:     5, // Empirical balance between throughput and outbound fan-out
			SummaryLength:   500,
			SectionCountMin: 4,
			SectionCountMax: 6,
		},
		Auth: AuthConfig{
			SecretKey:     "", // User must provide a secret in config or REFERO_AUTH_SECRET_KEY
			TokenLifetime: 30 * time.Minute,
		},
		Retention: RetentionConfig{
			Enabled:  true,
			Schedule: "0 * * * *", // Hourly sweep
			MaxIdle:  "24h",
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o",
			Temperature: 0.7,
			RateLimit:   "1s",
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Temperature: 0.7,
			RateLimit:   "1s",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Temperature: 0.7,
			RateLimit:   "4s",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderOpenAI,
			Timeout:         "5m",
			MaxRetries:      3,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files. Priority: CLI flags > env > last file > ... > first file > defaults.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REFERO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("REFERO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("REFERO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("REFERO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("REFERO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if badgerPath := os.Getenv("REFERO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	// DATABASE_URL is honored for compatibility with existing deployments;
	// it is treated as a filesystem path for the embedded store.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" && config.Storage.Badger.Path == "./data" {
		config.Storage.Badger.Path = dbURL
	}

	if timeout := os.Getenv("REFERO_FETCHER_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Fetcher.RequestTimeout = d
		}
	}
	if userAgent := os.Getenv("REFERO_FETCHER_USER_AGENT"); userAgent != "" {
		config.Fetcher.UserAgent = userAgent
	}

	if concurrency := os.Getenv("REFERO_ASSEMBLER_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil && c > 0 {
			config.Assembler.Concurrency = c
		}
	}

	if secret := os.Getenv("REFERO_AUTH_SECRET_KEY"); secret != "" {
		config.Auth.SecretKey = secret
	}
	if lifetime := os.Getenv("REFERO_AUTH_TOKEN_LIFETIME"); lifetime != "" {
		if d, err := time.ParseDuration(lifetime); err == nil {
			config.Auth.TokenLifetime = d
		}
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("REFERO_OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey // REFERO_ prefix takes priority
	}
	if azureKey := os.Getenv("REFERO_OPENAI_AZURE_KEY"); azureKey != "" {
		config.OpenAI.AzureKey = azureKey
	}
	if azureBase := os.Getenv("REFERO_OPENAI_AZURE_BASE"); azureBase != "" {
		config.OpenAI.AzureBase = azureBase
	}
	if model := os.Getenv("REFERO_OPENAI_MODEL"); model != "" {
		config.OpenAI.Model = model
	}

	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("REFERO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("REFERO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	if apiKey := os.Getenv("REFERO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("REFERO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	if provider := os.Getenv("REFERO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if timeout := os.Getenv("REFERO_LLM_TIMEOUT"); timeout != "" {
		config.LLM.Timeout = timeout
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// LLMTimeout returns the per-call LLM timeout
func (c *Config) LLMTimeout() time.Duration {
	if d, err := time.ParseDuration(c.LLM.Timeout); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// RetentionMaxIdle returns the parsed anonymous-session idle window
func (c *Config) RetentionMaxIdle() time.Duration {
	if d, err := time.ParseDuration(c.Retention.MaxIdle); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}
