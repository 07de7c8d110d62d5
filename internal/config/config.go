package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst      int           `mapstructure:"rate_burst"`
}

type NATSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	RequestSubject string        `mapstructure:"request_subject"`
	ActionSubject  string        `mapstructure:"action_subject"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// LLMConfig selects the model backend. An empty API key or provider
// "none" runs the service in degraded, rule-based mode.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

type PipelineConfig struct {
	MaxTextLength int `mapstructure:"max_text_length"`
}

// BrowserConfig controls where actions run. Mode is one of "remote"
// (attach to a DevTools endpoint), "local" (launch Chrome), "relay"
// (forward over NATS to an agent) or "none".
type BrowserConfig struct {
	Mode            string        `mapstructure:"mode"`
	DevToolsURL     string        `mapstructure:"devtools_url"`
	Headless        bool          `mapstructure:"headless"`
	DefaultPageURL  string        `mapstructure:"default_page_url"`
	SearchURL       string        `mapstructure:"search_url"`
	LoadSettle      time.Duration `mapstructure:"load_settle"`
	InjectSettle    time.Duration `mapstructure:"inject_settle"`
	FieldSettle     time.Duration `mapstructure:"field_settle"`
	ReplyTimeout    time.Duration `mapstructure:"reply_timeout"`
	MaxSummaryChars int           `mapstructure:"max_summary_chars"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-2.0-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-sonnet-20241022",
}

// Load layers configuration: defaults, then an optional config.yaml,
// then environment variables (a .env file is loaded first if present).
func Load() (*Config, error) {
	loadEnvFile()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if path := os.Getenv("VOICENAV_CONFIG"); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "voicenav")
	v.SetDefault("service.environment", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_burst", 10)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.request_subject", "intent.analyze")
	v.SetDefault("nats.action_subject", "automation.execute")
	v.SetDefault("nats.timeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.ttl", 30*time.Minute)

	v.SetDefault("llm.provider", ProviderGemini)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 15*time.Second)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 512)

	v.SetDefault("pipeline.max_text_length", 1000)

	v.SetDefault("browser.mode", "none")
	v.SetDefault("browser.devtools_url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.default_page_url", "https://www.google.com")
	v.SetDefault("browser.search_url", "https://www.google.com/search?q=")
	v.SetDefault("browser.load_settle", 1500*time.Millisecond)
	v.SetDefault("browser.inject_settle", 200*time.Millisecond)
	v.SetDefault("browser.field_settle", 300*time.Millisecond)
	v.SetDefault("browser.reply_timeout", 10*time.Second)
	v.SetDefault("browser.max_summary_chars", 1000)

	v.SetDefault("tracing.enabled", false)
}

// bindLegacyEnv keeps the flat variable names earlier deployments used.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("service.name", "SERVICE_NAME")
	_ = v.BindEnv("nats.url", "NATS_URL")
	_ = v.BindEnv("nats.request_subject", "NATS_REQUEST_SUBJECT")
	_ = v.BindEnv("nats.timeout", "NATS_TIMEOUT")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("llm.model", "LLM_MODEL", "GEMINI_MODEL")
	_ = v.BindEnv("llm.timeout", "LLM_TIMEOUT", "ANTHROPIC_TIMEOUT")
}

func applyDefaults(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}
	cfg.Browser.Mode = strings.ToLower(strings.TrimSpace(cfg.Browser.Mode))
	if cfg.Browser.Mode == "" {
		cfg.Browser.Mode = "none"
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderNone:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	switch c.Browser.Mode {
	case "remote", "local", "relay", "none":
	default:
		return fmt.Errorf("browser.mode %q is not supported", c.Browser.Mode)
	}
	if c.Browser.Mode == "remote" && c.Browser.DevToolsURL == "" {
		return fmt.Errorf("browser.devtools_url is required in remote mode")
	}
	if c.Browser.Mode == "relay" && !c.NATS.Enabled {
		return fmt.Errorf("browser.mode relay requires nats.enabled")
	}
	if c.Pipeline.MaxTextLength <= 0 {
		return fmt.Errorf("pipeline.max_text_length must be positive")
	}
	if c.Browser.ReplyTimeout <= 0 {
		return fmt.Errorf("browser.reply_timeout must be positive")
	}
	return nil
}

// ModelConfigured reports whether a remote classifier should be built.
func (c LLMConfig) ModelConfigured() bool {
	return c.Provider != ProviderNone && c.APIKey != ""
}

func loadEnvFile() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}
