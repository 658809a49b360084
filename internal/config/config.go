// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token        string        `yaml:"token"`
	Username     string        `yaml:"username"`
	Language     string        `yaml:"language"`      // locale file under i18n/locales
	AdminIDs     []int64       `yaml:"admin_ids"`     // bypass the usage gate
	PollTimeout  time.Duration `yaml:"poll_timeout"`  // long-poll timeout
	IdleDelay    time.Duration `yaml:"idle_delay"`    // sleep after an empty batch
	MaxBackoff   time.Duration `yaml:"max_backoff"`   // cap for fetch error backoff
	FloodLimit   int           `yaml:"flood_limit"`   // messages per minute per user, 0 disables
	SinglePoller bool          `yaml:"single_poller"` // guard polling with a redis lock
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port      int           `yaml:"port"`
	JWTSecret string        `yaml:"jwt_secret"` // admin API, disabled when empty
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // conversation state lifetime
}

type AIConfig struct {
	APIKey              string        `yaml:"api_key"`
	BaseURL             string        `yaml:"base_url"`
	Model               string        `yaml:"model"`
	GeminiKey           string        `yaml:"gemini_key"`
	GeminiURL           string        `yaml:"gemini_url"`
	MaxOutputTokens     int           `yaml:"max_output_tokens"`
	MaxPromptTokens     int           `yaml:"max_prompt_tokens"`
	Temperature         float64       `yaml:"temperature"`
	ReasoningEffort     string        `yaml:"reasoning_effort"`      // low|medium|high, empty omits
	UseCompletionTokens bool          `yaml:"use_completion_tokens"` // force max_completion_tokens on chat models
	Timeout             time.Duration `yaml:"timeout"`
	RetryBase           time.Duration `yaml:"retry_base"`
	ConcurrentLimit     int           `yaml:"concurrent_limit"` // max concurrent AI calls
}

type UsageConfig struct {
	DailyLimit   int     `yaml:"daily_limit"`
	TotalLimit   int     `yaml:"total_limit"`
	UnlimitedIDs []int64 `yaml:"unlimited_ids"`
	TimeZone     string  `yaml:"time_zone"` // day rollover zone, UTC by default
}

type PaymentConfig struct {
	Enabled            bool          `yaml:"enabled"`
	ProviderToken      string        `yaml:"provider_token"`
	Currency           string        `yaml:"currency"`
	PriceMinor         int64         `yaml:"price_minor"`
	Days               int           `yaml:"days"`
	NeedEmail          bool          `yaml:"need_email"`
	NeedPhone          bool          `yaml:"need_phone"`
	Receipt            bool          `yaml:"receipt"` // attach provider receipt data
	VATCode            int           `yaml:"vat_code"`
	PrecheckoutTimeout time.Duration `yaml:"precheckout_timeout"`
}

type SchedulerConfig struct {
	ReminderInterval time.Duration `yaml:"reminder_interval"`
	ReminderWindow   time.Duration `yaml:"reminder_window"`
}

type DedupConfig struct {
	Retention  time.Duration `yaml:"retention"`
	PruneEvery int64         `yaml:"prune_every"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Usage     UsageConfig     `yaml:"usage"`
	Payment   PaymentConfig   `yaml:"payment"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Dedup     DedupConfig     `yaml:"dedup"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates required fields.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.Language == "" {
		c.Bot.Language = "en"
	}
	c.Bot.PollTimeout = orDuration(c.Bot.PollTimeout, 30*time.Second)
	c.Bot.IdleDelay = orDuration(c.Bot.IdleDelay, time.Second)
	c.Bot.MaxBackoff = orDuration(c.Bot.MaxBackoff, 30*time.Second)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	c.HTTP.TokenTTL = orDuration(c.HTTP.TokenTTL, 30*time.Minute)
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = orDuration(c.Redis.TTL, 7*24*time.Hour)

	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.openai.com/v1"
	}
	if c.AI.MaxOutputTokens <= 0 {
		c.AI.MaxOutputTokens = 800
	}
	if c.AI.MaxPromptTokens <= 0 {
		c.AI.MaxPromptTokens = 6000
	}
	if c.AI.Temperature == 0 {
		c.AI.Temperature = 0.7
	}
	c.AI.Timeout = orDuration(c.AI.Timeout, 60*time.Second)
	c.AI.RetryBase = orDuration(c.AI.RetryBase, time.Second)
	if c.AI.ConcurrentLimit <= 0 {
		c.AI.ConcurrentLimit = 16
	}

	if c.Usage.TimeZone == "" {
		c.Usage.TimeZone = "UTC"
	}

	if c.Payment.Currency == "" {
		c.Payment.Currency = "RUB"
	}
	if c.Payment.Days <= 0 {
		c.Payment.Days = 30
	}
	c.Payment.PrecheckoutTimeout = orDuration(c.Payment.PrecheckoutTimeout, 5*time.Second)

	c.Scheduler.ReminderInterval = orDuration(c.Scheduler.ReminderInterval, time.Hour)
	c.Scheduler.ReminderWindow = orDuration(c.Scheduler.ReminderWindow, time.Hour)

	c.Dedup.Retention = orDuration(c.Dedup.Retention, 7*24*time.Hour)
	if c.Dedup.PruneEvery <= 0 {
		c.Dedup.PruneEvery = 100
	}
}

// Minimal validation
func (c *Config) validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Payment.Enabled {
		if c.Payment.ProviderToken == "" {
			return errors.New("payment.provider_token is required when payments are enabled")
		}
		if c.Payment.PriceMinor <= 0 {
			return errors.New("payment.price_minor must be positive when payments are enabled")
		}
	}
	if _, err := time.LoadLocation(c.Usage.TimeZone); err != nil {
		return fmt.Errorf("usage.time_zone: %w", err)
	}
	return nil
}

// Location returns the zone used for daily usage rollover.
func (u UsageConfig) Location() *time.Location {
	loc, err := time.LoadLocation(u.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
