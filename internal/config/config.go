package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Transcriber TranscriberConfig `mapstructure:"transcriber"`
	Mushaf      MushafConfig      `mapstructure:"mushaf"`
	Recite      ReciteConfig      `mapstructure:"recite"`
	App         AppConfig         `mapstructure:"app"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type RedisConfig struct {
	URI string `mapstructure:"uri"`
	// ReportTTL is how long finished reports are kept
	ReportTTL time.Duration `mapstructure:"report_ttl"`
	// ReportLimit caps the history kept per user
	ReportLimit int `mapstructure:"report_limit"`
}

type TranscriberConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MushafConfig struct {
	// Path is a JSON or YAML word layout file
	Path     string `mapstructure:"path"`
	LastPage int    `mapstructure:"last_page"`
	// Spread is the number of pages shown together, 1 or 2
	Spread int `mapstructure:"spread"`
}

type ReciteConfig struct {
	DirectThreshold    float64 `mapstructure:"direct_threshold"`
	LookaheadThreshold float64 `mapstructure:"lookahead_threshold"`
	LookaheadWindow    int     `mapstructure:"lookahead_window"`
	// Scorer is one of ratcliff, jarowinkler, levenshtein
	Scorer    string `mapstructure:"scorer"`
	QueueSize int    `mapstructure:"queue_size"`
}

type AppConfig struct {
	LocalesDir      string `mapstructure:"locales_dir"`
	DefaultLanguage string `mapstructure:"default_language"`
	LogLevel        string `mapstructure:"log_level"`
	// MetricsAddr enables the Prometheus endpoint when set, e.g. ":9090"
	MetricsAddr string `mapstructure:"metrics_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.report_ttl", 30*24*time.Hour)
	v.SetDefault("redis.report_limit", 20)
	v.SetDefault("transcriber.timeout", 30*time.Second)
	v.SetDefault("mushaf.path", "data/mushaf.json")
	v.SetDefault("mushaf.last_page", 604)
	v.SetDefault("mushaf.spread", 1)
	v.SetDefault("recite.direct_threshold", 0.65)
	v.SetDefault("recite.lookahead_threshold", 0.75)
	v.SetDefault("recite.lookahead_window", 5)
	v.SetDefault("recite.scorer", "ratcliff")
	v.SetDefault("recite.queue_size", 8)
	v.SetDefault("app.locales_dir", "locales")
	v.SetDefault("app.default_language", "en")
	v.SetDefault("app.log_level", "info")
}

// Load loads configuration from a YAML file with environment variable overrides
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// TELEGRAM_TOKEN overrides telegram.token, etc.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadRecite loads only the mushaf and recite sections, for tools that run
// without the bot. A missing file leaves the defaults in place.
func LoadRecite(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validateRecite(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram token is required")
	}
	if c.Redis.URI == "" {
		return errors.New("redis URI is required")
	}
	if c.Transcriber.BaseURL == "" {
		return errors.New("transcriber base URL is required")
	}
	return c.validateRecite()
}

func (c *Config) validateRecite() error {
	if c.Mushaf.Path == "" {
		return errors.New("mushaf path is required")
	}
	if c.Mushaf.Spread != 1 && c.Mushaf.Spread != 2 {
		return fmt.Errorf("mushaf spread must be 1 or 2, got %d", c.Mushaf.Spread)
	}
	if c.Mushaf.LastPage < 1 {
		return fmt.Errorf("mushaf last page must be positive, got %d", c.Mushaf.LastPage)
	}
	if !inUnit(c.Recite.DirectThreshold) {
		return fmt.Errorf("recite direct threshold must be in (0, 1], got %v", c.Recite.DirectThreshold)
	}
	if !inUnit(c.Recite.LookaheadThreshold) {
		return fmt.Errorf("recite lookahead threshold must be in (0, 1], got %v", c.Recite.LookaheadThreshold)
	}
	if c.Recite.LookaheadWindow < 1 {
		return fmt.Errorf("recite lookahead window must be at least 1, got %d", c.Recite.LookaheadWindow)
	}
	if c.Recite.QueueSize < 1 {
		return fmt.Errorf("recite queue size must be at least 1, got %d", c.Recite.QueueSize)
	}
	return nil
}

func inUnit(v float64) bool {
	return v > 0 && v <= 1
}
