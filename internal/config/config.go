// Package config loads and validates the scraper configuration from
// file, environment, and flags via viper.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. SCRAPER_SCRAPER_WORKERS.
const envPrefix = "SCRAPER"

// Scraper bounds the dispatcher and retry loop.
type Scraper struct {
	Workers       int           `mapstructure:"workers"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// DomainRule overrides the default rate limit for one exact domain or
// a domain regexp such as `.*\.example\.com`.
type DomainRule struct {
	Domain   string        `mapstructure:"domain"`
	Requests int           `mapstructure:"requests"`
	Period   time.Duration `mapstructure:"period"`
	MinDelay time.Duration `mapstructure:"min_delay"`
}

// RateLimit is the default admission rule plus per-domain overrides.
type RateLimit struct {
	Requests int           `mapstructure:"requests"`
	Period   time.Duration `mapstructure:"period"`
	MinDelay time.Duration `mapstructure:"min_delay"`
	Domains  []DomainRule  `mapstructure:"domains"`
}

// Fetcher selects and tunes the fetch backend.
type Fetcher struct {
	// Mode is "http" (colly) or "headless" (chromedp).
	Mode                string        `mapstructure:"mode"`
	HeadlessMaxParallel int           `mapstructure:"headless_max_parallel"`
	HeadlessNavTimeout  time.Duration `mapstructure:"headless_nav_timeout"`
}

// Extractor toggles optional extraction features.
type Extractor struct {
	BookDetails bool `mapstructure:"book_details"`
}

// Sinks toggles the outcome sinks.
type Sinks struct {
	Log        bool `mapstructure:"log"`
	Prometheus bool `mapstructure:"prometheus"`
	Stats      bool `mapstructure:"stats"`
	Postgres   bool `mapstructure:"postgres"`
	Pubsub     bool `mapstructure:"pubsub"`
}

// Postgres holds the outcome store connection.
type Postgres struct {
	DSN string `mapstructure:"dsn"`
}

// Pubsub holds the outcome topic coordinates.
type Pubsub struct {
	Project string `mapstructure:"project"`
	Topic   string `mapstructure:"topic"`
}

// Server configures the status API.
type Server struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Logging selects the log encoder.
type Logging struct {
	Development bool `mapstructure:"development"`
}

// Config is the full application configuration.
type Config struct {
	Scraper   Scraper   `mapstructure:"scraper"`
	RateLimit RateLimit `mapstructure:"ratelimit"`
	Fetcher   Fetcher   `mapstructure:"fetcher"`
	Extractor Extractor `mapstructure:"extractor"`
	Sinks     Sinks     `mapstructure:"sinks"`
	Postgres  Postgres  `mapstructure:"postgres"`
	Pubsub    Pubsub    `mapstructure:"pubsub"`
	Server    Server    `mapstructure:"server"`
	Logging   Logging   `mapstructure:"logging"`
	Seeds     []string  `mapstructure:"seeds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.workers", runtime.NumCPU())
	v.SetDefault("scraper.fetch_timeout", 15*time.Second)
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.backoff_base", time.Second)
	v.SetDefault("scraper.poll_interval", 5*time.Second)
	v.SetDefault("scraper.shutdown_grace", 30*time.Second)
	v.SetDefault("scraper.user_agent", "web-scraper/1.0")

	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.period", 10*time.Second)
	v.SetDefault("ratelimit.min_delay", 500*time.Millisecond)

	v.SetDefault("fetcher.mode", "http")
	v.SetDefault("fetcher.headless_max_parallel", 2)
	v.SetDefault("fetcher.headless_nav_timeout", 45*time.Second)

	v.SetDefault("extractor.book_details", true)

	v.SetDefault("sinks.log", true)
	v.SetDefault("sinks.prometheus", true)
	v.SetDefault("sinks.stats", true)
	v.SetDefault("sinks.postgres", false)
	v.SetDefault("sinks.pubsub", false)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.development", false)
}

// Load reads the optional config file, applies environment overrides,
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("config: scraper.workers must be at least 1, got %d", c.Scraper.Workers)
	}
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("config: scraper.max_retries must be at least 1, got %d", c.Scraper.MaxRetries)
	}
	if c.Scraper.BackoffBase < 0 {
		return errors.New("config: scraper.backoff_base must not be negative")
	}
	if c.Scraper.FetchTimeout <= 0 {
		return errors.New("config: scraper.fetch_timeout must be positive")
	}
	if c.Scraper.ShutdownGrace < 0 {
		return errors.New("config: scraper.shutdown_grace must not be negative")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Period <= 0 {
		return errors.New("config: ratelimit.period must be positive when a quota is set")
	}
	if c.RateLimit.MinDelay < 0 {
		return errors.New("config: ratelimit.min_delay must not be negative")
	}
	for _, rule := range c.RateLimit.Domains {
		if rule.Domain == "" {
			return errors.New("config: ratelimit domain rule needs a domain")
		}
		if rule.Requests > 0 && rule.Period <= 0 {
			return fmt.Errorf("config: ratelimit rule for %s needs a positive period", rule.Domain)
		}
	}
	switch c.Fetcher.Mode {
	case "http", "headless":
	default:
		return fmt.Errorf("config: fetcher.mode must be http or headless, got %q", c.Fetcher.Mode)
	}
	if c.Sinks.Postgres && c.Postgres.DSN == "" {
		return errors.New("config: postgres sink enabled but postgres.dsn is empty")
	}
	if c.Sinks.Pubsub && (c.Pubsub.Project == "" || c.Pubsub.Topic == "") {
		return errors.New("config: pubsub sink enabled but pubsub.project or pubsub.topic is empty")
	}
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	return nil
}
