package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, cfg.Scraper.Workers, 1)
	assert.Equal(t, 15*time.Second, cfg.Scraper.FetchTimeout)
	assert.Equal(t, 3, cfg.Scraper.MaxRetries)
	assert.Equal(t, time.Second, cfg.Scraper.BackoffBase)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Period)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.MinDelay)
	assert.Equal(t, "http", cfg.Fetcher.Mode)
	assert.True(t, cfg.Sinks.Log)
	assert.False(t, cfg.Sinks.Postgres)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scraper:
  workers: 4
  max_retries: 5
ratelimit:
  requests: 2
  period: 1s
  domains:
    - domain: books.toscrape.com
      requests: 1
      period: 2s
      min_delay: 250ms
    - domain: '.*\.toscrape\.com'
      requests: 4
      period: 2s
seeds:
  - http://books.toscrape.com/
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Scraper.Workers)
	assert.Equal(t, 5, cfg.Scraper.MaxRetries)
	assert.Equal(t, 2, cfg.RateLimit.Requests)
	require.Len(t, cfg.RateLimit.Domains, 2)
	assert.Equal(t, "books.toscrape.com", cfg.RateLimit.Domains[0].Domain)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit.Domains[0].MinDelay)
	assert.Equal(t, `.*\.toscrape\.com`, cfg.RateLimit.Domains[1].Domain, "rule order is preserved")
	assert.Equal(t, []string{"http://books.toscrape.com/"}, cfg.Seeds)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCRAPER_SCRAPER_WORKERS", "7")
	t.Setenv("SCRAPER_FETCHER_MODE", "headless")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Scraper.Workers)
	assert.Equal(t, "headless", cfg.Fetcher.Mode)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base(t)
	cfg.Scraper.Workers = 0
	assert.ErrorContains(t, cfg.Validate(), "workers")

	cfg = base(t)
	cfg.Scraper.MaxRetries = 0
	assert.ErrorContains(t, cfg.Validate(), "max_retries")

	cfg = base(t)
	cfg.Fetcher.Mode = "carrier-pigeon"
	assert.ErrorContains(t, cfg.Validate(), "fetcher.mode")

	cfg = base(t)
	cfg.Sinks.Postgres = true
	assert.ErrorContains(t, cfg.Validate(), "postgres.dsn")

	cfg = base(t)
	cfg.Sinks.Pubsub = true
	assert.ErrorContains(t, cfg.Validate(), "pubsub")

	cfg = base(t)
	cfg.RateLimit.Domains = []DomainRule{{Requests: 1, Period: time.Second}}
	assert.ErrorContains(t, cfg.Validate(), "domain")
}
