// Package collyfetcher implements the HTTP fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements scraper.Fetcher with a Colly collector per fetch.
// Colly collectors are cheap to clone and a fresh one per call keeps
// callback state from leaking between URLs.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
}

// New builds a Fetcher with a pooled HTTP transport.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	// Retries re-fetch the same URL, so collector-level dedup must be off.
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())
	return &Fetcher{cfg: cfg, base: c}
}

// Fetch executes a single GET. Non-2xx responses come back as errors
// carrying the status code so the retry loop can treat them like any
// other fetch failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) (scraper.Payload, error) {
	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		payload  scraper.Payload
		fetchErr error
	)
	start := time.Now()

	collector.OnResponse(func(r *colly.Response) {
		payload = scraper.Payload{
			URL:        url,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = fmt.Errorf("http %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return scraper.Payload{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return scraper.Payload{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
		}
		if err != nil {
			return scraper.Payload{}, fmt.Errorf("fetch %s: %w", url, err)
		}
		return payload, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
