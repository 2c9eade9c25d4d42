// Package headless fetches pages through a headless Chrome so
// JavaScript-rendered content is visible to the extractor.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// Config controls the headless fetcher.
type Config struct {
	// MaxParallel caps concurrent browser tabs. Zero means unlimited.
	MaxParallel int
	UserAgent   string
	// NavigationTimeout bounds a full page load (default 45s).
	NavigationTimeout time.Duration
}

// Fetcher implements scraper.Fetcher with chromedp. One shared browser
// allocator serves all fetches; each fetch gets its own tab.
type Fetcher struct {
	cfg         Config
	slots       chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New starts the Chrome allocator.
func New(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("headless: max parallel must be >= 0, got %d", cfg.MaxParallel)
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	var slots chan struct{}
	if cfg.MaxParallel > 0 {
		slots = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocator, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		slots:       slots,
		allocator:   allocator,
		allocCancel: cancel,
	}, nil
}

// Close shuts the browser allocator down.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch renders the page and returns the final DOM as the body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (scraper.Payload, error) {
	if f.slots != nil {
		select {
		case f.slots <- struct{}{}:
			defer func() { <-f.slots }()
		case <-ctx.Done():
			return scraper.Payload{}, fmt.Errorf("headless slot wait: %w", ctx.Err())
		}
	}

	tabCtx, cancelTab := chromedp.NewContext(f.allocator)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.cfg.NavigationTimeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-tabCtx.Done():
		}
	}()

	meta := &documentMeta{}
	chromedp.ListenTarget(tabCtx, meta.onEvent)

	var (
		html     string
		finalURL string
	)
	start := time.Now()
	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := network.Enable().Do(ctx); err != nil {
				return fmt.Errorf("enable network domain: %w", err)
			}
			if f.cfg.UserAgent != "" {
				if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
					return fmt.Errorf("set user-agent: %w", err)
				}
			}
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return scraper.Payload{}, fmt.Errorf("headless fetch canceled: %w", ctx.Err())
		}
		return scraper.Payload{}, fmt.Errorf("headless fetch %s: %w", url, err)
	}

	status, headers := meta.snapshot()
	if finalURL == "" {
		finalURL = url
	}
	return scraper.Payload{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: status,
		Headers:    headers,
		Body:       []byte(html),
		Duration:   time.Since(start),
	}, nil
}

// documentMeta captures the status and headers of the top-level document
// response from CDP network events.
type documentMeta struct {
	mu      sync.Mutex
	status  int
	headers http.Header
}

func (m *documentMeta) onEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	headers := http.Header{}
	for key, value := range resp.Response.Headers {
		headers.Add(key, fmt.Sprint(value))
	}
	m.mu.Lock()
	m.status = int(resp.Response.Status)
	m.headers = headers
	m.mu.Unlock()
}

func (m *documentMeta) snapshot() (int, http.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := m.headers
	if headers == nil {
		headers = http.Header{}
	}
	return status, headers
}
