// Package frontier implements the deduplicated pending-URL queue.
package frontier

import (
	"sync"

	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
)

// Frontier holds the FIFO pending queue plus the append-only record of
// URLs already handed to a task. A URL enters the queue at most once
// unless the caller re-adds it after a terminal outcome. Safe for
// concurrent producers and a single consumer.
type Frontier struct {
	mu      sync.Mutex
	pending []string
	queued  map[string]struct{}
	visited map[string]struct{}
	logger  *zap.Logger
}

// New returns an empty Frontier.
func New(logger *zap.Logger) *Frontier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
		logger:  logger,
	}
}

// Add canonicalizes the URL and enqueues it unless it is already queued
// or was ever dispatched. Returns true when the URL was accepted;
// duplicates and unparseable URLs are dropped silently (logged at debug).
func (f *Frontier) Add(rawURL string) bool {
	url, err := scraper.CanonicalURL(rawURL)
	if err != nil || url == "" {
		f.logger.Debug("dropping invalid seed", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, ok := f.queued[url]; ok {
		return false
	}
	f.queued[url] = struct{}{}
	f.pending = append(f.pending, url)
	return true
}

// AddAll applies Add to every element and returns the accepted count.
func (f *Frontier) AddAll(urls []string) int {
	accepted := 0
	for _, u := range urls {
		if f.Add(u) {
			accepted++
		}
	}
	return accepted
}

// Take removes and returns the oldest pending URL. The bool result is
// false when the queue is drained.
func (f *Frontier) Take() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return "", false
	}
	url := f.pending[0]
	f.pending = f.pending[1:]
	delete(f.queued, url)
	return url, true
}

// MarkVisited records the URL as dispatched. Returns false if it was
// already visited, so the dispatcher's check-and-mark is a single atomic
// step.
func (f *Frontier) MarkVisited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visited[url]; ok {
		return false
	}
	f.visited[url] = struct{}{}
	return true
}

// Empty reports whether the pending queue is drained. In-flight tasks do
// not count.
func (f *Frontier) Empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) == 0
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// VisitedCount returns how many URLs have ever been dispatched.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
